// Package version holds build information set with -ldflags.
package version

var (
	// Version is the release version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns "version (sha, built time)".
func String() string {
	return Version + " (" + GitSHA + ", built " + BuildTime + ")"
}
