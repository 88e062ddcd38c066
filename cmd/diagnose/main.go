// Command diagnose prints the structure of an HDF5 archive: groups,
// datasets with their shapes, types and filters, and attribute values.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ndming/orca-blender/hdf5"
)

func main() {
	maxDepth := flag.Int("max-depth", 0, "do not descend below this depth (0 = unlimited)")
	stats := flag.Bool("stats", false, "print min, max, mean and standard deviation of numeric datasets")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-max-depth N] [-stats] <file.h5>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(os.Stdout, flag.Arg(0), *maxDepth, *stats); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, filename string, maxDepth int, stats bool) error {
	f, err := hdf5.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(w, "=== %s (superblock v%d) ===\n", filename, f.Version())
	return hdf5.Walk(f.Root(), func(p string, obj any, err error) error {
		depth := depthOf(p)
		indent := strings.Repeat("  ", depth)
		if err != nil {
			fmt.Fprintf(w, "%s%s: ERROR %v\n", indent, p, err)
			return nil
		}

		switch o := obj.(type) {
		case *hdf5.Group:
			members, _ := o.Members()
			fmt.Fprintf(w, "%sGroup %s (%d members)\n", indent, p, len(members))
			for _, name := range o.Attrs() {
				printAttr(w, indent+"  ", o.Attr(name))
			}
			if maxDepth > 0 && depth >= maxDepth && len(members) > 0 {
				fmt.Fprintf(w, "%s  ...\n", indent)
				return hdf5.SkipGroup
			}
		case *hdf5.Dataset:
			fmt.Fprintf(w, "%sDataset %s %s %v %s", indent, p, o.Type(), o.Shape(), o.Layout())
			if filters := o.Filters(); len(filters) > 0 {
				fmt.Fprintf(w, " [%s]", strings.Join(filters, ","))
			}
			fmt.Fprintln(w)
			if stats {
				printStats(w, indent+"  ", o)
			}
			for _, name := range o.Attrs() {
				printAttr(w, indent+"  ", o.Attr(name))
			}
		}
		return nil
	})
}

func depthOf(p string) int {
	if p == "/" {
		return 0
	}
	return strings.Count(p, "/")
}

func printAttr(w io.Writer, indent string, a *hdf5.Attribute) {
	if a == nil {
		return
	}
	v, err := a.Value()
	if err != nil {
		fmt.Fprintf(w, "%s@%s (%s): %v\n", indent, a.Name(), a.Type(), err)
		return
	}
	fmt.Fprintf(w, "%s@%s = %v\n", indent, a.Name(), v)
}

// printStats summarizes numeric datasets. Strings and empty datasets are
// skipped.
func printStats(w io.Writer, indent string, ds *hdf5.Dataset) {
	if strings.HasPrefix(ds.Type(), "string") || ds.NumElements() == 0 {
		return
	}
	vals, err := ds.ReadFloat64()
	if err != nil {
		fmt.Fprintf(w, "%sstats: %v\n", indent, err)
		return
	}
	mean, std := stat.MeanStdDev(vals, nil)
	fmt.Fprintf(w, "%smin=%g max=%g mean=%g std=%g\n", indent, floats.Min(vals), floats.Max(vals), mean, std)
}
