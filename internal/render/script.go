package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"strconv"
	"text/template"

	"github.com/ndming/orca-blender/internal/version"
)

//go:embed driver.py.tmpl
var driverSource string

var driver = template.Must(template.New("driver.py").
	Funcs(template.FuncMap{"py": pyString}).
	Parse(driverSource))

// pyString quotes s as a Python string literal. The escapes strconv.Quote
// produces are valid in Python as well.
func pyString(s string) string {
	return strconv.Quote(s)
}

type scriptData struct {
	Options
	Width, Height int
	Version       string
}

// Script renders the Python program Blender runs for opts.
func Script(opts Options) ([]byte, error) {
	w, h := opts.Resolution()
	var buf bytes.Buffer
	err := driver.Execute(&buf, scriptData{Options: opts, Width: w, Height: h, Version: version.Version})
	if err != nil {
		return nil, fmt.Errorf("rendering driver script: %w", err)
	}
	return buf.Bytes(), nil
}
