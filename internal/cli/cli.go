// Package cli holds flag helpers shared by the command line tools.
package cli

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseIntList parses integers separated by commas and/or whitespace.
func ParseIntList(s string) ([]int, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid int '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// IntList is a repeatable flag collecting integers; each value may itself
// be a list ("-t 1,4 -t 7").
type IntList []int

func (l *IntList) String() string {
	parts := make([]string, len(*l))
	for i, v := range *l {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (l *IntList) Set(s string) error {
	vals, err := ParseIntList(s)
	if err != nil {
		return err
	}
	*l = append(*l, vals...)
	return nil
}

// Parse parses args allowing flags and positional arguments to be mixed,
// e.g. "DIR -o out.h5". It returns the positional arguments in order. A
// "--" ends flag parsing.
func Parse(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		if len(args) > len(rest) && args[len(args)-len(rest)-1] == "--" {
			return append(positional, rest...), nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}
