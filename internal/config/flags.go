package config

import (
	"flag"
	"fmt"
	"sort"

	"github.com/spf13/viper"
)

// flagValue exposes a standard library flag through viper's FlagValue
// interface.
type flagValue struct {
	f       *flag.Flag
	changed bool
}

func (fv flagValue) HasChanged() bool    { return fv.changed }
func (fv flagValue) Name() string        { return fv.f.Name }
func (fv flagValue) ValueString() string { return fv.f.Value.String() }

// ValueType reports the pflag-style type name viper uses to cast the value.
func (fv flagValue) ValueType() string {
	g, ok := fv.f.Value.(flag.Getter)
	if !ok {
		return "string"
	}
	switch g.Get().(type) {
	case bool:
		return "bool"
	case int, int64, uint, uint64:
		return "int"
	case float64:
		return "float64"
	}
	return "string"
}

// bindFlags binds each flag named in keys to its config key. Several flags
// may share a key (e.g. -o and -output); the one set on the command line
// wins.
func bindFlags(v *viper.Viper, fs *flag.FlagSet, keys map[string]string) error {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	names := make([]string, 0, len(keys))
	for name := range keys {
		names = append(names, name)
	}
	sort.Strings(names)

	bound := make(map[string]flagValue)
	for _, name := range names {
		key := keys[name]
		f := fs.Lookup(name)
		if f == nil {
			return fmt.Errorf("config key %s: no flag named %q", key, name)
		}
		if prev, ok := bound[key]; ok && (prev.changed || !set[name]) {
			continue
		}
		bound[key] = flagValue{f: f, changed: set[name]}
	}
	for key, fv := range bound {
		if err := v.BindFlagValue(key, fv); err != nil {
			return fmt.Errorf("binding flag %q: %w", fv.f.Name, err)
		}
	}
	return nil
}
