package hdf5

import (
	"errors"
	"path"
)

// SkipGroup can be returned by a WalkFunc visiting a group to skip its
// members.
var SkipGroup = errors.New("skip this group")

// WalkFunc is called for each object during traversal.
// obj is either *Group or *Dataset, or nil when err is set.
// Return nil to continue walking, or an error to stop.
type WalkFunc func(path string, obj any, err error) error

// Walk visits g and everything below it depth-first, members in name
// order. The starting group is visited first.
//
// Example:
//
//	hdf5.Walk(f.Root(), func(path string, obj any, err error) error {
//	    if err != nil {
//	        return err
//	    }
//	    if ds, ok := obj.(*hdf5.Dataset); ok {
//	        fmt.Println(path, ds.Shape())
//	    }
//	    return nil
//	})
func Walk(g *Group, fn WalkFunc) error {
	err := walkGroup(g, fn)
	if err == SkipGroup {
		return nil
	}
	return err
}

func walkGroup(g *Group, fn WalkFunc) error {
	if err := fn(g.Path(), g, nil); err != nil {
		return err
	}

	members, err := g.Members()
	if err != nil {
		return fn(g.Path(), nil, err)
	}

	for _, name := range members {
		childPath := path.Join(g.Path(), name)
		obj, err := g.open(name)
		if err != nil {
			if err := fn(childPath, nil, err); err != nil {
				return err
			}
			continue
		}

		switch o := obj.(type) {
		case *Group:
			if o.Path() != childPath {
				// Soft link to a group visited under its own path.
				continue
			}
			if err := walkGroup(o, fn); err != nil && err != SkipGroup {
				return err
			}
		case *Dataset:
			if err := fn(childPath, o, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
