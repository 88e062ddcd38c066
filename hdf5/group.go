package hdf5

import (
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/ndming/orca-blender/internal/btree"
	"github.com/ndming/orca-blender/internal/heap"
	"github.com/ndming/orca-blender/internal/message"
	"github.com/ndming/orca-blender/internal/object"
)

// Group represents an HDF5 group.
//
// Every group opened through the same parent is the same value, so changes
// made through one handle are seen through all of them and are written once
// by Flush.
type Group struct {
	file   *File
	parent *Group
	name   string // link name in parent
	path   string

	addr uint64 // header address, undefined until first flushed
	size uint64 // header size when written by this process

	loaded   bool
	links    []*message.Link
	attrs    []*message.Attribute
	children map[string]*Group

	// dirty is set on a group and all its ancestors when a link or
	// attribute changes.
	dirty bool
}

// Name returns the group name (last component of path).
func (g *Group) Name() string {
	if g.path == "/" {
		return "/"
	}
	return path.Base(g.path)
}

// Path returns the full path to this group.
func (g *Group) Path() string {
	return g.path
}

// load reads the group's links and attributes from its header.
func (g *Group) load() error {
	if g.loaded {
		return nil
	}
	h, err := object.Read(g.file.reader, g.addr)
	if err != nil {
		return fmt.Errorf("reading object header: %w", err)
	}
	return g.loadHeader(h)
}

func (g *Group) loadHeader(h *object.Header) error {
	if !h.IsGroup() && !(g.parent == nil && g.file.superblock.HasRootScratchPad) {
		return fmt.Errorf("%s: %w", g.path, ErrNotGroup)
	}
	if li := h.LinkInfo(); li != nil && li.HasDenseStorage(g.file.undefinedAddress()) {
		return fmt.Errorf("%s: %w: dense link storage", g.path, ErrUnsupported)
	}

	links := h.Links()
	st := h.SymbolTable()
	if st == nil && g.parent == nil && len(links) == 0 && g.file.superblock.HasRootScratchPad {
		sb := g.file.superblock
		st = &message.SymbolTable{BTreeAddress: sb.RootBTreeAddress, HeapAddress: sb.RootHeapAddress}
	}
	if st != nil {
		converted, err := g.symbolTableLinks(st)
		if err != nil {
			return err
		}
		links = append(links, converted...)
	}

	g.links = links
	g.attrs = h.Attributes()
	g.loaded = true
	return nil
}

// symbolTableLinks lists an old-style group as link messages, which is how
// the group is stored once it is rewritten.
func (g *Group) symbolTableLinks(st *message.SymbolTable) ([]*message.Link, error) {
	names, err := heap.ReadLocal(g.file.reader, st.HeapAddress)
	if err != nil {
		return nil, fmt.Errorf("reading local heap: %w", err)
	}
	entries, err := btree.GroupEntries(g.file.reader, st.BTreeAddress, names)
	if err != nil {
		return nil, fmt.Errorf("reading group B-tree: %w", err)
	}
	links := make([]*message.Link, 0, len(entries))
	for _, e := range entries {
		if e.IsSoftLink() {
			links = append(links, &message.Link{Version: 1, LinkType: message.LinkSoft, Name: e.Name, SoftTarget: e.SoftLink})
			continue
		}
		links = append(links, message.NewHardLink(e.Name, e.ObjectAddress))
	}
	return links, nil
}

func (g *Group) link(name string) *message.Link {
	for _, l := range g.links {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// markDirty flags g and its ancestors for rewriting.
func (g *Group) markDirty() {
	for p := g; p != nil && !p.dirty; p = p.parent {
		p.dirty = true
	}
}

// Members returns the names of all members (groups and datasets), sorted.
func (g *Group) Members() ([]string, error) {
	if err := g.file.check(); err != nil {
		return nil, err
	}
	if err := g.load(); err != nil {
		return nil, err
	}
	names := make([]string, len(g.links))
	for i, l := range g.links {
		names[i] = l.Name
	}
	sort.Strings(names)
	return names, nil
}

// Has reports whether the group has a member called name.
func (g *Group) Has(name string) bool {
	if g.file.check() != nil || g.load() != nil {
		return false
	}
	return g.link(name) != nil
}

// OpenGroup opens a subgroup by relative path.
func (g *Group) OpenGroup(relativePath string) (*Group, error) {
	obj, err := g.open(relativePath)
	if err != nil {
		return nil, err
	}
	group, ok := obj.(*Group)
	if !ok {
		return nil, fmt.Errorf("%s: %w", relativePath, ErrNotGroup)
	}
	return group, nil
}

// OpenDataset opens a dataset by relative path.
func (g *Group) OpenDataset(relativePath string) (*Dataset, error) {
	obj, err := g.open(relativePath)
	if err != nil {
		return nil, err
	}
	dataset, ok := obj.(*Dataset)
	if !ok {
		return nil, fmt.Errorf("%s: %w", relativePath, ErrNotDataset)
	}
	return dataset, nil
}

func (g *Group) open(relativePath string) (any, error) {
	if err := g.file.check(); err != nil {
		return nil, err
	}
	return g.resolve(relativePath, 0)
}

// resolve walks relativePath from g. Absolute soft link targets restart
// from the root and count towards MaxLinkDepth.
func (g *Group) resolve(relativePath string, depth int) (any, error) {
	if depth > MaxLinkDepth {
		return nil, ErrLinkDepth
	}
	parts := splitPath(relativePath)
	if strings.HasPrefix(relativePath, "/") {
		g = g.file.root
	}
	if len(parts) == 0 {
		return g, nil
	}

	current := g
	for i, name := range parts {
		obj, err := current.child(name, depth)
		if err != nil {
			return nil, err
		}
		if i == len(parts)-1 {
			return obj, nil
		}
		next, ok := obj.(*Group)
		if !ok {
			return nil, fmt.Errorf("%s: %w", path.Join(current.path, name), ErrNotGroup)
		}
		current = next
	}
	return current, nil
}

// child opens the member called name.
func (g *Group) child(name string, depth int) (any, error) {
	if c, ok := g.children[name]; ok {
		return c, nil
	}
	if err := g.load(); err != nil {
		return nil, err
	}
	l := g.link(name)
	if l == nil {
		return nil, fmt.Errorf("%s: %w", path.Join(g.path, name), ErrNotFound)
	}

	switch l.LinkType {
	case message.LinkHard:
	case message.LinkSoft:
		target := l.SoftTarget
		if !strings.HasPrefix(target, "/") {
			target = path.Join(g.path, target)
		}
		return g.file.root.resolve(target, depth+1)
	default:
		return nil, fmt.Errorf("%s: %w: link type %d", path.Join(g.path, name), ErrUnsupported, l.LinkType)
	}

	childPath := path.Join(g.path, name)
	h, err := object.Read(g.file.reader, l.ObjectAddress)
	if err != nil {
		return nil, fmt.Errorf("%s: reading object header: %w", childPath, err)
	}
	if h.IsDataset() {
		return newDataset(g.file, childPath, h)
	}

	c := &Group{file: g.file, parent: g, name: name, path: childPath, addr: l.ObjectAddress}
	if err := c.loadHeader(h); err != nil {
		return nil, err
	}
	g.addChild(c)
	return c, nil
}

func (g *Group) addChild(c *Group) {
	if g.children == nil {
		g.children = make(map[string]*Group)
	}
	g.children[c.name] = c
}

// addLink registers a new member.
func (g *Group) addLink(l *message.Link) {
	g.links = append(g.links, l)
	g.markDirty()
}

func (g *Group) checkNewName(name string) error {
	if err := g.file.checkWritable(); err != nil {
		return err
	}
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	if err := g.load(); err != nil {
		return err
	}
	if g.link(name) != nil {
		return fmt.Errorf("%s: %w", path.Join(g.path, name), ErrExists)
	}
	return nil
}

// CreateGroup creates an empty subgroup. The group header is written on the
// next Flush.
func (g *Group) CreateGroup(name string) (*Group, error) {
	if err := g.checkNewName(name); err != nil {
		return nil, err
	}
	c := &Group{
		file:   g.file,
		parent: g,
		name:   name,
		path:   path.Join(g.path, name),
		addr:   g.file.undefinedAddress(),
		loaded: true,
	}
	g.addChild(c)
	g.addLink(message.NewHardLink(name, c.addr))
	c.markDirty()
	return c, nil
}

// RequireGroup opens the subgroup called name, creating it when missing.
func (g *Group) RequireGroup(name string) (*Group, error) {
	if g.Has(name) {
		return g.OpenGroup(name)
	}
	return g.CreateGroup(name)
}

// Attrs returns the attribute names for this group.
func (g *Group) Attrs() []string {
	if g.file.check() != nil || g.load() != nil {
		return nil
	}
	names := make([]string, len(g.attrs))
	for i, a := range g.attrs {
		names[i] = a.Name
	}
	return names
}

// Attr returns an attribute by name, or nil if not found.
func (g *Group) Attr(name string) *Attribute {
	if g.file.check() != nil || g.load() != nil {
		return nil
	}
	return findAttr(g.attrs, name)
}

// HasAttr returns true if the group has an attribute with the given name.
func (g *Group) HasAttr(name string) bool {
	return g.Attr(name) != nil
}

// SetAttr sets a scalar or one-dimensional attribute, replacing any existing
// attribute with the same name.
func (g *Group) SetAttr(name string, value any) error {
	if err := g.file.checkWritable(); err != nil {
		return err
	}
	if err := g.load(); err != nil {
		return err
	}
	attr, err := newAttribute(name, value)
	if err != nil {
		return err
	}
	if i := slices.IndexFunc(g.attrs, func(a *message.Attribute) bool { return a.Name == name }); i >= 0 {
		g.attrs[i] = attr
	} else {
		g.attrs = append(g.attrs, attr)
	}
	g.markDirty()
	return nil
}

// flush writes dirty descendants, relinks them and then rewrites g.
func (g *Group) flush() error {
	if !g.dirty {
		return nil
	}
	names := make([]string, 0, len(g.children))
	for name, c := range g.children {
		if c.dirty {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		c := g.children[name]
		if err := c.flush(); err != nil {
			return err
		}
		if l := g.link(name); l != nil {
			l.ObjectAddress = c.addr
		}
	}

	addr, size, err := g.file.writeHeader(object.GroupMessages(g.links, g.attrs))
	if err != nil {
		return fmt.Errorf("%s: %w", g.path, err)
	}
	if g.size > 0 {
		g.file.allocator.Release(g.addr, g.size)
	}
	g.addr, g.size, g.dirty = addr, size, false
	return nil
}

// splitPath splits a path into its components, dropping empty ones.
func splitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" && s != "." {
			parts = append(parts, s)
		}
	}
	return parts
}
