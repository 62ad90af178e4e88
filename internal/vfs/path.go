package vfs

import (
	"fmt"
	"net/url"
	"strings"
)

// Pathname is any path the dispatcher can be handed. Paths that did not come
// from this package's providers are rejected with ErrProviderMismatch.
type Pathname interface {
	String() string
}

// HostPath is a path in the host's own filesystem.
type HostPath string

func (h HostPath) String() string { return string(h) }

// nodeKind tags what a Path addresses.
type nodeKind uint8

const (
	// kindNone is an algebraic result that names no node, e.g. "/a.txt/x".
	kindNone nodeKind = iota
	kindRoot
	kindEntry
)

func (k nodeKind) String() string {
	switch k {
	case kindRoot:
		return "root"
	case kindEntry:
		return "entry"
	default:
		return "none"
	}
}

// Path is a node of a FileSystem. Paths are immutable values; the algebra
// methods return new Paths and never touch the filesystem.
type Path struct {
	fsys  *FileSystem
	abs   bool
	elems []string
	kind  nodeKind
}

func newPath(fsys *FileSystem, abs bool, elems []string) *Path {
	p := &Path{fsys: fsys, abs: abs, elems: elems}
	p.kind = fsys.classify(p)
	return p
}

// parsePath splits s on "/" and drops empty elements.
func parsePath(fsys *FileSystem, s string) *Path {
	var elems []string
	for _, e := range strings.Split(s, "/") {
		if e != "" {
			elems = append(elems, e)
		}
	}
	return newPath(fsys, strings.HasPrefix(s, "/"), elems)
}

// FileSystem returns the filesystem the path belongs to.
func (p *Path) FileSystem() *FileSystem { return p.fsys }

func (p *Path) String() string {
	s := strings.Join(p.elems, "/")
	if p.abs {
		return "/" + s
	}
	return s
}

// IsAbsolute reports whether the path starts at the root.
func (p *Path) IsAbsolute() bool { return p.abs }

// IsRoot reports whether the path addresses the root directory.
func (p *Path) IsRoot() bool { return p.kind == kindRoot }

// IsEntry reports whether the path addresses the archive's entry.
func (p *Path) IsEntry() bool { return p.kind == kindEntry }

// Root returns the root of an absolute path and nil for a relative one.
func (p *Path) Root() *Path {
	if !p.abs {
		return nil
	}
	return p.fsys.root
}

// Parent returns the path without its last element, or nil if there is none.
func (p *Path) Parent() *Path {
	switch n := len(p.elems); {
	case n == 0:
		return nil
	case n == 1 && !p.abs:
		return nil
	default:
		return newPath(p.fsys, p.abs, cloneElems(p.elems[:n-1]))
	}
}

// FileName returns the last element as a relative path, or nil for the root
// and the empty path.
func (p *Path) FileName() *Path {
	if len(p.elems) == 0 {
		return nil
	}
	return newPath(p.fsys, false, []string{p.elems[len(p.elems)-1]})
}

// NameCount is the number of elements in the path. The root has none.
func (p *Path) NameCount() int { return len(p.elems) }

// Name returns element i as a relative path, or nil when i is out of range.
func (p *Path) Name(i int) *Path {
	if i < 0 || i >= len(p.elems) {
		return nil
	}
	return newPath(p.fsys, false, []string{p.elems[i]})
}

// Subpath returns the relative path of elements [begin, end), or nil when
// the range is invalid or empty.
func (p *Path) Subpath(begin, end int) *Path {
	if begin < 0 || end > len(p.elems) || begin >= end {
		return nil
	}
	return newPath(p.fsys, false, cloneElems(p.elems[begin:end]))
}

// StartsWith reports whether other is a leading part of p.
func (p *Path) StartsWith(other *Path) bool {
	if other == nil || !p.fsys.same(other.fsys) || p.abs != other.abs || len(other.elems) > len(p.elems) {
		return false
	}
	for i, e := range other.elems {
		if p.elems[i] != e {
			return false
		}
	}
	return true
}

// EndsWith reports whether other is a trailing part of p. An absolute other
// must equal p.
func (p *Path) EndsWith(other *Path) bool {
	if other == nil || !p.fsys.same(other.fsys) {
		return false
	}
	if other.abs {
		return p.Equal(other)
	}
	if len(other.elems) > len(p.elems) || (len(other.elems) == 0 && len(p.elems) != 0) {
		return false
	}
	off := len(p.elems) - len(other.elems)
	for i, e := range other.elems {
		if p.elems[off+i] != e {
			return false
		}
	}
	return true
}

// Normalize removes "." elements and folds ".." into the preceding element.
// ".." above the root is dropped; leading ".." of a relative path is kept.
func (p *Path) Normalize() *Path {
	return newPath(p.fsys, p.abs, normalizeElems(p.abs, p.elems))
}

func normalizeElems(abs bool, elems []string) []string {
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		switch e {
		case ".":
		case "..":
			switch {
			case len(out) > 0 && out[len(out)-1] != "..":
				out = out[:len(out)-1]
			case abs:
			default:
				out = append(out, e)
			}
		default:
			out = append(out, e)
		}
	}
	return out
}

// Resolve joins other onto p. An absolute other is returned unchanged and
// an empty other returns p.
func (p *Path) Resolve(other *Path) *Path {
	if other == nil || len(other.elems) == 0 && !other.abs {
		return p
	}
	if other.abs {
		return other
	}
	elems := make([]string, 0, len(p.elems)+len(other.elems))
	elems = append(elems, p.elems...)
	elems = append(elems, other.elems...)
	return newPath(p.fsys, p.abs, elems)
}

// ResolveName parses s in p's filesystem and resolves it against p.
func (p *Path) ResolveName(s string) *Path {
	return p.Resolve(parsePath(p.fsys, s))
}

// ResolveSibling resolves other against p's parent.
func (p *Path) ResolveSibling(other *Path) *Path {
	parent := p.Parent()
	if parent == nil {
		return other
	}
	return parent.Resolve(other)
}

// Relativize builds the relative path that leads from p to other, such that
// p.Resolve(p.Relativize(other)).Normalize() equals other.Normalize(). It
// fails when p leaves the prefix it shares with other through "..".
func (p *Path) Relativize(other *Path) (*Path, error) {
	if other == nil || !p.fsys.same(other.fsys) {
		return nil, ErrProviderMismatch
	}
	if p.abs != other.abs {
		return nil, fmt.Errorf("cannot relativize %q against %q: only one is absolute", other, p)
	}
	from, to := p.Normalize().elems, other.Normalize().elems

	common := 0
	for common < len(from) && common < len(to) && from[common] == to[common] {
		common++
	}
	for _, e := range from[common:] {
		if e == ".." {
			return nil, fmt.Errorf("cannot relativize %q against %q: unknown parent", other, p)
		}
	}
	var elems []string
	for range from[common:] {
		elems = append(elems, "..")
	}
	elems = append(elems, to[common:]...)
	return newPath(p.fsys, false, elems), nil
}

// ToAbsolute resolves a relative path against the root.
func (p *Path) ToAbsolute() *Path {
	if p.abs {
		return p
	}
	return p.fsys.root.Resolve(p)
}

// Equal reports whether both paths belong to the same filesystem and have the
// same textual form. Use IsSameFile to compare the nodes they address.
func (p *Path) Equal(other *Path) bool {
	return other != nil && p.fsys.same(other.fsys) && p.abs == other.abs && p.String() == other.String()
}

// URI renders the path as <scheme>:<file-uri>!<absolute-path>.
func (p *Path) URI() string {
	u := url.URL{Scheme: "file", Path: p.fsys.underlying}
	abs := p.ToAbsolute().Normalize()
	inner := (&url.URL{Path: abs.String()}).EscapedPath()
	return p.fsys.provider.Scheme() + ":" + u.String() + "!" + inner
}

func cloneElems(elems []string) []string {
	return append([]string(nil), elems...)
}
