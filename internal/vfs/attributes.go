package vfs

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"
)

// BasicAttributes are the synthetic attributes of a root or entry node. They
// satisfy fs.FileInfo.
type BasicAttributes struct {
	name         string
	size         int64
	dir          bool
	modTime      time.Time
	accessTime   time.Time
	creationTime time.Time
	key          string
}

func (a *BasicAttributes) Name() string { return a.name }

// Size is 0 for the root and codec.SizeUnknown for an entry whose decoded
// length has not been measured.
func (a *BasicAttributes) Size() int64 { return a.size }

func (a *BasicAttributes) Mode() fs.FileMode {
	if a.dir {
		return fs.ModeDir | 0555
	}
	return 0444
}

func (a *BasicAttributes) ModTime() time.Time          { return a.modTime }
func (a *BasicAttributes) IsDir() bool                 { return a.dir }
func (a *BasicAttributes) Sys() any                    { return nil }
func (a *BasicAttributes) LastModifiedTime() time.Time { return a.modTime }
func (a *BasicAttributes) LastAccessTime() time.Time   { return a.accessTime }
func (a *BasicAttributes) CreationTime() time.Time     { return a.creationTime }
func (a *BasicAttributes) IsRegularFile() bool         { return !a.dir }
func (a *BasicAttributes) IsDirectory() bool           { return a.dir }
func (a *BasicAttributes) IsSymbolicLink() bool        { return false }
func (a *BasicAttributes) IsOther() bool               { return false }

// FileKey identifies the node across calls; it is unique per filesystem
// instance and node.
func (a *BasicAttributes) FileKey() string { return a.key }

// attributes builds the attributes of the root or the entry. Timestamps are
// those of the underlying file.
func (f *FileSystem) attributes(kind nodeKind) (*BasicAttributes, error) {
	modTime, atime := f.createdModTime, f.createdModTime
	if info, err := os.Stat(f.underlying); err == nil {
		modTime = info.ModTime()
		atime = accessTime(f.underlying, modTime)
	}
	attrs := &BasicAttributes{
		modTime:      modTime,
		accessTime:   atime,
		creationTime: modTime,
	}

	switch kind {
	case kindRoot:
		attrs.name = "/"
		attrs.dir = true
		attrs.key = f.id.String() + "!/"
	case kindEntry:
		size, err := f.entrySize()
		if err != nil {
			return nil, err
		}
		attrs.name = f.entry.Name
		attrs.size = size
		attrs.key = f.id.String() + "!/" + f.entry.Name
	default:
		return nil, ErrNoSuchEntry
	}
	return attrs, nil
}

// basicAttributeNames lists the attributes of the basic view in the order
// ReadAttributeMap reports them for "*".
var basicAttributeNames = []string{
	"lastModifiedTime",
	"lastAccessTime",
	"creationTime",
	"size",
	"isRegularFile",
	"isDirectory",
	"isSymbolicLink",
	"isOther",
	"fileKey",
}

func (a *BasicAttributes) value(name string) (any, bool) {
	switch name {
	case "lastModifiedTime":
		return a.modTime, true
	case "lastAccessTime":
		return a.accessTime, true
	case "creationTime":
		return a.creationTime, true
	case "size":
		return a.size, true
	case "isRegularFile":
		return a.IsRegularFile(), true
	case "isDirectory":
		return a.dir, true
	case "isSymbolicLink":
		return false, true
	case "isOther":
		return false, true
	case "fileKey":
		return a.key, true
	default:
		return nil, false
	}
}

// ReadAttributes returns the attributes of view. Views other than "basic"
// yield ok == false and no error, so callers can fall back.
func (p *Path) ReadAttributes(view string) (attrs *BasicAttributes, ok bool, err error) {
	if view != ViewBasic {
		if _, err := p.node("stat"); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	attrs, err = p.Attributes()
	if err != nil {
		return nil, false, err
	}
	return attrs, true, nil
}

// ReadAttributeMap reads the attributes named by selector, written
// "[view:]name[,name...]" with "*" for all. The view defaults to "basic";
// any other view fails with ErrUnsupported.
func (p *Path) ReadAttributeMap(selector string) (map[string]any, error) {
	view, names := ViewBasic, selector
	if v, rest, ok := strings.Cut(selector, ":"); ok {
		view, names = v, rest
	}
	if view != ViewBasic {
		return nil, p.fail("stat", fmt.Errorf("%w: attribute view %q", ErrUnsupported, view))
	}
	attrs, err := p.Attributes()
	if err != nil {
		return nil, err
	}

	out := make(map[string]any)
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "*" {
			for _, n := range basicAttributeNames {
				out[n], _ = attrs.value(n)
			}
			continue
		}
		v, ok := attrs.value(name)
		if !ok {
			return nil, p.fail("stat", fmt.Errorf("unknown attribute %q", name))
		}
		out[name] = v
	}
	return out, nil
}

// SortedAttributeNames returns the keys of an attribute map in a stable order.
func SortedAttributeNames(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
