package vfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yamatt/arcfs/internal/codec"
)

// fail wraps err with the operation and the URI of p.
func (p *Path) fail(op string, err error) error {
	return &fs.PathError{Op: op, Path: p.URI(), Err: err}
}

// node checks the filesystem is open and the path addresses something.
func (p *Path) node(op string) (nodeKind, error) {
	if p.fsys.closed.Load() {
		return kindNone, p.fail(op, ErrFileSystemClosed)
	}
	if p.kind == kindNone {
		return kindNone, p.fail(op, ErrNoSuchEntry)
	}
	return p.kind, nil
}

// CheckAccess succeeds for read access to the root or the entry. Write and
// execute access is always denied.
func (p *Path) CheckAccess(modes ...AccessMode) error {
	kind, err := p.node("access")
	if err != nil {
		return err
	}
	for _, m := range modes {
		if m != AccessRead {
			return p.fail("access", fmt.Errorf("%w: %s", ErrAccessDenied, m))
		}
	}
	switch kind {
	case kindRoot:
		return nil
	case kindEntry:
		if _, err := os.Stat(p.fsys.underlying); err != nil {
			return p.fail("access", fmt.Errorf("%w: %w", ErrNoSuchEntry, err))
		}
		return nil
	default:
		return p.fail("access", ErrNoSuchEntry)
	}
}

// NewInputStream opens a fresh decode stream over the entry.
func (p *Path) NewInputStream(opts ...OpenOption) (io.ReadCloser, error) {
	kind, err := p.node("open")
	if err != nil {
		return nil, err
	}
	if wantsWrite(opts) {
		return nil, p.fail("open", ErrUnsupported)
	}
	switch kind {
	case kindEntry:
		rc, err := p.fsys.openEntry()
		if err != nil {
			return nil, p.fail("open", openError(err))
		}
		return rc, nil
	case kindRoot:
		return nil, p.fail("open", fmt.Errorf("%w: is a directory", ErrUnsupported))
	default:
		return nil, p.fail("open", ErrNoSuchEntry)
	}
}

// openError folds a failure to open the underlying file into ErrNoSuchEntry,
// keeping decode and closed-filesystem errors as they are.
func openError(err error) error {
	if errors.Is(err, codec.ErrDecode) || errors.Is(err, ErrFileSystemClosed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNoSuchEntry, err)
}

// NewOutputStream always fails: archives are read-only.
func (p *Path) NewOutputStream(opts ...OpenOption) (io.WriteCloser, error) {
	if _, err := p.node("create"); err != nil {
		return nil, err
	}
	return nil, p.fail("create", ErrUnsupported)
}

// NewByteChannel opens a seekable read channel over the entry. Any write
// intent fails with ErrUnsupported.
func (p *Path) NewByteChannel(opts ...OpenOption) (ByteChannel, error) {
	kind, err := p.node("open")
	if err != nil {
		return nil, err
	}
	if wantsWrite(opts) {
		return nil, p.fail("open", ErrUnsupported)
	}
	if kind != kindEntry {
		return nil, p.fail("open", fmt.Errorf("%w: is a directory", ErrUnsupported))
	}
	return newEntryChannel(p)
}

// NewDirectoryStream lists the root. The only child is the entry, included
// when filter is nil or accepts it.
func (p *Path) NewDirectoryStream(filter func(*Path) bool) ([]*Path, error) {
	kind, err := p.node("readdir")
	if err != nil {
		return nil, err
	}
	if kind != kindRoot {
		return nil, p.fail("readdir", ErrNotDirectory)
	}
	entry := p.fsys.entryPath
	if !p.abs {
		entry = p.Resolve(entry.FileName())
	}
	if filter != nil && !filter(entry) {
		return nil, nil
	}
	return []*Path{entry}, nil
}

// Attributes returns the basic attributes of the node.
func (p *Path) Attributes() (*BasicAttributes, error) {
	kind, err := p.node("stat")
	if err != nil {
		return nil, err
	}
	attrs, err := p.fsys.attributes(kind)
	if err != nil {
		return nil, p.fail("stat", err)
	}
	return attrs, nil
}

// IsSameFile reports whether other addresses the same node of the same
// filesystem instance.
func (p *Path) IsSameFile(other Pathname) bool {
	o, ok := other.(*Path)
	if !ok || o == nil {
		return false
	}
	return p.fsys.same(o.fsys) && p.kind != kindNone && p.kind == o.kind
}

// IsHidden reports whether the node's name starts with a dot.
func (p *Path) IsHidden() (bool, error) {
	kind, err := p.node("hidden")
	if err != nil {
		return false, err
	}
	return kind == kindEntry && strings.HasPrefix(p.fsys.entry.Name, "."), nil
}

// Copy writes the decoded node to dst. Only host destinations are writable;
// the entry becomes a file, the root an empty directory.
func (p *Path) Copy(dst Pathname, opts ...CopyOption) error {
	kind, err := p.node("copy")
	if err != nil {
		return err
	}
	target, err := p.writableTarget("copy", dst)
	if err != nil {
		return err
	}
	switch kind {
	case kindEntry:
		return p.copyEntry(target, opts)
	default:
		return p.copyRoot(target, opts)
	}
}

// Move validates dst like Copy and then fails: the source cannot be removed
// from a read-only archive.
func (p *Path) Move(dst Pathname, opts ...CopyOption) error {
	if _, err := p.node("move"); err != nil {
		return err
	}
	if _, err := p.writableTarget("move", dst); err != nil {
		return err
	}
	return p.fail("move", fmt.Errorf("%w: source is read-only", ErrUnsupported))
}

// writableTarget accepts host paths; paths of this provider are read-only and
// any other path belongs to a different provider.
func (p *Path) writableTarget(op string, dst Pathname) (string, error) {
	switch d := dst.(type) {
	case HostPath:
		if d == "" {
			return "", p.fail(op, fmt.Errorf("%w: empty destination", ErrNoSuchEntry))
		}
		return string(d), nil
	case *Path:
		if d == nil || d.fsys.provider != p.fsys.provider {
			return "", p.fail(op, ErrProviderMismatch)
		}
		return "", &fs.PathError{Op: op, Path: d.URI(), Err: fmt.Errorf("%w: destination is read-only", ErrUnsupported)}
	default:
		return "", p.fail(op, ErrProviderMismatch)
	}
}

func (p *Path) copyEntry(target string, opts []CopyOption) error {
	if _, err := os.Lstat(target); err == nil && !hasCopyOption(opts, ReplaceExisting) {
		return &fs.PathError{Op: "copy", Path: target, Err: fs.ErrExist}
	}

	src, err := p.NewInputStream()
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()

	// Write beside the target and rename, so a decode error part way never
	// leaves a truncated file under the target name.
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return p.fail("copy", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if hasCopyOption(opts, CopyAttributes) {
		if info, err := os.Stat(p.fsys.underlying); err == nil {
			_ = os.Chtimes(tmp.Name(), info.ModTime(), info.ModTime())
		}
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (p *Path) copyRoot(target string, opts []CopyOption) error {
	info, err := os.Lstat(target)
	switch {
	case err == nil && info.IsDir() && hasCopyOption(opts, ReplaceExisting):
		return nil
	case err == nil:
		return &fs.PathError{Op: "copy", Path: target, Err: fs.ErrExist}
	}
	return os.Mkdir(target, 0755)
}

// Delete always fails: archives are read-only.
func (p *Path) Delete() error {
	if _, err := p.node("remove"); err != nil {
		return err
	}
	return p.fail("remove", ErrUnsupported)
}

// CreateDirectory always fails: archives are read-only.
func (p *Path) CreateDirectory() error {
	if p.fsys.closed.Load() {
		return p.fail("mkdir", ErrFileSystemClosed)
	}
	return p.fail("mkdir", ErrUnsupported)
}

// SetAttribute always fails: archives are read-only.
func (p *Path) SetAttribute(name string, value any) error {
	if _, err := p.node("setattr"); err != nil {
		return err
	}
	return p.fail("setattr", fmt.Errorf("%w: %s", ErrUnsupported, name))
}

// ReadSymbolicLink always fails: archives hold no links.
func (p *Path) ReadSymbolicLink() (*Path, error) {
	if _, err := p.node("readlink"); err != nil {
		return nil, err
	}
	return nil, p.fail("readlink", ErrUnsupported)
}
