package vfs

import (
	"io"
	"io/fs"
)

var (
	_ fs.FS         = (*FileSystem)(nil)
	_ fs.StatFS     = (*FileSystem)(nil)
	_ fs.ReadDirFS  = (*FileSystem)(nil)
	_ fs.ReadFileFS = (*FileSystem)(nil)
)

// lookup maps an io/fs name ("." or the entry name) to a path.
func (f *FileSystem) lookup(op, name string) (*Path, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	if err := f.ensureOpen(op, name); err != nil {
		return nil, err
	}
	switch name {
	case ".":
		return f.root, nil
	case f.entry.Name:
		return f.entryPath, nil
	default:
		return nil, &fs.PathError{Op: op, Path: name, Err: ErrNoSuchEntry}
	}
}

// Open implements fs.FS.
func (f *FileSystem) Open(name string) (fs.File, error) {
	p, err := f.lookup("open", name)
	if err != nil {
		return nil, err
	}
	attrs, err := p.Attributes()
	if err != nil {
		return nil, err
	}
	if p.kind == kindRoot {
		return &dirFile{fsys: f, attrs: attrs}, nil
	}
	rc, err := p.NewInputStream()
	if err != nil {
		return nil, err
	}
	return &entryFile{ReadCloser: rc, attrs: attrs}, nil
}

// Stat implements fs.StatFS.
func (f *FileSystem) Stat(name string) (fs.FileInfo, error) {
	p, err := f.lookup("stat", name)
	if err != nil {
		return nil, err
	}
	return p.Attributes()
}

// ReadDir implements fs.ReadDirFS.
func (f *FileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	p, err := f.lookup("readdir", name)
	if err != nil {
		return nil, err
	}
	if p.kind != kindRoot {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: ErrNotDirectory}
	}
	attrs, err := f.entryPath.Attributes()
	if err != nil {
		return nil, err
	}
	return []fs.DirEntry{fs.FileInfoToDirEntry(attrs)}, nil
}

// ReadFile implements fs.ReadFileFS.
func (f *FileSystem) ReadFile(name string) ([]byte, error) {
	p, err := f.lookup("read", name)
	if err != nil {
		return nil, err
	}
	rc, err := p.NewInputStream()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rc.Close()
	}()
	return io.ReadAll(rc)
}

type entryFile struct {
	io.ReadCloser
	attrs *BasicAttributes
}

func (e *entryFile) Stat() (fs.FileInfo, error) { return e.attrs, nil }

type dirFile struct {
	fsys  *FileSystem
	attrs *BasicAttributes
	read  bool
}

func (d *dirFile) Stat() (fs.FileInfo, error) { return d.attrs, nil }

func (d *dirFile) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: ".", Err: fs.ErrInvalid}
}

func (d *dirFile) Close() error { return nil }

// ReadDir implements fs.ReadDirFile. The directory has a single entry.
func (d *dirFile) ReadDir(n int) ([]fs.DirEntry, error) {
	if d.read {
		if n > 0 {
			return nil, io.EOF
		}
		return nil, nil
	}
	entries, err := d.fsys.ReadDir(".")
	if err != nil {
		return nil, err
	}
	d.read = true
	return entries, nil
}
