// Package fusefs mounts a virtual filesystem with FUSE so that the decoded
// entry can be read by any program as a regular file.
package fusefs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/yamatt/arcfs/internal/codec"
	"github.com/yamatt/arcfs/internal/vfs"
)

// logger is the package-level logger for fusefs operations
var logger = slog.Default()

// maxReadSize is the maximum size for a single read operation (1MB)
const maxReadSize = 1 << 20

// attrValidDuration is how long FUSE caches file/directory attributes
const attrValidDuration = 60 * time.Second

// entryValidDuration is how long FUSE caches directory entry lookups
const entryValidDuration = 60 * time.Second

const (
	rootIno  = 1
	entryIno = 2
)

// SetLogger sets the logger for the fusefs package
func SetLogger(l *slog.Logger) {
	logger = l
}

// Root is the root directory node. Its only child is the entry.
type Root struct {
	fs.Inode
	fsys *vfs.FileSystem
}

// File is the entry node.
type File struct {
	fs.Inode
	fsys *vfs.FileSystem
}

// NewRoot returns the root node for fsys.
func NewRoot(fsys *vfs.FileSystem) *Root {
	return &Root{fsys: fsys}
}

// Ensure interfaces are implemented
var _ fs.NodeReaddirer = (*Root)(nil)
var _ fs.NodeLookuper = (*Root)(nil)
var _ fs.NodeGetattrer = (*Root)(nil)
var _ fs.NodeStatfser = (*Root)(nil)
var _ fs.NodeGetattrer = (*File)(nil)
var _ fs.NodeOpener = (*File)(nil)
var _ fs.FileReader = (*Handle)(nil)
var _ fs.FileReleaser = (*Handle)(nil)

// Getattr returns the attributes of the root directory
func (r *Root) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attrs, err := r.fsys.Root().Attributes()
	if err != nil {
		return toErrno(err)
	}
	fillAttr(&out.Attr, attrs, rootIno)
	out.SetTimeout(attrValidDuration)
	return 0
}

// Readdir lists the single entry
func (r *Root) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	children, err := r.fsys.Root().NewDirectoryStream(nil)
	if err != nil {
		return nil, toErrno(err)
	}
	entries := make([]fuse.DirEntry, 0, len(children))
	for _, child := range children {
		entries = append(entries, fuse.DirEntry{
			Name: child.FileName().String(),
			Mode: syscall.S_IFREG,
			Ino:  entryIno,
		})
	}
	return fs.NewListDirStream(entries), 0
}

// Lookup resolves the entry name
func (r *Root) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	p, err := r.fsys.GetPath(name)
	if err != nil || !p.IsEntry() {
		return nil, syscall.ENOENT
	}
	attrs, err := p.Attributes()
	if err != nil {
		return nil, toErrno(err)
	}
	fillAttr(&out.Attr, attrs, entryIno)
	out.SetEntryTimeout(entryValidDuration)
	out.SetAttrTimeout(attrValidDuration)
	child := &File{fsys: r.fsys}
	return r.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG, Ino: entryIno}), 0
}

// Statfs reports the compressed file as a read-only store
func (r *Root) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	store, err := r.fsys.FileStore()
	if err != nil {
		return toErrno(err)
	}
	const bsize = 4096
	out.Bsize = bsize
	out.Frsize = bsize
	out.Blocks = uint64(store.TotalSpace+bsize-1) / bsize
	out.Files = 2
	out.NameLen = 255
	return 0
}

// Getattr returns the attributes of the entry
func (f *File) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attrs, err := f.fsys.Entry().Attributes()
	if err != nil {
		return toErrno(err)
	}
	fillAttr(&out.Attr, attrs, entryIno)
	out.SetTimeout(attrValidDuration)
	return 0
}

// Open opens a decode channel over the entry. Without a known size the kernel
// must not trust the reported length, so the page cache is bypassed.
func (f *File) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_TRUNC|syscall.O_APPEND) != 0 {
		return nil, 0, syscall.EROFS
	}
	attrs, err := f.fsys.Entry().Attributes()
	if err != nil {
		return nil, 0, toErrno(err)
	}
	h, err := NewHandle(f.fsys.Entry())
	if err != nil {
		return nil, 0, toErrno(err)
	}
	if attrs.Size() == codec.SizeUnknown {
		return h, fuse.FOPEN_DIRECT_IO, 0
	}
	return h, fuse.FOPEN_KEEP_CACHE, 0
}

// Handle serves reads of one open entry from a single byte channel. The
// kernel reads sequentially in the common case, which the channel serves
// without re-decoding.
type Handle struct {
	ch vfs.ByteChannel
	mu sync.Mutex
}

// NewHandle opens a channel over p.
func NewHandle(p *vfs.Path) (*Handle, error) {
	ch, err := p.NewByteChannel(vfs.OpenRead)
	if err != nil {
		return nil, err
	}
	return &Handle{ch: ch}, nil
}

// ReadAt reads up to len(dest) bytes at off. It returns io.EOF only when off
// is at or past the end.
func (h *Handle) ReadAt(dest []byte, off int64) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(dest) > maxReadSize {
		dest = dest[:maxReadSize]
	}
	if _, err := h.ch.Seek(off, io.SeekStart); err != nil {
		return nil, err
	}
	n, err := io.ReadFull(h.ch, dest)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		if n == 0 {
			return nil, io.EOF
		}
		return dest[:n], nil
	}
	if err != nil {
		return nil, err
	}
	return dest[:n], nil
}

// Read serves a FUSE read request
func (h *Handle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	logger.Debug("reading entry", "offset", off, "size", len(dest))
	data, err := h.ReadAt(dest, off)
	if err != nil && err != io.EOF {
		logger.Warn("error reading entry", "offset", off, "error", err)
		return nil, toErrno(err)
	}
	return fuse.ReadResultData(data), 0
}

// Release closes the channel
func (h *Handle) Release(ctx context.Context) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.ch.Close(); err != nil {
		return toErrno(err)
	}
	return 0
}

// fillAttr copies attrs into a FUSE attribute block. An unknown size is
// reported as zero.
func fillAttr(out *fuse.Attr, attrs *vfs.BasicAttributes, ino uint64) {
	out.Ino = ino
	out.Mode = uint32(attrs.Mode().Perm())
	if attrs.IsDir() {
		out.Mode |= syscall.S_IFDIR
		out.Nlink = 2
	} else {
		out.Mode |= syscall.S_IFREG
		out.Nlink = 1
		if attrs.Size() > 0 {
			out.Size = uint64(attrs.Size())
		}
	}
	out.Owner = *fuse.CurrentOwner()
	atime, mtime, ctime := attrs.LastAccessTime(), attrs.LastModifiedTime(), attrs.CreationTime()
	out.SetTimes(&atime, &mtime, &ctime)
}

// toErrno maps vfs errors onto the errno a FUSE client expects.
func toErrno(err error) syscall.Errno {
	var errno syscall.Errno
	switch {
	case err == nil:
		return 0
	case errors.As(err, &errno):
		return errno
	case errors.Is(err, vfs.ErrNoSuchEntry):
		return syscall.ENOENT
	case errors.Is(err, vfs.ErrNotDirectory):
		return syscall.ENOTDIR
	case errors.Is(err, vfs.ErrAccessDenied):
		return syscall.EACCES
	case errors.Is(err, vfs.ErrUnsupported):
		return syscall.ENOTSUP
	default:
		return syscall.EIO
	}
}

// MountOptions controls how a filesystem is mounted.
type MountOptions struct {
	AllowOther bool
	Debug      bool
}

// Mount mounts fsys read-only at mountPoint
func Mount(fsys *vfs.FileSystem, mountPoint string, opts MountOptions) (*fuse.Server, error) {
	logger.Info("mounting filesystem", "source", fsys.Underlying(), "mountPoint", mountPoint)

	entryTimeout, attrTimeout := entryValidDuration, attrValidDuration
	fsOpts := &fs.Options{
		EntryTimeout: &entryTimeout,
		AttrTimeout:  &attrTimeout,
		MountOptions: fuse.MountOptions{
			AllowOther: opts.AllowOther,
			Debug:      opts.Debug,
			FsName:     fsys.Underlying(),
			Name:       "arcfs",
			Options:    []string{"ro"},
		},
	}

	server, err := fs.Mount(mountPoint, NewRoot(fsys), fsOpts)
	if err != nil {
		logger.Error("failed to mount filesystem", "error", err)
		return nil, err
	}

	logger.Info("filesystem mounted successfully")
	return server, nil
}
