package vfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yamatt/arcfs/internal/codec"
)

// ViewBasic is the only attribute view a FileSystem supports.
const ViewBasic = "basic"

// FileSystem presents one compressed host file as a two-node tree: a root
// directory holding a single entry file.
type FileSystem struct {
	id         uuid.UUID
	provider   *Provider
	underlying string // canonical host path
	registered bool
	cfg        Config
	entry      codec.Entry

	root      *Path
	entryPath *Path

	// ModTime of the underlying file when the filesystem was created; kept
	// for attribute queries that race with removal of the file.
	createdModTime time.Time

	closed  atomic.Bool
	mu      sync.Mutex
	streams map[*trackedReader]struct{}
	sizes   map[string]int64
	sizeGen uint64
	flight  singleflight.Group
	watcher *watcher
}

// newFileSystem probes the underlying file and builds the tree. Nothing is
// registered here; the provider decides that.
func newFileSystem(p *Provider, underlying string, cfg Config, registered bool) (*FileSystem, error) {
	entry, err := p.codec.Probe(underlying)
	if err != nil {
		return nil, err
	}
	if cfg.EntryName != "" {
		entry.Name = cfg.EntryName
	}
	info, err := os.Stat(underlying)
	if err != nil {
		return nil, err
	}

	fsys := &FileSystem{
		id:             uuid.New(),
		provider:       p,
		underlying:     underlying,
		registered:     registered,
		cfg:            cfg,
		entry:          entry,
		createdModTime: info.ModTime(),
		streams:        make(map[*trackedReader]struct{}),
		sizes:          make(map[string]int64),
	}
	fsys.root = newPath(fsys, true, nil)
	fsys.entryPath = newPath(fsys, true, []string{entry.Name})

	if cfg.Watch {
		w, err := newWatcher(fsys)
		if err != nil {
			return nil, fmt.Errorf("watch %s: %w", underlying, err)
		}
		fsys.watcher = w
	}

	logger.Info("filesystem opened", "scheme", p.Scheme(), "underlying", underlying, "entry", entry.Name, "id", fsys.id)
	return fsys, nil
}

// classify tags a path by the node its absolute, normalized form addresses.
func (f *FileSystem) classify(p *Path) nodeKind {
	elems := normalizeElems(true, p.elems)
	switch {
	case len(elems) == 0:
		return kindRoot
	case len(elems) == 1 && elems[0] == f.entry.Name:
		return kindEntry
	default:
		return kindNone
	}
}

func (f *FileSystem) same(other *FileSystem) bool {
	return f != nil && other != nil && f.id == other.id
}

// ID uniquely identifies this filesystem instance.
func (f *FileSystem) ID() uuid.UUID { return f.id }

// Provider returns the provider that created the filesystem.
func (f *FileSystem) Provider() *Provider { return f.provider }

// Underlying is the canonical host path of the compressed file.
func (f *FileSystem) Underlying() string { return f.underlying }

// Config returns the options the filesystem was created with.
func (f *FileSystem) Config() Config { return f.cfg }

// Root returns the root directory path.
func (f *FileSystem) Root() *Path { return f.root }

// Entry returns the path of the single entry.
func (f *FileSystem) Entry() *Path { return f.entryPath }

// RootDirectories lists the roots of the filesystem; there is exactly one.
func (f *FileSystem) RootDirectories() []*Path { return []*Path{f.root} }

// Separator is the name separator of paths in this filesystem.
func (f *FileSystem) Separator() string { return "/" }

// IsOpen reports whether Close has not been called yet.
func (f *FileSystem) IsOpen() bool { return !f.closed.Load() }

// IsReadOnly is always true: archives are never written back.
func (f *FileSystem) IsReadOnly() bool { return true }

// SupportedViews lists the attribute views ReadAttributes can answer.
func (f *FileSystem) SupportedViews() []string { return []string{ViewBasic} }

func (f *FileSystem) String() string {
	return f.provider.Scheme() + ":" + f.underlying
}

// GetPath joins first and more and resolves the result against the root.
// Only the root and the entry exist; any other name fails with ErrNoSuchEntry.
func (f *FileSystem) GetPath(first string, more ...string) (*Path, error) {
	if err := f.ensureOpen("getpath", first); err != nil {
		return nil, err
	}
	joined := first
	if len(more) > 0 {
		joined = strings.Join(append([]string{first}, more...), "/")
	}
	p := f.root.ResolveName(joined)
	if p.kind == kindNone {
		return nil, &fs.PathError{Op: "getpath", Path: joined, Err: ErrNoSuchEntry}
	}
	return p, nil
}

// PathMatcher compiles "glob:<pattern>" or "regex:<pattern>" into a predicate
// over the string form of a path.
func (f *FileSystem) PathMatcher(syntaxAndPattern string) (func(*Path) bool, error) {
	syntax, pattern, ok := strings.Cut(syntaxAndPattern, ":")
	if !ok {
		return nil, fmt.Errorf("path matcher %q: missing syntax prefix", syntaxAndPattern)
	}
	switch strings.ToLower(syntax) {
	case "glob":
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("path matcher %q: %w", syntaxAndPattern, err)
		}
		return func(p *Path) bool {
			ok, _ := path.Match(pattern, p.String())
			return ok
		}, nil
	case "regex":
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, fmt.Errorf("path matcher %q: %w", syntaxAndPattern, err)
		}
		return func(p *Path) bool { return re.MatchString(p.String()) }, nil
	default:
		return nil, fmt.Errorf("path matcher syntax %q: %w", syntax, ErrUnsupported)
	}
}

// FileStore describes the storage backing the filesystem.
type FileStore struct {
	Name       string
	Type       string
	ReadOnly   bool
	TotalSpace int64 // compressed size of the underlying file
}

// FileStore reports the underlying file as a read-only store.
func (f *FileSystem) FileStore() (FileStore, error) {
	if err := f.ensureOpen("filestore", f.underlying); err != nil {
		return FileStore{}, err
	}
	info, err := os.Stat(f.underlying)
	if err != nil {
		return FileStore{}, err
	}
	return FileStore{
		Name:       f.underlying,
		Type:       f.provider.Scheme(),
		ReadOnly:   true,
		TotalSpace: info.Size(),
	}, nil
}

// Close marks the filesystem closed and, in the same step, removes it from
// the provider's registry if the registry still maps the underlying file to
// this instance. Streams still open on it are closed afterwards. Closing
// twice is a no-op.
func (f *FileSystem) Close() error {
	if f.registered {
		if !f.provider.closeFileSystem(f.underlying, f) {
			return nil
		}
	} else if !f.closed.CompareAndSwap(false, true) {
		return nil
	}

	f.mu.Lock()
	streams := f.streams
	f.streams = make(map[*trackedReader]struct{})
	f.sizes = make(map[string]int64)
	f.sizeGen++
	f.mu.Unlock()

	var errs []error
	for s := range streams {
		if err := s.release(); err != nil {
			errs = append(errs, err)
		}
	}
	if f.watcher != nil {
		f.watcher.stop()
	}

	logger.Info("filesystem closed", "scheme", f.provider.Scheme(), "underlying", f.underlying, "id", f.id)
	return errors.Join(errs...)
}

func (f *FileSystem) ensureOpen(op, name string) error {
	if f.closed.Load() {
		return &fs.PathError{Op: op, Path: name, Err: ErrFileSystemClosed}
	}
	return nil
}

// openEntry starts a decode stream that is closed along with the filesystem.
func (f *FileSystem) openEntry() (io.ReadCloser, error) {
	rc, err := f.provider.codec.Open(f.underlying, f.cfg.BufferSize)
	if err != nil {
		return nil, err
	}
	t := &trackedReader{rc: rc, fsys: f}

	f.mu.Lock()
	if f.closed.Load() {
		f.mu.Unlock()
		_ = rc.Close()
		return nil, ErrFileSystemClosed
	}
	f.streams[t] = struct{}{}
	f.mu.Unlock()

	logger.Debug("decode stream opened", "underlying", f.underlying, "entry", f.entry.Name)
	return t, nil
}

// entrySize is the size attribute of the entry: recorded by the archive,
// measured when EagerSize is set, codec.SizeUnknown otherwise.
func (f *FileSystem) entrySize() (int64, error) {
	if f.entry.Size != codec.SizeUnknown || !f.cfg.EagerSize {
		return f.entry.Size, nil
	}
	return f.measure()
}

// measure decodes the whole entry once and caches its length until the
// filesystem closes or the underlying file changes. Concurrent callers share
// one decode pass.
func (f *FileSystem) measure() (int64, error) {
	if f.entry.Size != codec.SizeUnknown {
		return f.entry.Size, nil
	}
	key := f.underlying + "!/" + f.entry.Name

	f.mu.Lock()
	if n, ok := f.sizes[key]; ok {
		f.mu.Unlock()
		return n, nil
	}
	gen := f.sizeGen
	f.mu.Unlock()

	v, err, _ := f.flight.Do(key, func() (any, error) {
		rc, err := f.openEntry()
		if err != nil {
			return int64(0), err
		}
		defer func() {
			_ = rc.Close()
		}()
		return io.Copy(io.Discard, rc)
	})
	if err != nil {
		return 0, err
	}
	n := v.(int64)

	f.mu.Lock()
	if gen == f.sizeGen && !f.closed.Load() {
		f.sizes[key] = n
	}
	f.mu.Unlock()
	return n, nil
}

// invalidateSizes drops measured sizes after the underlying file changed.
func (f *FileSystem) invalidateSizes() {
	f.mu.Lock()
	f.sizes = make(map[string]int64)
	f.sizeGen++
	f.mu.Unlock()
}

// trackedReader is a decode stream registered with its filesystem.
type trackedReader struct {
	rc       io.ReadCloser
	fsys     *FileSystem
	once     sync.Once
	closeErr error
	released atomic.Bool
}

func (t *trackedReader) Read(p []byte) (int, error) {
	if t.released.Load() {
		return 0, ErrFileSystemClosed
	}
	return t.rc.Read(p)
}

// Close closes the stream and forgets it.
func (t *trackedReader) Close() error {
	t.fsys.mu.Lock()
	delete(t.fsys.streams, t)
	t.fsys.mu.Unlock()
	return t.release()
}

// release closes the decoder without touching the filesystem's stream set.
func (t *trackedReader) release() error {
	t.once.Do(func() {
		t.released.Store(true)
		t.closeErr = t.rc.Close()
	})
	return t.closeErr
}
