package vfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/yamatt/arcfs/internal/codec"
	"github.com/yamatt/arcfs/internal/detect"
)

// Provider serves one URI scheme backed by one codec. It owns the registry of
// live filesystems for that scheme and dispatches generic path operations to
// the paths it created.
type Provider struct {
	codec    codec.Codec
	detector detect.Detector
	timeout  time.Duration
	reg      *registry
}

// Option configures a Provider.
type Option func(*Provider)

// WithCanonicalizeTimeout bounds host path resolution. Zero disables the bound.
func WithCanonicalizeTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// WithDetector replaces the content-type detector derived from the codec.
func WithDetector(d detect.Detector) Option {
	return func(p *Provider) { p.detector = d }
}

// NewProvider returns a provider for c with an empty registry.
func NewProvider(c codec.Codec, opts ...Option) *Provider {
	p := &Provider{
		codec:   c,
		timeout: DefaultCanonicalizeTimeout,
		reg:     newRegistry(),
	}
	exts := c.Extensions()
	if len(exts) > 0 {
		chain := make(detect.Chain, 0, len(exts))
		for _, ext := range exts {
			chain = append(chain, detect.Extension{Ext: ext, MIME: c.ContentType()})
		}
		p.detector = chain
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Scheme is the URI scheme the provider answers to.
func (p *Provider) Scheme() string { return p.codec.Scheme() }

// Extensions lists the file-name suffixes of the provider's format.
func (p *Provider) Extensions() []string { return p.codec.Extensions() }

// ProbeContentType reports the provider's MIME type for names carrying one of
// its extensions, and no opinion otherwise.
func (p *Provider) ProbeContentType(name string) (string, bool) {
	if p.detector == nil {
		return "", false
	}
	return p.detector.ProbeContentType(name)
}

// NewFileSystem creates and registers a filesystem for the file addressed by
// uri. It fails with ErrFileSystemExists if one is already registered for
// the same canonical file.
func (p *Provider) NewFileSystem(ctx context.Context, uri string, env map[string]any) (*FileSystem, error) {
	loc, err := p.parseURI(uri)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(env)
	if err != nil {
		return nil, err
	}
	return p.create(ctx, loc.underlying, cfg, true)
}

// NewFileSystemFromPath opens a filesystem for a host file. The result is not
// registered and is only reachable through the returned value. Paths of a
// virtual filesystem are refused: archives of archives are not supported.
func (p *Provider) NewFileSystemFromPath(ctx context.Context, target Pathname, env map[string]any) (*FileSystem, error) {
	host, ok := target.(HostPath)
	if !ok {
		return nil, &fs.PathError{Op: "newfs", Path: fmt.Sprint(target), Err: fmt.Errorf("%w: not a host path", ErrUnsupported)}
	}
	cfg, err := ParseConfig(env)
	if err != nil {
		return nil, err
	}
	return p.create(ctx, string(host), cfg, false)
}

func (p *Provider) create(ctx context.Context, target string, cfg Config, register bool) (*FileSystem, error) {
	key, err := canonicalize(ctx, target, p.timeout)
	if err != nil {
		return nil, &fs.PathError{Op: "newfs", Path: target, Err: err}
	}
	info, err := os.Stat(key)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, &fs.PathError{Op: "newfs", Path: target, Err: fmt.Errorf("%w: not a regular file", ErrUnsupported)}
	}

	build := func() (*FileSystem, error) {
		fsys, err := newFileSystem(p, key, cfg, register)
		if err != nil {
			return nil, p.factoryError(target, err)
		}
		return fsys, nil
	}
	if !register {
		return build()
	}
	fsys, err := p.reg.create(key, build)
	if err != nil {
		return nil, &fs.PathError{Op: "newfs", Path: target, Err: err}
	}
	return fsys, nil
}

// factoryError keeps a construction failure for files named like this
// provider's format. For any other name it reports ErrUnsupported so another
// provider can be tried.
func (p *Provider) factoryError(target string, err error) error {
	if codec.HasExtension(filepath.Base(target), p.codec.Extensions()) {
		return err
	}
	return fmt.Errorf("%w: %s is not a %s file: %w", ErrUnsupported, filepath.Base(target), p.Scheme(), err)
}

// GetFileSystem returns the registered filesystem for uri. Failure to resolve
// the host path is reported as ErrFileSystemNotFound with the I/O error kept
// in the chain.
func (p *Provider) GetFileSystem(ctx context.Context, uri string) (*FileSystem, error) {
	loc, err := p.parseURI(uri)
	if err != nil {
		return nil, err
	}
	key, err := canonicalize(ctx, loc.underlying, p.timeout)
	if err != nil {
		return nil, &fs.PathError{Op: "lookup", Path: uri, Err: fmt.Errorf("%w: %w", ErrFileSystemNotFound, err)}
	}
	fsys, ok := p.reg.get(key)
	if !ok {
		return nil, &fs.PathError{Op: "lookup", Path: uri, Err: ErrFileSystemNotFound}
	}
	return fsys, nil
}

// GetPath resolves a URI of the form <scheme>:<file-uri>!/<inner> to a path
// of an already registered filesystem.
func (p *Provider) GetPath(ctx context.Context, uri string) (*Path, error) {
	loc, err := p.parseURI(uri)
	if err != nil {
		return nil, err
	}
	if !loc.hasInner {
		return nil, fmt.Errorf("%w: %q does not contain %q, e.g. %s:file:/tmp/a.txt.%s!/a.txt",
			ErrInvalidURI, uri, EntrySeparator, p.Scheme(), p.Scheme())
	}
	fsys, err := p.GetFileSystem(ctx, uri)
	if err != nil {
		return nil, err
	}
	return fsys.GetPath(loc.inner)
}

// Acquire returns the registered filesystem for uri, creating it if needed.
// A concurrent creator winning the race is not an error.
func (p *Provider) Acquire(ctx context.Context, uri string, env map[string]any) (*FileSystem, error) {
	fsys, err := p.GetFileSystem(ctx, uri)
	if err == nil {
		return fsys, nil
	}
	if !errors.Is(err, ErrFileSystemNotFound) {
		return nil, err
	}
	fsys, err = p.NewFileSystem(ctx, uri, env)
	if errors.Is(err, ErrFileSystemExists) {
		return p.GetFileSystem(ctx, uri)
	}
	return fsys, err
}

// Exists reports whether uri addresses a readable node.
func (p *Provider) Exists(ctx context.Context, uri string) bool {
	path, err := p.GetPath(ctx, uri)
	if err != nil {
		return false
	}
	return path.CheckAccess() == nil
}

// closeFileSystem marks fsys closed and drops key from the registry in one
// step if it still maps to fsys. It reports false if fsys was already closed.
func (p *Provider) closeFileSystem(key string, fsys *FileSystem) bool {
	closed, removed := p.reg.closeAndRemove(key, fsys)
	if closed && !removed {
		logger.Debug("stale filesystem close ignored", "underlying", key, "id", fsys.id)
	}
	return closed
}

// toPath accepts only paths created by this provider.
func (p *Provider) toPath(op string, x Pathname) (*Path, error) {
	path, ok := x.(*Path)
	if !ok || path == nil {
		return nil, &fs.PathError{Op: op, Path: fmt.Sprint(x), Err: ErrProviderMismatch}
	}
	if path.fsys.provider != p {
		return nil, &fs.PathError{Op: op, Path: path.URI(), Err: ErrProviderMismatch}
	}
	return path, nil
}

func (p *Provider) CheckAccess(x Pathname, modes ...AccessMode) error {
	path, err := p.toPath("access", x)
	if err != nil {
		return err
	}
	return path.CheckAccess(modes...)
}

func (p *Provider) Copy(src, dst Pathname, opts ...CopyOption) error {
	path, err := p.toPath("copy", src)
	if err != nil {
		return err
	}
	return path.Copy(dst, opts...)
}

func (p *Provider) Move(src, dst Pathname, opts ...CopyOption) error {
	path, err := p.toPath("move", src)
	if err != nil {
		return err
	}
	return path.Move(dst, opts...)
}

func (p *Provider) Delete(x Pathname) error {
	path, err := p.toPath("remove", x)
	if err != nil {
		return err
	}
	return path.Delete()
}

func (p *Provider) CreateDirectory(x Pathname) error {
	path, err := p.toPath("mkdir", x)
	if err != nil {
		return err
	}
	return path.CreateDirectory()
}

// ReadAttributes answers the basic view and yields ok == false for others.
func (p *Provider) ReadAttributes(x Pathname, view string) (*BasicAttributes, bool, error) {
	path, err := p.toPath("stat", x)
	if err != nil {
		return nil, false, err
	}
	return path.ReadAttributes(view)
}

func (p *Provider) ReadAttributeMap(x Pathname, selector string) (map[string]any, error) {
	path, err := p.toPath("stat", x)
	if err != nil {
		return nil, err
	}
	return path.ReadAttributeMap(selector)
}

func (p *Provider) SetAttribute(x Pathname, name string, value any) error {
	path, err := p.toPath("setattr", x)
	if err != nil {
		return err
	}
	return path.SetAttribute(name, value)
}

func (p *Provider) NewInputStream(x Pathname, opts ...OpenOption) (io.ReadCloser, error) {
	path, err := p.toPath("open", x)
	if err != nil {
		return nil, err
	}
	return path.NewInputStream(opts...)
}

func (p *Provider) NewOutputStream(x Pathname, opts ...OpenOption) (io.WriteCloser, error) {
	path, err := p.toPath("create", x)
	if err != nil {
		return nil, err
	}
	return path.NewOutputStream(opts...)
}

func (p *Provider) NewByteChannel(x Pathname, opts ...OpenOption) (ByteChannel, error) {
	path, err := p.toPath("open", x)
	if err != nil {
		return nil, err
	}
	return path.NewByteChannel(opts...)
}

// NewFileChannel is NewByteChannel; the entry has no file-specific features.
func (p *Provider) NewFileChannel(x Pathname, opts ...OpenOption) (ByteChannel, error) {
	return p.NewByteChannel(x, opts...)
}

// NewAsynchronousChannel always fails without touching the archive.
func (p *Provider) NewAsynchronousChannel(x Pathname, opts ...OpenOption) (ByteChannel, error) {
	path, err := p.toPath("open", x)
	if err != nil {
		return nil, err
	}
	return nil, &fs.PathError{Op: "open", Path: path.URI(), Err: fmt.Errorf("%w: asynchronous channel", ErrUnsupported)}
}

func (p *Provider) NewDirectoryStream(x Pathname, filter func(*Path) bool) ([]*Path, error) {
	path, err := p.toPath("readdir", x)
	if err != nil {
		return nil, err
	}
	return path.NewDirectoryStream(filter)
}

func (p *Provider) IsHidden(x Pathname) (bool, error) {
	path, err := p.toPath("hidden", x)
	if err != nil {
		return false, err
	}
	return path.IsHidden()
}

func (p *Provider) IsSameFile(a, b Pathname) (bool, error) {
	path, err := p.toPath("samefile", a)
	if err != nil {
		return false, err
	}
	return path.IsSameFile(b), nil
}

func (p *Provider) ReadSymbolicLink(x Pathname) (*Path, error) {
	path, err := p.toPath("readlink", x)
	if err != nil {
		return nil, err
	}
	return path.ReadSymbolicLink()
}

func (p *Provider) FileStore(x Pathname) (FileStore, error) {
	path, err := p.toPath("filestore", x)
	if err != nil {
		return FileStore{}, err
	}
	return path.fsys.FileStore()
}
