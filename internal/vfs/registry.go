package vfs

import (
	"context"
	"path/filepath"
	"sync"
	"time"
)

// DefaultCanonicalizeTimeout bounds symlink resolution of a host path.
const DefaultCanonicalizeTimeout = 5 * time.Second

// registry maps canonical underlying paths to live filesystems. Every read
// and write of the map happens under mu.
type registry struct {
	mu          sync.Mutex
	fileSystems map[string]*FileSystem
}

func newRegistry() *registry {
	return &registry{fileSystems: make(map[string]*FileSystem)}
}

func (r *registry) get(key string) (*FileSystem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fsys, ok := r.fileSystems[key]
	return fsys, ok
}

// create builds and inserts a filesystem for key unless one is already
// registered. build runs inside the critical section so two racing callers
// cannot both succeed; a failed build leaves the map untouched.
func (r *registry) create(key string, build func() (*FileSystem, error)) (*FileSystem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.fileSystems[key]; ok {
		return nil, ErrFileSystemExists
	}
	fsys, err := build()
	if err != nil {
		return nil, err
	}
	r.fileSystems[key] = fsys
	return fsys, nil
}

// closeAndRemove marks fsys closed and deletes key if it still maps to fsys,
// both under mu, so lookups never observe a registered filesystem that is
// already closed. It reports whether this call did the closing; removed is
// false for a stale mapping.
func (r *registry) closeAndRemove(key string, fsys *FileSystem) (closed, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !fsys.closed.CompareAndSwap(false, true) {
		return false, false
	}
	if r.fileSystems[key] != fsys {
		return true, false
	}
	delete(r.fileSystems, key)
	return true, true
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fileSystems)
}

// canonicalize returns the absolute, symlink-free form of name. Resolution
// may block on a slow or hung filesystem, so it is abandoned after timeout or
// when ctx ends.
func canonicalize(ctx context.Context, name string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		path string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		abs, err := filepath.Abs(name)
		if err == nil {
			abs, err = filepath.EvalSymlinks(abs)
		}
		done <- result{abs, err}
	}()

	select {
	case res := <-done:
		return res.path, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
