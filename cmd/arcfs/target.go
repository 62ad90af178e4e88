package main

import (
	"context"
	"strings"

	"github.com/yamatt/arcfs/internal/vfs"
)

// resolve opens the filesystem a command argument names and returns the path
// it addresses. URIs with an installed scheme go through the provider
// registry; anything else is a host file offered to every provider. A URI
// without an inner path addresses the entry.
func resolve(ctx context.Context, arg string) (*vfs.Path, *vfs.FileSystem, error) {
	if cfg.CanonicalizeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.CanonicalizeTimeout)
		defer cancel()
	}
	env := cfg.FileSystemEnv()

	if scheme, _, ok := strings.Cut(arg, ":"); ok {
		if p, ok := vfs.Lookup(scheme); ok {
			fsys, err := p.Acquire(ctx, arg, env)
			if err != nil {
				return nil, nil, err
			}
			if !strings.Contains(arg, vfs.EntrySeparator) {
				return fsys.Entry(), fsys, nil
			}
			path, err := p.GetPath(ctx, arg)
			if err != nil {
				_ = fsys.Close()
				return nil, nil, err
			}
			return path, fsys, nil
		}
	}

	fsys, err := vfs.OpenPath(ctx, arg, env)
	if err != nil {
		return nil, nil, err
	}
	return fsys.Entry(), fsys, nil
}
