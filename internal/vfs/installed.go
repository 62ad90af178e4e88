package vfs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/yamatt/arcfs/internal/detect"
)

// installed is the process-wide table of providers, in registration order.
var installed struct {
	mu       sync.RWMutex
	byScheme map[string]*Provider
	order    []*Provider
}

// Register installs p under its scheme. It panics if the scheme is taken,
// like database/sql.Register.
func Register(p *Provider) {
	installed.mu.Lock()
	defer installed.mu.Unlock()
	if installed.byScheme == nil {
		installed.byScheme = make(map[string]*Provider)
	}
	scheme := strings.ToLower(p.Scheme())
	if _, dup := installed.byScheme[scheme]; dup {
		panic("vfs: Register called twice for scheme " + scheme)
	}
	installed.byScheme[scheme] = p
	installed.order = append(installed.order, p)
}

// Lookup returns the installed provider for scheme, case-insensitively.
func Lookup(scheme string) (*Provider, bool) {
	installed.mu.RLock()
	defer installed.mu.RUnlock()
	p, ok := installed.byScheme[strings.ToLower(scheme)]
	return p, ok
}

// Installed returns the installed providers in registration order.
func Installed() []*Provider {
	installed.mu.RLock()
	defer installed.mu.RUnlock()
	return append([]*Provider(nil), installed.order...)
}

// ProviderFor returns the installed provider for the scheme of uri.
func ProviderFor(uri string) (*Provider, error) {
	scheme, _, ok := strings.Cut(uri, ":")
	if !ok {
		return nil, fmt.Errorf("%w: %q has no scheme", ErrInvalidURI, uri)
	}
	p, ok := Lookup(scheme)
	if !ok {
		return nil, fmt.Errorf("%w: no provider installed for scheme %q", ErrFileSystemNotFound, scheme)
	}
	return p, nil
}

// PathFromURI resolves uri with the provider installed for its scheme.
func PathFromURI(ctx context.Context, uri string) (*Path, error) {
	p, err := ProviderFor(uri)
	if err != nil {
		return nil, err
	}
	return p.GetPath(ctx, uri)
}

// OpenPath offers host to every installed provider in turn and returns the
// first filesystem created. Providers that report ErrUnsupported are skipped.
func OpenPath(ctx context.Context, host string, env map[string]any) (*FileSystem, error) {
	var errs []error
	for _, p := range Installed() {
		fsys, err := p.NewFileSystemFromPath(ctx, HostPath(host), env)
		if err == nil {
			return fsys, nil
		}
		if !errors.Is(err, ErrUnsupported) {
			return nil, err
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: no provider accepts %s: %w", ErrUnsupported, host, errors.Join(errs...))
}

// ProbeContentType asks every installed provider, then the mime table.
func ProbeContentType(name string) (string, bool) {
	chain := detect.Chain{}
	for _, p := range Installed() {
		chain = append(chain, p)
	}
	chain = append(chain, detect.MIMETable{})
	return chain.ProbeContentType(name)
}
