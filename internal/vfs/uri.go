package vfs

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// EntrySeparator divides the underlying file locator from the inner path.
const EntrySeparator = "!/"

// location is a parsed provider URI.
type location struct {
	underlying string // absolute host path, not yet canonical
	inner      string // inner path including the leading "/"
	hasInner   bool
}

// parseURI splits <scheme>:<locator>[!/<inner>]. The locator is a file: URI
// or a bare absolute host path.
func (p *Provider) parseURI(raw string) (location, error) {
	scheme, ssp, ok := strings.Cut(raw, ":")
	if !ok || scheme == "" {
		return location{}, fmt.Errorf("%w: %q has no scheme", ErrInvalidURI, raw)
	}
	if !strings.EqualFold(scheme, p.Scheme()) {
		return location{}, fmt.Errorf("%w: scheme of %q is not %q", ErrInvalidURI, raw, p.Scheme())
	}

	var loc location
	locator := ssp
	if i := strings.Index(ssp, EntrySeparator); i >= 0 {
		locator = ssp[:i]
		inner, err := url.PathUnescape(ssp[i+1:])
		if err != nil {
			return location{}, fmt.Errorf("%w: %q: %v", ErrInvalidURI, raw, err)
		}
		loc.inner, loc.hasInner = inner, true
	}

	host, err := hostPath(locator)
	if err != nil {
		return location{}, fmt.Errorf("%w: %q: %v", ErrInvalidURI, raw, err)
	}
	loc.underlying = host
	return loc, nil
}

// hostPath turns a file: URI or a bare path into an absolute host path.
func hostPath(locator string) (string, error) {
	if locator == "" {
		return "", fmt.Errorf("empty file locator")
	}
	if !strings.HasPrefix(strings.ToLower(locator), "file:") {
		unescaped, err := url.PathUnescape(locator)
		if err != nil {
			return "", err
		}
		return filepath.Abs(filepath.FromSlash(unescaped))
	}

	u, err := url.Parse(locator)
	if err != nil {
		return "", err
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("remote file host %q", u.Host)
	}
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	if p == "" {
		return "", fmt.Errorf("file URI %q has no path", locator)
	}
	return filepath.Abs(filepath.FromSlash(p))
}

// FileURI renders a host path as the URI a provider accepts, with an optional
// inner path.
func FileURI(scheme, host, inner string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(host)}
	s := scheme + ":" + u.String()
	if inner == "" {
		return s
	}
	return s + "!" + (&url.URL{Path: "/" + strings.TrimPrefix(inner, "/")}).EscapedPath()
}
