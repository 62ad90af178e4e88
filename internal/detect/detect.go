// Package detect maps file names to MIME types.
//
// Detectors never fail: a name they do not recognise yields ok == false so
// the next detector in a Chain gets a turn.
package detect

import (
	"mime"
	"path"
	"strings"
)

// Detector probes the content type of a file by name.
type Detector interface {
	ProbeContentType(name string) (mimeType string, ok bool)
}

// Extension recognises a single, case-sensitive file-name suffix.
type Extension struct {
	Ext  string // without the leading dot, e.g. "bz2"
	MIME string
}

func (e Extension) ProbeContentType(name string) (string, bool) {
	if e.Ext == "" {
		return "", false
	}
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if strings.HasSuffix(base, "."+e.Ext) {
		return e.MIME, true
	}
	return "", false
}

// MIMETable falls back to the extension table of the mime package.
type MIMETable struct{}

func (MIMETable) ProbeContentType(name string) (string, bool) {
	ext := path.Ext(name)
	if ext == "" {
		return "", false
	}
	t := mime.TypeByExtension(ext)
	return t, t != ""
}

// Chain asks each detector in order and returns the first opinion.
type Chain []Detector

func (c Chain) ProbeContentType(name string) (string, bool) {
	for _, d := range c {
		if d == nil {
			continue
		}
		if t, ok := d.ProbeContentType(name); ok {
			return t, true
		}
	}
	return "", false
}
