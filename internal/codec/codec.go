// Package codec adapts byte-oriented decompressors to the single logical entry a
// compressed file wraps. A Codec turns a host file into one decode stream and
// knows what that entry is called.
package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SizeUnknown is reported when the decompressed length cannot be learned
// without decoding the whole stream.
const SizeUnknown int64 = -1

// defaultBufferSize is the read buffer placed between the host file and the
// decompressor when the caller does not ask for one.
const defaultBufferSize = 64 << 10

// ErrDecode marks malformed compressed content. Errors returned by a decode
// stream wrap it when the decompressor rejected the data, as opposed to the
// host file failing to read.
var ErrDecode = errors.New("malformed compressed stream")

// ErrMultipleEntries is returned by Probe for archives holding more than one file.
var ErrMultipleEntries = errors.New("archive holds more than one entry")

// Entry describes the single logical file inside a compressed host file.
type Entry struct {
	Name string
	Size int64 // SizeUnknown unless the format records it
}

// Codec is a decompressor for one file format.
type Codec interface {
	// Scheme is the URI scheme of the provider built on this codec, e.g. "bz2".
	Scheme() string
	// Extensions lists file-name suffixes, without the dot, that name this format.
	Extensions() []string
	// ContentType is the MIME type of files in this format.
	ContentType() string
	// Probe validates the host file and describes its entry.
	Probe(name string) (Entry, error)
	// Open starts a fresh decode stream over the host file. bufSize <= 0
	// selects a default read buffer.
	Open(name string, bufSize int) (io.ReadCloser, error)
}

// EntryName derives the entry name from the host file name by stripping the
// first matching extension. Names without a known extension are kept whole.
func EntryName(name string, exts []string) string {
	base := filepath.Base(name)
	for _, ext := range exts {
		if trimmed, ok := strings.CutSuffix(base, "."+ext); ok && trimmed != "" {
			return trimmed
		}
	}
	return base
}

// HasExtension reports whether name ends in one of exts, case-sensitively.
func HasExtension(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, "."+ext) {
			return true
		}
	}
	return false
}

// streamFunc wraps a buffered host file reader in a decompressor.
type streamFunc func(r io.Reader) (io.Reader, error)

// openStream opens name, layers the decompressor built by fn on top of it and
// returns a reader that closes both.
func openStream(name string, bufSize int, fn streamFunc) (io.ReadCloser, error) {
	if bufSize <= 0 {
		bufSize = defaultBufferSize
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	r, err := fn(bufio.NewReaderSize(f, bufSize))
	if err != nil {
		_ = f.Close()
		return nil, classify(err)
	}
	return &decodeReader{r: r, file: f}, nil
}

// probeStream opens a decode stream and pulls one byte through it so that a
// bad header is rejected up front.
func probeStream(c Codec, name string) (Entry, error) {
	rc, err := c.Open(name, 0)
	if err != nil {
		return Entry{}, err
	}
	defer func() {
		_ = rc.Close()
	}()

	var one [1]byte
	if _, err := io.ReadFull(rc, one[:]); err != nil && err != io.EOF {
		return Entry{}, err
	}
	return Entry{Name: EntryName(name, c.Extensions()), Size: SizeUnknown}, nil
}

// decodeReader is the stream handed to callers.
type decodeReader struct {
	r    io.Reader
	file *os.File
	// dec is closed before the file when the decompressor holds resources.
	dec io.Closer
}

func (d *decodeReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if err != nil && err != io.EOF {
		err = classify(err)
	}
	return n, err
}

func (d *decodeReader) Close() error {
	var err error
	if d.dec != nil {
		err = d.dec.Close()
	}
	if cerr := d.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// classify wraps decompressor failures in ErrDecode and leaves host I/O errors alone.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrDecode) {
		return err
	}
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrDecode, err)
}
