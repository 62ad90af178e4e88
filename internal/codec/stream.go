package codec

import (
	"compress/bzip2"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Bzip2 decodes single-stream .bz2 files.
type Bzip2 struct{}

func (Bzip2) Scheme() string       { return "bz2" }
func (Bzip2) Extensions() []string { return []string{"bz2"} }
func (Bzip2) ContentType() string  { return "application/x-bzip2" }

func (c Bzip2) Probe(name string) (Entry, error) { return probeStream(c, name) }

func (Bzip2) Open(name string, bufSize int) (io.ReadCloser, error) {
	return openStream(name, bufSize, func(r io.Reader) (io.Reader, error) {
		return bzip2.NewReader(r), nil
	})
}

// Gzip decodes .gz files. Concatenated members read as one entry.
type Gzip struct{}

func (Gzip) Scheme() string       { return "gz" }
func (Gzip) Extensions() []string { return []string{"gz"} }
func (Gzip) ContentType() string  { return "application/gzip" }

func (c Gzip) Probe(name string) (Entry, error) { return probeStream(c, name) }

func (Gzip) Open(name string, bufSize int) (io.ReadCloser, error) {
	return openStream(name, bufSize, func(r io.Reader) (io.Reader, error) {
		return gzip.NewReader(r)
	})
}

// Zstd decodes .zst files.
type Zstd struct{}

func (Zstd) Scheme() string       { return "zst" }
func (Zstd) Extensions() []string { return []string{"zst"} }
func (Zstd) ContentType() string  { return "application/zstd" }

func (c Zstd) Probe(name string) (Entry, error) { return probeStream(c, name) }

func (Zstd) Open(name string, bufSize int) (io.ReadCloser, error) {
	var dec *zstd.Decoder
	rc, err := openStream(name, bufSize, func(r io.Reader) (io.Reader, error) {
		// One goroutine per stream; callers open many short-lived readers.
		d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		dec = d
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	rc.(*decodeReader).dec = dec.IOReadCloser()
	return rc, nil
}

// LZ4 decodes .lz4 frame files.
type LZ4 struct{}

func (LZ4) Scheme() string       { return "lz4" }
func (LZ4) Extensions() []string { return []string{"lz4"} }
func (LZ4) ContentType() string  { return "application/x-lz4" }

func (c LZ4) Probe(name string) (Entry, error) { return probeStream(c, name) }

func (LZ4) Open(name string, bufSize int) (io.ReadCloser, error) {
	return openStream(name, bufSize, func(r io.Reader) (io.Reader, error) {
		return lz4.NewReader(r), nil
	})
}
