package codec

import (
	"fmt"
	"io"
	"path"

	"github.com/nwaples/rardecode/v2"
)

// RAR exposes a RAR archive that holds exactly one file. Multi-volume sets
// are followed by rardecode when name is the first volume.
type RAR struct{}

func (RAR) Scheme() string       { return "rar" }
func (RAR) Extensions() []string { return []string{"rar"} }
func (RAR) ContentType() string  { return "application/vnd.rar" }

// Probe walks every header and requires a single non-directory entry.
func (RAR) Probe(name string) (Entry, error) {
	reader, err := rardecode.OpenReader(name)
	if err != nil {
		return Entry{}, classify(err)
	}
	defer func() {
		_ = reader.Close()
	}()

	var entry Entry
	found := false
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Entry{}, classify(err)
		}
		if header.IsDir {
			continue
		}
		if found {
			return Entry{}, fmt.Errorf("%s: %w", name, ErrMultipleEntries)
		}
		found = true
		entry = Entry{Name: path.Base(header.Name), Size: header.UnPackedSize}
		if header.UnKnownSize {
			entry.Size = SizeUnknown
		}
	}
	if !found {
		return Entry{}, fmt.Errorf("%w: %s holds no file entry", ErrDecode, name)
	}
	return entry, nil
}

// Open positions a fresh reader at the first file entry. The buffer size is
// managed by rardecode and bufSize is ignored.
func (RAR) Open(name string, bufSize int) (io.ReadCloser, error) {
	reader, err := rardecode.OpenReader(name)
	if err != nil {
		return nil, classify(err)
	}
	for {
		header, err := reader.Next()
		if err == io.EOF {
			_ = reader.Close()
			return nil, fmt.Errorf("%w: %s holds no file entry", ErrDecode, name)
		}
		if err != nil {
			_ = reader.Close()
			return nil, classify(err)
		}
		if !header.IsDir {
			return &rarStream{rc: reader}, nil
		}
	}
}

type rarStream struct {
	rc *rardecode.ReadCloser
}

func (s *rarStream) Read(p []byte) (int, error) {
	n, err := s.rc.Read(p)
	if err != nil && err != io.EOF {
		err = classify(err)
	}
	return n, err
}

func (s *rarStream) Close() error { return s.rc.Close() }
