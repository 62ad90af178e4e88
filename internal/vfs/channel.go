package vfs

import (
	"errors"
	"fmt"
	"io"
)

// ByteChannel is a seekable read-only view of the entry.
type ByteChannel interface {
	io.ReadSeekCloser
	// Size is the decoded length of the entry.
	Size() (int64, error)
	// Position is the offset the next Read starts at.
	Position() int64
}

// entryChannel emulates random access on a forward-only decoder: seeking
// ahead discards, seeking back reopens the stream.
type entryChannel struct {
	path   *Path
	rc     io.ReadCloser
	pos    int64 // offset of rc
	want   int64 // offset requested by Seek
	closed bool
}

func newEntryChannel(p *Path) (*entryChannel, error) {
	rc, err := p.fsys.openEntry()
	if err != nil {
		return nil, p.fail("open", openError(err))
	}
	return &entryChannel{path: p, rc: rc}, nil
}

func (c *entryChannel) Read(b []byte) (int, error) {
	if c.closed {
		return 0, c.path.fail("read", errors.New("channel closed"))
	}
	if err := c.reposition(); err != nil {
		return 0, err
	}
	n, err := c.rc.Read(b)
	c.pos += int64(n)
	c.want = c.pos
	return n, err
}

func (c *entryChannel) reposition() error {
	if c.want == c.pos {
		return nil
	}
	if c.want < c.pos {
		rc, err := c.path.fsys.openEntry()
		if err != nil {
			return c.path.fail("seek", openError(err))
		}
		_ = c.rc.Close()
		c.rc, c.pos = rc, 0
	}
	n, err := io.CopyN(io.Discard, c.rc, c.want-c.pos)
	c.pos += n
	if err == io.EOF {
		// Past the end: reads report EOF until the next seek.
		c.want = c.pos
		return io.EOF
	}
	return err
}

func (c *entryChannel) Seek(offset int64, whence int) (int64, error) {
	if c.closed {
		return 0, c.path.fail("seek", errors.New("channel closed"))
	}
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = c.want
	case io.SeekEnd:
		size, err := c.Size()
		if err != nil {
			return 0, err
		}
		base = size
	default:
		return 0, c.path.fail("seek", fmt.Errorf("invalid whence %d", whence))
	}
	target := base + offset
	if target < 0 {
		return 0, c.path.fail("seek", errors.New("negative position"))
	}
	c.want = target
	return target, nil
}

func (c *entryChannel) Size() (int64, error) {
	n, err := c.path.fsys.measure()
	if err != nil {
		return 0, c.path.fail("size", err)
	}
	return n, nil
}

func (c *entryChannel) Position() int64 { return c.want }

func (c *entryChannel) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rc.Close()
}
