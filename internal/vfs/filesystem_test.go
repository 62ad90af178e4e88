package vfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/yamatt/arcfs/internal/codec"
)

func TestEntrySize(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]any
		want int64
	}{
		{"lazy", nil, codec.SizeUnknown},
		{"eager", map[string]any{"eager_size": true}, 5},
		{"eager from string", map[string]any{"eager_size": "true"}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, fsys, _ := newTestFS(t, tt.env)
			attrs, err := fsys.Entry().Attributes()
			if err != nil {
				t.Fatal(err)
			}
			if attrs.Size() != tt.want {
				t.Errorf("size = %d, want %d", attrs.Size(), tt.want)
			}
		})
	}
}

// testdata/truncated.txt.bz2 is the bzip2 encoding of the lines
// "line 000000" .. "line 014999", cut in the middle of its second block.
func TestTruncatedStreamKeepsPrefix(t *testing.T) {
	p := NewProvider(codec.Bzip2{})
	file := copyTestdata(t, "truncated.txt.bz2")
	fsys, err := p.NewFileSystem(context.Background(), FileURI("bz2", file, ""), nil)
	if err != nil {
		t.Fatalf("NewFileSystem: %v", err)
	}
	defer fsys.Close()

	rc, err := fsys.Entry().NewInputStream()
	if err != nil {
		t.Fatalf("NewInputStream: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if !errors.Is(err, codec.ErrDecode) {
		t.Fatalf("read error = %v, want ErrDecode", err)
	}
	if errors.Is(err, ErrNoSuchEntry) {
		t.Errorf("decode error reported as a missing entry: %v", err)
	}

	var want strings.Builder
	for i := range 15000 {
		fmt.Fprintf(&want, "line %06d\n", i)
	}
	if len(got) == 0 || len(got) >= want.Len() {
		t.Fatalf("read %d bytes, want a proper prefix of %d", len(got), want.Len())
	}
	if string(got) != want.String()[:len(got)] {
		t.Error("bytes delivered before the error do not match the original")
	}
}

func TestMeasureIsCached(t *testing.T) {
	_, fsys, _ := newTestFS(t, map[string]any{"eager_size": true})

	if n, err := fsys.measure(); err != nil || n != 5 {
		t.Fatalf("measure = %d, %v; want 5", n, err)
	}
	if len(fsys.sizes) != 1 {
		t.Errorf("cached sizes = %d, want 1", len(fsys.sizes))
	}
	fsys.invalidateSizes()
	if len(fsys.sizes) != 0 {
		t.Error("invalidateSizes kept a cached size")
	}
	if n, err := fsys.measure(); err != nil || n != 5 {
		t.Errorf("measure after invalidation = %d, %v; want 5", n, err)
	}
}

func TestAttributes(t *testing.T) {
	_, fsys, file := newTestFS(t, nil)
	info, err := os.Stat(file)
	if err != nil {
		t.Fatal(err)
	}

	root, err := fsys.Root().Attributes()
	if err != nil {
		t.Fatal(err)
	}
	if !root.IsDirectory() || root.IsRegularFile() || root.Size() != 0 || root.Mode() != fs.ModeDir|0555 {
		t.Errorf("root attributes = %+v", root)
	}
	entry, err := fsys.Entry().Attributes()
	if err != nil {
		t.Fatal(err)
	}
	if entry.IsDirectory() || !entry.IsRegularFile() || entry.IsSymbolicLink() || entry.IsOther() {
		t.Errorf("entry attributes = %+v", entry)
	}
	if entry.Name() != "a.txt" || entry.Mode() != 0444 {
		t.Errorf("entry name, mode = %q, %v", entry.Name(), entry.Mode())
	}
	if !entry.LastModifiedTime().Equal(info.ModTime()) || !entry.CreationTime().Equal(info.ModTime()) {
		t.Errorf("entry times = %v, %v; want %v", entry.LastModifiedTime(), entry.CreationTime(), info.ModTime())
	}
	if root.FileKey() == entry.FileKey() {
		t.Error("root and entry share a file key")
	}

	attrs, ok, err := fsys.Entry().ReadAttributes("posix")
	if attrs != nil || ok || err != nil {
		t.Errorf("ReadAttributes(posix) = %v, %v, %v; want nil, false, nil", attrs, ok, err)
	}
	if _, ok, err := fsys.Entry().ReadAttributes(ViewBasic); !ok || err != nil {
		t.Errorf("ReadAttributes(basic) = %v, %v", ok, err)
	}
}

func TestReadAttributeMap(t *testing.T) {
	_, fsys, _ := newTestFS(t, nil)
	entry := fsys.Entry()

	all, err := entry.ReadAttributeMap("*")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(basicAttributeNames) {
		t.Errorf("* returned %d attributes, want %d", len(all), len(basicAttributeNames))
	}

	some, err := entry.ReadAttributeMap("basic:size,isDirectory")
	if err != nil {
		t.Fatal(err)
	}
	if got := SortedAttributeNames(some); len(got) != 2 || got[0] != "isDirectory" || got[1] != "size" {
		t.Errorf("names = %v, want [isDirectory size]", got)
	}
	if some["isDirectory"] != false || some["size"] != codec.SizeUnknown {
		t.Errorf("values = %v", some)
	}

	if _, err := entry.ReadAttributeMap("posix:permissions"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("posix view: error = %v, want ErrUnsupported", err)
	}
	if _, err := entry.ReadAttributeMap("basic:owner"); err == nil {
		t.Error("unknown attribute should fail")
	}
}

func TestByteChannel(t *testing.T) {
	_, fsys, _ := newTestFS(t, nil)
	ch, err := fsys.Entry().NewByteChannel(OpenRead)
	if err != nil {
		t.Fatal(err)
	}
	defer ch.Close()

	read := func(n int) string {
		t.Helper()
		buf := make([]byte, n)
		got, err := io.ReadFull(ch, buf)
		if err != nil && err != io.ErrUnexpectedEOF {
			t.Fatalf("read: %v", err)
		}
		return string(buf[:got])
	}

	if _, err := ch.Seek(2, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	if got := read(3); got != "llo" {
		t.Errorf("after Seek(2) read %q, want llo", got)
	}
	if ch.Position() != 5 {
		t.Errorf("Position = %d, want 5", ch.Position())
	}
	if _, err := ch.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	if got := read(2); got != "he" {
		t.Errorf("after rewind read %q, want he", got)
	}
	if pos, err := ch.Seek(1, io.SeekCurrent); err != nil || pos != 3 {
		t.Errorf("Seek(1, current) = %d, %v; want 3", pos, err)
	}
	if got := read(1); got != "l" {
		t.Errorf("after relative seek read %q, want l", got)
	}
	if pos, err := ch.Seek(-1, io.SeekEnd); err != nil || pos != 4 {
		t.Errorf("Seek(-1, end) = %d, %v; want 4", pos, err)
	}
	if got := read(4); got != "o" {
		t.Errorf("tail read %q, want o", got)
	}
	if size, err := ch.Size(); err != nil || size != 5 {
		t.Errorf("Size = %d, %v; want 5", size, err)
	}

	if _, err := ch.Seek(10, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	if n, err := ch.Read(make([]byte, 1)); n != 0 || err != io.EOF {
		t.Errorf("read past end = %d, %v; want 0, EOF", n, err)
	}
	if _, err := ch.Seek(-1, io.SeekStart); err == nil {
		t.Error("negative seek should fail")
	}

	if err := ch.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := ch.Read(make([]byte, 1)); err == nil {
		t.Error("read after Close should fail")
	}
}

func TestCopyToHost(t *testing.T) {
	p, fsys, _ := newTestFS(t, nil)
	dir := t.TempDir()
	target := filepath.Join(dir, "out.txt")

	if err := p.Copy(fsys.Entry(), HostPath(target)); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("copied %q, want hello", data)
	}

	if err := p.Copy(fsys.Entry(), HostPath(target)); !errors.Is(err, fs.ErrExist) {
		t.Errorf("copy over existing: error = %v, want ErrExist", err)
	}
	if err := p.Copy(fsys.Entry(), HostPath(target), ReplaceExisting, CopyAttributes); err != nil {
		t.Errorf("copy with ReplaceExisting: %v", err)
	}

	sub := filepath.Join(dir, "sub")
	if err := fsys.Root().Copy(HostPath(sub)); err != nil {
		t.Fatalf("copy root: %v", err)
	}
	if info, err := os.Stat(sub); err != nil || !info.IsDir() {
		t.Errorf("copy root made %v, %v; want a directory", info, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("target directory holds %d entries, want 2 (no leftover temp files)", len(entries))
	}
}

func TestOperationsAfterClose(t *testing.T) {
	_, fsys, _ := newTestFS(t, nil)
	entry := fsys.Entry()

	rc, err := entry.NewInputStream()
	if err != nil {
		t.Fatal(err)
	}
	if err := fsys.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := rc.Read(make([]byte, 1)); !errors.Is(err, ErrFileSystemClosed) {
		t.Errorf("read on stream after Close: error = %v, want ErrFileSystemClosed", err)
	}
	if err := rc.Close(); err != nil {
		t.Errorf("closing a released stream: %v", err)
	}

	if _, err := entry.NewInputStream(); !errors.Is(err, ErrFileSystemClosed) {
		t.Errorf("NewInputStream error = %v, want ErrFileSystemClosed", err)
	}
	if _, err := fsys.GetPath("a.txt"); !errors.Is(err, ErrFileSystemClosed) {
		t.Errorf("GetPath error = %v, want ErrFileSystemClosed", err)
	}
	if _, err := entry.Attributes(); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("Attributes error = %v, want fs.ErrClosed", err)
	}
	if err := entry.CheckAccess(); !errors.Is(err, ErrFileSystemClosed) {
		t.Errorf("CheckAccess error = %v, want ErrFileSystemClosed", err)
	}
	if _, err := fsys.Open("a.txt"); !errors.Is(err, ErrFileSystemClosed) {
		t.Errorf("Open error = %v, want ErrFileSystemClosed", err)
	}

	// The path algebra does not need an open filesystem.
	if entry.Parent() == nil || entry.String() != "/a.txt" {
		t.Error("path algebra failed after close")
	}
}

func TestMiscQueries(t *testing.T) {
	_, fsys, file := newTestFS(t, map[string]any{"entry_name": ".hidden"})

	if fsys.Entry().String() != "/.hidden" {
		t.Fatalf("entry = %v, want /.hidden", fsys.Entry())
	}
	if hidden, err := fsys.Entry().IsHidden(); err != nil || !hidden {
		t.Errorf("IsHidden = %v, %v; want true", hidden, err)
	}
	if hidden, err := fsys.Root().IsHidden(); err != nil || hidden {
		t.Errorf("root IsHidden = %v, %v; want false", hidden, err)
	}
	if !fsys.IsReadOnly() || fsys.Separator() != "/" || len(fsys.RootDirectories()) != 1 {
		t.Error("static filesystem properties")
	}
	if views := fsys.SupportedViews(); len(views) != 1 || views[0] != ViewBasic {
		t.Errorf("SupportedViews = %v", views)
	}

	store, err := fsys.FileStore()
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(file)
	if err != nil {
		t.Fatal(err)
	}
	if !store.ReadOnly || store.Type != "bz2" || store.TotalSpace != info.Size() {
		t.Errorf("FileStore = %+v", store)
	}
}

func TestIOFS(t *testing.T) {
	_, fsys, _ := newTestFS(t, map[string]any{"eager_size": true})

	if err := fstest.TestFS(fsys, "a.txt"); err != nil {
		t.Fatal(err)
	}

	data, err := fs.ReadFile(fsys, "a.txt")
	if err != nil || string(data) != "hello" {
		t.Errorf("ReadFile = %q, %v; want hello", data, err)
	}
	if _, err := fsys.Open("missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open(missing) error = %v, want ErrNotExist", err)
	}
	if _, err := fsys.ReadDir("a.txt"); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("ReadDir(a.txt) error = %v, want ErrNotDirectory", err)
	}
}

func TestWatchClosesOnRemoval(t *testing.T) {
	p, fsys, file := newTestFS(t, map[string]any{"watch": true})

	if err := os.Remove(file); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for fsys.IsOpen() {
		if time.Now().After(deadline) {
			t.Fatal("filesystem still open after its file was removed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, ok := p.reg.get(fsys.Underlying()); ok {
		t.Error("closed filesystem still registered")
	}
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]any
		want    Config
		wantErr bool
	}{
		{"empty", nil, Config{}, false},
		{"all", map[string]any{"eager_size": true, "entry_name": "x", "buffer_size": 4096, "watch": true},
			Config{EagerSize: true, EntryName: "x", BufferSize: 4096, Watch: true}, false},
		{"weak types", map[string]any{"buffer_size": "1024"}, Config{BufferSize: 1024}, false},
		{"unknown key", map[string]any{"bogus": 1}, Config{}, true},
		{"negative buffer", map[string]any{"buffer_size": -1}, Config{}, true},
		{"nested entry name", map[string]any{"entry_name": "a/b"}, Config{}, true},
		{"dot entry name", map[string]any{"entry_name": ".."}, Config{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfig(tt.env)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ParseConfig = %+v, want %+v", got, tt.want)
			}
		})
	}
}
