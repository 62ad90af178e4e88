package vfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yamatt/arcfs/internal/codec"
)

// copyFixture copies testdata/a.txt.bz2 (which decodes to "hello") into a
// fresh temporary directory and returns its path.
func copyFixture(t *testing.T) string {
	t.Helper()
	return copyTestdata(t, "a.txt.bz2")
}

// copyTestdata copies testdata/name into a fresh temporary directory.
func copyTestdata(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

// newTestFS registers a filesystem over a private copy of the fixture.
func newTestFS(t *testing.T, env map[string]any) (*Provider, *FileSystem, string) {
	t.Helper()
	p := NewProvider(codec.Bzip2{})
	file := copyFixture(t)
	fsys, err := p.NewFileSystem(context.Background(), FileURI("bz2", file, ""), env)
	if err != nil {
		t.Fatalf("NewFileSystem failed: %v", err)
	}
	t.Cleanup(func() {
		_ = fsys.Close()
	})
	return p, fsys, file
}
