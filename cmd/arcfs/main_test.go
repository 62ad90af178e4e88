package main

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/yamatt/arcfs/internal/vfs"
)

// fixture copies testdata/hello.txt.bz2 (which decodes to "hello") into a
// temporary directory.
func fixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "hello.txt.bz2"))
	if err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(t.TempDir(), "hello.txt.bz2")
	if err := os.WriteFile(p, data, 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

// run executes the root command with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCat(t *testing.T) {
	file := fixture(t)

	tests := []struct {
		name string
		arg  string
	}{
		{"host path", file},
		{"uri with entry", vfs.FileURI("bz2", file, "hello.txt")},
		{"uri without entry", vfs.FileURI("bz2", file, "")},
		{"bare path uri", "bz2:" + file + "!/hello.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "cat", tt.arg)
			if err != nil {
				t.Fatalf("cat failed: %v", err)
			}
			if out != "hello" {
				t.Errorf("cat = %q, want hello", out)
			}
		})
	}
}

func TestCatReleasesRegistration(t *testing.T) {
	file := fixture(t)
	uri := vfs.FileURI("bz2", file, "hello.txt")

	for range 2 {
		if _, err := run(t, "cat", uri); err != nil {
			t.Fatalf("cat failed: %v", err)
		}
	}
	p, _ := vfs.Lookup("bz2")
	if _, err := p.GetFileSystem(t.Context(), uri); err == nil {
		t.Error("filesystem still registered after the command finished")
	}
}

func TestCatErrors(t *testing.T) {
	file := fixture(t)
	plain := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(plain, []byte("plain"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, arg := range []string{
		plain,
		vfs.FileURI("bz2", file, "missing"),
		filepath.Join(t.TempDir(), "absent.bz2"),
	} {
		if _, err := run(t, "cat", arg); err == nil {
			t.Errorf("cat %s succeeded, want error", arg)
		}
	}
}

func TestStat(t *testing.T) {
	file := fixture(t)

	out, err := run(t, "--eager-size", "stat", "--format", "yaml", file)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	var attrs map[string]any
	if err := yaml.Unmarshal([]byte(out), &attrs); err != nil {
		t.Fatalf("stat output is not YAML: %v\n%s", err, out)
	}
	if attrs["size"] != 5 || attrs["isRegularFile"] != true {
		t.Errorf("stat = %v", attrs)
	}
	if attrs["contentType"] != "text/plain; charset=utf-8" {
		t.Errorf("contentType = %v", attrs["contentType"])
	}

	out, err = run(t, "stat", "--format", "text", vfs.FileURI("bz2", file, "/"))
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if !strings.Contains(out, "isDirectory:") || !strings.Contains(out, "true") {
		t.Errorf("root stat = %q", out)
	}

	if _, err := run(t, "stat", "--format", "xml", file); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestLs(t *testing.T) {
	out, err := run(t, "ls", fixture(t))
	if err != nil {
		t.Fatalf("ls failed: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), " hello.txt") || !strings.HasPrefix(out, "-r--r--r--") {
		t.Errorf("ls = %q", out)
	}
}

func TestCp(t *testing.T) {
	file := fixture(t)
	dir := t.TempDir()

	if _, err := run(t, "cp", file, dir); err != nil {
		t.Fatalf("cp failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "hello.txt"))
	if err != nil || string(data) != "hello" {
		t.Fatalf("copied file = %q, %v", data, err)
	}

	if _, err := run(t, "cp", file, dir); err == nil {
		t.Error("cp over an existing file succeeded without --force")
	}
	if _, err := run(t, "cp", "--force", file, dir); err != nil {
		t.Errorf("cp --force failed: %v", err)
	}
}

func TestSum(t *testing.T) {
	file := fixture(t)
	out, err := run(t, "sum", file)
	if err != nil {
		t.Fatalf("sum failed: %v", err)
	}

	h := blake3.New()
	_, _ = h.Write([]byte("hello"))
	want := hex.EncodeToString(h.Sum(nil))
	if !strings.HasPrefix(out, want+"  ") {
		t.Errorf("sum = %q, want prefix %s", out, want)
	}
}

func TestDetect(t *testing.T) {
	out, err := run(t, "detect", "a.txt.gz", "README")
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	want := "a.txt.gz\tapplication/gzip\nREADME\tunknown\n"
	if out != want {
		t.Errorf("detect = %q, want %q", out, want)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "arcfs version dev\n") || !strings.Contains(out, "bz2") {
		t.Errorf("version = %q", out)
	}
}

func TestRejectsUnknownLogLevelFlag(t *testing.T) {
	if _, err := run(t, "--log-level", "bogus", "version"); err == nil {
		t.Error("unknown --log-level accepted")
	}
}

func TestMountRejectsBadMountPoint(t *testing.T) {
	file := fixture(t)
	if _, err := run(t, "mount", file, filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("mount on a missing directory succeeded")
	}
	if _, err := run(t, "mount", file, file); err == nil {
		t.Error("mount on a regular file succeeded")
	}
}
