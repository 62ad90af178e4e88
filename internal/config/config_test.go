package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "arcfs.yaml")
	if err := os.WriteFile(p, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("log settings = %q, %q; want info, text", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.CanonicalizeTimeout != 5*time.Second {
		t.Errorf("CanonicalizeTimeout = %v, want 5s", cfg.CanonicalizeTimeout)
	}
	if cfg.EagerSize || cfg.Watch || cfg.BufferSize != 0 {
		t.Errorf("filesystem defaults = %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	p := writeConfig(t, `
log_level: debug
log_format: json
eager_size: true
buffer_size: 8192
watch: true
canonicalize_timeout: 250ms
`)

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := Config{
		LogLevel:            "debug",
		LogFormat:           "json",
		EagerSize:           true,
		BufferSize:          8192,
		Watch:               true,
		CanonicalizeTimeout: 250 * time.Millisecond,
	}
	if *cfg != want {
		t.Errorf("Load = %+v, want %+v", *cfg, want)
	}

	env := cfg.FileSystemEnv()
	if env["eager_size"] != true || env["buffer_size"] != 8192 || env["watch"] != true {
		t.Errorf("FileSystemEnv = %v", env)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("ARCFS_LOG_LEVEL", "warn")
	t.Setenv("ARCFS_EAGER_SIZE", "true")
	p := writeConfig(t, "log_level: debug\n")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want the environment's warn", cfg.LogLevel)
	}
	if !cfg.EagerSize {
		t.Error("EagerSize from environment not applied")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing explicit file", func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "nope.yaml")
		}},
		{"bad log level", func(t *testing.T) string {
			return writeConfig(t, "log_level: loud\n")
		}},
		{"bad log format", func(t *testing.T) string {
			return writeConfig(t, "log_format: xml\n")
		}},
		{"negative timeout", func(t *testing.T) string {
			return writeConfig(t, "canonicalize_timeout: -1s\n")
		}},
		{"malformed yaml", func(t *testing.T) string {
			return writeConfig(t, "log_level: [\n")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.path(t)); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}
}

func TestValidateAfterOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.LogLevel = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted an unknown log level")
	}
}
