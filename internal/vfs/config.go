package vfs

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Config holds the options a FileSystem is created with.
type Config struct {
	// EagerSize makes entry attributes report the decoded length, measured
	// by a full decode pass on first request. Otherwise the size is
	// codec.SizeUnknown unless the archive header records it.
	EagerSize bool `mapstructure:"eager_size"`

	// EntryName overrides the name derived from the archive file name.
	EntryName string `mapstructure:"entry_name"`

	// BufferSize is the read buffer between the host file and the decoder.
	BufferSize int `mapstructure:"buffer_size"`

	// Watch closes the filesystem when the underlying file is removed or
	// renamed, and drops measured sizes when it is rewritten.
	Watch bool `mapstructure:"watch"`
}

// ParseConfig decodes a free-form option map. Unknown keys are rejected.
func ParseConfig(env map[string]any) (Config, error) {
	var cfg Config
	if len(env) == 0 {
		return cfg, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(env); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.BufferSize < 0 {
		return fmt.Errorf("%w: buffer_size must not be negative, got %d", ErrInvalidConfig, c.BufferSize)
	}
	switch {
	case c.EntryName == "":
	case c.EntryName == "." || c.EntryName == "..", strings.Contains(c.EntryName, "/"):
		return fmt.Errorf("%w: entry_name %q is not a single path element", ErrInvalidConfig, c.EntryName)
	}
	return nil
}
