package vfs

import (
	"errors"
	"fmt"
	"io/fs"
)

// Sentinel errors for package vfs. Each wraps the io/fs or errors sentinel
// with the same meaning, so callers may test with either.
var (
	// Registry state
	ErrFileSystemExists   = fmt.Errorf("filesystem already exists: %w", fs.ErrExist)
	ErrFileSystemNotFound = errors.New("filesystem not found")
	ErrFileSystemClosed   = fmt.Errorf("filesystem closed: %w", fs.ErrClosed)

	// Addressing
	ErrInvalidURI       = errors.New("invalid URI")
	ErrProviderMismatch = errors.New("provider mismatch")
	ErrNoSuchEntry      = fmt.Errorf("no such entry: %w", fs.ErrNotExist)
	ErrNotDirectory     = errors.New("not a directory")

	// Capability boundaries
	ErrUnsupported  = fmt.Errorf("unsupported operation: %w", errors.ErrUnsupported)
	ErrAccessDenied = fmt.Errorf("access denied: %w", fs.ErrPermission)

	// Configuration
	ErrInvalidConfig = errors.New("invalid filesystem configuration")
)
