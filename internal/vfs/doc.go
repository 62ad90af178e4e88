// Package vfs presents a single compressed file as a read-only virtual
// filesystem holding one entry.
//
// A Provider serves one URI scheme, e.g. "bz2", and keeps a registry of the
// live FileSystems it created, keyed by the canonical path of the compressed
// file. Paths are addressed with URIs of the form
//
//	bz2:file:///tmp/a.txt.bz2!/a.txt
//
// where "!/" separates the compressed file from the path inside it. Every
// FileSystem has two nodes: the root directory and the entry, whose bytes are
// decoded on demand by the provider's codec.
package vfs

import "log/slog"

// logger is the package-level logger for vfs operations
var logger = slog.Default()

// SetLogger sets the logger for the vfs package
func SetLogger(l *slog.Logger) {
	logger = l
}
