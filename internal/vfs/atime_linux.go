//go:build linux

package vfs

import (
	"time"

	"golang.org/x/sys/unix"
)

// accessTime reads the last access time of name, or returns fallback when it
// cannot be read.
func accessTime(name string, fallback time.Time) time.Time {
	var st unix.Stat_t
	if err := unix.Stat(name, &st); err != nil {
		return fallback
	}
	return time.Unix(st.Atim.Unix())
}
