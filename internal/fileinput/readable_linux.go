//go:build linux

package fileinput

import "golang.org/x/sys/unix"

// isReadable reports whether the process may read path, using the real uid/gid like access(2).
func isReadable(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}
