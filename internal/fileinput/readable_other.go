//go:build !linux

package fileinput

import "os"

// isReadable reports whether path can be opened for reading.
func isReadable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}
