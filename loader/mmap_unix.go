//go:build unix

package loader

import "golang.org/x/sys/unix"

// advise hints that table and heap reads jump around the image.
func advise(b []byte) {
	if len(b) == 0 {
		return
	}
	_ = unix.Madvise(b, unix.MADV_RANDOM)
}
