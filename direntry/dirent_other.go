//go:build !linux

package direntry

import (
	"golang.org/x/sys/unix"

	"github.com/ncw/gofs/vstat"
)

// direntRecord mirrors dirent_linux.go's shape. Platforms handled here
// don't expose d_type through unix.ParseDirent, so every entry reports
// kind Other, matching spec §4.F's "otherwise Other and the caller may
// lstat" fallback rather than lstat-ing on the library's behalf.
type direntRecord struct {
	name string
	kind vstat.Kind
}

func parseDirentsWithType(buf []byte) (consumed int, entries []direntRecord) {
	consumed, _, names := unix.ParseDirent(buf, -1, nil)
	for _, name := range names {
		entries = append(entries, direntRecord{name: name, kind: vstat.Other})
	}
	return consumed, entries
}
