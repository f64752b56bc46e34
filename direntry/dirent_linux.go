//go:build linux

package direntry

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ncw/gofs/vstat"
)

// direntRecord is one raw getdents64 entry: its name plus the kind
// already resolved from d_type, so Next need not lstat.
type direntRecord struct {
	name string
	kind vstat.Kind
}

// Field offsets into unix.Dirent, resolved at compile time so this
// works regardless of the struct's field order or padding on a given
// GOARCH.
const (
	direntReclenOff = unsafe.Offsetof(unix.Dirent{}.Reclen)
	direntInoOff    = unsafe.Offsetof(unix.Dirent{}.Ino)
	direntTypeOff   = unsafe.Offsetof(unix.Dirent{}.Type)
	direntNameOff   = unsafe.Offsetof(unix.Dirent{}.Name)
)

// parseDirentsWithType walks a getdents64 buffer by Reclen the way
// unix.ParseDirent does internally, but keeps each entry's d_type byte
// instead of discarding it, so DirCursor can honour spec §4.F's "kind
// is taken from d_type when available" without an lstat per entry.
func parseDirentsWithType(buf []byte) (consumed int, entries []direntRecord) {
	origLen := len(buf)
	for len(buf) >= int(direntNameOff) {
		reclen := binary.NativeEndian.Uint16(buf[direntReclenOff:])
		if reclen == 0 || int(reclen) > len(buf) {
			break
		}
		rec := buf[:reclen]
		buf = buf[reclen:]

		if binary.NativeEndian.Uint64(rec[direntInoOff:]) == 0 {
			// Deleted-but-not-yet-reused entry; ParseDirent skips these too.
			continue
		}

		name := rec[direntNameOff:]
		if nul := bytes.IndexByte(name, 0); nul >= 0 {
			name = name[:nul]
		}
		if len(name) == 0 || (name[0] == '.' && (len(name) == 1 || (name[1] == '.' && len(name) == 2))) {
			continue
		}

		entries = append(entries, direntRecord{
			name: string(name),
			kind: kindFromDirentType(rec[direntTypeOff]),
		})
	}
	return origLen - len(buf), entries
}

// kindFromDirentType maps a raw d_type byte to vstat.Kind, returning
// vstat.Other for DT_UNKNOWN or any type the cursor doesn't surface a
// dedicated Kind for, leaving it to the caller to lstat if it cares.
func kindFromDirentType(typ uint8) vstat.Kind {
	switch typ {
	case unix.DT_REG:
		return vstat.Regular
	case unix.DT_DIR:
		return vstat.Directory
	case unix.DT_LNK:
		return vstat.SymbolicLink
	default:
		return vstat.Other
	}
}
