package direntry

import (
	"github.com/ncw/gofs/gfserrors"
	"github.com/ncw/gofs/vpath"
	"golang.org/x/sys/unix"
)

const direntBufSize = 64 * 1024

// DirCursor owns an open DIR-stream (a raw directory file descriptor
// read with getdents(2) via unix.ReadDirent/unix.ParseDirent) and
// yields Entry values lazily. It does not own its own close
// obligation: that lives on the separate Closer value returned by
// MakeIterator, per spec §9's "separated iterator + closer" design
// note — this lets a caller move the cursor into a for-loop while the
// Closer stays pinned to the enclosing scope for deterministic
// release.
type DirCursor struct {
	fd      int
	path    string
	parent  vpath.Path
	buf     []byte
	pending []direntRecord
	lastErr error
	atEOF   bool
}

// Closer owns the close obligation for a DirCursor produced by
// MakeIterator.
type Closer struct {
	cursor *DirCursor
}

// Close releases the underlying DIR-stream; idempotent.
func (c *Closer) Close() error {
	return c.cursor.close()
}

// MakeIterator opens a DIR-stream on path and returns the iterator
// value plus its closer handle.
func MakeIterator(path string) (*DirCursor, *Closer, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, nil, mapOpenDirError(path, err)
	}
	// Parsed once here rather than per entry in Next: a Path's
	// validation (no NUL/control characters) is a property of path
	// itself and doesn't change per entry, and failing it here — where
	// MakeIterator can still report an error — is the only place a
	// caller can observe it; re-parsing it inside Next and skipping
	// entries on failure would silently drop every entry with no error
	// surfaced at all.
	parent, err := vpath.New(path)
	if err != nil {
		_ = unix.Close(fd)
		return nil, nil, err
	}
	cursor := &DirCursor{fd: fd, path: path, parent: parent, buf: make([]byte, direntBufSize)}
	return cursor, &Closer{cursor: cursor}, nil
}

func mapOpenDirError(path string, err error) error {
	kind := KindReadFailed
	switch {
	case err == unix.ENOENT:
		kind = KindPathNotFound
	case err == unix.EACCES:
		kind = KindPermissionDenied
	case err == unix.ENOTDIR:
		kind = KindNotADirectory
	}
	return gfserrors.New(scope, kind).WithPath(path).WithCause(err)
}

// Next returns the next Entry, skipping "." and "..". It returns
// false once the stream is exhausted or a read error occurred; check
// LastError to distinguish the two.
func (c *DirCursor) Next() (Entry, bool) {
	for {
		if len(c.pending) == 0 {
			if c.atEOF {
				return Entry{}, false
			}
			n, err := unix.ReadDirent(c.fd, c.buf)
			if err != nil {
				c.lastErr = gfserrors.New(scope, KindReadFailed).WithPath(c.path).WithCause(err)
				return Entry{}, false
			}
			if n == 0 {
				c.atEOF = true
				return Entry{}, false
			}
			// parseDirentsWithType filters "." and ".." for us and keeps
			// each entry's d_type so we don't have to lstat for Kind.
			_, entries := parseDirentsWithType(c.buf[:n])
			c.pending = entries
			continue
		}

		rec := c.pending[0]
		c.pending = c.pending[1:]

		comp, err := vpath.NewComponent(rec.name)
		if err != nil {
			// Not expected for real directory entries; skip defensively
			// rather than surface a validation error mid-stream.
			continue
		}

		return Entry{Parent: c.parent, Name: comp, Kind: rec.kind}, true
	}
}

// LastError returns the last ReadFailed error encountered, or nil if
// the stream ended normally.
func (c *DirCursor) LastError() error { return c.lastErr }

func (c *DirCursor) close() error {
	if c.fd < 0 {
		return nil
	}
	fd := c.fd
	c.fd = -1
	if err := unix.Close(fd); err != nil {
		return gfserrors.New(scope, "CloseFailed").WithPath(c.path).WithCause(err)
	}
	return nil
}
