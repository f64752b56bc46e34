// Package vfd implements Descriptor and Handle: an owning wrapper
// over a raw kernel file descriptor, and a positioned byte-stream
// view over one.
//
// Grounded on the open/close/write discipline of rclone's
// backend/local/local.go (file.Open, file.OpenFile, the mkdirAll +
// write-then-close sequence in Object.Update), generalized from "open
// one rclone Object" into the spec's general-purpose scoped
// descriptor primitive.
package vfd

import (
	"syscall"

	"github.com/ncw/gofs/gfserrors"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const scope = "vfd"

// Mode selects the open access mode.
type Mode int

const (
	Read Mode = iota
	Write
	ReadWrite
)

// Option bits, composed as a set.
type Option int

const (
	OptCreate Option = 1 << iota
	OptTruncate
	OptAppend
	OptExclusive
)

// SeekFrom selects the origin for Handle.Seek.
type SeekFrom int

const (
	SeekStart SeekFrom = iota
	SeekCurrent
	SeekEnd
)

// Error kind tokens.
const (
	KindPathNotFound     = "PathNotFound"
	KindPermissionDenied = "PermissionDenied"
	KindAlreadyExists    = "AlreadyExists"
	KindNotADirectory    = "NotADirectory"
	KindIsADirectory     = "IsADirectory"
	KindTooManyOpenFiles = "TooManyOpenFiles"
	KindOpenFailed       = "OpenFailed"
	KindCloseFailed      = "CloseFailed"
)

// Descriptor exclusively owns an open kernel file descriptor from the
// moment Open returns until Close returns.
type Descriptor struct {
	fd    int
	valid bool
}

// Open opens path with the given mode and options, translating them
// to platform open(2) flags the way backend/local translates its
// config options into os.O_* flags.
func Open(path string, mode Mode, opts Option) (*Descriptor, error) {
	flags := translateFlags(mode, opts)
	fd, err := unix.Open(path, flags, 0666)
	if err != nil {
		return nil, mapOpenError(path, err)
	}
	return &Descriptor{fd: fd, valid: true}, nil
}

func translateFlags(mode Mode, opts Option) int {
	var flags int
	switch mode {
	case Read:
		flags = unix.O_RDONLY
	case Write:
		flags = unix.O_WRONLY
	case ReadWrite:
		flags = unix.O_RDWR
	}
	if opts&OptCreate != 0 {
		flags |= unix.O_CREAT
	}
	if opts&OptTruncate != 0 {
		flags |= unix.O_TRUNC
	}
	if opts&OptAppend != 0 {
		flags |= unix.O_APPEND
	}
	if opts&OptExclusive != 0 {
		flags |= unix.O_EXCL
	}
	return flags
}

func mapOpenError(path string, err error) error {
	base := gfserrors.New(scope, kindForErrno(err)).WithPath(path).WithCause(err)
	if errno, ok := err.(syscall.Errno); ok {
		return base.WithErrno(errno)
	}
	return base
}

func kindForErrno(err error) string {
	switch {
	case errors.Is(err, unix.ENOENT):
		return KindPathNotFound
	case errors.Is(err, unix.EACCES):
		return KindPermissionDenied
	case errors.Is(err, unix.EEXIST):
		return KindAlreadyExists
	case errors.Is(err, unix.ENOTDIR):
		return KindNotADirectory
	case errors.Is(err, unix.EISDIR):
		return KindIsADirectory
	case errors.Is(err, unix.EMFILE), errors.Is(err, unix.ENFILE):
		return KindTooManyOpenFiles
	default:
		return KindOpenFailed
	}
}

// IsValid reports whether the descriptor has not yet been closed.
func (d *Descriptor) IsValid() bool { return d.valid }

// FD returns the raw integer file descriptor. Only meaningful while
// IsValid is true.
func (d *Descriptor) FD() int { return d.fd }

// Close closes the descriptor. It is idempotent: closing an
// already-closed Descriptor is a no-op that returns nil.
func (d *Descriptor) Close() error {
	if !d.valid {
		return nil
	}
	d.valid = false
	if err := unix.Close(d.fd); err != nil {
		e := gfserrors.New(scope, KindCloseFailed).WithCause(err)
		if errno, ok := err.(syscall.Errno); ok {
			e = e.WithErrno(errno)
		}
		return e
	}
	return nil
}

// Duplicate returns a new, independent Descriptor referring to the
// same open file description (dup(2) semantics). Closing one does
// not affect the other.
func (d *Descriptor) Duplicate() (*Descriptor, error) {
	newFd, err := unix.Dup(d.fd)
	if err != nil {
		return nil, gfserrors.New(scope, KindOpenFailed).WithCause(err)
	}
	return &Descriptor{fd: newFd, valid: true}, nil
}

// WithOpen opens path, runs body with the resulting Descriptor, and
// unconditionally closes it on every exit path (including panics),
// the way a `defer`-guarded scope stands in for deterministic
// destructors per spec §9's DESIGN NOTES.
//
// If body returns an error, that error is returned verbatim and any
// close failure is suppressed. If body succeeds but Close fails, the
// close failure is surfaced.
func WithOpen[T any](path string, mode Mode, opts Option, body func(*Descriptor) (T, error)) (result T, err error) {
	d, err := Open(path, mode, opts)
	if err != nil {
		return result, err
	}
	defer func() {
		cerr := d.Close()
		if err == nil {
			err = cerr
		}
	}()
	result, err = body(d)
	return result, err
}
