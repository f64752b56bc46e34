package atomicfile

import (
	"fmt"

	"github.com/ncw/gofs/gfserrors"
)

const scope = "atomicfile"

// Kind tokens, per spec §7.
const (
	KindParentNotFound             = "ParentNotFound"
	KindParentAccessDenied         = "ParentAccessDenied"
	KindParentNotDirectory         = "ParentNotDirectory"
	KindTempFileCreationFailed     = "TempFileCreationFailed"
	KindWriteFailed                = "WriteFailed"
	KindSyncFailed                 = "SyncFailed"
	KindCloseFailed                = "CloseFailed"
	KindMetadataPreservationFailed = "MetadataPreservationFailed"
	KindDestinationExists          = "DestinationExists"
	KindRenameFailed               = "RenameFailed"
	KindDirectorySyncFailed        = "DirectorySyncFailed"
)

// Error is atomicfile's structured error, carrying the shared
// gfserrors.Error base plus the extra context individual failure
// kinds need (byte counts for WriteFailed, the failing preservation
// operation name, rename endpoints).
type Error struct {
	Base          *gfserrors.Error
	BytesWritten  int64
	BytesExpected int64
	Operation     string
	From, To      string
}

func newError(kind, path string) *Error {
	return &Error{Base: gfserrors.New(scope, kind).WithPath(path)}
}

func (e *Error) withCause(cause error) *Error {
	e.Base = e.Base.WithCause(cause)
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Base.Error()
	if e.Operation != "" {
		msg += fmt.Sprintf(" (operation=%s)", e.Operation)
	}
	if e.BytesExpected != 0 || e.BytesWritten != 0 {
		msg += fmt.Sprintf(" (bytes_written=%d bytes_expected=%d)", e.BytesWritten, e.BytesExpected)
	}
	if e.From != "" || e.To != "" {
		msg += fmt.Sprintf(" (from=%q to=%q)", e.From, e.To)
	}
	return msg
}

// Unwrap exposes the underlying gfserrors.Error (and, through it, the
// wrapped OS cause).
func (e *Error) Unwrap() error { return e.Base }

// Is matches by Kind, ignoring context fields, so callers can do
// errors.Is(err, atomicfile.ErrDestinationExists) against the exported
// sentinels below, or compare against another *Error of the same kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case *Error:
		return e.Base.Is(t.Base)
	case *gfserrors.Error:
		return e.Base.Is(t)
	}
	return false
}

// Sentinels usable with errors.Is, matching by kind only.
var (
	ErrDestinationExists = gfserrors.New(scope, KindDestinationExists)
	ErrParentNotFound    = gfserrors.New(scope, KindParentNotFound)
	ErrTempFileCreation  = gfserrors.New(scope, KindTempFileCreationFailed)
)
