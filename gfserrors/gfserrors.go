// Package gfserrors defines the structured error type shared by every
// gofs package. Each package wraps it with its own kind constants
// rather than inventing a parallel error hierarchy, the way rclone's
// fs package centralises ErrorDirNotFound/ErrorIsFile/etc. for all its
// backends to reuse.
package gfserrors

import (
	"fmt"
	"syscall"

	"github.com/pkg/errors"
)

// Error is the common shape of every error gofs returns: a package
// scope, a kind token unique within that scope, optional path and
// errno context, and the underlying cause (if any).
//
// Equality is defined by Kind+Scope so callers and tests can match on
// "what kind of failure" without caring about the specific path or
// wrapped OS error (spec §7: "Equality is defined on error values so
// tests can match by kind").
type Error struct {
	Scope string // e.g. "vpath", "atomicfile"
	Kind  string // e.g. "Empty", "DestinationExists"
	Path  string // optional
	Errno syscall.Errno
	Cause error
}

// New builds an Error with no path/errno/cause context.
func New(scope, kind string) *Error {
	return &Error{Scope: scope, Kind: kind}
}

// WithPath returns a copy of e with Path set.
func (e *Error) WithPath(path string) *Error {
	cp := *e
	cp.Path = path
	return &cp
}

// WithErrno returns a copy of e with Errno set.
func (e *Error) WithErrno(errno syscall.Errno) *Error {
	cp := *e
	cp.Errno = errno
	return &cp
}

// WithCause returns a copy of e with Cause set, wrapping it with
// pkg/errors so a stack trace is captured at the point of failure.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	if cause != nil {
		cp.Cause = errors.WithStack(cause)
	}
	return &cp
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Scope, e.Kind)
	if e.Path != "" {
		msg += fmt.Sprintf(" (path=%q)", e.Path)
	}
	if e.Errno != 0 {
		msg += fmt.Sprintf(" (errno=%d %s)", e.Errno, e.Errno.Error())
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error with the same Scope and Kind,
// ignoring Path/Errno/Cause. This is what lets callers and tests write
// errors.Is(err, atomicfile.ErrDestinationExists) style comparisons.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Scope == t.Scope && e.Kind == t.Kind
}
