package gfserrors

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByKindOnly(t *testing.T) {
	base := New("atomicfile", "DestinationExists")
	a := base.WithPath("/tmp/a").WithErrno(syscall.EEXIST)
	b := base.WithPath("/tmp/b").WithCause(errors.New("boom"))

	assert.True(t, errors.Is(a, base))
	assert.True(t, errors.Is(b, base))
	assert.True(t, errors.Is(a, b))
}

func TestErrorIsRejectsDifferentKind(t *testing.T) {
	a := New("atomicfile", "DestinationExists")
	b := New("atomicfile", "RenameFailed")
	assert.False(t, errors.Is(a, b))
}

func TestErrorUnwrapExposesCause(t *testing.T) {
	cause := errors.New("underlying")
	e := New("vstat", "StatFailed").WithCause(cause)
	assert.ErrorIs(t, e, cause)
}

func TestErrorStringIncludesContext(t *testing.T) {
	e := New("vpath", "Empty").WithPath("/x")
	assert.Contains(t, e.Error(), "vpath")
	assert.Contains(t, e.Error(), "Empty")
	assert.Contains(t, e.Error(), "/x")
}
