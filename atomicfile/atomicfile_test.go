package atomicfile

import (
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func tmpFilesIn(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var tmp []string
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			tmp = append(tmp, e.Name())
		}
	}
	return tmp
}

func TestWriteThenReadBack(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")
	data := []byte("Hello")

	require.NoError(t, Write(dest, data, DefaultOptions()))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Empty(t, tmpFilesIn(t, dir))
}

func TestNoClobberFailsIfDestinationExists(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "exists")

	opts := New(WithStrategy(NoClobber))
	require.NoError(t, Write(dest, []byte{1, 2, 3}, opts))

	err := Write(dest, []byte{4, 5, 6}, opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDestinationExists))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
	assert.Empty(t, tmpFilesIn(t, dir))
}

func TestReplaceExistingOverwrites(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "f")
	require.NoError(t, Write(dest, []byte("old"), DefaultOptions()))
	require.NoError(t, Write(dest, []byte("new-content"), DefaultOptions()))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "new-content", string(got))
}

func TestParentNotFoundFails(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "missing-parent", "f")
	err := Write(dest, []byte("x"), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), KindParentNotFound)
}

func TestParentNotDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	notADir := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(notADir, []byte("x"), 0644))
	dest := filepath.Join(notADir, "child")

	err := Write(dest, []byte("x"), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), KindParentNotDirectory)
}

func TestDurabilityNoneSkipsSync(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "f")
	opts := New(WithDurability(DurabilityNone))
	require.NoError(t, Write(dest, []byte("data"), opts))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
}

func TestWriteLargeDataPreallocatesWithoutError(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "big")
	data := make([]byte, 1<<20)

	require.NoError(t, Write(dest, data, DefaultOptions()))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, len(data), len(got))
}

func TestPreservePermissionsOnOverwrite(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0640))

	require.NoError(t, Write(dest, []byte("new"), New(WithPreservePermissions(true))))

	fi, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), fi.Mode().Perm())
}

// The following table exercises spec §8's failure-injection properties:
// a forced failure at protocol steps 2 (temp creation), 3 (write), 4
// (metadata preservation), 5 (sync), 6 (close) and 7 (rename) must
// leave no temp file behind and, where the destination pre-existed,
// must leave it untouched.

func TestTempFileCreationFailureLeavesNoTempFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory write permission bits")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0555))
	defer os.Chmod(dir, 0755)

	dest := filepath.Join(dir, "f")
	err := Write(dest, []byte("data"), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), KindTempFileCreationFailed)

	require.NoError(t, os.Chmod(dir, 0755))
	assert.Empty(t, tmpFilesIn(t, dir))
	assert.NoFileExists(t, dest)
}

func TestWriteFailureLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "f")

	var original syscall.Rlimit
	require.NoError(t, syscall.Getrlimit(syscall.RLIMIT_FSIZE, &original))
	defer syscall.Setrlimit(syscall.RLIMIT_FSIZE, &original)
	require.NoError(t, syscall.Setrlimit(syscall.RLIMIT_FSIZE, &syscall.Rlimit{Cur: 8, Max: original.Max}))

	// Without this, exceeding RLIMIT_FSIZE delivers SIGXFSZ, which
	// kills the process by default instead of failing the write call.
	signal.Ignore(syscall.SIGXFSZ)
	defer signal.Reset(syscall.SIGXFSZ)

	data := make([]byte, 1<<20)
	err := Write(dest, data, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), KindWriteFailed)
	assert.Empty(t, tmpFilesIn(t, dir))
	assert.NoFileExists(t, dest)
}

func TestMetadataPreservationFailureLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0644))

	chownErr := errors.New("injected chown failure")
	orig := chownFn
	chownFn = func(string, int, int) error { return chownErr }
	defer func() { chownFn = orig }()

	opts := New(WithPreserveOwnership(true), WithStrictOwnership(true))
	err := Write(dest, []byte("new"), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), KindMetadataPreservationFailed)
	assert.Empty(t, tmpFilesIn(t, dir))

	got, readErr := os.ReadFile(dest)
	require.NoError(t, readErr)
	assert.Equal(t, "old", string(got))
}

func TestSyncFailureLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "f")

	syncErr := errors.New("injected fsync failure")
	orig := fsyncFn
	fsyncFn = func(fd int) error {
		_ = unix.Fsync(fd)
		return syncErr
	}
	defer func() { fsyncFn = orig }()

	err := Write(dest, []byte("data"), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), KindSyncFailed)
	assert.Empty(t, tmpFilesIn(t, dir))
	assert.NoFileExists(t, dest)
}

func TestCloseFailureLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "f")

	closeErr := errors.New("injected close failure")
	orig := closeFn
	closeFn = func(fd int) error {
		_ = unix.Close(fd)
		return closeErr
	}
	defer func() { closeFn = orig }()

	err := Write(dest, []byte("data"), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), KindCloseFailed)
	assert.Empty(t, tmpFilesIn(t, dir))
	assert.NoFileExists(t, dest)
}

func TestRenameFailureLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "f")
	// Renaming a regular file onto a non-empty directory fails (EISDIR
	// / ENOTEMPTY on Linux) without needing root or special permissions.
	require.NoError(t, os.Mkdir(dest, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "child"), []byte("x"), 0644))

	err := Write(dest, []byte("data"), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), KindRenameFailed)
	assert.Empty(t, tmpFilesIn(t, dir))
	assert.DirExists(t, dest)
}
