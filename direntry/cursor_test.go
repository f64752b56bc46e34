package direntry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncw/gofs/vstat"
)

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	cursor, closer, err := MakeIterator(dir)
	require.NoError(t, err)
	defer closer.Close()

	var names []string
	for {
		entry, ok := cursor.Next()
		if !ok {
			break
		}
		names = append(names, entry.Name.String())
	}
	require.NoError(t, cursor.LastError())
	sort.Strings(names)
	return names
}

func TestMakeIteratorListsFilesExcludingDotEntries(t *testing.T) {
	dir := t.TempDir()
	want := []string{"a.txt", "b.txt", "c.txt"}
	for _, name := range want {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	got := listNames(t, dir)
	assert.Equal(t, want, got)
	for _, n := range got {
		assert.NotEqual(t, ".", n)
		assert.NotEqual(t, "..", n)
	}
}

func TestMakeIteratorManyEntries(t *testing.T) {
	dir := t.TempDir()
	const n = 1000
	var want []string
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("file-%04d", i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
		want = append(want, name)
	}
	sort.Strings(want)

	got := listNames(t, dir)
	assert.Len(t, got, n)
	assert.Equal(t, want, got)
}

func TestMakeIteratorMissingDirFails(t *testing.T) {
	_, _, err := MakeIterator("/nonexistent/path/for/gofs/tests")
	require.Error(t, err)
	assert.Contains(t, err.Error(), KindPathNotFound)
}

func TestCloserCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	_, closer, err := MakeIterator(dir)
	require.NoError(t, err)
	require.NoError(t, closer.Close())
	require.NoError(t, closer.Close())
}

func TestMakeIteratorDistinguishesKinds(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0755))

	cursor, closer, err := MakeIterator(dir)
	require.NoError(t, err)
	defer closer.Close()

	kinds := map[string]vstat.Kind{}
	for {
		entry, ok := cursor.Next()
		if !ok {
			break
		}
		kinds[entry.Name.String()] = entry.Kind
	}
	require.NoError(t, cursor.LastError())
	assert.Equal(t, vstat.Regular, kinds["file"])
	assert.Equal(t, vstat.Directory, kinds["subdir"])
}
