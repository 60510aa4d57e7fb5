package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirSource_ListAndOpen(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "filings", "2024"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".tmp"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "note.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "filings", "2024", "10k.md"), []byte("# 10-K"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".tmp", "partial.txt"), []byte("x"), 0o644))

	src, err := NewDirSource(root)
	require.NoError(t, err)

	objects, err := src.List(context.Background())
	require.NoError(t, err)

	var keys []string
	for _, o := range objects {
		keys = append(keys, o.Key)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"filings/2024/10k.md", "note.txt"}, keys)

	rc, err := src.Open(context.Background(), "note.txt")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	assert.Equal(t, "file://"+filepath.ToSlash(src.Root()), src.Scheme())
}

func TestDirSource_OpenRejectsEscape(t *testing.T) {
	src, err := NewDirSource(t.TempDir())
	require.NoError(t, err)

	_, err = src.Open(context.Background(), "../etc/passwd")
	assert.Error(t, err)
}

func TestNewDirSource_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "inbox")
	_, err := NewDirSource(root)
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
