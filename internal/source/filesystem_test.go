package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilesystemSource_EnumerateFiltersAndWalks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.exe"), []byte("bin"), 0o644))
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "c.md"), []byte("# hi"), 0o644))

	s := NewFilesystemSource([]string{dir})
	out := make(chan DocumentRef)
	var refs []DocumentRef
	done := make(chan error, 1)
	go func() { done <- s.Enumerate(context.Background(), out) }()
	for r := range out {
		refs = append(refs, r)
	}
	require.NoError(t, <-done)
	require.Len(t, refs, 2)
}

func TestFilesystemSource_StripsQuotes(t *testing.T) {
	s := NewFilesystemSource([]string{`"/tmp/foo.txt"`, `'/tmp/bar.txt'`})
	require.Equal(t, "/tmp/foo.txt", s.Paths[0])
	require.Equal(t, "/tmp/bar.txt", s.Paths[1])
}

func TestFilesystemSource_FetchReadsBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	s := NewFilesystemSource([]string{dir})
	out := make(chan DocumentRef, 1)
	require.NoError(t, s.Enumerate(context.Background(), out))
	ref := <-out

	fetched, err := s.Fetch(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, "content", string(fetched.Bytes))
}

func TestSupportedExt(t *testing.T) {
	require.True(t, SupportedExt(".pdf"))
	require.True(t, SupportedExt(".md"))
	require.False(t, SupportedExt(".exe"))
}
