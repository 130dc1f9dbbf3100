package classloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserClassLoaderReadsNestedBinaryName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "com", "example"), 0o755))
	want := []byte{0xCA, 0xFE, 0xBA, 0xBE}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "com", "example", "Hello.class"), want, 0o644))

	cl := NewUserClassLoader(dir)
	got, err := cl.LoadClassBytes("com/example/Hello")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestUserClassLoaderMissingClass(t *testing.T) {
	cl := NewUserClassLoader(t.TempDir())
	_, err := cl.LoadClassBytes("Missing")
	require.Error(t, err)
}

func TestUserClassLoaderCaches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.class")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	cl := NewUserClassLoader(dir)
	first, err := cl.LoadClassBytes("A")
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	second, err := cl.LoadClassBytes("A")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestChainTriesSourcesInOrder(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dirA, "Shadow.class"), []byte("bootstrap"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dirB, "Shadow.class"), []byte("classpath"), 0o644))

	chain := NewChain(NewUserClassLoader(dirA), NewUserClassLoader(dirB))
	got, err := chain.LoadClassBytes("Shadow")
	require.NoError(t, err)
	require.Equal(t, []byte("bootstrap"), got)
}

func TestChainFallsThroughOnMiss(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dirB, "Only.class"), []byte("classpath"), 0o644))

	chain := NewChain(NewUserClassLoader(dirA), NewUserClassLoader(dirB))
	got, err := chain.LoadClassBytes("Only")
	require.NoError(t, err)
	require.Equal(t, []byte("classpath"), got)
}

func TestChainAllMiss(t *testing.T) {
	chain := NewChain(NewUserClassLoader(t.TempDir()))
	_, err := chain.LoadClassBytes("Nowhere")
	require.Error(t, err)
}
