package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureDir_RelativeResolvesAgainstCWD(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	got, err := EnsureDir(filepath.Join("public", "temp"))
	require.NoError(t, err)

	want := filepath.Join(tmp, "public", "temp")
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir())

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestEnsureDir_AbsoluteAndIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "x")

	got1, err := EnsureDir(dir)
	require.NoError(t, err)
	got2, err := EnsureDir(dir)
	require.NoError(t, err)
	require.Equal(t, dir, got1)
	require.Equal(t, got1, got2)
}

func TestEnsureDir_ErrorWhenPathIsFile(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := EnsureDir(filepath.Join(file, "sub"))
	require.Error(t, err)
}

func TestMove(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o600))

	dst := filepath.Join(tmp, "nested", "dir", "b.txt")
	require.NoError(t, Move(src, dst))

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "hello", string(b))

	_, err = os.Stat(src)
	require.True(t, os.IsNotExist(err))
}

func TestMove_MissingSource(t *testing.T) {
	tmp := t.TempDir()
	require.Error(t, Move(filepath.Join(tmp, "nope"), filepath.Join(tmp, "dst")))
}

func TestRemoveQuietly(t *testing.T) {
	tmp := t.TempDir()
	f := filepath.Join(tmp, "f")
	require.NoError(t, os.WriteFile(f, nil, 0o600))

	require.NoError(t, RemoveQuietly(f))
	require.NoError(t, RemoveQuietly(f), "missing file is fine")
	require.NoError(t, RemoveQuietly(""))
}
