package disk

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-blockfs/internal/types"
)

func tempContainer(t *testing.T, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "container.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestWithFile(t *testing.T) {
	t.Run("missing file maps to not found", func(t *testing.T) {
		err := WithFile(filepath.Join(t.TempDir(), "nope"), ReadOnly, func(*os.File) error {
			t.Fatal("callback must not run")
			return nil
		})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("callback error is returned", func(t *testing.T) {
		boom := errors.New("boom")
		err := WithFile(tempContainer(t, nil), ReadOnly, func(*os.File) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("handle is closed afterwards", func(t *testing.T) {
		var held *os.File
		require.NoError(t, WithFile(tempContainer(t, []byte("x")), ReadWrite, func(f *os.File) error {
			held = f
			return nil
		}))
		_, err := held.Stat()
		assert.ErrorIs(t, err, os.ErrClosed)
	})
}

func TestReadAtMost(t *testing.T) {
	path := tempContainer(t, []byte("0123456789"))

	require.NoError(t, WithFile(path, ReadOnly, func(f *os.File) error {
		buf := make([]byte, 4)
		n, err := ReadAtMost(f, buf, 2)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.Equal(t, []byte("2345"), buf)

		n, err = ReadAtMost(f, buf, 8)
		require.NoError(t, err)
		assert.Equal(t, 2, n, "short read at end of file is not an error")

		n, err = ReadAtMost(f, buf, 100)
		require.NoError(t, err)
		assert.Zero(t, n)
		return nil
	}))
}

func TestWriteAtAndEnsureSize(t *testing.T) {
	path := tempContainer(t, nil)

	require.NoError(t, WithFile(path, ReadWrite, func(f *os.File) error {
		require.NoError(t, EnsureSize(f, 16))
		size, err := Size(f)
		require.NoError(t, err)
		assert.Equal(t, int64(16), size)

		require.NoError(t, EnsureSize(f, 8))
		size, err = Size(f)
		require.NoError(t, err)
		assert.Equal(t, int64(16), size, "EnsureSize never shrinks")

		return WriteAt(f, []byte("abc"), 20)
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 23)
	assert.Equal(t, []byte("abc"), data[20:])
}
