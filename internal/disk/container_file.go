package disk

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/deploymenttheory/go-blockfs/internal/types"
)

// Access modes for WithFile.
const (
	ReadOnly  = os.O_RDONLY
	ReadWrite = os.O_RDWR
)

// WithFile opens the container at path, runs fn and closes the handle on every
// exit path. Containers are never held open across operations.
func WithFile(path string, flag int, fn func(f *os.File) error) (err error) {
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: container %s does not exist", types.ErrNotFound, path)
		}
		return fmt.Errorf("failed to open container %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close container %s: %w", path, cerr)
		}
	}()

	return fn(f)
}

// Size returns the current length of the open container.
func Size(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat container: %w", err)
	}
	return info.Size(), nil
}

// ReadAtMost reads up to len(buf) bytes at off. Reads that run past the end of
// the file return the bytes that exist and a nil error; callers decide whether
// a short region is absent or fatal.
func ReadAtMost(f *os.File, buf []byte, off int64) (int, error) {
	n, err := f.ReadAt(buf, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("failed to read %d bytes at offset %d: %w", len(buf), off, err)
	}
	return n, nil
}

// WriteAt writes all of data at off.
func WriteAt(f *os.File, data []byte, off int64) error {
	if _, err := f.WriteAt(data, off); err != nil {
		return fmt.Errorf("failed to write %d bytes at offset %d: %w", len(data), off, err)
	}
	return nil
}

// EnsureSize grows the file to at least size bytes.
func EnsureSize(f *os.File, size int64) error {
	current, err := Size(f)
	if err != nil {
		return err
	}
	if current >= size {
		return nil
	}
	if err := f.Truncate(size); err != nil {
		return fmt.Errorf("failed to extend container to %d bytes: %w", size, err)
	}
	return nil
}
