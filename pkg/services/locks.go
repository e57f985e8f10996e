package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	internal "github.com/deploymenttheory/go-blockfs/internal/services"
)

// ErrOpenFailed wraps every failure to open a container. The underlying cause
// stays reachable through errors.Is.
var ErrOpenFailed = errors.New("failed to open container")

// containerLocks serializes operations on the same container file within
// this process. Different containers proceed in parallel.
type containerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// processLocks is shared by every service in the process, so independently
// constructed services still serialize on the same container.
var processLocks = newContainerLocks()

func newContainerLocks() *containerLocks {
	return &containerLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *containerLocks) get(containerPath string) *sync.Mutex {
	key := containerPath
	if abs, err := filepath.Abs(containerPath); err == nil {
		key = abs
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// with opens containerPath under its lock, moves to dirPath and runs fn. The
// container is closed again before the lock is released.
func (l *containerLocks) with(ctx context.Context, containerPath, dirPath string, fn func(fs *internal.FileSystemService) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := l.get(containerPath)
	m.Lock()
	defer m.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	fs := internal.NewFileSystemService()
	if err := fs.OpenContainer(containerPath); err != nil {
		return fmt.Errorf("%w %s: %w", ErrOpenFailed, containerPath, err)
	}
	defer fs.CloseContainer()

	if dirPath != "" && dirPath != "/" {
		if err := fs.ChangeDirectory(dirPath); err != nil {
			return err
		}
	}
	return fn(fs)
}
