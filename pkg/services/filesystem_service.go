package services

import (
	"context"
	"io"
	"time"

	internal "github.com/deploymenttheory/go-blockfs/internal/services"
)

// filesystemService implements the FilesystemService interface
type filesystemService struct {
	locks *containerLocks
}

// NewFilesystemService creates a new filesystem service instance
func NewFilesystemService() FilesystemService {
	return newFilesystemService(processLocks)
}

func newFilesystemService(locks *containerLocks) *filesystemService {
	return &filesystemService{locks: locks}
}

// ListDirectory lists files and directories at dirPath
func (fs *filesystemService) ListDirectory(ctx context.Context, containerPath, dirPath string) ([]ListingEntry, error) {
	var entries []ListingEntry
	err := fs.locks.with(ctx, containerPath, dirPath, func(svc *internal.FileSystemService) error {
		var err error
		entries, err = svc.ListCurrentDirectory()
		return err
	})
	return entries, err
}

// ListTree lists every directory in the container
func (fs *filesystemService) ListTree(ctx context.Context, containerPath string) ([]DirectoryTreeEntry, error) {
	var tree []DirectoryTreeEntry
	err := fs.locks.with(ctx, containerPath, "", func(svc *internal.FileSystemService) error {
		var err error
		tree, err = svc.ListAllDirectories()
		return err
	})
	return tree, err
}

func (fs *filesystemService) CreateDirectory(ctx context.Context, containerPath, dirPath, name string) error {
	return fs.locks.with(ctx, containerPath, dirPath, func(svc *internal.FileSystemService) error {
		return svc.CreateDirectory(name)
	})
}

func (fs *filesystemService) RemoveDirectory(ctx context.Context, containerPath, dirPath, name string) error {
	return fs.locks.with(ctx, containerPath, dirPath, func(svc *internal.FileSystemService) error {
		return svc.RemoveDirectory(name)
	})
}

func (fs *filesystemService) CopyFileIn(ctx context.Context, containerPath, dirPath, sourcePath, name string) error {
	return fs.locks.with(ctx, containerPath, dirPath, func(svc *internal.FileSystemService) error {
		return svc.CopyFileIn(sourcePath, name)
	})
}

func (fs *filesystemService) ImportFile(ctx context.Context, containerPath, dirPath, name string, src io.Reader, size int64) error {
	return fs.locks.with(ctx, containerPath, dirPath, func(svc *internal.FileSystemService) error {
		return svc.ImportFile(src, size, name, time.Now())
	})
}

func (fs *filesystemService) CopyFileOut(ctx context.Context, containerPath, dirPath, name, targetPath string) error {
	return fs.locks.with(ctx, containerPath, dirPath, func(svc *internal.FileSystemService) error {
		return svc.CopyFileOut(name, targetPath)
	})
}

func (fs *filesystemService) ExportFile(ctx context.Context, containerPath, dirPath, name string, w io.Writer) error {
	return fs.locks.with(ctx, containerPath, dirPath, func(svc *internal.FileSystemService) error {
		return svc.ExportFile(name, w)
	})
}

func (fs *filesystemService) DeleteFile(ctx context.Context, containerPath, dirPath, name string) error {
	return fs.locks.with(ctx, containerPath, dirPath, func(svc *internal.FileSystemService) error {
		return svc.DeleteFile(name)
	})
}
