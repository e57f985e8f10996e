package services

import (
	"context"
	"io"

	"github.com/deploymenttheory/go-blockfs/internal/types"
)

// Re-exported result types so callers outside the module can name them.
type (
	ContainerInfo      = types.ContainerInfo
	ListingEntry       = types.ListingEntry
	DirectoryTreeEntry = types.DirectoryTreeEntry
	IntegrityReport    = types.IntegrityReport
)

// ContainerService manages whole containers
type ContainerService interface {
	// CreateContainer creates a container at containerPath, replacing any existing file
	CreateContainer(ctx context.Context, containerPath string, blockSize, totalBlocks int32) (ContainerInfo, error)

	// GetContainerInfo reports geometry and block usage
	GetContainerInfo(ctx context.Context, containerPath string) (ContainerInfo, error)

	// VerifyContainer cross-checks file block lists against the block table
	VerifyContainer(ctx context.Context, containerPath string) (*IntegrityReport, error)
}

// FilesystemService operates on directories and files inside a container.
// dirPath selects the working directory; "" and "/" mean the root.
type FilesystemService interface {
	// ListDirectory lists the subdirectories and files of dirPath
	ListDirectory(ctx context.Context, containerPath, dirPath string) ([]ListingEntry, error)

	// ListTree lists every directory reachable from the root
	ListTree(ctx context.Context, containerPath string) ([]DirectoryTreeEntry, error)

	// CreateDirectory creates name inside dirPath
	CreateDirectory(ctx context.Context, containerPath, dirPath, name string) error

	// RemoveDirectory removes name and everything beneath it
	RemoveDirectory(ctx context.Context, containerPath, dirPath, name string) error

	// CopyFileIn copies the host file sourcePath into dirPath. An empty name
	// uses the base name of sourcePath.
	CopyFileIn(ctx context.Context, containerPath, dirPath, sourcePath, name string) error

	// ImportFile stores size bytes read from src as name inside dirPath
	ImportFile(ctx context.Context, containerPath, dirPath, name string, src io.Reader, size int64) error

	// CopyFileOut writes a verified copy of name to the host path targetPath
	CopyFileOut(ctx context.Context, containerPath, dirPath, name, targetPath string) error

	// ExportFile writes the verified content of name to w
	ExportFile(ctx context.Context, containerPath, dirPath, name string, w io.Writer) error

	// DeleteFile removes name from dirPath and releases its blocks
	DeleteFile(ctx context.Context, containerPath, dirPath, name string) error
}
