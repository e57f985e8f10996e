// File: internal/interfaces/files.go
package interfaces

import (
	"io"

	"github.com/deploymenttheory/go-blockfs/internal/types"
)

// FileEntryStore provides fixed-slot access to file entries
type FileEntryStore interface {
	// GetFileEntry returns the entry at inode, or nil when the slot is free or
	// cannot be decoded
	GetFileEntry(inode types.FileInode) (*types.FileEntry, error)

	// SaveFileEntry serializes an entry into its slot
	SaveFileEntry(inode types.FileInode, entry *types.FileEntry) error

	// DeleteFileEntry frees a slot
	DeleteFileEntry(inode types.FileInode) error

	// ReserveFileSlot returns the first free slot without writing to it
	ReserveFileSlot() (types.FileInode, error)
}

// FileLister scans the file area
type FileLister interface {
	// GetFilesInDirectory returns the entries whose parent is dir
	GetFilesInDirectory(dir types.DirInode) ([]*types.FileEntry, error)

	// GetFileInodesInDirectory returns the inodes whose parent is dir
	GetFileInodesInDirectory(dir types.DirInode) ([]types.FileInode, error)

	// GetAllFileInodes returns every occupied inode
	GetAllFileInodes() ([]types.FileInode, error)

	// FindFileByName returns the highest inode named name under dir, or -1
	FindFileByName(dir types.DirInode, name string) (types.FileInode, error)
}

// FileDataStreamer moves file content between the host and the data region
type FileDataStreamer interface {
	// WriteFileData streams src into blocks, persists entry and links it into
	// its parent directory
	WriteFileData(inode types.FileInode, src io.Reader, entry *types.FileEntry) error

	// CopyFileOut writes the verified content of inode to w
	CopyFileOut(inode types.FileInode, w io.Writer) error

	// CopyFileOutToPath writes the verified content of inode to a host file
	CopyFileOutToPath(inode types.FileInode, destination string) error

	// DeleteFile releases blocks, unlinks and frees the entry
	DeleteFile(inode types.FileInode) error

	// ReleaseBlocks drops one reference from each block, freeing any block
	// whose count reaches zero
	ReleaseBlocks(indices []types.BlockIndex) error
}

// FileManager is the complete file contract
type FileManager interface {
	FileEntryStore
	FileLister
	FileDataStreamer
}
