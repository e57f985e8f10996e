// File: internal/interfaces/directories.go
package interfaces

import "github.com/deploymenttheory/go-blockfs/internal/types"

// DirectoryReader provides read access to directory slots
type DirectoryReader interface {
	// GetDirectory returns the entry at inode, or nil when the slot is free,
	// out of range or structurally invalid
	GetDirectory(inode types.DirInode) (*types.DirectoryEntry, error)

	// FindChildByName returns the subdirectory of parent named name, or -1
	FindChildByName(parent types.DirInode, name string) (types.DirInode, error)
}

// DirectoryWriter provides mutation of directory slots and child lists
type DirectoryWriter interface {
	// CreateDirectory reserves the first free slot from inode 1, writes the
	// entry and links it into parent
	CreateDirectory(name string, parent types.DirInode) (types.DirInode, error)

	// SaveDirectory rewrites a directory slot in full
	SaveDirectory(entry *types.DirectoryEntry) error

	// DeleteDirectory frees a slot without touching its children
	DeleteDirectory(inode types.DirInode) error

	// AddChildToDirectory links a child reference, ignoring duplicates
	AddChildToDirectory(parent types.DirInode, child types.ChildRef) error

	// RemoveChildFromDirectory unlinks a child reference if present
	RemoveChildFromDirectory(parent types.DirInode, child types.ChildRef) error

	// InitializeRootDirectory writes the root entry
	InitializeRootDirectory() error
}

// DirectoryManager is the complete directory contract
type DirectoryManager interface {
	DirectoryReader
	DirectoryWriter
}
