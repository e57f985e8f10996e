// File: internal/interfaces/container.go
package interfaces

import "github.com/deploymenttheory/go-blockfs/internal/types"

// ContainerManager owns the container file, its superblock and the journal slot
type ContainerManager interface {
	// Path returns the container path the manager is bound to
	Path() string

	// CreateContainer writes a fresh superblock, an empty journal, an all-free
	// block table and the root directory
	CreateContainer() error

	// LoadSuperblock reads and validates the superblock
	LoadSuperblock() (*types.Superblock, error)

	// WriteJournalInode records the file inode of an in-flight write
	WriteJournalInode(inode types.FileInode) error

	// ReadJournalInode returns the journaled inode, or JournalEmpty when the
	// slot is empty, truncated or unreadable
	ReadJournalInode() types.FileInode

	// ClearJournal empties the journal slot
	ClearJournal() error
}
