package container

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-blockfs/internal/disk"
	"github.com/deploymenttheory/go-blockfs/internal/logging"
	"github.com/deploymenttheory/go-blockfs/internal/managers/blocks"
	"github.com/deploymenttheory/go-blockfs/internal/managers/directories"
	parser "github.com/deploymenttheory/go-blockfs/internal/parsers/container"
	"github.com/deploymenttheory/go-blockfs/internal/types"
)

// ContainerManager creates containers, reads their superblock, and owns the
// single-slot journal
type ContainerManager struct {
	path        string
	blockSize   int32
	totalBlocks int32
	superblock  *types.Superblock
	log         *logrus.Entry
}

// NewContainerManager creates a ContainerManager for path. blockSize and
// totalBlocks are only used by CreateContainer; opening an existing container
// reads them from the superblock.
func NewContainerManager(path string, blockSize, totalBlocks int32) *ContainerManager {
	return &ContainerManager{
		path:        path,
		blockSize:   blockSize,
		totalBlocks: totalBlocks,
		log:         logging.For("container_manager").WithField("path", path),
	}
}

// Path returns the container path
func (cm *ContainerManager) Path() string {
	return cm.path
}

// CreateContainer writes the superblock and an empty journal, sizes the file to
// cover the data area, then initializes the block table and root directory
func (cm *ContainerManager) CreateContainer() error {
	if cm.blockSize <= 0 || cm.totalBlocks <= 0 {
		return fmt.Errorf("%w: block size and total blocks must be positive (got %d, %d)",
			types.ErrInvalidArgument, cm.blockSize, cm.totalBlocks)
	}

	sb := parser.NewSuperblock(cm.blockSize, cm.totalBlocks)

	f, err := os.OpenFile(cm.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create container %s: %w", cm.path, err)
	}

	header := append(parser.SerializeSuperblock(sb), parser.SerializeJournal(types.JournalEmpty)...)
	if err := disk.WriteAt(f, header, 0); err != nil {
		f.Close()
		return fmt.Errorf("failed to write superblock: %w", err)
	}
	if err := f.Truncate(types.ContainerSize(cm.totalBlocks, cm.blockSize)); err != nil {
		f.Close()
		return fmt.Errorf("failed to size container: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close container %s: %w", cm.path, err)
	}

	if err := blocks.NewBlockTable(cm.path, cm.blockSize, cm.totalBlocks).InitializeBlockTable(); err != nil {
		return err
	}
	if err := directories.NewDirectoryManager(cm.path, cm.totalBlocks).InitializeRootDirectory(); err != nil {
		return err
	}

	cm.superblock = sb
	cm.log.WithFields(logrus.Fields{
		"block_size":   cm.blockSize,
		"total_blocks": cm.totalBlocks,
	}).Info("created container")
	return nil
}

// LoadSuperblock reads and validates the superblock
func (cm *ContainerManager) LoadSuperblock() (*types.Superblock, error) {
	if _, err := os.Stat(cm.path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: container %s does not exist", types.ErrNotFound, cm.path)
	}

	var sb *types.Superblock
	err := disk.WithFile(cm.path, disk.ReadOnly, func(f *os.File) error {
		data := make([]byte, types.SuperblockSize)
		n, err := disk.ReadAtMost(f, data, 0)
		if err != nil {
			return err
		}
		sb, err = parser.ParseSuperblock(data[:n])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load superblock of %s: %w", cm.path, err)
	}

	cm.superblock = sb
	cm.blockSize = sb.BlockSize
	cm.totalBlocks = sb.TotalBlocks
	return sb, nil
}

// WriteJournalInode records inode as the in-flight write and syncs it
func (cm *ContainerManager) WriteJournalInode(inode types.FileInode) error {
	return disk.WithFile(cm.path, disk.ReadWrite, func(f *os.File) error {
		if err := disk.WriteAt(f, parser.SerializeJournal(inode), types.JournalOffset); err != nil {
			return fmt.Errorf("failed to write journal: %w", err)
		}
		if err := f.Sync(); err != nil {
			return fmt.Errorf("failed to sync journal: %w", err)
		}
		cm.log.WithField("inode", inode).Debug("journal written")
		return nil
	})
}

// ReadJournalInode returns the journaled inode. A missing, truncated or
// unreadable journal is reported as empty.
func (cm *ContainerManager) ReadJournalInode() types.FileInode {
	inode := types.JournalEmpty
	err := disk.WithFile(cm.path, disk.ReadOnly, func(f *os.File) error {
		data := make([]byte, types.JournalSize)
		n, err := disk.ReadAtMost(f, data, types.JournalOffset)
		if err != nil {
			return err
		}
		inode = parser.ParseJournal(data[:n])
		return nil
	})
	if err != nil {
		cm.log.WithError(err).Debug("journal unreadable, treating as empty")
		return types.JournalEmpty
	}
	return inode
}

// ClearJournal empties the journal slot
func (cm *ContainerManager) ClearJournal() error {
	return cm.WriteJournalInode(types.JournalEmpty)
}
