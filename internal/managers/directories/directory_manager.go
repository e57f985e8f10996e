package directories

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-blockfs/internal/disk"
	"github.com/deploymenttheory/go-blockfs/internal/logging"
	parser "github.com/deploymenttheory/go-blockfs/internal/parsers/directories"
	"github.com/deploymenttheory/go-blockfs/internal/types"
)

// DirectoryManager manages the fixed array of directory slots
type DirectoryManager struct {
	path        string
	totalBlocks int32
	now         func() time.Time
	link        func(parent types.DirInode, child types.ChildRef) error
	log         *logrus.Entry
}

// NewDirectoryManager creates a DirectoryManager for the container at path
func NewDirectoryManager(path string, totalBlocks int32) *DirectoryManager {
	dm := &DirectoryManager{
		path:        path,
		totalBlocks: totalBlocks,
		now:         func() time.Time { return time.Now().UTC() },
		log:         logging.For("directory_manager"),
	}
	dm.link = dm.AddChildToDirectory
	return dm
}

func (dm *DirectoryManager) slotOffset(inode types.DirInode) int64 {
	return types.DirectorySlotOffset(dm.totalBlocks, inode)
}

func (dm *DirectoryManager) readSlot(f *os.File, inode types.DirInode) ([]byte, error) {
	slot := make([]byte, types.DirectoryEntrySize)
	n, err := disk.ReadAtMost(f, slot, dm.slotOffset(inode))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory slot %d: %w", inode, err)
	}
	return slot[:n], nil
}

// GetDirectory loads the entry at inode. It returns nil without error when the
// inode is out of range or the slot is free or corrupt; for the root this
// means the caller should reinitialize it.
func (dm *DirectoryManager) GetDirectory(inode types.DirInode) (*types.DirectoryEntry, error) {
	if !inode.Valid() {
		return nil, nil
	}

	var entry *types.DirectoryEntry
	err := disk.WithFile(dm.path, disk.ReadOnly, func(f *os.File) error {
		slot, err := dm.readSlot(f, inode)
		if err != nil {
			return err
		}
		var ok bool
		if entry, ok = parser.ParseDirectoryEntry(inode, slot); !ok {
			entry = nil
			dm.log.WithField("inode", inode).Debug("directory slot free or invalid")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// SaveDirectory rewrites the slot of entry in full
func (dm *DirectoryManager) SaveDirectory(entry *types.DirectoryEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: directory entry is nil", types.ErrInvalidArgument)
	}
	if !entry.Inode.Valid() {
		return fmt.Errorf("%w: directory inode %d out of range", types.ErrInvalidArgument, entry.Inode)
	}

	data, err := parser.SerializeDirectoryEntry(entry)
	if err != nil {
		return err
	}

	return disk.WithFile(dm.path, disk.ReadWrite, func(f *os.File) error {
		if err := disk.WriteAt(f, data, dm.slotOffset(entry.Inode)); err != nil {
			return fmt.Errorf("failed to save directory %d: %w", entry.Inode, err)
		}
		return nil
	})
}

// DeleteDirectory frees a slot by zeroing its name length. Children and their
// files are left alone.
func (dm *DirectoryManager) DeleteDirectory(inode types.DirInode) error {
	if !inode.Valid() {
		return fmt.Errorf("%w: directory inode %d out of range", types.ErrInvalidArgument, inode)
	}

	return disk.WithFile(dm.path, disk.ReadWrite, func(f *os.File) error {
		if err := disk.WriteAt(f, make([]byte, types.NameLengthFieldSize), dm.slotOffset(inode)); err != nil {
			return fmt.Errorf("failed to delete directory %d: %w", inode, err)
		}
		dm.log.WithField("inode", inode).Debug("deleted directory slot")
		return nil
	})
}

// findFreeSlot scans from inode 1; inode 0 is reserved for the root
func (dm *DirectoryManager) findFreeSlot() (types.DirInode, error) {
	free := types.DirInode(-1)
	err := disk.WithFile(dm.path, disk.ReadOnly, func(f *os.File) error {
		nameLength := make([]byte, types.NameLengthFieldSize)
		for i := types.DirInode(1); i < types.MaxDirectories; i++ {
			n, err := disk.ReadAtMost(f, nameLength, dm.slotOffset(i))
			if err != nil {
				return err
			}
			if n < len(nameLength) {
				break
			}
			if nameLength[0]|nameLength[1]|nameLength[2]|nameLength[3] == 0 {
				free = i
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return -1, err
	}
	if free < 0 {
		return -1, fmt.Errorf("%w: no free directory slots available", types.ErrOutOfSpace)
	}
	return free, nil
}

// CreateDirectory writes a new entry into the first free slot and links it into
// parent. The parent must exist and have a free child slot. If linking fails
// the slot is freed again.
func (dm *DirectoryManager) CreateDirectory(name string, parent types.DirInode) (types.DirInode, error) {
	parentEntry, err := dm.GetDirectory(parent)
	if err != nil {
		return -1, err
	}
	if parentEntry == nil {
		return -1, fmt.Errorf("%w: parent directory %d", types.ErrNotFound, parent)
	}
	if len(parentEntry.Children) >= types.MaxChildrenPerDirectory {
		return -1, fmt.Errorf("%w: directory %q already has %d children",
			types.ErrOutOfSpace, parentEntry.Name, types.MaxChildrenPerDirectory)
	}

	inode, err := dm.findFreeSlot()
	if err != nil {
		return -1, err
	}

	now := dm.now()
	entry := &types.DirectoryEntry{
		Inode:      inode,
		Name:       name,
		Parent:     parent,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if err := dm.SaveDirectory(entry); err != nil {
		return -1, err
	}

	if err := dm.link(parent, types.DirChild(inode)); err != nil {
		// Release the slot so an unlinked entry does not hold it.
		if cleanupErr := dm.DeleteDirectory(inode); cleanupErr != nil {
			dm.log.WithError(cleanupErr).WithField("inode", inode).Warn("failed to release directory slot")
		}
		return -1, err
	}

	dm.log.WithFields(logrus.Fields{"inode": inode, "name": name, "parent": parent}).Debug("created directory")
	return inode, nil
}

func validChildRef(child types.ChildRef) bool {
	if child.IsFile() {
		return child.File().Valid()
	}
	return child.Dir().Valid()
}

// AddChildToDirectory appends child to parent's list. Out-of-range references
// and missing parents are ignored; a duplicate is not added twice.
func (dm *DirectoryManager) AddChildToDirectory(parent types.DirInode, child types.ChildRef) error {
	if !parent.Valid() || !validChildRef(child) {
		return nil
	}

	entry, err := dm.GetDirectory(parent)
	if err != nil || entry == nil {
		return err
	}
	if entry.HasChild(child) {
		return nil
	}
	if len(entry.Children) >= types.MaxChildrenPerDirectory {
		return fmt.Errorf("%w: directory %q already has %d children",
			types.ErrOutOfSpace, entry.Name, types.MaxChildrenPerDirectory)
	}

	entry.Children = append(entry.Children, child)
	entry.ModifiedAt = dm.now()
	return dm.SaveDirectory(entry)
}

// RemoveChildFromDirectory removes child from parent's list if present
func (dm *DirectoryManager) RemoveChildFromDirectory(parent types.DirInode, child types.ChildRef) error {
	if !parent.Valid() || !validChildRef(child) {
		return nil
	}

	entry, err := dm.GetDirectory(parent)
	if err != nil || entry == nil {
		return err
	}

	entry.Children = slices.DeleteFunc(entry.Children, func(c types.ChildRef) bool { return c == child })
	entry.ModifiedAt = dm.now()
	return dm.SaveDirectory(entry)
}

// FindChildByName returns the subdirectory of parent named name, or -1
func (dm *DirectoryManager) FindChildByName(parent types.DirInode, name string) (types.DirInode, error) {
	if !parent.Valid() || name == "" {
		return -1, nil
	}

	entry, err := dm.GetDirectory(parent)
	if err != nil || entry == nil {
		return -1, err
	}

	for _, child := range entry.Subdirectories() {
		dir, err := dm.GetDirectory(child)
		if err != nil {
			return -1, err
		}
		if dir != nil && dir.Name == name {
			return child, nil
		}
	}
	return -1, nil
}

// InitializeRootDirectory grows the container to cover the directory area if
// needed, then writes an empty root entry
func (dm *DirectoryManager) InitializeRootDirectory() error {
	err := disk.WithFile(dm.path, disk.ReadWrite, func(f *os.File) error {
		return disk.EnsureSize(f, types.DirectoryAreaOffset(dm.totalBlocks)+types.DirectoryAreaSize())
	})
	if err != nil {
		return err
	}

	now := dm.now()
	root := &types.DirectoryEntry{
		Inode:      types.RootDirectoryInode,
		Name:       types.RootDirectoryName,
		Parent:     types.NoParent,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if err := dm.SaveDirectory(root); err != nil {
		return fmt.Errorf("failed to initialize root directory: %w", err)
	}

	dm.log.Debug("initialized root directory")
	return nil
}
