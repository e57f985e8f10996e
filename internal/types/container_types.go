package types

import "time"

// MagicNumber identifies a block container. Any other value at offset 0 is
// treated as a corrupt format.
const MagicNumber uint32 = 0xCAFEBABE

// FormatVersion is written to every new superblock.
const FormatVersion int32 = 1

// RootDirectoryInode is permanently the root directory ("/").
const RootDirectoryInode DirInode = 0

// RootDirectoryName is the stored name of the root directory.
const RootDirectoryName = "/"

// JournalEmpty marks an empty journal slot.
const JournalEmpty FileInode = -1

// NoParent is the parent inode recorded for the root directory.
const NoParent DirInode = -1

// NoBlock is returned by lookups that found no matching block.
const NoBlock BlockIndex = -1

// DirInode indexes the fixed directory slot array.
type DirInode int32

// Valid reports whether the inode addresses a directory slot.
func (d DirInode) Valid() bool {
	return d >= 0 && d < MaxDirectories
}

// FileInode indexes the fixed file slot array. Directory and file inodes are
// separate numbering spaces.
type FileInode int32

// Valid reports whether the inode addresses a file slot.
func (f FileInode) Valid() bool {
	return f >= 0 && f < MaxFiles
}

// BlockIndex addresses a block of the data region and its block-table record.
type BlockIndex int32

// Superblock is the fixed header at offset 0 of every container.
type Superblock struct {
	MagicNumber        uint32
	BlockSize          int32
	TotalBlocks        int32
	RootDirectoryInode DirInode
	Version            int32
}

// BlockRecord is the per-block metadata kept in the block table.
// A free record always has RefCount 0; a positive RefCount implies IsUsed.
type BlockRecord struct {
	IsUsed   bool
	RefCount int32
	Checksum uint32
}

// ChildRef is one slot of a directory's child list. Subdirectories are stored
// as their raw inode; files carry fileChildTag so the two inode spaces never
// collide inside one list.
type ChildRef int32

// NoChild pads unused child slots.
const NoChild ChildRef = -1

const fileChildTag int32 = 1 << 30

// DirChild returns the child reference for a subdirectory.
func DirChild(inode DirInode) ChildRef {
	return ChildRef(inode)
}

// FileChild returns the child reference for a file.
func FileChild(inode FileInode) ChildRef {
	return ChildRef(int32(inode) | fileChildTag)
}

// IsFile reports whether the reference names a file inode.
func (c ChildRef) IsFile() bool {
	return c >= 0 && int32(c)&fileChildTag != 0
}

// Dir returns the directory inode of a subdirectory reference.
func (c ChildRef) Dir() DirInode {
	return DirInode(c)
}

// File returns the file inode of a file reference.
func (c ChildRef) File() FileInode {
	return FileInode(int32(c) &^ fileChildTag)
}

// DirectoryEntry is the decoded content of one directory slot.
type DirectoryEntry struct {
	Inode      DirInode
	Name       string
	Parent     DirInode
	CreatedAt  time.Time
	ModifiedAt time.Time
	Children   []ChildRef
}

// Subdirectories returns the directory references of the child list in order.
func (d *DirectoryEntry) Subdirectories() []DirInode {
	dirs := make([]DirInode, 0, len(d.Children))
	for _, c := range d.Children {
		if !c.IsFile() {
			dirs = append(dirs, c.Dir())
		}
	}
	return dirs
}

// HasChild reports whether ref is present in the child list.
func (d *DirectoryEntry) HasChild(ref ChildRef) bool {
	for _, c := range d.Children {
		if c == ref {
			return true
		}
	}
	return false
}

// FileEntry is the decoded content of one file slot. Inode is not serialized;
// it is filled in by the reader.
type FileEntry struct {
	Inode        FileInode
	Name         string
	Size         int64
	IsDirectory  bool
	BlockIndices []BlockIndex
	CreatedAt    time.Time
	ModifiedAt   time.Time
	Parent       DirInode
	Checksum     uint32
}

// ListingEntry is one row of a directory listing.
type ListingEntry struct {
	Name        string    `json:"name" yaml:"name"`
	Size        int64     `json:"size" yaml:"size"`
	IsDirectory bool      `json:"is_directory" yaml:"is_directory"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	ModifiedAt  time.Time `json:"modified_at" yaml:"modified_at"`
}

// ContainerInfo summarizes an open container.
type ContainerInfo struct {
	Path             string `json:"path" yaml:"path"`
	BlockSize        int32  `json:"block_size" yaml:"block_size"`
	TotalBlocks      int32  `json:"total_blocks" yaml:"total_blocks"`
	UsedBlocks       int32  `json:"used_blocks" yaml:"used_blocks"`
	FreeBlocks       int32  `json:"free_blocks" yaml:"free_blocks"`
	CurrentDirectory string `json:"current_directory" yaml:"current_directory"`
}
