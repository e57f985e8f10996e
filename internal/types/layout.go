package types

// Container Layout
// Every region of a container is located by arithmetic over the block size and
// total block count recorded in the superblock. No region moves after creation.
//
//	Region          Offset               Size
//	Superblock      0                    20
//	Journal         20                   4
//	Block table     24                   T * 9
//	Directory area  24 + T*9             1000 * 1024
//	File area       directory end        1000 * 512
//	Data area       file area end        T * B

const (
	// SuperblockSize is the size of the fixed superblock region at offset 0.
	SuperblockSize = 20

	// JournalOffset is the byte offset of the single journal slot.
	JournalOffset = SuperblockSize

	// JournalSize is the size of the journal slot (one int32).
	JournalSize = 4

	// BlockTableOffset is the byte offset of the first block-table record.
	BlockTableOffset = SuperblockSize + JournalSize
)

// Defaults used when a container is created without explicit geometry.
const (
	DefaultBlockSize   = 1000
	DefaultTotalBlocks = 1000
)

// Block table record layout: isUsed(1) refCount(4) checksum(4).
const (
	BlockRecordIsUsedSize   = 1
	BlockRecordRefCountSize = 4
	BlockRecordChecksumSize = 4

	BlockRecordSize           = BlockRecordIsUsedSize + BlockRecordRefCountSize + BlockRecordChecksumSize
	BlockRecordRefCountOffset = BlockRecordIsUsedSize
	BlockRecordChecksumOffset = BlockRecordIsUsedSize + BlockRecordRefCountSize
)

// Directory area geometry.
const (
	DirectoryEntrySize      = 1024
	MaxDirectories          = 1000
	MaxDirectoryNameLength  = 250
	MaxChildrenPerDirectory = 100

	// DirectoryMetadataHeaderSize covers parent(4), created(8), modified(8).
	DirectoryMetadataHeaderSize = ParentInodeFieldSize + TimestampFieldSize + TimestampFieldSize

	// DirectoryMetadataSize adds the childCount(4) field.
	DirectoryMetadataSize = DirectoryMetadataHeaderSize + ChildCountFieldSize
)

// File area geometry.
const (
	FileEntrySize     = 512
	MaxFiles          = 1000
	MaxFileNameLength = 500
)

// Field sizes shared by the directory and file slot formats.
const (
	NameLengthFieldSize  = 4
	FileSizeFieldSize    = 8
	IsDirectoryFieldSize = 1
	BlockCountFieldSize  = 4
	BlockIndexFieldSize  = 4
	TimestampFieldSize   = 8
	ParentInodeFieldSize = 4
	ChecksumFieldSize    = 4
	ChildCountFieldSize  = 4
	ChildInodeFieldSize  = 4
)

// DirectoryAreaSize returns the size of the complete directory slot array.
func DirectoryAreaSize() int64 {
	return int64(DirectoryEntrySize) * MaxDirectories
}

// FileAreaSize returns the size of the complete file slot array.
func FileAreaSize() int64 {
	return int64(FileEntrySize) * MaxFiles
}

// BlockTableSize returns the size of the block table for totalBlocks records.
func BlockTableSize(totalBlocks int32) int64 {
	return int64(totalBlocks) * BlockRecordSize
}

// BlockRecordOffset returns the byte offset of the record for block index.
func BlockRecordOffset(index BlockIndex) int64 {
	return BlockTableOffset + int64(index)*BlockRecordSize
}

// DirectoryAreaOffset returns the offset of directory slot 0.
func DirectoryAreaOffset(totalBlocks int32) int64 {
	return BlockTableOffset + BlockTableSize(totalBlocks)
}

// DirectorySlotOffset returns the offset of the slot for a directory inode.
func DirectorySlotOffset(totalBlocks int32, inode DirInode) int64 {
	return DirectoryAreaOffset(totalBlocks) + int64(inode)*DirectoryEntrySize
}

// FileAreaOffset returns the offset of file slot 0.
func FileAreaOffset(totalBlocks int32) int64 {
	return DirectoryAreaOffset(totalBlocks) + DirectoryAreaSize()
}

// FileSlotOffset returns the offset of the slot for a file inode.
func FileSlotOffset(totalBlocks int32, inode FileInode) int64 {
	return FileAreaOffset(totalBlocks) + int64(inode)*FileEntrySize
}

// DataAreaOffset returns the offset of data block 0.
func DataAreaOffset(totalBlocks int32) int64 {
	return FileAreaOffset(totalBlocks) + FileAreaSize()
}

// DataAreaSize returns the size of the data region.
func DataAreaSize(totalBlocks, blockSize int32) int64 {
	return int64(blockSize) * int64(totalBlocks)
}

// DataBlockOffset returns the offset of the data block at index.
func DataBlockOffset(totalBlocks, blockSize int32, index BlockIndex) int64 {
	return DataAreaOffset(totalBlocks) + int64(index)*int64(blockSize)
}

// ContainerSize returns the total length of a freshly created container.
func ContainerSize(totalBlocks, blockSize int32) int64 {
	return DataAreaOffset(totalBlocks) + DataAreaSize(totalBlocks, blockSize)
}
