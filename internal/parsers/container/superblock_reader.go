package container

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-blockfs/internal/types"
)

var endian = binary.LittleEndian

// ParseSuperblock decodes the superblock region and validates it.
func ParseSuperblock(data []byte) (*types.Superblock, error) {
	if len(data) < types.SuperblockSize {
		return nil, fmt.Errorf("%w: superblock truncated: %d bytes, want %d",
			types.ErrCorruptFormat, len(data), types.SuperblockSize)
	}

	sb := &types.Superblock{
		MagicNumber:        endian.Uint32(data[0:4]),
		BlockSize:          int32(endian.Uint32(data[4:8])),
		TotalBlocks:        int32(endian.Uint32(data[8:12])),
		RootDirectoryInode: types.DirInode(int32(endian.Uint32(data[12:16]))),
		Version:            int32(endian.Uint32(data[16:20])),
	}

	if sb.MagicNumber != types.MagicNumber {
		return nil, fmt.Errorf("%w: invalid magic: got 0x%08X, want 0x%08X",
			types.ErrCorruptFormat, sb.MagicNumber, types.MagicNumber)
	}

	if sb.BlockSize <= 0 || sb.TotalBlocks <= 0 {
		return nil, fmt.Errorf("%w: invalid block size or total blocks (%d, %d)",
			types.ErrCorruptFormat, sb.BlockSize, sb.TotalBlocks)
	}

	return sb, nil
}

// SerializeSuperblock encodes sb into its fixed 20-byte form.
func SerializeSuperblock(sb *types.Superblock) []byte {
	data := make([]byte, types.SuperblockSize)
	endian.PutUint32(data[0:4], sb.MagicNumber)
	endian.PutUint32(data[4:8], uint32(sb.BlockSize))
	endian.PutUint32(data[8:12], uint32(sb.TotalBlocks))
	endian.PutUint32(data[12:16], uint32(sb.RootDirectoryInode))
	endian.PutUint32(data[16:20], uint32(sb.Version))
	return data
}

// NewSuperblock returns the superblock written at container creation.
func NewSuperblock(blockSize, totalBlocks int32) *types.Superblock {
	return &types.Superblock{
		MagicNumber:        types.MagicNumber,
		BlockSize:          blockSize,
		TotalBlocks:        totalBlocks,
		RootDirectoryInode: types.RootDirectoryInode,
		Version:            types.FormatVersion,
	}
}

// ParseJournal decodes the journal slot. A short region reads as empty.
func ParseJournal(data []byte) types.FileInode {
	if len(data) < types.JournalSize {
		return types.JournalEmpty
	}
	return types.FileInode(int32(endian.Uint32(data[0:4])))
}

// SerializeJournal encodes the journal slot.
func SerializeJournal(inode types.FileInode) []byte {
	data := make([]byte, types.JournalSize)
	endian.PutUint32(data, uint32(inode))
	return data
}
