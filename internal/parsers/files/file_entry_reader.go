package files

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-blockfs/internal/types"
)

var endian = binary.LittleEndian

// fixedFieldsSize covers every field of a file slot except the name bytes and
// the block index list.
const fixedFieldsSize = types.NameLengthFieldSize +
	types.FileSizeFieldSize + types.IsDirectoryFieldSize + types.BlockCountFieldSize +
	types.TimestampFieldSize + types.TimestampFieldSize +
	types.ParentInodeFieldSize + types.ChecksumFieldSize

// SerializedSize returns the exact encoded length of a file entry.
func SerializedSize(nameBytes, blockCount int) int {
	return fixedFieldsSize + nameBytes + blockCount*types.BlockIndexFieldSize
}

// MaxBlocks returns how many block indices fit a slot next to a name of
// nameBytes bytes. It is negative when the name alone overflows the slot.
func MaxBlocks(nameBytes int) int {
	free := types.FileEntrySize - SerializedSize(nameBytes, 0)
	if free < 0 {
		return -1
	}
	return free / types.BlockIndexFieldSize
}

// NameLength returns the stored name length of a slot, or 0 when the slot is
// too short to hold one.
func NameLength(data []byte) int {
	if len(data) < types.NameLengthFieldSize {
		return 0
	}
	return int(int32(endian.Uint32(data[0:4])))
}

// ParseFileEntry decodes a file slot with a bounds check at every field
// boundary. Free or structurally impossible slots report false.
func ParseFileEntry(inode types.FileInode, data []byte) (*types.FileEntry, bool) {
	nameLength := NameLength(data)
	if nameLength <= 0 || nameLength > types.MaxFileNameLength {
		return nil, false
	}

	pos := types.NameLengthFieldSize
	if pos+nameLength > len(data) {
		return nil, false
	}
	entry := &types.FileEntry{
		Inode: inode,
		Name:  string(data[pos : pos+nameLength]),
	}
	pos += nameLength

	if pos+types.FileSizeFieldSize+types.IsDirectoryFieldSize+types.BlockCountFieldSize > len(data) {
		return nil, false
	}
	entry.Size = int64(endian.Uint64(data[pos:]))
	pos += types.FileSizeFieldSize
	entry.IsDirectory = data[pos] != 0
	pos += types.IsDirectoryFieldSize
	blockCount := int(int32(endian.Uint32(data[pos:])))
	pos += types.BlockCountFieldSize

	if blockCount > 0 {
		entry.BlockIndices = make([]types.BlockIndex, 0, min(blockCount, len(data)/types.BlockIndexFieldSize))
	}
	for i := 0; i < blockCount; i++ {
		if pos+types.BlockIndexFieldSize > len(data) {
			break
		}
		entry.BlockIndices = append(entry.BlockIndices, types.BlockIndex(int32(endian.Uint32(data[pos:]))))
		pos += types.BlockIndexFieldSize
	}

	if pos+types.TimestampFieldSize+types.TimestampFieldSize+types.ParentInodeFieldSize+types.ChecksumFieldSize > len(data) {
		return nil, false
	}
	entry.CreatedAt = types.DecodeTimestamp(int64(endian.Uint64(data[pos:])))
	pos += types.TimestampFieldSize
	entry.ModifiedAt = types.DecodeTimestamp(int64(endian.Uint64(data[pos:])))
	pos += types.TimestampFieldSize
	entry.Parent = types.DirInode(int32(endian.Uint32(data[pos:])))
	pos += types.ParentInodeFieldSize
	entry.Checksum = endian.Uint32(data[pos:])

	return entry, true
}

// SerializeFileEntry encodes entry, failing before any write when the result
// would not fit a file slot.
func SerializeFileEntry(entry *types.FileEntry) ([]byte, error) {
	nameBytes := []byte(entry.Name)
	if len(nameBytes) == 0 || len(nameBytes) > types.MaxFileNameLength {
		return nil, fmt.Errorf("%w: file name must be 1..%d bytes, got %d",
			types.ErrInvalidArgument, types.MaxFileNameLength, len(nameBytes))
	}

	size := SerializedSize(len(nameBytes), len(entry.BlockIndices))
	if size > types.FileEntrySize {
		return nil, fmt.Errorf("%w: file entry exceeds slot size (%d > %d)",
			types.ErrInvalidOperation, size, types.FileEntrySize)
	}

	data := make([]byte, size)
	pos := 0

	endian.PutUint32(data[pos:], uint32(len(nameBytes)))
	pos += types.NameLengthFieldSize
	pos += copy(data[pos:], nameBytes)

	endian.PutUint64(data[pos:], uint64(entry.Size))
	pos += types.FileSizeFieldSize
	if entry.IsDirectory {
		data[pos] = 1
	}
	pos += types.IsDirectoryFieldSize

	endian.PutUint32(data[pos:], uint32(len(entry.BlockIndices)))
	pos += types.BlockCountFieldSize
	for _, b := range entry.BlockIndices {
		endian.PutUint32(data[pos:], uint32(b))
		pos += types.BlockIndexFieldSize
	}

	endian.PutUint64(data[pos:], uint64(types.EncodeTimestamp(entry.CreatedAt)))
	pos += types.TimestampFieldSize
	endian.PutUint64(data[pos:], uint64(types.EncodeTimestamp(entry.ModifiedAt)))
	pos += types.TimestampFieldSize
	endian.PutUint32(data[pos:], uint32(entry.Parent))
	pos += types.ParentInodeFieldSize
	endian.PutUint32(data[pos:], entry.Checksum)

	return data, nil
}
