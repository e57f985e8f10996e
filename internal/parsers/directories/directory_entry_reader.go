package directories

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-blockfs/internal/types"
)

var endian = binary.LittleEndian

// ParseDirectoryEntry decodes a directory slot. It reports false when the slot
// is free or structurally impossible (bad name length, truncated fields,
// out-of-range child count); such slots are absent, not errors.
func ParseDirectoryEntry(inode types.DirInode, data []byte) (*types.DirectoryEntry, bool) {
	if len(data) < types.NameLengthFieldSize {
		return nil, false
	}

	nameLength := int(int32(endian.Uint32(data[0:4])))
	if nameLength <= 0 || nameLength > types.MaxDirectoryNameLength {
		return nil, false
	}

	pos := types.NameLengthFieldSize
	if pos+nameLength > len(data) {
		return nil, false
	}
	name := string(data[pos : pos+nameLength])
	pos += nameLength

	if pos+types.DirectoryMetadataSize > len(data) {
		return nil, false
	}

	entry := &types.DirectoryEntry{
		Inode:  inode,
		Name:   name,
		Parent: types.DirInode(int32(endian.Uint32(data[pos:]))),
	}
	pos += types.ParentInodeFieldSize

	entry.CreatedAt = types.DecodeTimestamp(int64(endian.Uint64(data[pos:])))
	pos += types.TimestampFieldSize
	entry.ModifiedAt = types.DecodeTimestamp(int64(endian.Uint64(data[pos:])))
	pos += types.TimestampFieldSize

	childCount := int(int32(endian.Uint32(data[pos:])))
	pos += types.ChildCountFieldSize
	if childCount < 0 || childCount > types.MaxChildrenPerDirectory {
		return nil, false
	}

	entry.Children = make([]types.ChildRef, 0, childCount)
	for i := 0; i < types.MaxChildrenPerDirectory; i++ {
		if pos+types.ChildInodeFieldSize > len(data) {
			break
		}
		child := types.ChildRef(int32(endian.Uint32(data[pos:])))
		pos += types.ChildInodeFieldSize

		if i < childCount && child != types.NoChild {
			entry.Children = append(entry.Children, child)
		}
	}

	return entry, true
}

// SerializedSize returns the encoded length for a name of nameBytes bytes.
// The child slots are always written in full.
func SerializedSize(nameBytes int) int {
	return types.NameLengthFieldSize + nameBytes + types.DirectoryMetadataSize +
		types.MaxChildrenPerDirectory*types.ChildInodeFieldSize
}

// SerializeDirectoryEntry encodes entry. Every child slot is rewritten, real
// references first and NoChild padding after, so stale children never survive.
func SerializeDirectoryEntry(entry *types.DirectoryEntry) ([]byte, error) {
	nameBytes := []byte(entry.Name)
	if len(nameBytes) == 0 || len(nameBytes) > types.MaxDirectoryNameLength {
		return nil, fmt.Errorf("%w: directory name must be 1..%d bytes, got %d",
			types.ErrInvalidArgument, types.MaxDirectoryNameLength, len(nameBytes))
	}
	if len(entry.Children) > types.MaxChildrenPerDirectory {
		return nil, fmt.Errorf("%w: directory %d has %d children, limit is %d",
			types.ErrOutOfSpace, entry.Inode, len(entry.Children), types.MaxChildrenPerDirectory)
	}

	data := make([]byte, SerializedSize(len(nameBytes)))
	pos := 0

	endian.PutUint32(data[pos:], uint32(len(nameBytes)))
	pos += types.NameLengthFieldSize
	pos += copy(data[pos:], nameBytes)

	endian.PutUint32(data[pos:], uint32(entry.Parent))
	pos += types.ParentInodeFieldSize
	endian.PutUint64(data[pos:], uint64(types.EncodeTimestamp(entry.CreatedAt)))
	pos += types.TimestampFieldSize
	endian.PutUint64(data[pos:], uint64(types.EncodeTimestamp(entry.ModifiedAt)))
	pos += types.TimestampFieldSize

	endian.PutUint32(data[pos:], uint32(len(entry.Children)))
	pos += types.ChildCountFieldSize

	for i := 0; i < types.MaxChildrenPerDirectory; i++ {
		child := types.NoChild
		if i < len(entry.Children) {
			child = entry.Children[i]
		}
		endian.PutUint32(data[pos:], uint32(child))
		pos += types.ChildInodeFieldSize
	}

	return data, nil
}
