package blocks

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-blockfs/internal/types"
)

var endian = binary.LittleEndian

// ParseBlockRecord decodes one 9-byte block-table record.
func ParseBlockRecord(data []byte) (types.BlockRecord, error) {
	if len(data) < types.BlockRecordSize {
		return types.BlockRecord{}, fmt.Errorf("%w: block record needs %d bytes, got %d",
			types.ErrTruncated, types.BlockRecordSize, len(data))
	}

	return types.BlockRecord{
		IsUsed:   data[0] != 0,
		RefCount: int32(endian.Uint32(data[types.BlockRecordRefCountOffset:])),
		Checksum: endian.Uint32(data[types.BlockRecordChecksumOffset:]),
	}, nil
}

// SerializeBlockRecord encodes rec into its 9-byte form.
func SerializeBlockRecord(rec types.BlockRecord) []byte {
	data := make([]byte, types.BlockRecordSize)
	if rec.IsUsed {
		data[0] = 1
	}
	endian.PutUint32(data[types.BlockRecordRefCountOffset:], uint32(rec.RefCount))
	endian.PutUint32(data[types.BlockRecordChecksumOffset:], rec.Checksum)
	return data
}

// Checksum is the block fingerprint: XOR over the first length bytes of
// uint32(b*31). It is a candidate filter only; equal content must be confirmed
// byte-for-byte before two files share a block.
func Checksum(data []byte, length int) uint32 {
	var sum uint32
	n := min(length, len(data))
	for i := 0; i < n; i++ {
		sum ^= uint32(data[i]) * 31
	}
	return sum
}
