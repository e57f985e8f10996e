package files

import (
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-blockfs/internal/types"
)

func newTestFileEntry() *types.FileEntry {
	now := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	return &types.FileEntry{
		Name:         "report.txt",
		Size:         2500,
		BlockIndices: []types.BlockIndex{0, 4, 2},
		CreatedAt:    now,
		ModifiedAt:   now.Add(time.Second),
		Parent:       3,
		Checksum:     0x1234,
	}
}

func TestFileEntryCodec(t *testing.T) {
	entry := newTestFileEntry()

	data, err := SerializeFileEntry(entry)
	require.NoError(t, err)
	assert.Len(t, data, SerializedSize(len(entry.Name), len(entry.BlockIndices)))

	parsed, ok := ParseFileEntry(11, data)
	require.True(t, ok)
	assert.Equal(t, types.FileInode(11), parsed.Inode)
	assert.Equal(t, entry.Name, parsed.Name)
	assert.Equal(t, entry.Size, parsed.Size)
	assert.False(t, parsed.IsDirectory)
	assert.Equal(t, entry.BlockIndices, parsed.BlockIndices)
	assert.True(t, entry.CreatedAt.Equal(parsed.CreatedAt))
	assert.True(t, entry.ModifiedAt.Equal(parsed.ModifiedAt))
	assert.Equal(t, entry.Parent, parsed.Parent)
	assert.Equal(t, entry.Checksum, parsed.Checksum)
}

func TestParseFileEntryFailsSoft(t *testing.T) {
	valid, err := SerializeFileEntry(newTestFileEntry())
	require.NoError(t, err)

	withNameLength := func(n int32) []byte {
		data := append([]byte(nil), valid...)
		binary.LittleEndian.PutUint32(data[0:4], uint32(n))
		return data
	}
	withBlockCount := func(n int32) []byte {
		data := append([]byte(nil), valid...)
		binary.LittleEndian.PutUint32(data[4+len("report.txt")+9:], uint32(n))
		return data
	}

	tests := []struct {
		name string
		data []byte
	}{
		{name: "nil", data: nil},
		{name: "free slot", data: withNameLength(0)},
		{name: "negative name length", data: withNameLength(-1)},
		{name: "name too long", data: withNameLength(types.MaxFileNameLength + 1)},
		{name: "name past end", data: valid[:8]},
		{name: "size field truncated", data: valid[:4+len("report.txt")+6]},
		{name: "block list overruns slot", data: withBlockCount(10_000)},
		{name: "trailer truncated", data: valid[:len(valid)-2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := ParseFileEntry(0, tt.data)
			assert.False(t, ok)
			assert.Nil(t, entry)
		})
	}
}

func TestSerializeFileEntryLimits(t *testing.T) {
	t.Run("name too long", func(t *testing.T) {
		entry := newTestFileEntry()
		entry.Name = strings.Repeat("x", types.MaxFileNameLength+1)
		_, err := SerializeFileEntry(entry)
		assert.ErrorIs(t, err, types.ErrInvalidArgument)
	})

	t.Run("empty name", func(t *testing.T) {
		entry := newTestFileEntry()
		entry.Name = ""
		_, err := SerializeFileEntry(entry)
		assert.ErrorIs(t, err, types.ErrInvalidArgument)
	})

	t.Run("too many blocks", func(t *testing.T) {
		entry := newTestFileEntry()
		entry.BlockIndices = make([]types.BlockIndex, MaxBlocks(len(entry.Name))+1)
		_, err := SerializeFileEntry(entry)
		assert.ErrorIs(t, err, types.ErrInvalidOperation)
	})

	t.Run("exactly full slot", func(t *testing.T) {
		entry := newTestFileEntry()
		entry.BlockIndices = make([]types.BlockIndex, MaxBlocks(len(entry.Name)))
		data, err := SerializeFileEntry(entry)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(data), types.FileEntrySize)
	})

	t.Run("maximum name overflows slot", func(t *testing.T) {
		assert.Equal(t, -1, MaxBlocks(types.MaxFileNameLength))
	})
}

func TestNameLength(t *testing.T) {
	assert.Equal(t, 0, NameLength([]byte{1, 2}))
	assert.Equal(t, 5, NameLength([]byte{5, 0, 0, 0}))
}
