package listing

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-blockfs/internal/disk"
	"github.com/deploymenttheory/go-blockfs/internal/types"
)

func sampleListing() []types.ListingEntry {
	modified := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	return []types.ListingEntry{
		{Name: "notes.txt", Size: 2048, ModifiedAt: modified},
		{Name: "b", IsDirectory: true, ModifiedAt: modified},
		{Name: "a.bin", Size: 10, ModifiedAt: modified},
		{Name: "a", IsDirectory: true},
	}
}

func TestFormatListingTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatListing(&buf, sampleListing(), "table"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 8)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.True(t, strings.HasPrefix(lines[2], "a "))
	assert.True(t, strings.HasPrefix(lines[3], "b "))
	assert.True(t, strings.HasPrefix(lines[4], "a.bin"))
	assert.Contains(t, lines[5], "2.0 KB")
	assert.Equal(t, "4 entries totaling 2.0 KB", lines[7])
}

func TestFormatListingEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatListing(&buf, nil, "table"))
	assert.Equal(t, "Directory is empty.\n", buf.String())
}

func TestFormatListingEncoded(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, FormatListing(&buf, sampleListing(), "json"))

		var decoded []map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		require.Len(t, decoded, 4)
		assert.Equal(t, "a", decoded[0]["name"])
		assert.Equal(t, true, decoded[0]["is_directory"])
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, FormatListing(&buf, sampleListing(), "yaml"))

		var decoded []map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		require.Len(t, decoded, 4)
		assert.Equal(t, "notes.txt", decoded[3]["name"])
		assert.Equal(t, 2048, decoded[3]["size"])
	})

	t.Run("unsupported", func(t *testing.T) {
		assert.Error(t, FormatListing(&bytes.Buffer{}, nil, "xml"))
	})
}

func TestFormatTree(t *testing.T) {
	tree := []types.DirectoryTreeEntry{
		{Inode: 0, Name: "/", Path: "/"},
		{Inode: 1, Name: "a", Path: "/a", Depth: 1},
		{Inode: 2, Name: "b", Path: "/b", Depth: 1},
		{Inode: 3, Name: "c", Path: "/a/c", Depth: 2},
	}

	var buf bytes.Buffer
	require.NoError(t, FormatTree(&buf, tree, "table"))
	assert.Equal(t, "/\n  a/\n    c/\n  b/\n", buf.String())
}

func TestFormatInfo(t *testing.T) {
	info := &types.ContainerInfo{
		Path:             "disk.bin",
		BlockSize:        1000,
		TotalBlocks:      1000,
		UsedBlocks:       3,
		FreeBlocks:       997,
		CurrentDirectory: "/",
	}

	var buf bytes.Buffer
	require.NoError(t, FormatInfo(&buf, info, "table"))
	assert.Contains(t, buf.String(), "disk.bin")
	assert.Contains(t, buf.String(), "997")

	buf.Reset()
	require.NoError(t, FormatInfo(&buf, info, "json"))
	var decoded types.ContainerInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *info, decoded)
}

func TestFormatIntegrity(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatIntegrity(&buf, &types.IntegrityReport{Files: 1, UsedBlocks: 1, ReferencedBlocks: 1}, "table"))
	assert.Contains(t, buf.String(), "No problems found.")

	buf.Reset()
	report := &types.IntegrityReport{
		RefcountMismatches: []types.RefcountMismatch{{Block: 4, Stored: 2, Observed: 1}},
		OrphanedFiles:      []types.FileInode{9},
	}
	require.NoError(t, FormatIntegrity(&buf, report, "table"))
	assert.Contains(t, buf.String(), "block 4: refcount 2, referenced 1 times")
	assert.Contains(t, buf.String(), "file inode 9: parent directory missing")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in))
	}
}

func TestFormatConfig(t *testing.T) {
	cfg := &disk.Config{ContainerPath: "disk.bin", BlockSize: 512, TotalBlocks: 64, LogLevel: "info", LogFormat: "text"}

	var buf bytes.Buffer
	require.NoError(t, FormatConfig(&buf, cfg, "table"))
	assert.Contains(t, buf.String(), "block_size: 512")

	buf.Reset()
	require.NoError(t, FormatConfig(&buf, cfg, "json"))
	var decoded disk.Config
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *cfg, decoded)
}
