package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-blockfs/internal/types"
)

func TestVerifyIntegrityHealthy(t *testing.T) {
	s, _ := newTestService(t)
	importBytes(t, s, "a", fill(200, 1))
	importBytes(t, s, "b", fill(200, 1))

	report, err := s.VerifyIntegrity()
	require.NoError(t, err)
	assert.True(t, report.Healthy())
	assert.Equal(t, 2, report.Files)
	assert.Equal(t, int32(4), report.UsedBlocks)
	assert.Equal(t, int32(4), report.ReferencedBlocks)
}

func TestVerifyIntegrityFindsProblems(t *testing.T) {
	s, _ := newTestService(t)
	importBytes(t, s, "a", fill(10, 1))

	require.NoError(t, s.blocks.IncrementRefCount(0))
	stray := strandBlock(t, s, "nobody")
	require.NoError(t, s.files.SaveFileEntry(5, &types.FileEntry{
		Name:         "lost",
		Parent:       77,
		BlockIndices: []types.BlockIndex{20},
	}))

	usedBefore := usedBlocks(t, s)

	report, err := s.VerifyIntegrity()
	require.NoError(t, err)
	assert.False(t, report.Healthy())
	assert.Equal(t, []types.RefcountMismatch{{Block: 0, Stored: 2, Observed: 1}}, report.RefcountMismatches)
	assert.Equal(t, []types.BlockIndex{stray}, report.UnreferencedBlocks)
	assert.Equal(t, []types.BlockIndex{20}, report.UnallocatedRefs)
	assert.Equal(t, []types.FileInode{5}, report.OrphanedFiles)

	assert.Equal(t, usedBefore, usedBlocks(t, s), "verification is read-only")
}
