package services

import (
	"github.com/google/btree"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-blockfs/internal/types"
)

// blockUsage counts the file references to one block
type blockUsage struct {
	index types.BlockIndex
	refs  int32
}

func (u *blockUsage) Less(than btree.Item) bool {
	return u.index < than.(*blockUsage).index
}

// blockCensus is an ordered tally of block references across all file entries
type blockCensus struct {
	tree  *btree.BTree
	files []*types.FileEntry
}

func (c *blockCensus) add(index types.BlockIndex) {
	if item := c.tree.Get(&blockUsage{index: index}); item != nil {
		item.(*blockUsage).refs++
		return
	}
	c.tree.ReplaceOrInsert(&blockUsage{index: index, refs: 1})
}

func (c *blockCensus) refs(index types.BlockIndex) int32 {
	if item := c.tree.Get(&blockUsage{index: index}); item != nil {
		return item.(*blockUsage).refs
	}
	return 0
}

// blockCensus counts block references over every decodable file entry. A block
// listed twice by one file counts twice, matching how writes take references.
func (s *FileSystemService) blockCensus() (*blockCensus, error) {
	inodes, err := s.files.GetAllFileInodes()
	if err != nil {
		return nil, err
	}

	census := &blockCensus{tree: btree.New(16)}
	for _, inode := range inodes {
		entry, err := s.files.GetFileEntry(inode)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}
		census.files = append(census.files, entry)
		for _, idx := range entry.BlockIndices {
			census.add(idx)
		}
	}
	return census, nil
}

// VerifyIntegrity cross-checks the block table against the file area and the
// directory tree without modifying anything
func (s *FileSystemService) VerifyIntegrity() (*types.IntegrityReport, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}

	census, err := s.blockCensus()
	if err != nil {
		return nil, err
	}

	report := &types.IntegrityReport{
		Files:            len(census.files),
		ReferencedBlocks: int32(census.tree.Len()),
	}

	total := types.BlockIndex(s.blocks.TotalBlocks())
	var scanErr error
	census.tree.Ascend(func(item btree.Item) bool {
		usage := item.(*blockUsage)
		if usage.index < 0 || usage.index >= total {
			report.UnallocatedRefs = append(report.UnallocatedRefs, usage.index)
			return true
		}
		rec, err := s.blocks.GetRecord(usage.index)
		if err != nil {
			scanErr = err
			return false
		}
		if !rec.IsUsed {
			report.UnallocatedRefs = append(report.UnallocatedRefs, usage.index)
		}
		return true
	})
	if scanErr != nil {
		return nil, scanErr
	}

	for i := types.BlockIndex(0); i < total; i++ {
		rec, err := s.blocks.GetRecord(i)
		if err != nil {
			return nil, err
		}
		if !rec.IsUsed {
			continue
		}
		report.UsedBlocks++

		observed := census.refs(i)
		if observed == 0 {
			report.UnreferencedBlocks = append(report.UnreferencedBlocks, i)
			continue
		}
		if observed != rec.RefCount {
			report.RefcountMismatches = append(report.RefcountMismatches, types.RefcountMismatch{
				Block:    i,
				Stored:   rec.RefCount,
				Observed: observed,
			})
		}
	}

	for _, entry := range census.files {
		parent, err := s.dirs.GetDirectory(entry.Parent)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			report.OrphanedFiles = append(report.OrphanedFiles, entry.Inode)
		}
	}

	s.log.WithFields(logrus.Fields{
		"used_blocks": report.UsedBlocks,
		"files":       report.Files,
		"healthy":     report.Healthy(),
	}).Info("verified container integrity")
	return report, nil
}
