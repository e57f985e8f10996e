package services

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-blockfs/internal/types"
)

// recoverJournal undoes the write recorded in the journal, if any. Failures are
// logged and never returned; the journal is cleared regardless so a
// permanently broken entry cannot trap every open in a retry loop.
func (s *FileSystemService) recoverJournal() {
	inode := s.container.ReadJournalInode()
	if inode < 0 {
		return
	}

	log := s.log.WithFields(logrus.Fields{
		"recovery_id": uuid.NewString(),
		"inode":       inode,
	})
	log.Warn("journal holds an unfinished write, rolling back")

	s.rollbackFile(inode, log)

	if err := s.container.ClearJournal(); err != nil {
		log.WithError(err).Warn("failed to clear journal after recovery")
		return
	}
	log.Info("recovery complete")
}

// rollbackFile removes every trace of a partially written file: its blocks,
// its entry and its links from both the root and its recorded parent. Blocks
// and references taken before the entry was persisted are undone by the block
// table reconcile.
func (s *FileSystemService) rollbackFile(inode types.FileInode, log *logrus.Entry) {
	if !inode.Valid() {
		log.Warn("journaled inode out of range, nothing to roll back")
		return
	}

	entry, err := s.files.GetFileEntry(inode)
	if err != nil {
		log.WithError(err).Warn("failed to read journaled file entry")
	}

	if entry != nil {
		if err := s.files.ReleaseBlocks(entry.BlockIndices); err != nil {
			log.WithError(err).Warn("failed to release blocks of journaled file")
		}
		if err := s.files.DeleteFileEntry(inode); err != nil {
			log.WithError(err).Warn("failed to delete journaled file entry")
		}
		if entry.Parent != types.RootDirectoryInode {
			if err := s.dirs.RemoveChildFromDirectory(entry.Parent, types.FileChild(inode)); err != nil {
				log.WithError(err).Warn("failed to unlink journaled file from its parent")
			}
		}
	}

	if err := s.dirs.RemoveChildFromDirectory(types.RootDirectoryInode, types.FileChild(inode)); err != nil {
		log.WithError(err).Warn("failed to unlink journaled file from root")
	}

	reclaimed, repaired, err := s.reconcileBlocks()
	if err != nil {
		log.WithError(err).Warn("failed to reconcile block table")
	}
	if reclaimed > 0 || repaired > 0 {
		log.WithFields(logrus.Fields{"reclaimed": reclaimed, "repaired": repaired}).Info("reconciled block table")
	}
}

// reconcileBlocks brings the block table in line with the file entries. Used
// blocks no entry lists are freed; used blocks whose refcount differs from the
// number of listed references get the census count. This covers references
// taken by a write that never saved its entry.
func (s *FileSystemService) reconcileBlocks() (reclaimed, repaired int, err error) {
	census, err := s.blockCensus()
	if err != nil {
		return 0, 0, err
	}

	for i := types.BlockIndex(0); i < types.BlockIndex(s.blocks.TotalBlocks()); i++ {
		rec, err := s.blocks.GetRecord(i)
		if err != nil {
			return reclaimed, repaired, err
		}
		if !rec.IsUsed {
			continue
		}

		refs := census.refs(i)
		switch {
		case refs == 0:
			if err := s.blocks.Deallocate(i); err != nil {
				return reclaimed, repaired, err
			}
			reclaimed++
		case refs != rec.RefCount:
			if err := s.blocks.SetRefCount(i, refs); err != nil {
				return reclaimed, repaired, err
			}
			repaired++
		}
	}
	return reclaimed, repaired, nil
}
