package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-blockfs/internal/disk"
	"github.com/deploymenttheory/go-blockfs/internal/interfaces"
	"github.com/deploymenttheory/go-blockfs/internal/logging"
	parser "github.com/deploymenttheory/go-blockfs/internal/parsers/files"
	"github.com/deploymenttheory/go-blockfs/internal/types"
)

// FileManager manages the fixed array of file slots and streams file content
// through the block table
type FileManager struct {
	path        string
	totalBlocks int32
	blocks      interfaces.BlockTable
	dirs        interfaces.DirectoryWriter
	now         func() time.Time
	log         *logrus.Entry
}

// NewFileManager creates a FileManager for the container at path
func NewFileManager(path string, blocks interfaces.BlockTable, dirs interfaces.DirectoryWriter, totalBlocks int32) *FileManager {
	return &FileManager{
		path:        path,
		totalBlocks: totalBlocks,
		blocks:      blocks,
		dirs:        dirs,
		now:         func() time.Time { return time.Now().UTC() },
		log:         logging.For("file_manager"),
	}
}

func (fm *FileManager) slotOffset(inode types.FileInode) int64 {
	return types.FileSlotOffset(fm.totalBlocks, inode)
}

// GetFileEntry loads the entry at inode. Free, truncated and corrupt slots
// come back as nil without error.
func (fm *FileManager) GetFileEntry(inode types.FileInode) (*types.FileEntry, error) {
	if !inode.Valid() {
		return nil, nil
	}

	var entry *types.FileEntry
	err := disk.WithFile(fm.path, disk.ReadOnly, func(f *os.File) error {
		slot := make([]byte, types.FileEntrySize)
		n, err := disk.ReadAtMost(f, slot, fm.slotOffset(inode))
		if err != nil {
			return fmt.Errorf("failed to read file slot %d: %w", inode, err)
		}
		var ok bool
		if entry, ok = parser.ParseFileEntry(inode, slot[:n]); !ok {
			entry = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// SaveFileEntry rewrites the whole slot of inode, zeroing any stale tail
func (fm *FileManager) SaveFileEntry(inode types.FileInode, entry *types.FileEntry) error {
	if !inode.Valid() {
		return fmt.Errorf("%w: file inode %d out of range", types.ErrInvalidArgument, inode)
	}
	if entry == nil {
		return fmt.Errorf("%w: file entry is nil", types.ErrInvalidArgument)
	}

	data, err := parser.SerializeFileEntry(entry)
	if err != nil {
		return err
	}
	slot := make([]byte, types.FileEntrySize)
	copy(slot, data)

	return disk.WithFile(fm.path, disk.ReadWrite, func(f *os.File) error {
		if err := disk.WriteAt(f, slot, fm.slotOffset(inode)); err != nil {
			return fmt.Errorf("failed to save file entry %d: %w", inode, err)
		}
		return nil
	})
}

// DeleteFileEntry zeroes the slot of inode
func (fm *FileManager) DeleteFileEntry(inode types.FileInode) error {
	if !inode.Valid() {
		return fmt.Errorf("%w: file inode %d out of range", types.ErrInvalidArgument, inode)
	}

	return disk.WithFile(fm.path, disk.ReadWrite, func(f *os.File) error {
		if err := disk.WriteAt(f, make([]byte, types.FileEntrySize), fm.slotOffset(inode)); err != nil {
			return fmt.Errorf("failed to delete file entry %d: %w", inode, err)
		}
		return nil
	})
}

// readFileArea returns the file area as far as the container extends
func (fm *FileManager) readFileArea() ([]byte, error) {
	var area []byte
	err := disk.WithFile(fm.path, disk.ReadOnly, func(f *os.File) error {
		buf := make([]byte, types.FileAreaSize())
		n, err := disk.ReadAtMost(f, buf, types.FileAreaOffset(fm.totalBlocks))
		if err != nil {
			return fmt.Errorf("failed to read file area: %w", err)
		}
		area = buf[:n]
		return nil
	})
	return area, err
}

func slotBytes(area []byte, inode types.FileInode) []byte {
	start := int(inode) * types.FileEntrySize
	if start >= len(area) {
		return nil
	}
	return area[start:min(start+types.FileEntrySize, len(area))]
}

// scan calls fn for every decodable entry in inode order
func (fm *FileManager) scan(fn func(entry *types.FileEntry)) error {
	area, err := fm.readFileArea()
	if err != nil {
		return err
	}
	for i := types.FileInode(0); i < types.MaxFiles; i++ {
		slot := slotBytes(area, i)
		if slot == nil {
			break
		}
		if entry, ok := parser.ParseFileEntry(i, slot); ok {
			fn(entry)
		}
	}
	return nil
}

// ReserveFileSlot returns the first free slot. Slots past the end of a short
// container count as free.
func (fm *FileManager) ReserveFileSlot() (types.FileInode, error) {
	area, err := fm.readFileArea()
	if err != nil {
		return -1, err
	}
	for i := types.FileInode(0); i < types.MaxFiles; i++ {
		slot := slotBytes(area, i)
		if slot == nil || parser.NameLength(slot) == 0 {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: no free file slots available", types.ErrOutOfSpace)
}

// GetFilesInDirectory returns every file whose parent is dir
func (fm *FileManager) GetFilesInDirectory(dir types.DirInode) ([]*types.FileEntry, error) {
	var entries []*types.FileEntry
	err := fm.scan(func(entry *types.FileEntry) {
		if entry.Parent == dir && !entry.IsDirectory {
			entries = append(entries, entry)
		}
	})
	return entries, err
}

// GetFileInodesInDirectory returns the inodes of every file whose parent is dir
func (fm *FileManager) GetFileInodesInDirectory(dir types.DirInode) ([]types.FileInode, error) {
	var inodes []types.FileInode
	err := fm.scan(func(entry *types.FileEntry) {
		if entry.Parent == dir {
			inodes = append(inodes, entry.Inode)
		}
	})
	return inodes, err
}

// GetAllFileInodes returns every occupied file inode
func (fm *FileManager) GetAllFileInodes() ([]types.FileInode, error) {
	var inodes []types.FileInode
	err := fm.scan(func(entry *types.FileEntry) {
		inodes = append(inodes, entry.Inode)
	})
	return inodes, err
}

// FindFileByName returns the highest inode named name under dir, or -1
func (fm *FileManager) FindFileByName(dir types.DirInode, name string) (types.FileInode, error) {
	area, err := fm.readFileArea()
	if err != nil {
		return -1, err
	}
	for i := types.FileInode(types.MaxFiles - 1); i >= 0; i-- {
		slot := slotBytes(area, i)
		if slot == nil {
			continue
		}
		entry, ok := parser.ParseFileEntry(i, slot)
		if ok && !entry.IsDirectory && entry.Parent == dir && entry.Name == name {
			return i, nil
		}
	}
	return -1, nil
}

// storeBlock places one zero-padded chunk, sharing an identical stored block
// where one exists
func (fm *FileManager) storeBlock(block []byte, validLength int) (types.BlockIndex, bool, error) {
	checksum := fm.blocks.CalculateChecksum(block, validLength)

	// Compare the padded block so a shared block never carries a foreign tail.
	existing, err := fm.blocks.FindBlockByChecksumAndData(checksum, block, len(block))
	if err != nil {
		return types.NoBlock, false, err
	}
	if existing != types.NoBlock {
		if err := fm.blocks.IncrementRefCount(existing); err != nil {
			return types.NoBlock, false, err
		}
		return existing, true, nil
	}

	idx, err := fm.blocks.FindFreeBlock()
	if err != nil {
		return types.NoBlock, false, err
	}
	if err := fm.blocks.Allocate(idx); err != nil {
		return types.NoBlock, false, err
	}
	if err := fm.blocks.WriteBlockData(idx, block, 0); err != nil {
		return idx, false, err
	}
	if err := fm.blocks.SetChecksum(idx, checksum); err != nil {
		return idx, false, err
	}
	return idx, false, nil
}

// WriteFileData streams up to entry.Size bytes of src into blocks, persists
// the entry at inode and finally links it into entry.Parent. On failure every
// block reference taken by this call is released.
func (fm *FileManager) WriteFileData(inode types.FileInode, src io.Reader, entry *types.FileEntry) (err error) {
	if !inode.Valid() {
		return fmt.Errorf("%w: file inode %d out of range", types.ErrInvalidArgument, inode)
	}
	if entry == nil || src == nil {
		return fmt.Errorf("%w: file entry and source are required", types.ErrInvalidArgument)
	}

	log := fm.log.WithFields(logrus.Fields{"inode": inode, "name": entry.Name})
	blockSize := int(fm.blocks.BlockSize())

	var acquired []types.BlockIndex
	defer func() {
		if err != nil && len(acquired) > 0 {
			if rerr := fm.ReleaseBlocks(acquired); rerr != nil {
				log.WithError(rerr).Warn("failed to release blocks after write error")
			}
		}
	}()

	reader := io.LimitReader(src, max(entry.Size, 0))
	block := make([]byte, blockSize)
	var written int64
	var checksum uint32
	var shared int

	for {
		n, rerr := io.ReadFull(reader, block)
		if n > 0 {
			clear(block[n:])
			idx, dedup, serr := fm.storeBlock(block, n)
			if idx != types.NoBlock {
				acquired = append(acquired, idx)
			}
			if serr != nil {
				return fmt.Errorf("failed to store block %d of file %q: %w", len(acquired), entry.Name, serr)
			}
			if dedup {
				shared++
			}
			checksum ^= fm.blocks.CalculateChecksum(block, n)
			written += int64(n)
		}
		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			break
		}
		if rerr != nil {
			return fmt.Errorf("failed to read source of file %q: %w", entry.Name, rerr)
		}
	}

	if written < entry.Size {
		log.WithFields(logrus.Fields{"declared": entry.Size, "written": written}).Warn("source ended early")
	}

	now := fm.now()
	entry.Inode = inode
	entry.Size = written
	entry.BlockIndices = acquired
	entry.Checksum = checksum
	entry.ModifiedAt = now
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}

	if err := fm.SaveFileEntry(inode, entry); err != nil {
		return err
	}
	if err := fm.dirs.AddChildToDirectory(entry.Parent, types.FileChild(inode)); err != nil {
		if derr := fm.DeleteFileEntry(inode); derr != nil {
			log.WithError(derr).Warn("failed to free file entry after link error")
		}
		return fmt.Errorf("failed to link file %q: %w", entry.Name, err)
	}

	log.WithFields(logrus.Fields{
		"size":   written,
		"blocks": len(acquired),
		"shared": shared,
	}).Debug("wrote file data")
	return nil
}

// CopyFileOut writes exactly Size bytes of the file to w, verifying each block
// before its bytes are written and the file checksum at the end
func (fm *FileManager) CopyFileOut(inode types.FileInode, w io.Writer) error {
	entry, err := fm.GetFileEntry(inode)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("%w: file inode %d", types.ErrNotFound, inode)
	}

	blockSize := int64(fm.blocks.BlockSize())
	remaining := entry.Size
	var checksum uint32

	for pos, idx := range entry.BlockIndices {
		if remaining <= 0 {
			break
		}
		need := int(min(blockSize, remaining))

		rec, err := fm.blocks.GetRecord(idx)
		if err != nil {
			return fmt.Errorf("failed to read block %d of %q: %w", idx, entry.Name, err)
		}
		if !rec.IsUsed {
			return fmt.Errorf("%w: block %d of %q is not allocated", types.ErrDataCorruption, idx, entry.Name)
		}
		data, err := fm.blocks.ReadBlockData(idx)
		if err != nil {
			return fmt.Errorf("failed to read block %d of %q: %w", idx, entry.Name, err)
		}

		actual := fm.blocks.CalculateChecksum(data, need)
		if actual != rec.Checksum {
			return fmt.Errorf("%w: checksum mismatch in block %d (position %d) of %q: stored %08x, computed %08x",
				types.ErrDataCorruption, idx, pos, entry.Name, rec.Checksum, actual)
		}
		checksum ^= actual

		if _, err := w.Write(data[:need]); err != nil {
			return fmt.Errorf("failed to write content of %q: %w", entry.Name, err)
		}
		remaining -= int64(need)
	}

	if remaining > 0 {
		return fmt.Errorf("%w: %q is missing %d bytes of block data", types.ErrDataCorruption, entry.Name, remaining)
	}
	if entry.Checksum != 0 && checksum != entry.Checksum {
		return fmt.Errorf("%w: file checksum mismatch for %q: stored %08x, computed %08x",
			types.ErrDataCorruption, entry.Name, entry.Checksum, checksum)
	}
	return nil
}

// CopyFileOutToPath stages the content next to destination and renames it into
// place only after verification succeeds
func (fm *FileManager) CopyFileOutToPath(inode types.FileInode, destination string) (err error) {
	staging := fmt.Sprintf("%s.%s.partial", destination, uuid.NewString())

	out, err := os.Create(staging)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", staging, err)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(staging)
		}
	}()

	if err := fm.CopyFileOut(inode, out); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", staging, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", staging, err)
	}
	if err := os.Rename(staging, destination); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", destination, err)
	}
	return nil
}

// ReleaseBlocks drops one reference per listed index and frees blocks that
// reach zero. Every index is attempted; the errors are joined.
func (fm *FileManager) ReleaseBlocks(indices []types.BlockIndex) error {
	var errs []error
	for _, idx := range indices {
		count, err := fm.blocks.DecrementRefCount(idx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if count == 0 {
			if err := fm.blocks.Deallocate(idx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// DeleteFile releases the file's blocks, unlinks it from its parent and frees
// its slot
func (fm *FileManager) DeleteFile(inode types.FileInode) error {
	entry, err := fm.GetFileEntry(inode)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("%w: file inode %d", types.ErrNotFound, inode)
	}

	if err := fm.ReleaseBlocks(entry.BlockIndices); err != nil {
		return fmt.Errorf("failed to release blocks of %q: %w", entry.Name, err)
	}
	if err := fm.dirs.RemoveChildFromDirectory(entry.Parent, types.FileChild(inode)); err != nil {
		return err
	}
	if err := fm.DeleteFileEntry(inode); err != nil {
		return err
	}

	fm.log.WithFields(logrus.Fields{"inode": inode, "name": entry.Name}).Debug("deleted file")
	return nil
}
