package blocks

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-blockfs/internal/disk"
	"github.com/deploymenttheory/go-blockfs/internal/logging"
	parser "github.com/deploymenttheory/go-blockfs/internal/parsers/blocks"
	"github.com/deploymenttheory/go-blockfs/internal/types"
)

// BlockTable manages the block-table records and the data region of one
// container. Every method opens and closes the container itself.
type BlockTable struct {
	path        string
	blockSize   int32
	totalBlocks int32
	log         *logrus.Entry
}

// NewBlockTable creates a BlockTable bound to the container at path
func NewBlockTable(path string, blockSize, totalBlocks int32) *BlockTable {
	return &BlockTable{
		path:        path,
		blockSize:   blockSize,
		totalBlocks: totalBlocks,
		log:         logging.For("block_table"),
	}
}

// BlockSize returns the block size in bytes
func (bt *BlockTable) BlockSize() int32 {
	return bt.blockSize
}

// TotalBlocks returns the number of blocks in the data region
func (bt *BlockTable) TotalBlocks() int32 {
	return bt.totalBlocks
}

func (bt *BlockTable) validateIndex(index types.BlockIndex) error {
	if index < 0 || int32(index) >= bt.totalBlocks {
		return fmt.Errorf("%w: block index %d out of range [0, %d)", types.ErrInvalidArgument, index, bt.totalBlocks)
	}
	return nil
}

// DataOffset returns the byte offset of a block in the data region
func (bt *BlockTable) DataOffset(index types.BlockIndex) (int64, error) {
	if err := bt.validateIndex(index); err != nil {
		return 0, err
	}
	return types.DataBlockOffset(bt.totalBlocks, bt.blockSize, index), nil
}

// InitializeBlockTable writes totalBlocks free records
func (bt *BlockTable) InitializeBlockTable() error {
	return disk.WithFile(bt.path, disk.ReadWrite, func(f *os.File) error {
		table := make([]byte, types.BlockTableSize(bt.totalBlocks))
		if err := disk.WriteAt(f, table, types.BlockTableOffset); err != nil {
			return fmt.Errorf("failed to initialize block table: %w", err)
		}
		return nil
	})
}

// readTable reads as much of the table region as the file holds. Records cut
// off by end of file are not returned.
func (bt *BlockTable) readTable(f *os.File) ([]byte, error) {
	table := make([]byte, types.BlockTableSize(bt.totalBlocks))
	n, err := disk.ReadAtMost(f, table, types.BlockTableOffset)
	if err != nil {
		return nil, fmt.Errorf("failed to read block table: %w", err)
	}
	return table[:n-n%types.BlockRecordSize], nil
}

// FindFreeBlock returns the first unused block
func (bt *BlockTable) FindFreeBlock() (types.BlockIndex, error) {
	index := types.NoBlock
	err := disk.WithFile(bt.path, disk.ReadOnly, func(f *os.File) error {
		table, err := bt.readTable(f)
		if err != nil {
			return err
		}
		for pos := 0; pos < len(table); pos += types.BlockRecordSize {
			if table[pos] == 0 {
				index = types.BlockIndex(pos / types.BlockRecordSize)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return types.NoBlock, err
	}
	if index == types.NoBlock {
		return types.NoBlock, fmt.Errorf("%w: no free blocks available", types.ErrOutOfSpace)
	}

	bt.log.WithField("block", index).Debug("found free block")
	return index, nil
}

// writeRecord replaces the complete record of a block
func (bt *BlockTable) writeRecord(f *os.File, index types.BlockIndex, rec types.BlockRecord) error {
	off := types.BlockRecordOffset(index)
	size, err := disk.Size(f)
	if err != nil {
		return err
	}
	if off+types.BlockRecordSize > size {
		return fmt.Errorf("%w: block table area ends before record %d", types.ErrTruncated, index)
	}
	return disk.WriteAt(f, parser.SerializeBlockRecord(rec), off)
}

// readRecord reads the complete record of a block
func (bt *BlockTable) readRecord(f *os.File, index types.BlockIndex) (types.BlockRecord, error) {
	buf := make([]byte, types.BlockRecordSize)
	n, err := disk.ReadAtMost(f, buf, types.BlockRecordOffset(index))
	if err != nil {
		return types.BlockRecord{}, err
	}
	rec, err := parser.ParseBlockRecord(buf[:n])
	if err != nil {
		return types.BlockRecord{}, fmt.Errorf("block %d: %w", index, err)
	}
	return rec, nil
}

// GetRecord returns the record of a block
func (bt *BlockTable) GetRecord(index types.BlockIndex) (types.BlockRecord, error) {
	if err := bt.validateIndex(index); err != nil {
		return types.BlockRecord{}, err
	}

	var rec types.BlockRecord
	err := disk.WithFile(bt.path, disk.ReadOnly, func(f *os.File) error {
		var err error
		rec, err = bt.readRecord(f, index)
		return err
	})
	return rec, err
}

// Allocate marks a block used with one reference and a zero checksum
func (bt *BlockTable) Allocate(index types.BlockIndex) error {
	if err := bt.validateIndex(index); err != nil {
		return err
	}

	return disk.WithFile(bt.path, disk.ReadWrite, func(f *os.File) error {
		if err := bt.writeRecord(f, index, types.BlockRecord{IsUsed: true, RefCount: 1}); err != nil {
			return fmt.Errorf("failed to allocate block %d: %w", index, err)
		}
		bt.log.WithField("block", index).Debug("allocated block")
		return nil
	})
}

// Deallocate zero-fills the block data and resets its record
func (bt *BlockTable) Deallocate(index types.BlockIndex) error {
	dataPos, err := bt.DataOffset(index)
	if err != nil {
		return err
	}

	return disk.WithFile(bt.path, disk.ReadWrite, func(f *os.File) error {
		size, err := disk.Size(f)
		if err != nil {
			return err
		}

		if dataPos+int64(bt.blockSize) <= size {
			if err := disk.WriteAt(f, make([]byte, bt.blockSize), dataPos); err != nil {
				return fmt.Errorf("failed to clear block %d: %w", index, err)
			}
		}

		if err := bt.writeRecord(f, index, types.BlockRecord{}); err != nil {
			return fmt.Errorf("failed to deallocate block %d: %w", index, err)
		}
		bt.log.WithField("block", index).Debug("deallocated block")
		return nil
	})
}

// updateRecord applies fn to the stored record of a block and writes it back
func (bt *BlockTable) updateRecord(index types.BlockIndex, fn func(rec *types.BlockRecord)) (types.BlockRecord, error) {
	if err := bt.validateIndex(index); err != nil {
		return types.BlockRecord{}, err
	}

	var rec types.BlockRecord
	err := disk.WithFile(bt.path, disk.ReadWrite, func(f *os.File) error {
		var err error
		rec, err = bt.readRecord(f, index)
		if err != nil {
			return err
		}
		fn(&rec)
		return bt.writeRecord(f, index, rec)
	})
	return rec, err
}

// SetChecksum stores the checksum of a block
func (bt *BlockTable) SetChecksum(index types.BlockIndex, checksum uint32) error {
	_, err := bt.updateRecord(index, func(rec *types.BlockRecord) {
		rec.Checksum = checksum
	})
	if err != nil {
		return fmt.Errorf("failed to set checksum of block %d: %w", index, err)
	}
	return nil
}

// GetChecksum returns the stored checksum of a block
func (bt *BlockTable) GetChecksum(index types.BlockIndex) (uint32, error) {
	rec, err := bt.GetRecord(index)
	return rec.Checksum, err
}

// GetRefCount returns the stored reference count of a block
func (bt *BlockTable) GetRefCount(index types.BlockIndex) (int32, error) {
	rec, err := bt.GetRecord(index)
	return rec.RefCount, err
}

// IncrementRefCount adds one reference to a block
func (bt *BlockTable) IncrementRefCount(index types.BlockIndex) error {
	rec, err := bt.updateRecord(index, func(rec *types.BlockRecord) {
		rec.RefCount++
	})
	if err != nil {
		return fmt.Errorf("failed to increment refcount of block %d: %w", index, err)
	}
	bt.log.WithFields(logrus.Fields{"block": index, "refcount": rec.RefCount}).Debug("incremented refcount")
	return nil
}

// DecrementRefCount removes one reference and returns the new count. The count
// never drops below zero.
func (bt *BlockTable) DecrementRefCount(index types.BlockIndex) (int32, error) {
	rec, err := bt.updateRecord(index, func(rec *types.BlockRecord) {
		rec.RefCount = max(0, rec.RefCount-1)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to decrement refcount of block %d: %w", index, err)
	}
	bt.log.WithFields(logrus.Fields{"block": index, "refcount": rec.RefCount}).Debug("decremented refcount")
	return rec.RefCount, nil
}

// SetRefCount overwrites the reference count of a block. Negative counts are
// rejected.
func (bt *BlockTable) SetRefCount(index types.BlockIndex, count int32) error {
	if count < 0 {
		return fmt.Errorf("%w: negative refcount %d", types.ErrInvalidArgument, count)
	}
	_, err := bt.updateRecord(index, func(rec *types.BlockRecord) {
		rec.RefCount = count
	})
	if err != nil {
		return fmt.Errorf("failed to set refcount of block %d: %w", index, err)
	}
	bt.log.WithFields(logrus.Fields{"block": index, "refcount": count}).Debug("set refcount")
	return nil
}

// CalculateChecksum computes the block checksum over length bytes of data
func (bt *BlockTable) CalculateChecksum(data []byte, length int) uint32 {
	return parser.Checksum(data, length)
}

// FindBlockByChecksumAndData returns the first used block whose stored
// checksum equals checksum and whose first validLength bytes on disk equal
// data. The checksum only nominates candidates; content is always compared.
func (bt *BlockTable) FindBlockByChecksumAndData(checksum uint32, data []byte, validLength int) (types.BlockIndex, error) {
	if data == nil {
		return types.NoBlock, fmt.Errorf("%w: data is nil", types.ErrInvalidArgument)
	}
	if validLength <= 0 || validLength > int(bt.blockSize) || validLength > len(data) {
		return types.NoBlock, nil
	}

	found := types.NoBlock
	err := disk.WithFile(bt.path, disk.ReadOnly, func(f *os.File) error {
		table, err := bt.readTable(f)
		if err != nil {
			return err
		}

		existing := make([]byte, validLength)
		for pos := 0; pos < len(table); pos += types.BlockRecordSize {
			rec, err := parser.ParseBlockRecord(table[pos : pos+types.BlockRecordSize])
			if err != nil {
				return err
			}
			if !rec.IsUsed || rec.RefCount <= 0 || rec.Checksum != checksum {
				continue
			}

			index := types.BlockIndex(pos / types.BlockRecordSize)
			n, err := disk.ReadAtMost(f, existing, types.DataBlockOffset(bt.totalBlocks, bt.blockSize, index))
			if err != nil {
				return err
			}
			if n < validLength {
				continue
			}

			if bytes.Equal(existing, data[:validLength]) {
				found = index
				return nil
			}
			bt.log.WithFields(logrus.Fields{"block": index, "checksum": checksum}).Debug("checksum collision rejected by content compare")
		}
		return nil
	})
	if err != nil {
		return types.NoBlock, err
	}
	return found, nil
}

// ReadBlockData reads one full block. Bytes past end of file read as zero.
func (bt *BlockTable) ReadBlockData(index types.BlockIndex) ([]byte, error) {
	dataPos, err := bt.DataOffset(index)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, bt.blockSize)
	err = disk.WithFile(bt.path, disk.ReadOnly, func(f *os.File) error {
		_, err := disk.ReadAtMost(f, buf, dataPos)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read block %d: %w", index, err)
	}
	return buf, nil
}

// WriteBlockData writes data into a block starting at offset, truncating the
// write at the block boundary
func (bt *BlockTable) WriteBlockData(index types.BlockIndex, data []byte, offset int) error {
	dataPos, err := bt.DataOffset(index)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("%w: data is nil", types.ErrInvalidArgument)
	}
	if offset < 0 || offset >= int(bt.blockSize) {
		return fmt.Errorf("%w: offset %d outside block of %d bytes", types.ErrInvalidArgument, offset, bt.blockSize)
	}

	n := min(len(data), int(bt.blockSize)-offset)
	if n == 0 {
		return nil
	}

	return disk.WithFile(bt.path, disk.ReadWrite, func(f *os.File) error {
		if err := disk.WriteAt(f, data[:n], dataPos+int64(offset)); err != nil {
			return fmt.Errorf("failed to write block %d: %w", index, err)
		}
		return nil
	})
}

// GetUsedBlocksCount counts used records, stopping at end of file
func (bt *BlockTable) GetUsedBlocksCount() (int32, error) {
	var used int32
	err := disk.WithFile(bt.path, disk.ReadOnly, func(f *os.File) error {
		table := make([]byte, types.BlockTableSize(bt.totalBlocks))
		n, err := disk.ReadAtMost(f, table, types.BlockTableOffset)
		if err != nil {
			return err
		}
		for pos := 0; pos < n; pos += types.BlockRecordSize {
			if table[pos] != 0 {
				used++
			}
		}
		return nil
	})
	return used, err
}
