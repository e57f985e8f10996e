// File: internal/interfaces/block_table.go
package interfaces

import "github.com/deploymenttheory/go-blockfs/internal/types"

// BlockAllocator provides allocation state of data blocks
type BlockAllocator interface {
	// FindFreeBlock returns the first block whose record is unused
	FindFreeBlock() (types.BlockIndex, error)

	// Allocate marks a block used with a reference count of 1
	Allocate(index types.BlockIndex) error

	// Deallocate frees a block, resets its record and zero-fills its data
	Deallocate(index types.BlockIndex) error

	// GetUsedBlocksCount counts used records
	GetUsedBlocksCount() (int32, error)

	// GetRecord returns the full record of a block
	GetRecord(index types.BlockIndex) (types.BlockRecord, error)
}

// BlockReferenceCounter maintains per-block reference counts
type BlockReferenceCounter interface {
	// GetRefCount returns the stored reference count
	GetRefCount(index types.BlockIndex) (int32, error)

	// IncrementRefCount adds one reference
	IncrementRefCount(index types.BlockIndex) error

	// DecrementRefCount removes one reference, never going below zero, and
	// returns the new count. The caller frees the block at zero.
	DecrementRefCount(index types.BlockIndex) (int32, error)

	// SetRefCount overwrites the stored reference count
	SetRefCount(index types.BlockIndex, count int32) error
}

// BlockChecksummer stores and finds blocks by content checksum
type BlockChecksummer interface {
	// SetChecksum stores the checksum of a block
	SetChecksum(index types.BlockIndex, checksum uint32) error

	// GetChecksum returns the stored checksum of a block
	GetChecksum(index types.BlockIndex) (uint32, error)

	// CalculateChecksum computes the block checksum over length bytes of data
	CalculateChecksum(data []byte, length int) uint32

	// FindBlockByChecksumAndData returns a used block whose checksum matches and
	// whose first validLength bytes equal data, or NoBlock
	FindBlockByChecksumAndData(checksum uint32, data []byte, validLength int) (types.BlockIndex, error)
}

// BlockDataReaderWriter performs raw fixed-size block I/O
type BlockDataReaderWriter interface {
	// ReadBlockData reads a full block; bytes past end of file read as zero
	ReadBlockData(index types.BlockIndex) ([]byte, error)

	// WriteBlockData writes data into a block starting at offset
	WriteBlockData(index types.BlockIndex, data []byte, offset int) error

	// BlockSize returns the block size in bytes
	BlockSize() int32

	// TotalBlocks returns the number of blocks in the data region
	TotalBlocks() int32
}

// BlockTable is the complete block-table contract
type BlockTable interface {
	BlockAllocator
	BlockReferenceCounter
	BlockChecksummer
	BlockDataReaderWriter

	// InitializeBlockTable writes an all-free table
	InitializeBlockTable() error
}
