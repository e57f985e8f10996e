package types

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer. Callers test kinds with errors.Is;
// concrete failures wrap one of these with context.
var (
	// ErrInvalidArgument reports a bad size, inode or name.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound reports a missing container, file or directory.
	ErrNotFound = errors.New("not found")

	// ErrCorruptFormat reports a bad magic number or invalid superblock field.
	ErrCorruptFormat = errors.New("corrupt container format")

	// ErrDataCorruption reports a block whose content no longer matches its
	// stored checksum.
	ErrDataCorruption = fmt.Errorf("%w: checksum mismatch", ErrCorruptFormat)

	// ErrOutOfSpace reports that no free block, directory slot, file slot or
	// child slot is available.
	ErrOutOfSpace = errors.New("out of space")

	// ErrInvalidOperation reports a duplicate name, oversized entry or an
	// operation against a closed container.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrContainerClosed reports an operation issued with no open container.
	ErrContainerClosed = fmt.Errorf("%w: no container is open", ErrInvalidOperation)

	// ErrTruncated reports a region shorter than the layout requires where the
	// data is needed for correctness.
	ErrTruncated = errors.New("region truncated")
)
