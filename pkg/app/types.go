package app

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-blockfs/internal/types"
)

// Operations reported at the CLI boundary
const (
	OpCreate    = "create"
	OpInfo      = "info"
	OpList      = "ls"
	OpTree      = "tree"
	OpMkdir     = "mkdir"
	OpRmdir     = "rmdir"
	OpCopyIn    = "cpin"
	OpCopyOut   = "cpout"
	OpRemove    = "rm"
	OpVerify    = "verify"
	OpOpen      = "open"
	OpChangeDir = "cd"
)

// CommonError represents application-level errors
type CommonError struct {
	Code      string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeCorrupt          = "CORRUPT"
	ErrCodeDataCorruption   = "DATA_CORRUPTION"
	ErrCodeOutOfSpace       = "OUT_OF_SPACE"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeContainerClosed  = "CONTAINER_CLOSED"
	ErrCodeInternal         = "INTERNAL"
)

// ErrorCode classifies err by the core error taxonomy. More specific kinds
// are checked before the kinds they wrap.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, types.ErrContainerClosed):
		return ErrCodeContainerClosed
	case errors.Is(err, types.ErrDataCorruption):
		return ErrCodeDataCorruption
	case errors.Is(err, types.ErrCorruptFormat), errors.Is(err, types.ErrTruncated):
		return ErrCodeCorrupt
	case errors.Is(err, types.ErrInvalidArgument):
		return ErrCodeInvalidInput
	case errors.Is(err, types.ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, types.ErrOutOfSpace):
		return ErrCodeOutOfSpace
	case errors.Is(err, types.ErrInvalidOperation):
		return ErrCodeInvalidOperation
	default:
		return ErrCodeInternal
	}
}

// NewError wraps a core error from op with a code and operation guidance.
// A nil cause returns nil.
func NewError(op string, cause error) error {
	if cause == nil {
		return nil
	}
	var existing *CommonError
	if errors.As(cause, &existing) {
		return cause
	}
	return &CommonError{
		Code:      ErrorCode(cause),
		Operation: op,
		Message:   op + " failed",
		Hint:      Guidance(op, cause),
		Cause:     cause,
	}
}
