package app

// guidance maps an error code to operation-specific hints. The "" operation
// is the fallback for a code.
var guidance = map[string]map[string]string{
	ErrCodeNotFound: {
		OpOpen:    "Check the container path, or create one with 'blockfs create'.",
		OpCopyIn:  "Check that the source file exists on the host.",
		OpCopyOut: "Run 'blockfs ls' to see the files in this directory.",
		OpRemove:  "Run 'blockfs ls' to see the files in this directory.",
		OpRmdir:   "Run 'blockfs ls' to see the directories here.",
		"":        "Check the name and the --path directory.",
	},
	ErrCodeInvalidInput: {
		OpCreate: "Block size and total blocks must both be positive.",
		OpMkdir:  "Directory names are 1-250 bytes, contain no '/' or '\\' and are not '.' or '..'.",
		OpCopyIn: "File names are 1-500 bytes and contain no '/' or '\\'.",
		"":       "Check the arguments passed to the command.",
	},
	ErrCodeOutOfSpace: {
		OpCopyIn: "Delete files you no longer need, or create a container with more blocks.",
		OpMkdir:  "The container holds at most 1000 directories and 100 entries per directory.",
		"":       "The container is full.",
	},
	ErrCodeInvalidOperation: {
		OpCopyIn: "A file with that name already exists, or it is too large for one file entry; use a larger block size.",
		OpMkdir:  "A directory with that name already exists.",
		"":       "The operation is not allowed in the current state.",
	},
	ErrCodeCorrupt: {
		"": "The file is not a valid container, or its header is damaged.",
	},
	ErrCodeDataCorruption: {
		"": "Stored data failed checksum verification. Run 'blockfs verify' for details.",
	},
	ErrCodeContainerClosed: {
		"": "Open a container first.",
	},
}

// Guidance returns a hint for err raised by op, or "" when none applies
func Guidance(op string, err error) string {
	hints, ok := guidance[ErrorCode(err)]
	if !ok {
		return ""
	}
	if hint, ok := hints[op]; ok {
		return hint
	}
	return hints[""]
}
