package types

// DirectoryTreeEntry is one directory of a breadth-first tree listing.
type DirectoryTreeEntry struct {
	Inode DirInode `json:"inode" yaml:"inode"`
	Name  string   `json:"name" yaml:"name"`
	Path  string   `json:"path" yaml:"path"`
	Depth int      `json:"depth" yaml:"depth"`
}

// RefcountMismatch reports a block whose stored refcount differs from the
// number of file entries referencing it.
type RefcountMismatch struct {
	Block    BlockIndex `json:"block" yaml:"block"`
	Stored   int32      `json:"stored" yaml:"stored"`
	Observed int32      `json:"observed" yaml:"observed"`
}

// IntegrityReport is the result of a read-only consistency check over the
// block table and file area.
type IntegrityReport struct {
	UsedBlocks         int32              `json:"used_blocks" yaml:"used_blocks"`
	ReferencedBlocks   int32              `json:"referenced_blocks" yaml:"referenced_blocks"`
	Files              int                `json:"files" yaml:"files"`
	RefcountMismatches []RefcountMismatch `json:"refcount_mismatches,omitempty" yaml:"refcount_mismatches,omitempty"`
	UnallocatedRefs    []BlockIndex       `json:"unallocated_refs,omitempty" yaml:"unallocated_refs,omitempty"`
	UnreferencedBlocks []BlockIndex       `json:"unreferenced_blocks,omitempty" yaml:"unreferenced_blocks,omitempty"`
	OrphanedFiles      []FileInode        `json:"orphaned_files,omitempty" yaml:"orphaned_files,omitempty"`
}

// Healthy reports whether no problem was found.
func (r *IntegrityReport) Healthy() bool {
	return len(r.RefcountMismatches) == 0 &&
		len(r.UnallocatedRefs) == 0 &&
		len(r.UnreferencedBlocks) == 0 &&
		len(r.OrphanedFiles) == 0
}
