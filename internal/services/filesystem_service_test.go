package services

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-blockfs/internal/types"
)

const (
	testBlockSize   = 64
	testTotalBlocks = 32
)

func newTestService(t *testing.T) (*FileSystemService, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "container.bin")
	s := NewFileSystemService()
	require.NoError(t, s.CreateContainer(path, testBlockSize, testTotalBlocks))
	return s, path
}

func importBytes(t *testing.T, s *FileSystemService, name string, content []byte) {
	t.Helper()
	require.NoError(t, s.ImportFile(bytes.NewReader(content), int64(len(content)), name, time.Time{}))
}

func exportBytes(t *testing.T, s *FileSystemService, name string) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, s.ExportFile(name, &buf))
	return append([]byte{}, buf.Bytes()...)
}

func usedBlocks(t *testing.T, s *FileSystemService) int32 {
	t.Helper()

	info, err := s.ContainerInfo()
	require.NoError(t, err)
	return info.UsedBlocks
}

func requireHealthy(t *testing.T, s *FileSystemService) {
	t.Helper()

	report, err := s.VerifyIntegrity()
	require.NoError(t, err)
	require.True(t, report.Healthy(), "integrity report: %+v", report)
}

func fill(n int, seed byte) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = seed + byte(i*13)
	}
	return data
}

// distinctBlocks returns n blocks that never deduplicate against each other
func distinctBlocks(n int) []byte {
	data := make([]byte, n*testBlockSize)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(data[i*testBlockSize:], uint32(i+1))
	}
	return data
}

func TestClosedContainer(t *testing.T) {
	s := NewFileSystemService()

	ops := map[string]func() error{
		"copy in":   func() error { return s.CopyFileIn("x", "y") },
		"copy out":  func() error { return s.CopyFileOut("x", "y") },
		"delete":    func() error { return s.DeleteFile("x") },
		"mkdir":     func() error { return s.CreateDirectory("x") },
		"rmdir":     func() error { return s.RemoveDirectory("x") },
		"cd":        func() error { return s.ChangeDirectory("x") },
		"list":      func() error { _, err := s.ListCurrentDirectory(); return err },
		"tree":      func() error { _, err := s.ListAllDirectories(); return err },
		"info":      func() error { _, err := s.ContainerInfo(); return err },
		"integrity": func() error { _, err := s.VerifyIntegrity(); return err },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			assert.ErrorIs(t, err, types.ErrContainerClosed)
			assert.ErrorIs(t, err, types.ErrInvalidOperation)
		})
	}
}

func TestOpenContainer(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		s := NewFileSystemService()
		err := s.OpenContainer(filepath.Join(t.TempDir(), "missing.bin"))
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.False(t, s.IsOpen())
	})

	t.Run("reopen keeps content", func(t *testing.T) {
		s, path := newTestService(t)
		importBytes(t, s, "keep.txt", []byte("persisted"))
		require.NoError(t, s.CreateDirectory("docs"))
		s.CloseContainer()
		assert.False(t, s.IsOpen())

		require.NoError(t, s.OpenContainer(path))
		assert.Equal(t, []byte("persisted"), exportBytes(t, s, "keep.txt"))
		require.NoError(t, s.ChangeDirectory("docs"))
	})

	t.Run("uninitialized root is rewritten", func(t *testing.T) {
		s, path := newTestService(t)
		require.NoError(t, s.dirs.DeleteDirectory(types.RootDirectoryInode))
		s.CloseContainer()

		require.NoError(t, s.OpenContainer(path))
		listing, err := s.ListCurrentDirectory()
		require.NoError(t, err)
		assert.Empty(t, listing)
	})
}

func TestRoundTrip(t *testing.T) {
	s, _ := newTestService(t)

	sizes := []int{0, 1, testBlockSize - 1, testBlockSize, testBlockSize + 1, 3 * testBlockSize}
	for i, size := range sizes {
		name := "file-" + strings.Repeat("x", i)
		content := fill(size, byte(i))
		importBytes(t, s, name, content)
		assert.Equal(t, content, exportBytes(t, s, name), "size %d", size)
	}
	requireHealthy(t, s)
}

func TestCopyFileInAndOut(t *testing.T) {
	s, _ := newTestService(t)
	host := t.TempDir()

	source := filepath.Join(host, "report.csv")
	content := fill(200, 7)
	require.NoError(t, os.WriteFile(source, content, 0o644))

	require.NoError(t, s.CopyFileIn(source, ""))
	listing, err := s.ListCurrentDirectory()
	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.Equal(t, "report.csv", listing[0].Name)
	assert.Equal(t, int64(200), listing[0].Size)

	target := filepath.Join(host, "out.csv")
	require.NoError(t, s.CopyFileOut("report.csv", target))
	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	assert.ErrorIs(t, s.CopyFileIn(filepath.Join(host, "absent"), "a"), types.ErrNotFound)
	assert.ErrorIs(t, s.CopyFileIn(host, "dir"), types.ErrInvalidArgument)
	assert.ErrorIs(t, s.CopyFileOut("absent", target), types.ErrNotFound)
}

func TestCopyFileInStampsImportTime(t *testing.T) {
	s, _ := newTestService(t)

	source := filepath.Join(t.TempDir(), "old.txt")
	require.NoError(t, os.WriteFile(source, []byte("archived"), 0o644))
	stale := time.Date(2001, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(source, stale, stale))

	before := time.Now()
	require.NoError(t, s.CopyFileIn(source, ""))

	listing, err := s.ListCurrentDirectory()
	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.False(t, listing[0].CreatedAt.Before(before), "created %v, imported after %v", listing[0].CreatedAt, before)
	assert.False(t, listing[0].CreatedAt.After(time.Now()))
}

func TestDuplicateNames(t *testing.T) {
	s, _ := newTestService(t)

	importBytes(t, s, "a.txt", []byte("1"))
	err := s.ImportFile(bytes.NewReader([]byte("2")), 1, "a.txt", time.Time{})
	assert.ErrorIs(t, err, types.ErrInvalidOperation)
	assert.Equal(t, []byte("1"), exportBytes(t, s, "a.txt"))

	require.NoError(t, s.CreateDirectory("dir"))
	assert.ErrorIs(t, s.CreateDirectory("dir"), types.ErrInvalidOperation)

	require.NoError(t, s.ChangeDirectory("dir"))
	importBytes(t, s, "a.txt", []byte("same name, other directory"))
}

func TestNameValidation(t *testing.T) {
	s, _ := newTestService(t)

	tests := []struct {
		name string
		op   func() error
	}{
		{"empty directory name", func() error { return s.CreateDirectory("") }},
		{"dot", func() error { return s.CreateDirectory(".") }},
		{"dot dot", func() error { return s.CreateDirectory("..") }},
		{"separator in directory", func() error { return s.CreateDirectory("a/b") }},
		{"backslash in directory", func() error { return s.CreateDirectory(`a\b`) }},
		{"directory name too long", func() error { return s.CreateDirectory(strings.Repeat("d", types.MaxDirectoryNameLength+1)) }},
		{"file name too long", func() error {
			return s.ImportFile(bytes.NewReader(nil), 0, strings.Repeat("f", types.MaxFileNameLength+1), time.Time{})
		}},
		{"separator in file", func() error { return s.ImportFile(bytes.NewReader(nil), 0, "a/b", time.Time{}) }},
		{"remove dot dot", func() error { return s.RemoveDirectory("..") }},
		{"empty cd", func() error { return s.ChangeDirectory("") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.op(), types.ErrInvalidArgument)
		})
	}

	require.NoError(t, s.CreateDirectory(strings.Repeat("d", types.MaxDirectoryNameLength)))
}

func TestChangeDirectory(t *testing.T) {
	s, _ := newTestService(t)

	require.NoError(t, s.CreateDirectory("a"))
	require.NoError(t, s.ChangeDirectory("a"))
	require.NoError(t, s.CreateDirectory("b"))
	require.NoError(t, s.ChangeDirectory("b"))
	assert.Equal(t, "/a/b", s.CurrentPath())

	require.NoError(t, s.ChangeDirectory(".."))
	assert.Equal(t, "/a", s.CurrentPath())
	require.NoError(t, s.ChangeDirectory(".."))
	assert.Equal(t, "/", s.CurrentPath())
	require.NoError(t, s.ChangeDirectory(".."))
	assert.Equal(t, "/", s.CurrentPath(), "parent of root is root")

	for _, root := range []string{"/", `\`} {
		require.NoError(t, s.ChangeDirectory("a/b"))
		assert.Equal(t, "/a/b", s.CurrentPath())
		require.NoError(t, s.ChangeDirectory(root))
		assert.Equal(t, "/", s.CurrentPath())
	}

	require.NoError(t, s.ChangeDirectory("/a/b"))
	require.NoError(t, s.ChangeDirectory("../b"))
	assert.Equal(t, "/a/b", s.CurrentPath())

	err := s.ChangeDirectory("../missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, "/a/b", s.CurrentPath(), "failed cd leaves the current directory alone")

	assert.ErrorIs(t, s.ChangeDirectory("nope"), types.ErrNotFound)
}

func TestRemoveDirectory(t *testing.T) {
	s, _ := newTestService(t)

	importBytes(t, s, "keep", fill(100, 1))
	require.NoError(t, s.CreateDirectory("a"))
	require.NoError(t, s.ChangeDirectory("a"))
	importBytes(t, s, "a1", fill(100, 2))
	importBytes(t, s, "shared", fill(64, 9))
	require.NoError(t, s.CreateDirectory("b"))
	require.NoError(t, s.ChangeDirectory("b"))
	importBytes(t, s, "b1", fill(130, 3))
	importBytes(t, s, "shared", fill(64, 9))

	b, err := s.dirs.FindChildByName(1, "b")
	require.NoError(t, err)
	require.True(t, b.Valid())

	// A file entry that names b as parent but is missing from b's child list.
	orphan, err := s.files.ReserveFileSlot()
	require.NoError(t, err)
	require.NoError(t, s.files.SaveFileEntry(orphan, &types.FileEntry{Name: "orphan", Parent: b}))

	require.NoError(t, s.ChangeDirectory("/"))
	require.NoError(t, s.RemoveDirectory("a"))

	root, err := s.dirs.GetDirectory(types.RootDirectoryInode)
	require.NoError(t, err)
	assert.NotContains(t, root.Children, types.DirChild(1))

	for _, inode := range []types.DirInode{1, b} {
		dir, err := s.dirs.GetDirectory(inode)
		require.NoError(t, err)
		assert.Nil(t, dir, "directory %d is freed", inode)

		files, err := s.files.GetFileInodesInDirectory(inode)
		require.NoError(t, err)
		assert.Empty(t, files, "no file entry points at removed directory %d", inode)
	}

	listing, err := s.ListCurrentDirectory()
	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.Equal(t, "keep", listing[0].Name)
	assert.Equal(t, int32(2), usedBlocks(t, s))
	requireHealthy(t, s)

	assert.ErrorIs(t, s.RemoveDirectory("a"), types.ErrNotFound)
}

func TestRemoveDirectoryWithCycle(t *testing.T) {
	s, _ := newTestService(t)

	require.NoError(t, s.CreateDirectory("a"))
	require.NoError(t, s.ChangeDirectory("a"))
	require.NoError(t, s.CreateDirectory("b"))
	require.NoError(t, s.ChangeDirectory("/"))

	// b lists a and the root among its children.
	require.NoError(t, s.dirs.AddChildToDirectory(2, types.DirChild(1)))
	require.NoError(t, s.dirs.AddChildToDirectory(2, types.DirChild(types.RootDirectoryInode)))

	require.NoError(t, s.RemoveDirectory("a"))

	root, err := s.dirs.GetDirectory(types.RootDirectoryInode)
	require.NoError(t, err)
	require.NotNil(t, root, "root survives a cycle through it")
	assert.Empty(t, root.Children)
}

func TestListings(t *testing.T) {
	s, _ := newTestService(t)

	require.NoError(t, s.CreateDirectory("a"))
	require.NoError(t, s.CreateDirectory("b"))
	importBytes(t, s, "top.txt", []byte("top"))
	require.NoError(t, s.ChangeDirectory("a"))
	require.NoError(t, s.CreateDirectory("c"))
	require.NoError(t, s.ChangeDirectory("/"))

	listing, err := s.ListCurrentDirectory()
	require.NoError(t, err)
	require.Len(t, listing, 3)
	assert.Equal(t, "a", listing[0].Name)
	assert.True(t, listing[0].IsDirectory)
	assert.Equal(t, "b", listing[1].Name)
	assert.Equal(t, "top.txt", listing[2].Name)
	assert.False(t, listing[2].IsDirectory)
	assert.Equal(t, int64(3), listing[2].Size)

	tree, err := s.ListAllDirectories()
	require.NoError(t, err)
	paths := make([]string, len(tree))
	for i, d := range tree {
		paths[i] = d.Path
	}
	assert.Equal(t, []string{"/", "/a", "/b", "/a/c"}, paths)
	assert.Equal(t, 2, tree[3].Depth)

	t.Run("self reference and cycles are skipped", func(t *testing.T) {
		require.NoError(t, s.dirs.AddChildToDirectory(types.RootDirectoryInode, types.DirChild(types.RootDirectoryInode)))
		require.NoError(t, s.dirs.AddChildToDirectory(3, types.DirChild(1)))

		listing, err := s.ListCurrentDirectory()
		require.NoError(t, err)
		assert.Len(t, listing, 3)

		tree, err := s.ListAllDirectories()
		require.NoError(t, err)
		assert.Len(t, tree, 4)
	})
}

func TestDeleteFile(t *testing.T) {
	s, _ := newTestService(t)

	importBytes(t, s, "gone", fill(300, 4))
	require.NotZero(t, usedBlocks(t, s))

	require.NoError(t, s.DeleteFile("gone"))
	assert.Zero(t, usedBlocks(t, s))
	assert.ErrorIs(t, s.DeleteFile("gone"), types.ErrNotFound)

	root, err := s.dirs.GetDirectory(types.RootDirectoryInode)
	require.NoError(t, err)
	assert.Empty(t, root.Children)
}

func TestRefcountConservation(t *testing.T) {
	s, _ := newTestService(t)
	shared := fill(testBlockSize, 42)

	names := []string{"one", "two", "three", "four"}
	for i, name := range names {
		content := append(append([]byte{}, shared...), fill(10*(i+1), byte(i))...)
		importBytes(t, s, name, content)
		requireHealthy(t, s)
	}

	count, err := s.blocks.GetRefCount(0)
	require.NoError(t, err)
	assert.Equal(t, int32(len(names)), count, "the shared first block is stored once")

	for _, name := range []string{"two", "four", "one", "three"} {
		require.NoError(t, s.DeleteFile(name))
		requireHealthy(t, s)
	}
	assert.Zero(t, usedBlocks(t, s))
}

func TestCapacityLimits(t *testing.T) {
	t.Run("directory slots", func(t *testing.T) {
		s, _ := newTestService(t)
		for i := types.DirInode(1); i < types.MaxDirectories; i++ {
			require.NoError(t, s.dirs.SaveDirectory(&types.DirectoryEntry{Inode: i, Name: "d", Parent: types.RootDirectoryInode}))
		}
		assert.ErrorIs(t, s.CreateDirectory("last"), types.ErrOutOfSpace)
	})

	t.Run("file slots", func(t *testing.T) {
		s, _ := newTestService(t)
		for i := types.FileInode(0); i < types.MaxFiles; i++ {
			require.NoError(t, s.files.SaveFileEntry(i, &types.FileEntry{Name: "f", Parent: types.DirInode(5)}))
		}
		err := s.ImportFile(bytes.NewReader([]byte("x")), 1, "extra", time.Time{})
		assert.ErrorIs(t, err, types.ErrOutOfSpace)
		assert.Equal(t, types.JournalEmpty, s.container.ReadJournalInode())
	})

	t.Run("children per directory", func(t *testing.T) {
		s, _ := newTestService(t)
		for i := 0; i < types.MaxChildrenPerDirectory; i++ {
			require.NoError(t, s.dirs.AddChildToDirectory(types.RootDirectoryInode, types.FileChild(types.FileInode(i))))
		}
		assert.ErrorIs(t, s.CreateDirectory("full"), types.ErrOutOfSpace)
		assert.ErrorIs(t, s.ImportFile(bytes.NewReader([]byte("x")), 1, "full", time.Time{}), types.ErrOutOfSpace)
	})

	t.Run("data blocks", func(t *testing.T) {
		s, _ := newTestService(t)
		content := distinctBlocks(testTotalBlocks + 1)
		err := s.ImportFile(bytes.NewReader(content), int64(len(content)), "huge", time.Time{})
		assert.ErrorIs(t, err, types.ErrOutOfSpace)
		assert.Zero(t, usedBlocks(t, s))
		assert.Equal(t, types.JournalEmpty, s.container.ReadJournalInode())
		requireHealthy(t, s)
	})
}

func TestFileTooLargeForEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small-blocks.bin")
	s := NewFileSystemService()
	require.NoError(t, s.CreateContainer(path, 8, 256))

	size := int64(8 * 200)
	err := s.ImportFile(bytes.NewReader(make([]byte, size)), size, "big", time.Time{})
	assert.ErrorIs(t, err, types.ErrInvalidOperation)
	assert.Zero(t, usedBlocks(t, s))

	free, err := s.files.ReserveFileSlot()
	require.NoError(t, err)
	assert.Equal(t, types.FileInode(0), free, "no slot was consumed")
}

func TestContainerInfo(t *testing.T) {
	s, path := newTestService(t)
	importBytes(t, s, "f", fill(testBlockSize+1, 3))
	require.NoError(t, s.CreateDirectory("sub"))
	require.NoError(t, s.ChangeDirectory("sub"))

	info, err := s.ContainerInfo()
	require.NoError(t, err)
	assert.Equal(t, &types.ContainerInfo{
		Path:             path,
		BlockSize:        testBlockSize,
		TotalBlocks:      testTotalBlocks,
		UsedBlocks:       2,
		FreeBlocks:       testTotalBlocks - 2,
		CurrentDirectory: "/sub",
	}, info)
}

func TestCreateContainerInvalidGeometry(t *testing.T) {
	s := NewFileSystemService()
	err := s.CreateContainer(filepath.Join(t.TempDir(), "c.bin"), 0, 10)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
	assert.False(t, s.IsOpen())
}
