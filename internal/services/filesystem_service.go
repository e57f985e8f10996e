package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-blockfs/internal/interfaces"
	"github.com/deploymenttheory/go-blockfs/internal/logging"
	"github.com/deploymenttheory/go-blockfs/internal/managers/blocks"
	"github.com/deploymenttheory/go-blockfs/internal/managers/container"
	"github.com/deploymenttheory/go-blockfs/internal/managers/directories"
	"github.com/deploymenttheory/go-blockfs/internal/managers/files"
	fileparser "github.com/deploymenttheory/go-blockfs/internal/parsers/files"
	"github.com/deploymenttheory/go-blockfs/internal/types"
)

// FileSystemService is the single entry point over an open container. It owns
// the current directory and routes every operation to the managers.
type FileSystemService struct {
	path      string
	container interfaces.ContainerManager
	blocks    interfaces.BlockTable
	dirs      interfaces.DirectoryManager
	files     interfaces.FileManager

	open         bool
	currentInode types.DirInode
	currentPath  string

	log *logrus.Entry
}

// NewFileSystemService returns a service with no container open
func NewFileSystemService() *FileSystemService {
	return &FileSystemService{
		currentInode: types.RootDirectoryInode,
		currentPath:  types.RootDirectoryName,
		log:          logging.For("filesystem_service"),
	}
}

// IsOpen reports whether a container is open
func (s *FileSystemService) IsOpen() bool {
	return s.open
}

// CurrentPath returns the absolute path of the current directory
func (s *FileSystemService) CurrentPath() string {
	return s.currentPath
}

func (s *FileSystemService) requireOpen() error {
	if !s.open {
		return types.ErrContainerClosed
	}
	return nil
}

// CreateContainer creates a fresh container at path, replacing any existing
// file, and opens it
func (s *FileSystemService) CreateContainer(path string, blockSize, totalBlocks int32) error {
	if path == "" {
		return fmt.Errorf("%w: container path is required", types.ErrInvalidArgument)
	}
	s.CloseContainer()

	if err := container.NewContainerManager(path, blockSize, totalBlocks).CreateContainer(); err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	return s.OpenContainer(path)
}

// OpenContainer loads the superblock of path, binds the managers to its
// geometry, repairs a missing root directory and runs crash recovery
func (s *FileSystemService) OpenContainer(path string) error {
	if path == "" {
		return fmt.Errorf("%w: container path is required", types.ErrInvalidArgument)
	}
	s.CloseContainer()

	cm := container.NewContainerManager(path, 0, 0)
	sb, err := cm.LoadSuperblock()
	if err != nil {
		return err
	}

	bt := blocks.NewBlockTable(path, sb.BlockSize, sb.TotalBlocks)
	dm := directories.NewDirectoryManager(path, sb.TotalBlocks)
	fm := files.NewFileManager(path, bt, dm, sb.TotalBlocks)

	root, err := dm.GetDirectory(types.RootDirectoryInode)
	if err != nil {
		return err
	}
	if root == nil {
		s.log.WithField("path", path).Warn("root directory uninitialized, rewriting it")
		if err := dm.InitializeRootDirectory(); err != nil {
			return err
		}
	}

	s.path = path
	s.container = cm
	s.blocks = bt
	s.dirs = dm
	s.files = fm
	s.currentInode = types.RootDirectoryInode
	s.currentPath = types.RootDirectoryName

	s.recoverJournal()

	s.open = true
	s.log.WithFields(logrus.Fields{
		"path":         path,
		"block_size":   sb.BlockSize,
		"total_blocks": sb.TotalBlocks,
	}).Info("opened container")
	return nil
}

// CloseContainer drops the managers. Nothing is held open between calls, so
// there is nothing to flush.
func (s *FileSystemService) CloseContainer() {
	if s.open {
		s.log.WithField("path", s.path).Info("closed container")
	}
	s.open = false
	s.path = ""
	s.container = nil
	s.blocks = nil
	s.dirs = nil
	s.files = nil
	s.currentInode = types.RootDirectoryInode
	s.currentPath = types.RootDirectoryName
}

func validateDirectoryName(name string) error {
	if name == "" || len(name) > types.MaxDirectoryNameLength {
		return fmt.Errorf("%w: directory name must be 1..%d bytes", types.ErrInvalidArgument, types.MaxDirectoryNameLength)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: %q is reserved", types.ErrInvalidArgument, name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: directory name %q contains a path separator", types.ErrInvalidArgument, name)
	}
	return nil
}

func validateFileName(name string) error {
	if name == "" || len(name) > types.MaxFileNameLength {
		return fmt.Errorf("%w: file name must be 1..%d bytes", types.ErrInvalidArgument, types.MaxFileNameLength)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: file name %q contains a path separator", types.ErrInvalidArgument, name)
	}
	return nil
}

func (s *FileSystemService) requireChildCapacity() error {
	dir, err := s.dirs.GetDirectory(s.currentInode)
	if err != nil {
		return err
	}
	if dir == nil {
		return fmt.Errorf("%w: current directory %d", types.ErrNotFound, s.currentInode)
	}
	if len(dir.Children) >= types.MaxChildrenPerDirectory {
		return fmt.Errorf("%w: %s already holds %d entries", types.ErrOutOfSpace, s.currentPath, types.MaxChildrenPerDirectory)
	}
	return nil
}

// CopyFileIn imports the host file at sourcePath into the current directory.
// An empty targetName uses the base name of sourcePath.
func (s *FileSystemService) CopyFileIn(sourcePath, targetName string) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if targetName == "" {
		targetName = filepath.Base(sourcePath)
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: source file %s", types.ErrNotFound, sourcePath)
		}
		return fmt.Errorf("failed to open source file %s: %w", sourcePath, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file %s: %w", sourcePath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", types.ErrInvalidArgument, sourcePath)
	}

	return s.ImportFile(src, info.Size(), targetName, time.Now())
}

// ImportFile streams size bytes of src into a new file named name in the
// current directory. The reserved inode is journaled for the whole write.
func (s *FileSystemService) ImportFile(src io.Reader, size int64, name string, createdAt time.Time) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if err := validateFileName(name); err != nil {
		return err
	}
	if size < 0 {
		return fmt.Errorf("%w: negative size %d", types.ErrInvalidArgument, size)
	}

	existing, err := s.files.FindFileByName(s.currentInode, name)
	if err != nil {
		return err
	}
	if existing >= 0 {
		return fmt.Errorf("%w: file %q already exists in %s", types.ErrInvalidOperation, name, s.currentPath)
	}
	if err := s.requireChildCapacity(); err != nil {
		return err
	}

	blockSize := int64(s.blocks.BlockSize())
	needed := (size + blockSize - 1) / blockSize
	if fits := fileparser.MaxBlocks(len(name)); needed > int64(fits) {
		return fmt.Errorf("%w: %q needs %d blocks, a file entry holds at most %d",
			types.ErrInvalidOperation, name, needed, fits)
	}

	inode, err := s.files.ReserveFileSlot()
	if err != nil {
		return err
	}
	if err := s.container.WriteJournalInode(inode); err != nil {
		return err
	}

	entry := &types.FileEntry{
		Name:      name,
		Size:      size,
		Parent:    s.currentInode,
		CreatedAt: createdAt.UTC(),
	}
	if err := s.files.WriteFileData(inode, src, entry); err != nil {
		s.rollbackFile(inode, s.log.WithField("inode", inode))
		if cerr := s.container.ClearJournal(); cerr != nil {
			s.log.WithError(cerr).Warn("failed to clear journal after write error")
		}
		return err
	}

	if err := s.container.ClearJournal(); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"name": name, "inode": inode, "size": entry.Size}).Info("copied file in")
	return nil
}

func (s *FileSystemService) lookupFile(name string) (types.FileInode, error) {
	inode, err := s.files.FindFileByName(s.currentInode, name)
	if err != nil {
		return -1, err
	}
	if inode < 0 {
		return -1, fmt.Errorf("%w: file %q in %s", types.ErrNotFound, name, s.currentPath)
	}
	return inode, nil
}

// CopyFileOut exports fileName from the current directory to targetPath
func (s *FileSystemService) CopyFileOut(fileName, targetPath string) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	inode, err := s.lookupFile(fileName)
	if err != nil {
		return err
	}
	if err := s.files.CopyFileOutToPath(inode, targetPath); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"name": fileName, "target": targetPath}).Info("copied file out")
	return nil
}

// ExportFile writes the content of fileName in the current directory to w
func (s *FileSystemService) ExportFile(fileName string, w io.Writer) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	inode, err := s.lookupFile(fileName)
	if err != nil {
		return err
	}
	return s.files.CopyFileOut(inode, w)
}

// DeleteFile removes fileName from the current directory
func (s *FileSystemService) DeleteFile(fileName string) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	inode, err := s.lookupFile(fileName)
	if err != nil {
		return err
	}
	if err := s.files.DeleteFile(inode); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"name": fileName, "inode": inode}).Info("deleted file")
	return nil
}

// CreateDirectory creates name under the current directory
func (s *FileSystemService) CreateDirectory(name string) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if err := validateDirectoryName(name); err != nil {
		return err
	}

	existing, err := s.dirs.FindChildByName(s.currentInode, name)
	if err != nil {
		return err
	}
	if existing >= 0 {
		return fmt.Errorf("%w: directory %q already exists in %s", types.ErrInvalidOperation, name, s.currentPath)
	}

	inode, err := s.dirs.CreateDirectory(name, s.currentInode)
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"name": name, "inode": inode}).Info("created directory")
	return nil
}

// resolve walks path segment by segment from the current directory, or from
// the root when path starts with a separator
func (s *FileSystemService) resolve(path string) (types.DirInode, error) {
	inode := s.currentInode
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, `\`) {
		inode = types.RootDirectoryInode
	}

	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' })
	for _, segment := range segments {
		if segment == ".." {
			dir, err := s.dirs.GetDirectory(inode)
			if err != nil {
				return -1, err
			}
			if dir != nil && dir.Parent.Valid() {
				inode = dir.Parent
			}
			continue
		}

		child, err := s.dirs.FindChildByName(inode, segment)
		if err != nil {
			return -1, err
		}
		if child < 0 {
			return -1, fmt.Errorf("%w: directory %q", types.ErrNotFound, segment)
		}
		inode = child
	}
	return inode, nil
}

// ChangeDirectory moves to path. "..", "/" and "\" and single names behave as
// single steps; multi-segment paths are resolved a segment at a time and
// leave the current directory unchanged on failure.
func (s *FileSystemService) ChangeDirectory(path string) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("%w: directory path is required", types.ErrInvalidArgument)
	}

	inode, err := s.resolve(path)
	if err != nil {
		return err
	}

	fullPath, err := s.buildPath(inode)
	if err != nil {
		return err
	}
	s.currentInode = inode
	s.currentPath = fullPath
	return nil
}

// buildPath joins names from inode up to the root. A broken or cyclic parent
// chain stops the walk.
func (s *FileSystemService) buildPath(inode types.DirInode) (string, error) {
	var names []string
	visited := make(map[types.DirInode]bool)

	for inode != types.RootDirectoryInode && inode.Valid() && !visited[inode] {
		visited[inode] = true
		dir, err := s.dirs.GetDirectory(inode)
		if err != nil {
			return "", err
		}
		if dir == nil {
			break
		}
		names = append(names, dir.Name)
		inode = dir.Parent
	}

	if len(names) == 0 {
		return types.RootDirectoryName, nil
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return "/" + strings.Join(names, "/"), nil
}

// RemoveDirectory deletes name and everything beneath it. Files are deleted
// before their directory slot is freed, and a final sweep removes any file
// entry still pointing at a removed directory.
func (s *FileSystemService) RemoveDirectory(name string) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: cannot remove %q", types.ErrInvalidArgument, name)
	}

	target, err := s.dirs.FindChildByName(s.currentInode, name)
	if err != nil {
		return err
	}
	if target < 0 {
		return fmt.Errorf("%w: directory %q in %s", types.ErrNotFound, name, s.currentPath)
	}

	// Collect the subtree in pre-order; processing it reversed visits every
	// directory after all of its descendants.
	var order []types.DirInode
	removed := make(map[types.DirInode]bool)
	stack := []types.DirInode{target}
	for len(stack) > 0 {
		inode := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if removed[inode] || inode == types.RootDirectoryInode || inode == s.currentInode {
			continue
		}
		removed[inode] = true
		order = append(order, inode)

		dir, err := s.dirs.GetDirectory(inode)
		if err != nil {
			return err
		}
		if dir != nil {
			stack = append(stack, dir.Subdirectories()...)
		}
	}

	var deletedFiles int
	for i := len(order) - 1; i >= 0; i-- {
		inode := order[i]
		dir, err := s.dirs.GetDirectory(inode)
		if err != nil {
			return err
		}
		if dir != nil {
			for _, child := range dir.Children {
				if !child.IsFile() {
					continue
				}
				if err := s.files.DeleteFile(child.File()); err != nil {
					s.log.WithError(err).WithField("inode", child.File()).Warn("failed to delete file under removed directory")
					continue
				}
				deletedFiles++
			}
		}
		if inode == target {
			if err := s.dirs.RemoveChildFromDirectory(s.currentInode, types.DirChild(target)); err != nil {
				return err
			}
		}
		if err := s.dirs.DeleteDirectory(inode); err != nil {
			return err
		}
	}

	swept, err := s.sweepOrphanedFiles(removed)
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"name":        name,
		"directories": len(order),
		"files":       deletedFiles,
		"swept":       swept,
	}).Info("removed directory")
	return nil
}

// sweepOrphanedFiles deletes every file entry whose parent is in removed
func (s *FileSystemService) sweepOrphanedFiles(removed map[types.DirInode]bool) (int, error) {
	inodes, err := s.files.GetAllFileInodes()
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, inode := range inodes {
		entry, err := s.files.GetFileEntry(inode)
		if err != nil {
			return swept, err
		}
		if entry == nil || !removed[entry.Parent] {
			continue
		}
		if err := s.files.DeleteFile(inode); err != nil {
			return swept, err
		}
		swept++
	}
	return swept, nil
}

// ListCurrentDirectory returns the subdirectories followed by the files of the
// current directory
func (s *FileSystemService) ListCurrentDirectory() ([]types.ListingEntry, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}

	dir, err := s.dirs.GetDirectory(s.currentInode)
	if err != nil {
		return nil, err
	}
	if dir == nil {
		return nil, fmt.Errorf("%w: current directory %d", types.ErrNotFound, s.currentInode)
	}

	var listing []types.ListingEntry
	for _, child := range dir.Subdirectories() {
		if child == s.currentInode {
			continue
		}
		sub, err := s.dirs.GetDirectory(child)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			continue
		}
		listing = append(listing, types.ListingEntry{
			Name:        sub.Name,
			IsDirectory: true,
			CreatedAt:   sub.CreatedAt,
			ModifiedAt:  sub.ModifiedAt,
		})
	}

	entries, err := s.files.GetFilesInDirectory(s.currentInode)
	if err != nil {
		return nil, err
	}
	for _, f := range entries {
		listing = append(listing, types.ListingEntry{
			Name:       f.Name,
			Size:       f.Size,
			CreatedAt:  f.CreatedAt,
			ModifiedAt: f.ModifiedAt,
		})
	}
	return listing, nil
}

// ListAllDirectories walks the tree breadth-first from the root. Each inode is
// visited at most once, so cyclic child lists terminate.
func (s *FileSystemService) ListAllDirectories() ([]types.DirectoryTreeEntry, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}

	type queued struct {
		inode types.DirInode
		path  string
		depth int
	}

	var tree []types.DirectoryTreeEntry
	visited := map[types.DirInode]bool{types.RootDirectoryInode: true}
	queue := []queued{{inode: types.RootDirectoryInode, path: types.RootDirectoryName}}

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		dir, err := s.dirs.GetDirectory(next.inode)
		if err != nil {
			return nil, err
		}
		if dir == nil {
			continue
		}
		tree = append(tree, types.DirectoryTreeEntry{
			Inode: next.inode,
			Name:  dir.Name,
			Path:  next.path,
			Depth: next.depth,
		})

		for _, child := range dir.Subdirectories() {
			if visited[child] {
				continue
			}
			visited[child] = true

			sub, err := s.dirs.GetDirectory(child)
			if err != nil {
				return nil, err
			}
			if sub == nil {
				continue
			}
			queue = append(queue, queued{
				inode: child,
				path:  strings.TrimSuffix(next.path, "/") + "/" + sub.Name,
				depth: next.depth + 1,
			})
		}
	}
	return tree, nil
}

// ContainerInfo summarizes the open container
func (s *FileSystemService) ContainerInfo() (*types.ContainerInfo, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}

	used, err := s.blocks.GetUsedBlocksCount()
	if err != nil {
		return nil, err
	}
	total := s.blocks.TotalBlocks()
	return &types.ContainerInfo{
		Path:             s.path,
		BlockSize:        s.blocks.BlockSize(),
		TotalBlocks:      total,
		UsedBlocks:       used,
		FreeBlocks:       total - used,
		CurrentDirectory: s.currentPath,
	}, nil
}
