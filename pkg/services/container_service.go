package services

import (
	"context"
	"fmt"

	internal "github.com/deploymenttheory/go-blockfs/internal/services"
)

// containerService implements the ContainerService interface
type containerService struct {
	locks *containerLocks
}

// NewContainerService creates a new container service instance
func NewContainerService() ContainerService {
	return newContainerService(processLocks)
}

func newContainerService(locks *containerLocks) *containerService {
	return &containerService{locks: locks}
}

// CreateContainer creates a container and returns its initial summary
func (cs *containerService) CreateContainer(ctx context.Context, containerPath string, blockSize, totalBlocks int32) (ContainerInfo, error) {
	if err := ctx.Err(); err != nil {
		return ContainerInfo{}, err
	}

	m := cs.locks.get(containerPath)
	m.Lock()
	defer m.Unlock()

	fs := internal.NewFileSystemService()
	if err := fs.CreateContainer(containerPath, blockSize, totalBlocks); err != nil {
		return ContainerInfo{}, err
	}
	defer fs.CloseContainer()

	info, err := fs.ContainerInfo()
	if err != nil {
		return ContainerInfo{}, fmt.Errorf("failed to read new container: %w", err)
	}
	return *info, nil
}

// GetContainerInfo reports geometry and block usage
func (cs *containerService) GetContainerInfo(ctx context.Context, containerPath string) (ContainerInfo, error) {
	var info ContainerInfo
	err := cs.locks.with(ctx, containerPath, "", func(fs *internal.FileSystemService) error {
		i, err := fs.ContainerInfo()
		if err != nil {
			return err
		}
		info = *i
		return nil
	})
	return info, err
}

// VerifyContainer runs the integrity check
func (cs *containerService) VerifyContainer(ctx context.Context, containerPath string) (*IntegrityReport, error) {
	var report *IntegrityReport
	err := cs.locks.with(ctx, containerPath, "", func(fs *internal.FileSystemService) error {
		var err error
		report, err = fs.VerifyIntegrity()
		return err
	})
	return report, err
}
