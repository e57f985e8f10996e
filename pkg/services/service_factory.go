package services

import "sync"

// ServiceFactory hands out services that share one set of container locks,
// so a container service and a filesystem service never interleave writes to
// the same file.
type ServiceFactory struct {
	containerService  ContainerService
	filesystemService FilesystemService
	mu                sync.RWMutex
	initialized       bool
}

// NewServiceFactory creates a new service factory instance
func NewServiceFactory() *ServiceFactory {
	return &ServiceFactory{}
}

// Initialize initializes all services over the process-wide lock registry
func (sf *ServiceFactory) Initialize() error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	if sf.initialized {
		return nil
	}

	sf.containerService = newContainerService(processLocks)
	sf.filesystemService = newFilesystemService(processLocks)

	sf.initialized = true
	return nil
}

// ContainerService returns the container service instance
func (sf *ServiceFactory) ContainerService() (ContainerService, error) {
	if err := sf.Initialize(); err != nil {
		return nil, err
	}
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return sf.containerService, nil
}

// FilesystemService returns the filesystem service instance
func (sf *ServiceFactory) FilesystemService() (FilesystemService, error) {
	if err := sf.Initialize(); err != nil {
		return nil, err
	}
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return sf.filesystemService, nil
}

// Shutdown drops the services. Containers are never held open between
// calls, so there is nothing to close.
func (sf *ServiceFactory) Shutdown() error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	sf.containerService = nil
	sf.filesystemService = nil
	sf.initialized = false
	return nil
}

// IsInitialized returns whether the factory has been initialized
func (sf *ServiceFactory) IsInitialized() bool {
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return sf.initialized
}

// DefaultServiceFactory is the default global service factory instance
var DefaultServiceFactory = NewServiceFactory()

// GetContainerService returns the default container service
func GetContainerService() (ContainerService, error) {
	return DefaultServiceFactory.ContainerService()
}

// GetFilesystemService returns the default filesystem service
func GetFilesystemService() (FilesystemService, error) {
	return DefaultServiceFactory.FilesystemService()
}
