package state

import (
	"sync"

	"github.com/auto-dns/docker-vhoster/internal/domain"
	"github.com/auto-dns/docker-vhoster/internal/util"
)

// MemoryState is the registry of running containers and their virtual hostnames.
type MemoryState struct {
	mu         sync.Mutex
	containers map[string]*containerState
}

// NewMemoryState creates an empty registry.
func NewMemoryState() *MemoryState {
	return &MemoryState{
		containers: make(map[string]*containerState),
	}
}

// Upsert inserts or replaces the record for a container.
func (s *MemoryState) Upsert(containerId, containerName string, hostnames []string) error {
	if containerId == "" {
		return ErrEmptyContainerId
	}
	hs := make([]string, len(hostnames))
	copy(hs, hostnames)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[containerId] = &containerState{
		ContainerId:   containerId,
		ContainerName: containerName,
		Hostnames:     hs,
	}
	return nil
}

// Remove deletes the record for a container. Unknown ids are ignored.
func (s *MemoryState) Remove(containerId string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.containers[containerId]; !exists {
		return false
	}
	delete(s.containers, containerId)
	return true
}

// Snapshot returns a copy of all records ordered by container id.
func (s *MemoryState) Snapshot() []domain.ContainerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return util.Map(util.SortedKeys(s.containers), func(id string) domain.ContainerRecord {
		cs := s.containers[id]
		return domain.ContainerRecord{
			Id:        cs.ContainerId,
			Name:      cs.ContainerName,
			Hostnames: cs.Hostnames,
		}.Clone()
	})
}

func (s *MemoryState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.containers)
}
