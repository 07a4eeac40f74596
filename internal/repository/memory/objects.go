package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/dtroode/onboarding-server/internal/model"
)

// Objects implements model.ObjectStore.
type Objects struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ model.ObjectStore = (*Objects)(nil)

func NewObjects() *Objects {
	return &Objects{objects: make(map[string][]byte)}
}

func (s *Objects) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = bytes.Clone(data)
	return nil
}

func (s *Objects) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.objects[key]
	return ok, nil
}

// Get returns a stored object.
func (s *Objects) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[key]
	return bytes.Clone(data), ok
}

// Len returns the number of stored objects.
func (s *Objects) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
