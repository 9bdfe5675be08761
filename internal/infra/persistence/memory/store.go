// Package memory provides a process-local StateBackend.
package memory

import (
	"bytes"
	"context"
	"sync"

	"linkbox/pkg/domain"
)

var _ domain.StateBackend = (*Store)(nil)

// Store keeps payloads in a map. Contents are lost on exit.
type Store struct {
	mu       sync.RWMutex
	payloads map[string][]byte
}

// NewStore returns an empty backend.
func NewStore() *Store {
	return &Store{payloads: make(map[string][]byte)}
}

// Get implements domain.StateBackend.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payloads[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(p), true, nil
}

// Put implements domain.StateBackend.
func (s *Store) Put(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	s.payloads[key] = bytes.Clone(payload)
	s.mu.Unlock()
	return nil
}

// Delete implements domain.StateBackend.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.payloads, key)
	s.mu.Unlock()
	return nil
}

// Close implements domain.StateBackend.
func (s *Store) Close() error { return nil }
