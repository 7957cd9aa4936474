package audit

import (
	"context"
	"errors"
	"sync"
)

// ErrNoPayload is returned when no audit has been stored yet.
var ErrNoPayload = errors.New("no audit payload stored")

// Store persists the current audit payload. Saving overwrites the previous
// payload; last write wins.
type Store interface {
	SaveCurrent(ctx context.Context, p *Payload) error
	LoadCurrent(ctx context.Context) (*Payload, error)
}

// MemoryStore keeps the current payload in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	current *Payload
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveCurrent(_ context.Context, p *Payload) error {
	if p == nil {
		return errors.New("nil payload")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = p
	return nil
}

func (s *MemoryStore) LoadCurrent(context.Context) (*Payload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoPayload
	}
	return s.current, nil
}
