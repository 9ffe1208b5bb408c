package store

import (
	"context"
	"sync"
)

// In-memory implementations keep development and tests free of external
// services. They intentionally favor clarity over performance.

type InMemoryStore struct {
	mu        sync.RWMutex
	requests  []RequestRecord
	responses []ResponseRecord
	messages  []MessageRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) SaveRequest(_ context.Context, rec RequestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, rec)
	return nil
}

func (s *InMemoryStore) SaveResponse(_ context.Context, rec ResponseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, rec)
	return nil
}

func (s *InMemoryStore) SaveMessage(_ context.Context, rec MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, rec)
	return nil
}

func (s *InMemoryStore) Requests() []RequestRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RequestRecord, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *InMemoryStore) Responses() []ResponseRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ResponseRecord, len(s.responses))
	copy(out, s.responses)
	return out
}

func (s *InMemoryStore) Messages() []MessageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MessageRecord, len(s.messages))
	copy(out, s.messages)
	return out
}

// InMemoryDedupe tracks seen message ids for a single process.
type InMemoryDedupe struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewInMemoryDedupe() *InMemoryDedupe {
	return &InMemoryDedupe{seen: make(map[string]struct{})}
}

func (d *InMemoryDedupe) Seen(_ context.Context, msgID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[msgID]; ok {
		return true, nil
	}
	d.seen[msgID] = struct{}{}
	return false, nil
}
