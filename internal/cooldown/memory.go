package cooldown

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps deadlines in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

// NewMemoryStore creates a store. A nil now uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{until: make(map[string]time.Time), now: now}
}

// Start sets the deadline for key, never shortening an active one.
func (s *MemoryStore) Start(_ context.Context, key string, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := s.now().Add(d)
	if current, ok := s.until[key]; ok && current.After(deadline) {
		return nil
	}
	s.until[key] = deadline
	return nil
}

func (s *MemoryStore) Remaining(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline, ok := s.until[key]
	if !ok {
		return 0, nil
	}
	left := deadline.Sub(s.now())
	if left <= 0 {
		delete(s.until, key)
		return 0, nil
	}
	return left, nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.until, key)
	s.mu.Unlock()
	return nil
}
