package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps trackers in process memory. State is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	trackers map[string]*Tracker
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trackers: make(map[string]*Tracker)}
}

func (s *MemoryStore) Backend() string { return BackendMemory }

func (s *MemoryStore) Get(_ context.Context, senderID string) (*Tracker, error) {
	if senderID == "" {
		return nil, ErrInvalidSender
	}
	s.mu.RLock()
	t, ok := s.trackers[senderID]
	s.mu.RUnlock()
	if !ok {
		return NewTracker(senderID), nil
	}
	return t.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, t *Tracker) error {
	if t == nil || t.SenderID == "" {
		return ErrInvalidSender
	}
	t.stamp()
	s.mu.Lock()
	s.trackers[t.SenderID] = t.Clone()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, senderID string) error {
	s.mu.Lock()
	delete(s.trackers, senderID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.trackers {
		if t.UpdatedAt.Before(cutoff) {
			delete(s.trackers, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trackers), nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
