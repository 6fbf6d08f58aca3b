package admission

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// DefaultPruneProbability is the chance that an Increment also sweeps expired windows.
const DefaultPruneProbability = 0.01

type counter struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps counters in process memory. It suits a single instance only.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter

	pruneProbability float64
	rand             func() float64
}

var _ CounterStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters:         make(map[string]*counter),
		pruneProbability: DefaultPruneProbability,
		rand:             rand.Float64,
	}
}

func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration, now time.Time) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || !now.Before(c.resetAt) {
		c = &counter{resetAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	count, resetAt := c.count, c.resetAt

	if s.rand() < s.pruneProbability {
		s.pruneLocked(now)
	}
	return count, resetAt, nil
}

// pruneLocked drops every counter whose window has ended.
func (s *MemoryStore) pruneLocked(now time.Time) {
	for key, c := range s.counters {
		if !now.Before(c.resetAt) {
			delete(s.counters, key)
		}
	}
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}
