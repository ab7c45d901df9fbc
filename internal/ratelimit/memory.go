package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local fixed-window limiter keyed by client
// address. State lives in a mutex-guarded map; correctness does not
// depend on the janitor, which only reclaims memory.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	max     int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// NewMemoryStore creates a limiter allowing max requests per period for
// each key.
func NewMemoryStore(max int, period time.Duration) *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*window),
		max:     max,
		period:  period,
		now:     time.Now,
	}
}

// Check counts one request against key's current window.
func (s *MemoryStore) Check(_ context.Context, key string) (Result, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(s.period)}
		s.windows[key] = w
		return Result{Allowed: true, Limit: s.max, Remaining: s.max - 1, Reset: w.resetAt}, nil
	}

	if w.count >= s.max {
		return Result{Allowed: false, Limit: s.max, Remaining: 0, Reset: w.resetAt}, nil
	}

	w.count++
	return Result{Allowed: true, Limit: s.max, Remaining: s.max - w.count, Reset: w.resetAt}, nil
}

// Cleanup removes windows whose reset time has passed.
func (s *MemoryStore) Cleanup() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, w := range s.windows {
		if now.After(w.resetAt) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps expired windows every interval until ctx is done.
func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}
