// Package ratelimit provides a per-client sliding window limiter for the
// HTTP surface. In-memory only, matching the rest of the case state.
package ratelimit

import (
	"sync"
	"time"
)

// Result reports one admission decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Store tracks request timestamps per key in a sliding window. The window
// slides continuously, so bursts straddling a boundary cannot double up.
type Store struct {
	mu      sync.Mutex
	window  time.Duration
	buckets map[string][]time.Time
}

func NewStore(window time.Duration) *Store {
	return &Store{
		window:  window,
		buckets: make(map[string][]time.Time),
	}
}

// Allow admits the request when the key has seen fewer than limit requests
// inside the window, recording it on admission.
func (s *Store) Allow(key string, limit int) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	timestamps := s.cleanup(key, now)

	if len(timestamps) >= limit {
		return Result{
			Allowed: false,
			Limit:   limit,
			ResetAt: timestamps[0].Add(s.window),
		}
	}

	timestamps = append(timestamps, now)
	s.buckets[key] = timestamps
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(timestamps),
		ResetAt:   timestamps[0].Add(s.window),
	}
}

// Reset clears the counter for a key.
func (s *Store) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
}

// CurrentCount returns the in-window request count for a key.
func (s *Store) CurrentCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cleanup(key, time.Now()))
}

// cleanup drops expired timestamps. Caller holds s.mu.
func (s *Store) cleanup(key string, now time.Time) []time.Time {
	timestamps := s.buckets[key]
	cutoff := now.Add(-s.window)
	i := 0
	for ; i < len(timestamps); i++ {
		if timestamps[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		timestamps = timestamps[i:]
		if len(timestamps) == 0 {
			delete(s.buckets, key)
		} else {
			s.buckets[key] = timestamps
		}
	}
	return timestamps
}
