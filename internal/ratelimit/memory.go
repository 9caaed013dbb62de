package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// sweepThreshold is the bucket count past which a check opportunistically
// drops expired buckets, bounding memory under sustained traffic from many
// distinct clients.
const sweepThreshold = 10_000

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryStore is the in-process Store variant. Counters live only as long as
// the process and are not shared between instances; use the Redis store for
// endpoints that must be correct across a fleet.
//
// Safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	clock   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*bucket),
		clock:   time.Now,
	}
}

func (s *MemoryStore) Check(ctx context.Context, namespace, identity string, limit int, window time.Duration) (Result, error) {
	if limit <= 0 || window <= 0 {
		return Result{}, fmt.Errorf("ratelimit: limit and window must be positive")
	}

	key := BucketKey(namespace, identity)
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Sweep before touching the requested bucket so an expired bucket can be
	// dropped even when it is the one being checked.
	if len(s.buckets) > sweepThreshold {
		for k, b := range s.buckets {
			if !now.Before(b.resetAt) {
				delete(s.buckets, k)
			}
		}
	}

	b, ok := s.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		// New window; the current request is its first member.
		b = &bucket{count: 1, resetAt: now.Add(window)}
		s.buckets[key] = b
		return Result{Allowed: true, Remaining: limit - 1, ResetAt: b.resetAt}, nil
	}

	if b.count >= limit {
		return Result{
			Allowed:           false,
			Remaining:         0,
			ResetAt:           b.resetAt,
			RetryAfterSeconds: retryAfterSeconds(now, b.resetAt),
		}, nil
	}

	b.count++
	return Result{Allowed: true, Remaining: limit - b.count, ResetAt: b.resetAt}, nil
}
