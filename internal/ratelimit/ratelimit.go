// Package ratelimit implements a sliding-fixed-window request limiter with
// two stores: an in-process map for single-instance, low-stakes endpoints and
// a Redis-backed store whose check-and-increment is atomic across server
// instances.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net/http"
	"strings"
	"time"
)

// Result is the outcome of one rate-limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time

	// RetryAfterSeconds is >= 1 when the request was denied.
	RetryAfterSeconds int
}

// Store answers whether one more request from an identity fits in the
// current window.
//
// Window semantics shared by all implementations:
// - first request of a window stores count=1 (the request itself)
// - requests over the limit are denied WITHOUT incrementing, so a sustained
//   flood cannot grow the counter unboundedly
// - an elapsed window resets to count=1, never to 0
type Store interface {
	Check(ctx context.Context, namespace, identity string, limit int, window time.Duration) (Result, error)
}

// BucketKey derives the storage key for a (namespace, identity) pair. The
// hash bounds key size and keeps raw client identities out of storage.
func BucketKey(namespace, identity string) string {
	sum := sha256.Sum256([]byte(namespace + ":" + identity))
	return "rl:" + hex.EncodeToString(sum[:])[:32]
}

// ClientIdentity derives the limited-entity identity from proxy headers:
// the first hop of X-Forwarded-For, then X-Real-IP, then a literal sentinel.
// It never fails on missing headers.
func ClientIdentity(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := xff
		if i := strings.IndexByte(xff, ','); i >= 0 {
			first = xff[:i]
		}
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return "unknown"
}

// retryAfterSeconds reports how long a denied client should wait, minimum 1s.
func retryAfterSeconds(now, resetAt time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
