package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/goldvault/backend/internal/api/httpx"
)

// tokenBucket is a single process-wide bucket refilled at rate tokens per
// second, capped at burst.
type tokenBucket struct {
	mu     sync.Mutex
	tokens float64
	last   time.Time
	rate   float64
	burst  float64
}

func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.tokens += now.Sub(tb.last).Seconds() * tb.rate
	if tb.tokens > tb.burst {
		tb.tokens = tb.burst
	}
	tb.last = now

	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}

// RateLimit rejects requests beyond rps per second with 429. rps <= 0
// disables limiting.
func RateLimit(rps int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	tb := &tokenBucket{
		tokens: float64(rps),
		last:   time.Now(),
		rate:   float64(rps),
		burst:  float64(rps),
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !tb.allow() {
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
