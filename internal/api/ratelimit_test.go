package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(5, 10*time.Second)
	rl.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		d := rl.Allow("user:alice")
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 4-i, d.Remaining)
		assert.Equal(t, 5, d.Limit)
	}

	d := rl.Allow("user:alice")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, now.Add(10*time.Second), d.Reset)

	// Other principals have their own bucket.
	assert.True(t, rl.Allow("user:bob").Allowed)

	// One token comes back every window/limit.
	now = now.Add(2 * time.Second)
	assert.True(t, rl.Allow("user:alice").Allowed)
	assert.False(t, rl.Allow("user:alice").Allowed)
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(5, 10*time.Second)
	rl.now = func() time.Time { return now }

	rl.Allow("user:alice")
	rl.Allow("user:bob")
	assert.Len(t, rl.visitors, 2)

	now = now.Add(time.Minute)
	rl.Allow("user:carol")
	assert.Len(t, rl.visitors, 1)
}

func TestRateLimitKey(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/chat", nil)
	r.RemoteAddr = "203.0.113.7:5555"
	assert.Equal(t, "ip:203.0.113.7", rateLimitKey(r))

	r = r.WithContext(WithPrincipal(r.Context(), "alice"))
	assert.Equal(t, "user:alice", rateLimitKey(r))

	r = httptest.NewRequest("POST", "/api/chat", nil)
	r.RemoteAddr = ""
	assert.Equal(t, "anonymous", rateLimitKey(r))
}
