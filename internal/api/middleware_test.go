package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	rl := NewRateLimiter(10, 20)
	clock := time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	hit := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/appointments", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 100; i++ {
		require.Equal(t, http.StatusNoContent, hit(fmt.Sprintf("10.0.0.%d:4000", i%10)))
		clock = clock.Add(time.Second)
	}
	assert.Len(t, rl.limiters, 10)

	clock = clock.Add(rl.idle)
	require.Equal(t, http.StatusNoContent, hit("10.0.1.1:4000"))
	assert.Len(t, rl.limiters, 1, "idle callers are dropped")
	assert.Contains(t, rl.limiters, "ip:10.0.1.1")
}

func TestRateLimiterKeepsThrottledClientsUntilRefilled(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	assert.GreaterOrEqual(t, rl.idle, 2000*time.Second, "slow limits are not reset by eviction")

	rl = NewRateLimiter(100, 1)
	assert.Equal(t, minLimiterIdle, rl.idle)
}
