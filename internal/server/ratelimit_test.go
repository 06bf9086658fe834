package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(1, 3, false)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("192.168.1.1"), "request %d is within burst", i+1)
	}
	assert.False(t, rl.Allow("192.168.1.1"), "burst exhausted")
	assert.True(t, rl.Allow("192.168.1.2"), "other clients keep their own bucket")
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0, false)
	defer rl.Stop()
	assert.Equal(t, DefaultRateBurst, rl.burst)
	assert.InDelta(t, DefaultRateLimit, float64(rl.limit), 0.001)
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(1, 1, false)
	defer rl.Stop()

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow("10.0.0.1")
	now = now.Add(5 * time.Minute)
	rl.Allow("10.0.0.2")

	now = now.Add(6 * time.Minute)
	rl.sweep()
	assert.Equal(t, 1, rl.size(), "only the recently seen client remains")

	rl.Stop()
	rl.Stop()
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, 1, false)
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhook/voice", nil)
		req.RemoteAddr = "203.0.113.9:51234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send().Code)
	limited := send()
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
	assert.Contains(t, limited.Body.String(), "rate limit exceeded")
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{name: "ipv4 remote addr", remoteAddr: "192.168.1.1:1234", want: "192.168.1.1"},
		{name: "ipv6 remote addr", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "no port", remoteAddr: "192.168.1.1", want: "192.168.1.1"},
		{
			name:       "forwarded ignored without trust",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.7"},
			want:       "10.0.0.1",
		},
		{
			name:       "first forwarded hop",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.2"},
			trustProxy: true,
			want:       "198.51.100.7",
		},
		{
			name:       "real ip",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.8"},
			trustProxy: true,
			want:       "198.51.100.8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req, tt.trustProxy))
		})
	}
}
