package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour, testLogger())
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"), "request %d should pass", i)
	}
	assert.False(t, rl.Allow("1.2.3.4"))

	// Other keys have their own bucket.
	assert.True(t, rl.Allow("5.6.7.8"))
}

func TestRateLimiter_RefillsAfterWindow(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond, testLogger())
	defer rl.Stop()

	require.True(t, rl.Allow("1.2.3.4"))
	require.False(t, rl.Allow("1.2.3.4"))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, rl.Allow("1.2.3.4"))
}

func TestRateLimitMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitMiddleware(2, time.Hour, testLogger())(next)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/datasets", nil)
		req.RemoteAddr = "1.2.3.4:5678"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:   "remote addr",
			remote: "1.2.3.4:5678",
			want:   "1.2.3.4:5678",
		},
		{
			name:    "x-forwarded-for single",
			headers: map[string]string{"X-Forwarded-For": "9.9.9.9"},
			remote:  "1.2.3.4:5678",
			want:    "9.9.9.9",
		},
		{
			name:    "x-forwarded-for chain keeps first hop",
			headers: map[string]string{"X-Forwarded-For": "9.9.9.9,10.0.0.1"},
			remote:  "1.2.3.4:5678",
			want:    "9.9.9.9",
		},
		{
			name:    "x-real-ip",
			headers: map[string]string{"X-Real-IP": "8.8.8.8"},
			remote:  "1.2.3.4:5678",
			want:    "8.8.8.8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
