package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pawn-ledger/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterMiddleware_InProcess(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	cfg := config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 2}

	handler := NewRateLimiterMiddleware(nil, cfg, logger).Middleware(okHandler())

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send("127.0.0.1:12345").Code)
	assert.Equal(t, http.StatusOK, send("127.0.0.1:12345").Code)

	blocked := send("127.0.0.1:12345")
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))

	var response map[string]map[string]string
	require.NoError(t, json.NewDecoder(blocked.Body).Decode(&response))
	assert.Equal(t, "Rate limit exceeded", response["error"]["message"])

	assert.Equal(t, http.StatusOK, send("10.1.1.1:5555").Code, "other clients have their own bucket")
}

func TestRateLimiterMiddleware_Disabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	handler := NewRateLimiterMiddleware(nil, config.RateLimitConfig{Enabled: false, RPS: 1}, logger).Middleware(okHandler())

	for range 5 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterMiddleware_RedisUnavailableFailsOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 0, Window: time.Second}
	handler := NewRateLimiterMiddleware(client, cfg, logger).Middleware(okHandler())

	for range 3 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterMiddleware_WindowLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	rl := NewRateLimiterMiddleware(nil, config.RateLimitConfig{Enabled: true, RPS: 5, Burst: 3, Window: 2 * time.Second}, logger)
	assert.Equal(t, int64(13), rl.limit())

	rl = NewRateLimiterMiddleware(nil, config.RateLimitConfig{Enabled: true, RPS: 0.1}, logger)
	assert.Equal(t, time.Second, rl.window)
	assert.Equal(t, int64(1), rl.limit())
}

func TestExtractIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "192.168.1.1, 10.0.0.1")
	assert.Equal(t, "192.168.1.1", extractIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	assert.Equal(t, "10.0.0.1", extractIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	assert.Equal(t, "127.0.0.1", extractIP(req))
}
