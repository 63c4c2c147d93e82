package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"pawn-ledger/internal/config"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const rateLimitKeyPrefix = "pawnledger:ratelimit:"

// RateLimiterMiddleware counts requests per client IP. With a Redis client it
// keeps a fixed window shared by every replica, otherwise it falls back to an
// in-process token bucket.
type RateLimiterMiddleware struct {
	redisClient redis.Cmdable
	limiters    sync.Map
	cfg         config.RateLimitConfig
	window      time.Duration
	logger      *slog.Logger
}

func NewRateLimiterMiddleware(redisClient redis.Cmdable, cfg config.RateLimitConfig, logger *slog.Logger) *RateLimiterMiddleware {
	window := cfg.Window
	if window <= 0 {
		window = time.Second
	}
	return &RateLimiterMiddleware{
		redisClient: redisClient,
		cfg:         cfg,
		window:      window,
		logger:      logger.With("component", "RateLimiter"),
	}
}

// limit is the number of requests allowed per window.
func (rl *RateLimiterMiddleware) limit() int64 {
	n := int64(rl.cfg.RPS * rl.window.Seconds())
	if n < 1 {
		n = 1
	}
	return n + int64(rl.cfg.Burst)
}

func (rl *RateLimiterMiddleware) getLimiter(ip string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(ip); ok {
		return limiter.(*rate.Limiter)
	}
	limiter, _ := rl.limiters.LoadOrStore(ip, rate.NewLimiter(rate.Limit(rl.cfg.RPS), rl.cfg.Burst))
	return limiter.(*rate.Limiter)
}

// RunCleanup drops idle in-process limiters until ctx is done.
func (rl *RateLimiterMiddleware) RunCleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.limiters.Range(func(key, value any) bool {
				limiter := value.(*rate.Limiter)
				if limiter.Tokens() >= float64(rl.cfg.Burst) {
					rl.limiters.Delete(key)
				}
				return true
			})
		}
	}
}

func extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xRealIP := r.Header.Get("X-Real-IP"); xRealIP != "" {
		return xRealIP
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// allowRedis reports whether the request fits the window. A Redis failure
// lets the request through.
func (rl *RateLimiterMiddleware) allowRedis(ctx context.Context, ip string) bool {
	key := rateLimitKeyPrefix + ip

	pipe := rl.redisClient.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.logger.ErrorContext(ctx, "Redis pipeline failed during rate limiting check", "error", err, "ip", ip)
		return true
	}

	count, err := incrCmd.Result()
	if err != nil {
		rl.logger.ErrorContext(ctx, "Failed to read INCR result", "error", err, "ip", ip)
		return true
	}
	if ttl, err := ttlCmd.Result(); err == nil && ttl < 0 {
		if err := rl.redisClient.Expire(ctx, key, rl.window).Err(); err != nil {
			rl.logger.ErrorContext(ctx, "Failed to set expiry on rate limit key", "error", err, "ip", ip)
		}
	}
	return count <= rl.limit()
}

func (rl *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)

		var allowed bool
		if rl.redisClient != nil {
			allowed = rl.allowRedis(r.Context(), ip)
		} else {
			allowed = rl.getLimiter(ip).Allow()
		}

		if !allowed {
			rl.logger.WarnContext(r.Context(), "Rate limit exceeded", "ip", ip)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%.0f", rl.window.Seconds()))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{
					"message": "Rate limit exceeded",
				},
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
