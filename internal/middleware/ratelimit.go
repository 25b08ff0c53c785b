package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter bounds requests per client IP with a Redis sorted-set
// sliding window. It guards the public verifier endpoint, which carries
// no bearer token, against replay storms.
type RateLimiter struct {
	client redis.Cmdable
	max    int
	window time.Duration
}

// NewRateLimiter allows max requests per IP within windowSec seconds.
func NewRateLimiter(client redis.Cmdable, max, windowSec int) *RateLimiter {
	return &RateLimiter{
		client: client,
		max:    max,
		window: time.Duration(windowSec) * time.Second,
	}
}

// Middleware enforces the limit. Redis being unreachable fails open: the
// quota check is protective, not load-bearing, and the ledger still
// rejects anything the verifier should not have passed.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := remoteIP(r)

		allowed, err := rl.allow(r.Context(), "ratelimit:verify:"+ip)
		if err != nil {
			slog.Warn("rate limiter unavailable, failing open", "error", err, "ip", ip)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			http.Error(w, `{"error":"too many requests"}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allow records the request and reports whether the window had room
// before it. Expired members are pruned on every call so the set stays
// bounded per IP.
func (rl *RateLimiter) allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	cutoff := now.Add(-rl.window).UnixMilli()

	pipe := rl.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
	inWindow := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.Expire(ctx, key, rl.window+time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return inWindow.Val() < int64(rl.max), nil
}

// remoteIP prefers proxy headers set by the ingress, falling back to the
// socket address.
func remoteIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
