package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/macfarley/dream-weaver-backend/internal"
)

// Limiter decides whether a client may make another request this window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter is a fixed-window counter for single-instance deployments.
// Close stops the background janitor that evicts expired windows.
type MemoryLimiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	limit     int
	length    time.Duration
	stop      chan struct{}
	closeOnce sync.Once
}

type window struct {
	count   int
	started time.Time
}

func NewMemoryLimiter(limit int, length time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		length:  length,
		stop:    make(chan struct{}),
	}
	go l.janitor()
	return l
}

func (l *MemoryLimiter) janitor() {
	ticker := time.NewTicker(l.length)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			for key, w := range l.windows {
				if time.Since(w.started) > l.length {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// Close stops the janitor goroutine. Safe to call more than once.
func (l *MemoryLimiter) Close() error {
	l.closeOnce.Do(func() { close(l.stop) })
	return nil
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[key]
	if !ok || time.Since(w.started) > l.length {
		l.windows[key] = &window{count: 1, started: time.Now()}
		return true, nil
	}
	w.count++
	return w.count <= l.limit, nil
}

// RedisLimiter shares the window across instances via INCR + EXPIRE.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	length time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, length time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, length: length}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.client.Incr(ctx, "ratelimit:"+key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, "ratelimit:"+key, l.length).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(l.limit), nil
}

// RateLimitMiddleware keys on client IP and fails open if the limiter backend
// is unavailable.
func RateLimitMiddleware(limiter Limiter, logger internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warnf("rate limiter unavailable, allowing request: %v", err)
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
