package mw

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter 给每个 IP+路由组合一只令牌桶。过期条目在访问路径上惰性
// 回收，不需要后台 goroutine。
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	r        rate.Limit
	burst    int
	ttl      time.Duration
}

func NewLimiter(r rate.Limit, burst int) *Limiter {
	return &Limiter{
		visitors: make(map[string]*visitor),
		r:        r,
		burst:    burst,
		ttl:      2 * time.Minute,
	}
}

// Allow 判定一次访问是否放行。
func (l *Limiter) Allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.visitors) > 1024 {
		l.prune(now)
	}
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(l.r, l.burst)}
		l.visitors[key] = v
	}
	v.seen = now
	return v.lim.Allow()
}

// prune 要求调用方已持有 l.mu。
func (l *Limiter) prune(now time.Time) {
	for k, v := range l.visitors {
		if now.Sub(v.seen) > l.ttl {
			delete(l.visitors, k)
		}
	}
}

// RateLimit 返回基于 IP+路由的限速中间件。
func RateLimit(r rate.Limit, burst int) gin.HandlerFunc {
	l := NewLimiter(r, burst)
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		if !l.Allow(clientIP(c.Request.RemoteAddr) + "|" + route) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func clientIP(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}
