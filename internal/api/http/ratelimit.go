package http

import (
	"sync"
	"time"

	"impostor-be/internal/service/dto"

	"github.com/kataras/iris/v12"
	"golang.org/x/time/rate"
)

const (
	// 超过该数量的客户端时清理长时间未访问的限流器
	MAX_TRACKED_CLIENTS = 4096
	CLIENT_IDLE_TIMEOUT = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 按客户端 IP 做令牌桶限流
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter

	limit rate.Limit
	burst int
	now   func() time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}

	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

func (rl *RateLimiter) Enabled() bool {
	return rl.limit > 0
}

func (rl *RateLimiter) Allow(key string) bool {
	if !rl.Enabled() {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	cl, ok := rl.clients[key]
	if !ok {
		if len(rl.clients) >= MAX_TRACKED_CLIENTS {
			rl.prune(now)
		}

		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = cl
	}

	cl.lastSeen = now

	return cl.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) prune(now time.Time) {
	for key, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > CLIENT_IDLE_TIMEOUT {
			delete(rl.clients, key)
		}
	}
}

func (rl *RateLimiter) Handler() iris.Handler {
	return func(ctx iris.Context) {
		if !rl.Allow(ctx.RemoteAddr()) {
			ctx.StopWithJSON(iris.StatusTooManyRequests, dto.ErrorResponse{Error: "请求过于频繁，请稍后再试"})
			return
		}

		ctx.Next()
	}
}
