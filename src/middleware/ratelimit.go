package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type window struct {
	number int64
	count  int
}

// RateLimiter counts requests per client in fixed windows.
type RateLimiter struct {
	maxRequests    int
	windowDuration time.Duration
	now            func() time.Time

	mu      sync.Mutex
	clients map[string]window
}

func NewRateLimiter(maxRequests int, windowDuration time.Duration) *RateLimiter {
	if windowDuration <= 0 {
		windowDuration = time.Second
	}
	return &RateLimiter{
		maxRequests:    maxRequests,
		windowDuration: windowDuration,
		now:            time.Now,
		clients:        make(map[string]window),
	}
}

func clientID(c *fiber.Ctx) string {
	if ip := c.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := c.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return c.IP()
}

func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	current := rl.now().UnixNano() / int64(rl.windowDuration)
	w := rl.clients[client]

	// edge case: a new window resets the client's count
	if w.number != current {
		rl.clients[client] = window{number: current, count: 1}
		rl.evict(current)
		return true
	}

	if w.count >= rl.maxRequests {
		return false
	}
	w.count++
	rl.clients[client] = w
	return true
}

// evict forgets clients whose window has passed.
func (rl *RateLimiter) evict(current int64) {
	for client, w := range rl.clients {
		if w.number != current {
			delete(rl.clients, client)
		}
	}
}

func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		client := clientID(c)

		if !rl.Allow(client) {
			log.Warn().
				Str("client_ip", client).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Int("max_requests", rl.maxRequests).
				Msg("Rate limit exceeded")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "Rate limit exceeded",
				"message": "Too many requests. Please try again later.",
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.maxRequests))
		c.Set("X-RateLimit-Window", rl.windowDuration.String())

		return c.Next()
	}
}
