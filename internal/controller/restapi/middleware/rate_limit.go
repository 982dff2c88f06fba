package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const limiterTTL = 5 * time.Minute

type ipLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

type limiterSet struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

func newLimiterSet(perMinute int, now func() time.Time) *limiterSet {
	perMinute = max(perMinute, 1)

	return &limiterSet{
		limiters:  map[string]*ipLimiter{},
		limit:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     max(perMinute/2, 1),
		now:       now,
		lastSweep: now(),
	}
}

// RateLimit applies a per-IP token bucket refilling perMinute tokens a minute.
func RateLimit(perMinute int) fiber.Handler {
	set := newLimiterSet(perMinute, time.Now)

	return func(ctx *fiber.Ctx) error {
		if !set.get(ctx.IP()).Allow() {
			return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"message": "rate limit exceeded"})
		}

		return ctx.Next()
	}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	// idle limiters are dropped at most once per TTL
	if now.Sub(s.lastSweep) >= limiterTTL {
		for k, l := range s.limiters {
			if now.After(l.expires) {
				delete(s.limiters, k)
			}
		}
		s.lastSweep = now
	}

	if l, ok := s.limiters[key]; ok {
		l.expires = now.Add(limiterTTL)
		return l.limiter
	}

	l := &ipLimiter{
		limiter: rate.NewLimiter(s.limit, s.burst),
		expires: now.Add(limiterTTL),
	}
	s.limiters[key] = l

	return l.limiter
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.limiters)
}
