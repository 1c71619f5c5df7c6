package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/angelmondragon/library-backend/api/responses"
	"github.com/angelmondragon/library-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/logger"
)

const clientIdleTimeout = 3 * time.Minute

type ipClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	cfg     config.RateLimitConfig
	now     func() time.Time
	mu      sync.Mutex
	clients map[string]*ipClient
}

func NewIPRateLimiter(cfg config.RateLimitConfig) *IPRateLimiter {
	return &IPRateLimiter{cfg: cfg, now: time.Now, clients: map[string]*ipClient{}}
}

// Allow reports whether ip may make another request now.
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.clients[ip]
	if !ok {
		c = &ipClient{limiter: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)}
		l.clients[ip] = c
	}
	c.lastSeen = l.now()
	return c.limiter.Allow()
}

// Sweep forgets clients idle for longer than the idle timeout.
func (l *IPRateLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-clientIdleTimeout)
	for ip, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
}

// Run sweeps idle clients every minute until done is closed.
func (l *IPRateLimiter) Run(done <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// RateLimit rejects requests from an IP once its bucket is empty.
func RateLimit(limiter *IPRateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || !limiter.cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !limiter.Allow(ip) {
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "ip", ip), "rate_limit.blocked")
				}
				responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
