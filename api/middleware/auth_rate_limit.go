package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/library-backend/api/responses"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/logger"
)

// FixedWindowStore counts attempts per scope inside a fixed window.
type FixedWindowStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy throttles one credential surface (login, register)
// per client IP and per submitted email.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

func (p AuthRateLimitPolicy) scope(kind, value string) string {
	return "auth:" + p.name + ":" + kind + ":" + value
}

type attemptCheck struct {
	kind  string
	value string
	limit int
}

// AuthRateLimit rejects credential requests once an IP or email exceeds the
// policy inside its window.
func AuthRateLimit(policy AuthRateLimitPolicy, store FixedWindowStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			var checks []attemptCheck

			if ip := clientIP(r); policy.ipLimit > 0 && ip != "" {
				checks = append(checks, attemptCheck{kind: "ip", value: ip, limit: policy.ipLimit})
			}

			if policy.emailLimit > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if email := normalizeEmail(extractEmail(body)); email != "" {
					checks = append(checks, attemptCheck{kind: "email", value: hashValue(email), limit: policy.emailLimit})
				}
			}

			for _, c := range checks {
				allowed, count, err := store.FixedWindowAllow(ctx, policy.scope(c.kind, c.value), int64(c.limit), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					rejectAttempt(ctx, logg, w, policy, c, count)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectAttempt(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AuthRateLimitPolicy, c attemptCheck, count int64) {
	if logg != nil {
		field := "ip"
		if c.kind == "email" {
			field = "email_hash"
		}
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":   policy.name,
			"scope":    c.kind,
			field:      c.value,
			"attempts": count,
			"limit":    c.limit,
		}), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "Too many attempts, please try again later"))
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		first, _, _ := strings.Cut(header, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func extractEmail(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return body.Email
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
