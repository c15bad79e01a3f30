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

	"github.com/angelmondragon/asarum-backend/api/responses"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
)

type hitCounter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// ThrottlePolicy caps requests to one surface per client IP and, for login,
// per submitted username. A zero cap turns that counter off.
type ThrottlePolicy struct {
	Surface     string
	Window      time.Duration
	PerIP       int
	PerUsername int
}

func (p ThrottlePolicy) active() bool {
	return p.Window > 0 && (p.PerIP > 0 || p.PerUsername > 0)
}

type throttleCheck struct {
	dimension string
	value     string
	limit     int
}

// Throttle rejects requests over the policy with 429 and a Retry-After of one
// window. Usernames are hashed before they reach Redis or the logs.
func Throttle(policy ThrottlePolicy, store hitCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	surface := strings.ToLower(strings.TrimSpace(policy.Surface))
	if surface == "" {
		surface = "auth"
	}
	return func(next http.Handler) http.Handler {
		if !policy.active() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			checks := make([]throttleCheck, 0, 2)
			if policy.PerIP > 0 {
				if ip := clientIP(r); ip != "" {
					checks = append(checks, throttleCheck{dimension: "ip", value: ip, limit: policy.PerIP})
				}
			}
			if policy.PerUsername > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if name := submittedUsername(body); name != "" {
					checks = append(checks, throttleCheck{dimension: "username", value: digestName(name), limit: policy.PerUsername})
				}
			}

			for _, c := range checks {
				scope := c.dimension + ":" + surface + ":" + c.value
				allowed, hits, err := store.FixedWindowAllow(ctx, scope, int64(c.limit), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiter unavailable"))
					return
				}
				if allowed {
					continue
				}
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{
						"throttle_surface":   surface,
						"throttle_dimension": c.dimension,
						"throttle_key":       c.value,
						"throttle_hits":      hits,
						"throttle_limit":     c.limit,
					})
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Round(time.Second)/time.Second)))
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP trusts the first X-Forwarded-For hop; the API only runs behind the
// platform router.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func submittedUsername(body []byte) string {
	var login struct {
		Username string `json:"username"`
	}
	if json.Unmarshal(body, &login) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(login.Username))
}

func digestName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}
