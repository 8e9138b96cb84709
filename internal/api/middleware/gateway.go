package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kamalsharma29/crm-dashboard/internal/api/dto"
	"github.com/kamalsharma29/crm-dashboard/internal/authz"
	"github.com/kamalsharma29/crm-dashboard/internal/security"
)

// GatewayPolicy lists the path prefixes each gateway stage applies to.
// A prefix matches the path itself and anything below it on a "/"
// boundary; "/" matches only the root.
type GatewayPolicy struct {
	RateLimited []string
	Protected   []string
	AdminOnly   []string
	AuthPages   string
	SignInPath  string
	HomePath    string
}

func DefaultGatewayPolicy() GatewayPolicy {
	return GatewayPolicy{
		RateLimited: []string{"/api/auth", "/api/leads", "/api/users", "/api/ai", "/api/analytics"},
		Protected: []string{
			"/", "/dashboard", "/leads", "/ai-email", "/analytics", "/settings",
			"/api/leads", "/api/users", "/api/analytics", "/api/ai", "/api/me",
		},
		AdminOnly:  []string{"/settings", "/api/users"},
		AuthPages:  "/auth",
		SignInPath: "/auth/signin",
		HomePath:   "/dashboard",
	}
}

// Gateway runs every request through security headers, rate limiting,
// authentication, the admin check and the signed-in redirect, in that
// order.
type Gateway struct {
	policy  GatewayPolicy
	limiter *security.RateLimiter
	tokens  TokenValidator
	logger  *slog.Logger
	now     func() time.Time
}

func NewGateway(policy GatewayPolicy, limiter *security.RateLimiter, tokens TokenValidator, logger *slog.Logger) *Gateway {
	return &Gateway{
		policy:  policy,
		limiter: limiter,
		tokens:  tokens,
		logger:  logger,
		now:     time.Now,
	}
}

func (g *Gateway) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		setSecurityHeaders(w.Header())

		if prefix, ok := matchAny(path, g.policy.RateLimited); ok && g.limiter != nil {
			if !g.allow(w, r, prefix) {
				return
			}
		}

		principal, authenticated := principalFromRequest(g.tokens, r)

		if matches(path, g.policy.Protected) {
			if !authenticated {
				g.unauthorized(w, r)
				return
			}
			if matches(path, g.policy.AdminOnly) && !principal.IsAdmin() {
				g.forbidden(w, r)
				return
			}
		}

		if authenticated && matchPrefix(path, g.policy.AuthPages) && path != g.policy.AuthPages {
			http.Redirect(w, r, g.policy.HomePath, http.StatusFound)
			return
		}

		if authenticated {
			annotateUser(r.Context(), principal.UserID)
			r = r.WithContext(authz.WithPrincipal(r.Context(), principal))
		}
		next.ServeHTTP(w, r)
	})
}

func setSecurityHeaders(h http.Header) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-XSS-Protection", "1; mode=block")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
}

// allow applies the per client and path budget. Limiter failures let the
// request through.
func (g *Gateway) allow(w http.ResponseWriter, r *http.Request, prefix string) bool {
	id := getClientIP(r) + "-" + r.URL.Path

	decision, err := g.limiter.Allow(r.Context(), id)
	if err != nil {
		g.logger.Warn("rate limiter unavailable", "error", err)
		return true
	}

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

	if decision.Allowed {
		return true
	}

	h.Set("Retry-After", strconv.Itoa(int(decision.RetryAfter(g.now())/time.Second)))
	RecordRateLimited(prefix)

	writeError(w, http.StatusTooManyRequests, dto.ErrorResponse{
		Error:   "Too many requests",
		Message: "Rate limit exceeded. Please try again later.",
	})
	return false
}

func (g *Gateway) unauthorized(w http.ResponseWriter, r *http.Request) {
	if !isAPIPath(r.URL.Path) {
		target := g.policy.SignInPath + "?callbackUrl=" + url.QueryEscape(r.URL.Path)
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	writeError(w, http.StatusUnauthorized, dto.ErrorResponse{
		Error:   "Unauthorized",
		Message: "Authentication required",
	})
}

func (g *Gateway) forbidden(w http.ResponseWriter, r *http.Request) {
	if !isAPIPath(r.URL.Path) {
		http.Redirect(w, r, g.policy.HomePath, http.StatusFound)
		return
	}
	writeError(w, http.StatusForbidden, dto.ErrorResponse{
		Error:   "Forbidden",
		Message: "Admin access required",
	})
}

func matchPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	if prefix == "/" {
		return path == "/"
	}
	prefix = strings.TrimSuffix(prefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func matchAny(path string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if matchPrefix(path, p) {
			return p, true
		}
	}
	return "", false
}

func matches(path string, prefixes []string) bool {
	_, ok := matchAny(path, prefixes)
	return ok
}

func isAPIPath(path string) bool {
	return matchPrefix(path, "/api")
}

// getClientIP returns the peer address without its port. Forwarding
// headers are ignored here; behind a trusted proxy the router installs
// chi's RealIP first, which rewrites RemoteAddr.
func getClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeError(w http.ResponseWriter, status int, body dto.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
