package middleware

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kamalsharma29/crm-dashboard/internal/api/dto"
	"github.com/kamalsharma29/crm-dashboard/internal/auth"
	"github.com/kamalsharma29/crm-dashboard/internal/database/models"
	"github.com/kamalsharma29/crm-dashboard/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type gatewayFixture struct {
	handler http.Handler
	clock   *stepClock
	seen    *bool
}

func newGatewayFixture(t *testing.T, maxRequests int) *gatewayFixture {
	t.Helper()

	clock := &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := security.NewMemoryStore(security.WithClock(clock.Now), security.WithSweepInterval(0))
	t.Cleanup(func() { _ = store.Close() })

	jwtService, _, _ := testJWT(t, models.RoleEmployee)
	gw := NewGateway(DefaultGatewayPolicy(), security.NewRateLimiter(store, maxRequests, time.Minute), jwtService, discardLogger())
	gw.now = clock.Now

	seen := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = true
		w.WriteHeader(http.StatusOK)
	})
	return &gatewayFixture{handler: gw.Handler(next), clock: clock, seen: &seen}
}

func (f *gatewayFixture) do(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	*f.seen = false
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "203.0.113.7:51234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func testJWTWith(t *testing.T, jwtService *auth.JWTService, role models.Role) string {
	t.Helper()
	token, err := jwtService.GenerateToken(uuid.New(), "u@example.com", "U", role)
	require.NoError(t, err)
	return token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGateway_SecurityHeaders(t *testing.T) {
	f := newGatewayFixture(t, 10)
	rec := f.do(t, "GET", "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "1; mode=block", rec.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
}

func TestGateway_RateLimit(t *testing.T) {
	f := newGatewayFixture(t, 2)

	for i := 0; i < 2; i++ {
		rec := f.do(t, "POST", "/api/auth/login", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := f.do(t, "POST", "/api/auth/login", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, *f.seen)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	body := decodeError(t, rec)
	assert.Equal(t, "Too many requests", body.Error)
	assert.Equal(t, "Rate limit exceeded. Please try again later.", body.Message)

	// Budgets are per path.
	rec = f.do(t, "POST", "/api/auth/register", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Paths outside the limited prefixes are never counted.
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, f.do(t, "GET", "/health", "").Code)
	}

	f.clock.Advance(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, f.do(t, "POST", "/api/auth/login", "").Code)
}

func TestGateway_RateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	f := newGatewayFixture(t, 2)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest("POST", "/api/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:51234"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.0.0.%d", i+1))
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestGateway_Authentication(t *testing.T) {
	f := newGatewayFixture(t, 100)

	t.Run("api path answers 401", func(t *testing.T) {
		rec := f.do(t, "GET", "/api/leads", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "Unauthorized", body.Error)
		assert.Equal(t, "Authentication required", body.Message)
	})

	t.Run("web path redirects to sign in", func(t *testing.T) {
		rec := f.do(t, "GET", "/leads/new", "")
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/signin?callbackUrl=%2Fleads%2Fnew", rec.Header().Get("Location"))
	})

	t.Run("root is protected exactly", func(t *testing.T) {
		assert.Equal(t, http.StatusFound, f.do(t, "GET", "/", "").Code)
		assert.Equal(t, http.StatusOK, f.do(t, "GET", "/health", "").Code)
	})

	t.Run("prefix matches on segment boundary", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, f.do(t, "GET", "/leadsboard", "").Code)
		assert.Equal(t, http.StatusUnauthorized, f.do(t, "GET", "/api/me", "").Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, f.do(t, "GET", "/api/leads", "garbage").Code)
	})
}

func TestGateway_PrincipalInContext(t *testing.T) {
	jwtService, userID, token := testJWT(t, models.RoleEmployee)
	gw := NewGateway(DefaultGatewayPolicy(), nil, jwtService, discardLogger())

	var got uuid.UUID
	handler := gw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetUserID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/leads", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, userID, got)
}

func TestGateway_AdminOnly(t *testing.T) {
	jwtService, _, employeeToken := testJWT(t, models.RoleEmployee)
	adminToken := testJWTWith(t, jwtService, models.RoleAdmin)
	gw := NewGateway(DefaultGatewayPolicy(), nil, jwtService, discardLogger())
	handler := gw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := do("/api/users", employeeToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "Forbidden", body.Error)
	assert.Equal(t, "Admin access required", body.Message)

	rec = do("/settings", employeeToken)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	assert.Equal(t, http.StatusOK, do("/api/users", adminToken).Code)
	assert.Equal(t, http.StatusOK, do("/settings", adminToken).Code)
	assert.Equal(t, http.StatusOK, do("/api/leads", employeeToken).Code)
}

func TestGateway_AuthPagesRedirectSignedIn(t *testing.T) {
	jwtService, _, token := testJWT(t, models.RoleEmployee)
	gw := NewGateway(DefaultGatewayPolicy(), nil, jwtService, discardLogger())
	handler := gw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/auth/signin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/auth/signin", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMatchPrefix(t *testing.T) {
	assert.True(t, matchPrefix("/", "/"))
	assert.False(t, matchPrefix("/health", "/"))
	assert.True(t, matchPrefix("/api/leads", "/api/leads"))
	assert.True(t, matchPrefix("/api/leads/123", "/api/leads"))
	assert.False(t, matchPrefix("/api/leadsx", "/api/leads"))
	assert.True(t, matchPrefix("/auth/signin", "/auth/"))
	assert.False(t, matchPrefix("/x", ""))
}

func TestGetClientIP_IgnoresForwardingHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "198.51.100.4:4000"
	req.Header.Set("X-Real-IP", "10.0.0.2")
	req.Header.Set("X-Forwarded-For", "192.0.2.1, 10.0.0.1")
	assert.Equal(t, "198.51.100.4", getClientIP(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", getClientIP(req))
}
