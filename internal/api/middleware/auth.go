package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kamalsharma29/crm-dashboard/internal/api/dto"
	"github.com/kamalsharma29/crm-dashboard/internal/auth"
	"github.com/kamalsharma29/crm-dashboard/internal/authz"
)

// TokenValidator turns a session token into claims.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// ExtractToken reads the session token from the request.
func ExtractToken(r *http.Request) string {
	// 1. Authorization header (API clients)
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")); token != "" {
			return token
		}
	}

	// 2. Cookie (browser)
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	// 3. X-Auth-Token header (localStorage fallback for AJAX)
	return r.Header.Get("X-Auth-Token")
}

// principalFromRequest validates the request's token, if any.
func principalFromRequest(tokens TokenValidator, r *http.Request) (authz.Principal, bool) {
	token := ExtractToken(r)
	if token == "" {
		return authz.Principal{}, false
	}

	claims, err := tokens.ValidateToken(token)
	if err != nil {
		return authz.Principal{}, false
	}

	return authz.Principal{
		UserID: claims.UserID,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   claims.Role,
	}, true
}

// GetPrincipal returns the caller stored by the gateway. The zero Principal
// is unauthenticated.
func GetPrincipal(ctx context.Context) authz.Principal {
	p, _ := authz.FromContext(ctx)
	return p
}

func GetUserID(ctx context.Context) uuid.UUID {
	return GetPrincipal(ctx).UserID
}

// RequireCapability rejects callers that lack c.
func RequireCapability(c authz.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r.Context())
			if !p.Authenticated() {
				writeError(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized", Message: "Authentication required"})
				return
			}
			if !p.Can(c) {
				writeError(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden", Message: "Insufficient permissions"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
