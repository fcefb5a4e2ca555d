// Package api provides request authentication for Philview endpoints.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/philview/philview/internal/models"
)

// Header names trusted when no JWT secret is configured, e.g. behind an identity-aware proxy.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserName  = "X-User-Name"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
)

// UserClaims are the JWT claims issued by the identity provider. The subject is the user id.
type UserClaims struct {
	jwt.RegisteredClaims
	Name  string      `json:"name,omitempty"`
	Email string      `json:"email,omitempty"`
	Role  models.Role `json:"role,omitempty"`
}

type userContextKey struct{}

// withUser stores the caller in ctx.
func withUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// userFromContext returns the caller, or nil for a guest.
func userFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userContextKey{}).(*models.User)
	return u
}

// Authenticator resolves the caller of a request. It never performs sign-in; it only reads a
// bearer token already issued by the identity provider.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an Authenticator. An empty secret trusts X-User-* headers instead.
func NewAuthenticator(secret string) *Authenticator {
	a := &Authenticator{}
	if secret != "" {
		a.secret = []byte(secret)
	}
	return a
}

// Authenticate returns the caller of r. A request without credentials is a guest (nil, nil).
func (a *Authenticator) Authenticate(r *http.Request) (*models.User, error) {
	if a.secret == nil {
		return userFromHeaders(r)
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, nil
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, fmt.Errorf("invalid Authorization header format (expected 'Bearer <token>')")
	}
	claims, err := a.parse(parts[1])
	if err != nil {
		return nil, err
	}
	return &models.User{ID: claims.Subject, Name: claims.Name, Email: claims.Email, Role: claims.Role}, nil
}

func (a *Authenticator) parse(tokenStr string) (*UserClaims, error) {
	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token subject is required")
	}
	if !models.IsValidRole(claims.Role) {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidRole, claims.Role)
	}
	return claims, nil
}

// IssueToken signs claims with the configured secret. Used by tests and local tooling.
func (a *Authenticator) IssueToken(claims UserClaims) (string, error) {
	if a.secret == nil {
		return "", fmt.Errorf("no JWT secret configured")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func userFromHeaders(r *http.Request) (*models.User, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderUserID))
	role := models.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))))
	if !models.IsValidRole(role) {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidRole, role)
	}
	if id == "" && role == models.RoleUnknown {
		return nil, nil
	}
	return &models.User{
		ID:    id,
		Name:  strings.TrimSpace(r.Header.Get(HeaderUserName)),
		Email: strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
		Role:  role,
	}, nil
}

// Middleware resolves the caller and stores it in the request context.
// Invalid credentials are rejected; missing credentials continue as a guest.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := a.Authenticate(r)
		if err != nil {
			slog.Warn("Authenticator.Middleware: rejected credentials", "path", r.URL.Path, "error", err)
			writeJSONResponse(w, http.StatusUnauthorized, models.Error("Invalid or expired credentials"))
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u)))
	})
}
