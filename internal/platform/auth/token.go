// Package auth authenticates callers of the result engine. The outer
// gateway owns end-user authentication; this package only verifies the
// HS256 service tokens that internal collaborators (admin console, lab
// confirmation callback) present, and exposes the caller identity to
// handlers.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	CallerIDKey    contextKey = "caller_id"
	CallerRolesKey contextKey = "caller_roles"
)

// Caller roles understood by the engine.
const (
	RoleAdmin      = "admin"
	RoleLabService = "lab_service"
)

type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// ServiceTokenMiddleware verifies a bearer token signed with secret and
// places the caller identity into the request context.
func ServiceTokenMiddleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			tokenStr := strings.TrimPrefix(header, "Bearer ")

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims,
				func(t *jwt.Token) (interface{}, error) { return secret, nil },
				jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, CallerIDKey, claims.Subject)
			ctx = context.WithValue(ctx, CallerRolesKey, claims.Roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// DevAuthMiddleware grants admin access to every request. Development only.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, CallerIDKey, "dev-admin")
			ctx = context.WithValue(ctx, CallerRolesKey, []string{RoleAdmin})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequireRole rejects callers that hold none of the given roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			callerRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range callerRoles {
					if has == required || has == RoleAdmin {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// CallerFromContext returns the authenticated caller's subject.
func CallerFromContext(ctx context.Context) string {
	id, _ := ctx.Value(CallerIDKey).(string)
	return id
}

// RolesFromContext returns the authenticated caller's roles.
func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(CallerRolesKey).([]string)
	return roles
}

// HasRole reports whether the context caller holds role (admins hold all).
func HasRole(ctx context.Context, role string) bool {
	for _, has := range RolesFromContext(ctx) {
		if has == role || has == RoleAdmin {
			return true
		}
	}
	return false
}

// IssueServiceToken mints a short-lived token for an internal collaborator.
// Used by operational tooling and tests.
func IssueServiceToken(secret []byte, subject string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
