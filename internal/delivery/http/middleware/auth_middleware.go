// Package middleware contains Echo middleware for the HTTP delivery.
package middleware

import (
	"net/http"
	"strings"

	"github.com/nOir-79/pathfinder-api/internal/domain/service"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware provides middleware for access-token authentication.
type AuthMiddleware struct {
	codec service.TokenCodec
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(codec service.TokenCodec) *AuthMiddleware {
	return &AuthMiddleware{codec: codec}
}

// Authenticate is the core middleware function that validates the bearer access token.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Authorization header is missing"})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid token format, must be Bearer token"})
		}

		userID, err := m.codec.ExtractIdentity(tokenString)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
		}
		if m.codec.IsExpired(tokenString) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
		}

		// Set user info on the context for handlers to use
		c.Set("userID", userID)

		return next(c)
	}
}
