// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/nOir-79/pathfinder-api/internal/delivery/http/response"
	"github.com/nOir-79/pathfinder-api/internal/domain/entity"
	"github.com/nOir-79/pathfinder-api/internal/domain/service"
	"github.com/nOir-79/pathfinder-api/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// refreshCookieName is the cookie carrying the refresh token. The refresh
// endpoint reads this cookie only; it never accepts a body or header token.
const refreshCookieName = "refresh_token"

// AuthHandler holds dependencies for authentication handlers.
type AuthHandler struct {
	uc     usecase.AuthUsecase
	codec  service.TokenCodec
	logger *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(uc usecase.AuthUsecase, codec service.TokenCodec, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		uc:     uc,
		codec:  codec,
		logger: logger,
	}
}

type registerRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Role      string `json:"role" validate:"required,oneof=buyer seller manager admin"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

type authResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Register handles the account registration request.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid registration input")
	}
	if err := c.Validate(&req); err != nil {
		return errors.WithStack(err)
	}

	output, err := h.uc.Register(c.Request().Context(), usecase.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      entity.Role(req.Role),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	h.setRefreshCookie(c, output.RefreshToken)

	return response.Success(c, http.StatusCreated, toAuthResponse(output), "User registered successfully")
}

// Login handles the login request.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}

	output, err := h.uc.Authenticate(c.Request().Context(), usecase.AuthenticateInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	h.setRefreshCookie(c, output.RefreshToken)

	return response.Success(c, http.StatusOK, toAuthResponse(output), "Login successful")
}

// Refresh handles the access-token refresh request. A missing cookie yields a
// bare 403 with no body.
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return c.NoContent(http.StatusForbidden)
	}

	output, err := h.uc.Refresh(c.Request().Context(), cookie.Value)
	if err != nil {
		return errors.WithStack(err)
	}

	// The refresh token is not rotated; the cookie stays as-is and the body
	// echoes the presented token back.
	return response.Success(c, http.StatusOK, refreshResponse{
		AccessToken:  output.AccessToken,
		RefreshToken: output.RefreshToken,
	}, "Token refreshed successfully")
}

// Me returns the authenticated user's identity, as placed on the context by
// the auth middleware.
func (h *AuthHandler) Me(c echo.Context) error {
	userIDVal := c.Get("userID")
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return response.Unauthorized(c, "INVALID_TOKEN", "Invalid user ID in token")
	}

	return response.Success(c, http.StatusOK, map[string]string{"user_id": userID.String()}, "Profile retrieved successfully")
}

// setRefreshCookie stores the refresh token in an HTTP-only cookie scoped to
// the whole API, sized to the refresh token's lifetime.
func (h *AuthHandler) setRefreshCookie(c echo.Context, refreshToken string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   int(h.codec.RefreshTokenDuration().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func toAuthResponse(output *usecase.AuthOutput) authResponse {
	return authResponse{
		AccessToken:  output.AccessToken,
		RefreshToken: output.RefreshToken,
		User: &userResponse{
			ID:        output.User.ID,
			FirstName: output.User.FirstName,
			LastName:  output.User.LastName,
			Email:     output.User.Email,
			Role:      output.User.Role.String(),
		},
	}
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "Service is healthy")
}
