// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"github.com/nOir-79/pathfinder-api/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      entity.Role
}

// AuthenticateInput defines the data required for a user to log in.
type AuthenticateInput struct {
	Email    string
	Password string
}

// --- Output DTOs ---

// UserSummary is the user projection returned alongside issued tokens.
type UserSummary struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Role      entity.Role
}

// AuthOutput returns the issued token pair after registration or login.
type AuthOutput struct {
	AccessToken  string
	RefreshToken string
	User         *UserSummary
}

// RefreshOutput returns the reissued access token. The refresh token is
// echoed back unchanged.
type RefreshOutput struct {
	AccessToken  string
	RefreshToken string
}

// AuthUsecase defines the interface for authentication business operations.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	Register(ctx context.Context, input RegisterInput) (*AuthOutput, error)
	Authenticate(ctx context.Context, input AuthenticateInput) (*AuthOutput, error)
	Refresh(ctx context.Context, refreshToken string) (*RefreshOutput, error)
	SweepExpiredTokens(ctx context.Context) (int, error)
}
