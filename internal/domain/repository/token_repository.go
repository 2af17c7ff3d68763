package repository

import (
	"context"

	"github.com/nOir-79/pathfinder-api/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for token persistence.
var (
	// ErrTokenNotFound is returned when a token record is not found.
	ErrTokenNotFound = errors.New("token not found")
	// ErrDuplicateToken is returned when the token string collides with an existing record.
	ErrDuplicateToken = errors.New("token already exists")
)

// TokenRepository defines the interface for issued-token bookkeeping.
// Expiry is not a column; it lives inside the signed token string, so the
// sweep reads every record and lets the codec decide.
type TokenRepository interface {
	// CreateToken persists a newly minted token record.
	CreateToken(ctx context.Context, token *entity.Token) error

	// FindAllTokens retrieves every persisted token record, for the expiry sweep.
	FindAllTokens(ctx context.Context) ([]*entity.Token, error)

	// FindValidAccessTokensByUserID retrieves all non-revoked ACCESS tokens for a user.
	FindValidAccessTokensByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Token, error)

	// SaveTokens persists updates to the given records in bulk, used for revocation.
	SaveTokens(ctx context.Context, tokens []*entity.Token) error

	// DeleteToken removes a single token record by its ID.
	DeleteToken(ctx context.Context, id uuid.UUID) error

	// DeleteTokensByUserID removes all token records for a user.
	DeleteTokensByUserID(ctx context.Context, userID uuid.UUID) error
}
