// Package service defines interfaces for core, stateless domain logic.
// These services encapsulate business rules that don't naturally fit within a single entity.
package service

import (
	"time"

	"github.com/nOir-79/pathfinder-api/internal/domain/entity"

	"github.com/google/uuid"
)

// TokenCodec mints and verifies self-contained signed token strings without
// touching storage. It is purely functional over its secret and the clock;
// the only difference between kinds at this level is the lifetime.
type TokenCodec interface {
	// Issue creates a signed token string carrying the user's identity and an
	// expiry derived from the kind's configured lifetime.
	Issue(user *entity.User, kind entity.TokenKind) (string, error)

	// ExtractIdentity verifies the signature and structure of the token and
	// returns the embedded user identity. It does not reject on expiry.
	ExtractIdentity(tokenString string) (uuid.UUID, error)

	// IsExpired reports whether the token's expiry has passed. It fails
	// closed: malformed or unparsable tokens count as expired.
	IsExpired(tokenString string) bool

	// IsValid reports whether the token belongs to the given user and has not
	// expired.
	IsValid(tokenString string, user *entity.User) bool

	// RefreshTokenDuration returns the configured lifetime for refresh tokens,
	// used by the delivery layer to size the refresh cookie.
	RefreshTokenDuration() time.Duration
}
