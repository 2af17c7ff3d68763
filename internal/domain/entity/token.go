package entity

import (
	"time"

	"github.com/google/uuid"
)

// TokenKind tags an issued token record as short-lived (access) or
// long-lived (refresh). The codec treats both the same apart from lifetime.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "ACCESS"
	TokenKindRefresh TokenKind = "REFRESH"
)

// Token is the audit record of an issued credential. The expiry lives inside
// the signed token string itself, not in a column; the revoked flag is the
// only mutable field and never reverts to false once set.
type Token struct {
	ID        uuid.UUID
	UserID    uuid.UUID // Owning user; deleting the user cascades to its tokens.
	Token     string    // The raw signed token string, unique across all records.
	Kind      TokenKind
	Revoked   bool
	CreatedAt time.Time
}
