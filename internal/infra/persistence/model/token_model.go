package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenModel mirrors the 'tokens' table. The raw token string is unique; the
// expiry is embedded in the signed string rather than stored as a column.
type TokenModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Token     string    `gorm:"type:text;unique;not null"`
	Kind      string    `gorm:"type:varchar(10);not null"`
	Revoked   bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (TokenModel) TableName() string {
	return "tokens"
}
