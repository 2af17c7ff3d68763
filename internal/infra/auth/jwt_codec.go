// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"time"

	"github.com/nOir-79/pathfinder-api/config"
	"github.com/nOir-79/pathfinder-api/internal/domain/entity"
	domainerrors "github.com/nOir-79/pathfinder-api/internal/domain/errors"
	"github.com/nOir-79/pathfinder-api/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// tokenClaims carries the identity claim plus the token kind. Access tokens
// additionally embed the role so the middleware can authorize statelessly.
type tokenClaims struct {
	Kind string `json:"typ,omitempty"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// jwtCodec is a concrete implementation of the TokenCodec interface using HS256 JWTs.
// It is stateless: everything it needs is the secret, the configured lifetimes
// and the clock.
type jwtCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTCodec is the constructor for jwtCodec.
func NewJWTCodec(cfg *config.Config) (service.TokenCodec, error) {
	if cfg.SecretKey.Token == "" {
		return nil, errors.New("jwt secret must be provided")
	}

	accessTTL := defaultAccessTTL
	refreshTTL := defaultRefreshTTL
	if cfg.Auth != nil {
		if cfg.Auth.AccessTokenTTL > 0 {
			accessTTL = cfg.Auth.AccessTokenTTL
		}
		if cfg.Auth.RefreshTokenTTL > 0 {
			refreshTTL = cfg.Auth.RefreshTokenTTL
		}
	}

	return &jwtCodec{
		secret:     []byte(cfg.SecretKey.Token),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// Issue creates a signed token string for the given user. The kind selects the
// lifetime; everything else is identical between access and refresh tokens.
func (c *jwtCodec) Issue(user *entity.User, kind entity.TokenKind) (string, error) {
	ttl := c.accessTTL
	if kind == entity.TokenKindRefresh {
		ttl = c.refreshTTL
	}

	now := c.now()
	claims := tokenClaims{
		Kind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if kind == entity.TokenKindAccess {
		claims.Role = user.Role.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}

	return signed, nil
}

// ExtractIdentity verifies signature and structure and returns the embedded
// user id. Expiry is deliberately not checked here; callers that care about
// freshness use IsExpired or IsValid.
func (c *jwtCodec) ExtractIdentity(tokenString string) (uuid.UUID, error) {
	claims, err := c.parse(tokenString)
	if err != nil {
		return uuid.Nil, errors.Wrap(domainerrors.ErrInvalidToken, err.Error())
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, errors.Wrap(domainerrors.ErrInvalidToken, "token subject is not a valid user id")
	}

	return userID, nil
}

// IsExpired fails closed: a token that cannot be parsed, verified, or that
// carries no expiry at all is reported as expired.
func (c *jwtCodec) IsExpired(tokenString string) bool {
	claims, err := c.parse(tokenString)
	if err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}

	return claims.ExpiresAt.Before(c.now())
}

// IsValid reports whether the token belongs to the given user and is still fresh.
func (c *jwtCodec) IsValid(tokenString string, user *entity.User) bool {
	userID, err := c.ExtractIdentity(tokenString)
	if err != nil {
		return false
	}

	return userID == user.ID && !c.IsExpired(tokenString)
}

// RefreshTokenDuration returns the configured lifetime for refresh tokens.
func (c *jwtCodec) RefreshTokenDuration() time.Duration {
	return c.refreshTTL
}

// parse verifies the signature and decodes the claims without validating
// expiry; expiry handling is the callers' concern.
func (c *jwtCodec) parse(tokenString string) (*tokenClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &tokenClaims{}
	if _, err := parser.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return c.secret, nil
	}); err != nil {
		return nil, errors.Wrap(err, "failed to parse token structure")
	}

	return claims, nil
}
