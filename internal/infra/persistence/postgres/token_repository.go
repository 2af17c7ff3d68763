package postgres

import (
	"context"

	"github.com/nOir-79/pathfinder-api/internal/domain/entity"
	domainerrors "github.com/nOir-79/pathfinder-api/internal/domain/errors"
	"github.com/nOir-79/pathfinder-api/internal/domain/repository"
	"github.com/nOir-79/pathfinder-api/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// tokenRepository implements the domain.TokenRepository interface using GORM.
type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository is the constructor for tokenRepository.
func NewTokenRepository(db *gorm.DB) repository.TokenRepository {
	return &tokenRepository{db: db}
}

// CreateToken persists a newly minted token record.
func (repo *tokenRepository) CreateToken(ctx context.Context, token *entity.Token) error {
	tokenM := fromTokenDomain(token)

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrDuplicateToken
		}
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.NewDatabaseExecuteError(err, "token references a missing user")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create token")
	}

	token.ID = tokenM.ID
	token.CreatedAt = tokenM.CreatedAt

	return nil
}

// FindAllTokens retrieves every persisted token record for the expiry sweep.
func (repo *tokenRepository) FindAllTokens(ctx context.Context) ([]*entity.Token, error) {
	var tokenModels []*model.TokenModel
	if err := repo.db.WithContext(ctx).Find(&tokenModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list tokens")
	}

	tokens := make([]*entity.Token, 0, len(tokenModels))
	for _, tokenM := range tokenModels {
		tokens = append(tokens, toTokenDomain(tokenM))
	}

	return tokens, nil
}

// FindValidAccessTokensByUserID retrieves all non-revoked ACCESS tokens for a user.
func (repo *tokenRepository) FindValidAccessTokensByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Token, error) {
	var tokenModels []*model.TokenModel
	if err := repo.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND revoked = ?", userID, string(entity.TokenKindAccess), false).
		Find(&tokenModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list valid access tokens")
	}

	tokens := make([]*entity.Token, 0, len(tokenModels))
	for _, tokenM := range tokenModels {
		tokens = append(tokens, toTokenDomain(tokenM))
	}

	return tokens, nil
}

// SaveTokens persists updates to the given records in bulk, used for revocation.
func (repo *tokenRepository) SaveTokens(ctx context.Context, tokens []*entity.Token) error {
	if len(tokens) == 0 {
		return nil
	}

	tokenModels := make([]*model.TokenModel, 0, len(tokens))
	for _, token := range tokens {
		tokenModels = append(tokenModels, fromTokenDomain(token))
	}

	if err := repo.db.WithContext(ctx).Save(tokenModels).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to save tokens")
	}

	return nil
}

// DeleteToken removes a single token record by its ID.
func (repo *tokenRepository) DeleteToken(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.TokenModel{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete token")
	}

	// If no rows were affected, the token was already gone.
	if result.RowsAffected == 0 {
		return repository.ErrTokenNotFound
	}

	return nil
}

// DeleteTokensByUserID removes all token records for a user.
func (repo *tokenRepository) DeleteTokensByUserID(ctx context.Context, userID uuid.UUID) error {
	if err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.TokenModel{}).Error; err != nil {
		return errors.Wrap(err, "failed to delete tokens by user id")
	}

	return nil
}

// --- Mapper Functions ---

// toTokenDomain converts a GORM TokenModel to a domain Token entity.
func toTokenDomain(data *model.TokenModel) *entity.Token {
	if data == nil {
		return nil
	}

	return &entity.Token{
		ID:        data.ID,
		UserID:    data.UserID,
		Token:     data.Token,
		Kind:      entity.TokenKind(data.Kind),
		Revoked:   data.Revoked,
		CreatedAt: data.CreatedAt,
	}
}

// fromTokenDomain converts a domain Token entity to a GORM TokenModel.
func fromTokenDomain(data *entity.Token) *model.TokenModel {
	if data == nil {
		return nil
	}

	return &model.TokenModel{
		ID:        data.ID,
		UserID:    data.UserID,
		Token:     data.Token,
		Kind:      string(data.Kind),
		Revoked:   data.Revoked,
		CreatedAt: data.CreatedAt,
	}
}
