// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"

	deliverycontext "github.com/nOir-79/pathfinder-api/internal/delivery/context"
	"github.com/nOir-79/pathfinder-api/internal/domain/entity"
	domainerrors "github.com/nOir-79/pathfinder-api/internal/domain/errors"
	"github.com/nOir-79/pathfinder-api/internal/domain/repository"
	"github.com/nOir-79/pathfinder-api/internal/domain/service"
	"github.com/nOir-79/pathfinder-api/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const minPasswordLength = 8

// authService implements the AuthUsecase interface.
type authService struct {
	txManager repository.TransactionManager
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
	hasher    service.PasswordHasher
	codec     service.TokenCodec
	logger    *slog.Logger
}

// AuthServiceParams holds dependencies for authService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	UserRepo  repository.UserRepository
	TokenRepo repository.TokenRepository
	Hasher    service.PasswordHasher
	Codec     service.TokenCodec
	Logger    *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		txManager: params.TxManager,
		userRepo:  params.UserRepo,
		tokenRepo: params.TokenRepo,
		hasher:    params.Hasher,
		codec:     params.Codec,
		logger:    params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register orchestrates the complete account registration process.
func (srv *authService) Register(ctx context.Context, input usecase.RegisterInput) (*usecase.AuthOutput, error) {
	srv.log(ctx).Info("Starting registration", slog.String("email", input.Email), slog.Any("role", input.Role))

	if len(input.Password) < minPasswordLength {
		srv.log(ctx).Warn("Password validation failed during registration", slog.String("email", input.Email))

		return nil, domainerrors.ErrWeakPassword.WrapMessage("password does not meet length requirements")
	}

	// Hash outside the transaction (bcrypt is CPU-bound).
	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during registration", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to hash password during registration")
	}

	newUser := &entity.User{
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: hashedPassword,
		Role:         input.Role,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		_, findErr := userRepo.FindByEmail(ctx, input.Email)
		if findErr == nil {
			return domainerrors.ErrEmailTaken.WrapMessage("email already registered")
		}
		if !errors.Is(findErr, repository.ErrUserNotFound) {
			return errors.Wrap(findErr, "failed to check email availability")
		}

		// The unique constraint on email still backstops concurrent
		// registrations; the repository maps that violation to the same error.
		return userRepo.Create(ctx, newUser)
	})
	if err != nil {
		srv.log(ctx).Warn("Registration failed", slog.String("email", input.Email), slog.Any("error", err))

		return nil, err
	}

	accessToken, refreshToken, err := srv.mintTokenPair(ctx, newUser)
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Debug("Registration completed", slog.Any("userID", newUser.ID))

	return &usecase.AuthOutput{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toUserSummary(newUser),
	}, nil
}

// Authenticate orchestrates the login process: sweep stale tokens, verify
// credentials, revoke the user's outstanding access tokens, and issue a fresh pair.
func (srv *authService) Authenticate(ctx context.Context, input usecase.AuthenticateInput) (*usecase.AuthOutput, error) {
	srv.log(ctx).Debug("Starting login", slog.String("email", input.Email))

	if input.Email == "" || input.Password == "" {
		return nil, domainerrors.ErrMissingCredentials.WrapMessage("login rejected")
	}

	// Housekeeping first, so validation below sees only live records. A sweep
	// failure must not block login.
	if _, err := srv.SweepExpiredTokens(ctx); err != nil {
		srv.log(ctx).Warn("Expired token sweep failed during login", slog.Any("error", err))
	}

	user, err := srv.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.log(ctx).Warn("Login failed", slog.String("email", input.Email), slog.Any("error", err))

			return nil, domainerrors.ErrUserNotFound.WrapMessage("login failed")
		}

		return nil, errors.Wrap(err, "failed to load user during login")
	}

	// Check password outside the transaction (bcrypt is CPU-bound).
	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		srv.log(ctx).Warn("Login failed", slog.String("email", input.Email), slog.Any("error", domainerrors.ErrInvalidCredentials))

		return nil, domainerrors.ErrInvalidCredentials.WrapMessage("login failed")
	}

	accessToken, err := srv.codec.Issue(user, entity.TokenKindAccess)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token")
	}
	refreshToken, err := srv.codec.Issue(user, entity.TokenKindRefresh)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue refresh token")
	}

	// Revocation and reissue happen atomically so two concurrent logins cannot
	// both leave their predecessor's access tokens live.
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		tokenRepo := repoFactory.TokenRepo()

		if err := revokeActiveAccessTokens(ctx, tokenRepo, user); err != nil {
			return err
		}

		srv.persistToken(ctx, tokenRepo, user, accessToken, entity.TokenKindAccess)
		srv.persistToken(ctx, tokenRepo, user, refreshToken, entity.TokenKindRefresh)

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to execute login token transaction", slog.Any("userID", user.ID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute login token transaction")
	}

	srv.log(ctx).Debug("User logged in successfully", slog.Any("userID", user.ID))

	return &usecase.AuthOutput{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toUserSummary(user),
	}, nil
}

// Refresh issues a new access token from a presented refresh token.
// The refresh token itself remains unchanged; it is not rotated.
func (srv *authService) Refresh(ctx context.Context, refreshToken string) (*usecase.RefreshOutput, error) {
	srv.log(ctx).Info("Attempting to refresh access token")

	// Identity is extracted before validity so a token for a deleted account
	// reports the missing user rather than a generic token failure.
	userID, err := srv.codec.ExtractIdentity(refreshToken)
	if err != nil {
		return nil, domainerrors.ErrInvalidToken.WrapMessage("refresh token rejected")
	}

	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrUserNotFound.WrapMessage("refresh failed")
		}

		return nil, errors.Wrap(err, "failed to load user during refresh")
	}

	if !srv.codec.IsValid(refreshToken, user) {
		srv.log(ctx).Warn("Refresh with invalid token", slog.Any("userID", user.ID))

		return nil, domainerrors.ErrInvalidToken.WrapMessage("refresh token rejected")
	}

	if _, err := srv.SweepExpiredTokens(ctx); err != nil {
		srv.log(ctx).Warn("Expired token sweep failed during refresh", slog.Any("error", err))
	}

	accessToken, err := srv.codec.Issue(user, entity.TokenKindAccess)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue access token during refresh")
	}

	srv.persistToken(ctx, srv.tokenRepo, user, accessToken, entity.TokenKindAccess)

	srv.log(ctx).Debug("Access token refreshed", slog.Any("userID", user.ID))

	return &usecase.RefreshOutput{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// SweepExpiredTokens deletes every stored token whose embedded expiry has
// passed and returns the number of records removed.
func (srv *authService) SweepExpiredTokens(ctx context.Context) (int, error) {
	tokens, err := srv.tokenRepo.FindAllTokens(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list tokens for sweep")
	}

	swept := 0
	for _, token := range tokens {
		if !srv.codec.IsExpired(token.Token) {
			continue
		}

		if err := srv.tokenRepo.DeleteToken(ctx, token.ID); err != nil {
			// A concurrent sweep may have removed it already.
			if errors.Is(err, repository.ErrTokenNotFound) {
				continue
			}

			return swept, errors.Wrap(err, "failed to delete expired token")
		}
		swept++
	}

	if swept > 0 {
		srv.log(ctx).Debug("Swept expired tokens", slog.Int("count", swept))
	}

	return swept, nil
}

// mintTokenPair issues and records an access/refresh pair for the user.
func (srv *authService) mintTokenPair(ctx context.Context, user *entity.User) (string, string, error) {
	accessToken, err := srv.codec.Issue(user, entity.TokenKindAccess)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to issue access token")
	}

	refreshToken, err := srv.codec.Issue(user, entity.TokenKindRefresh)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to issue refresh token")
	}

	srv.persistToken(ctx, srv.tokenRepo, user, accessToken, entity.TokenKindAccess)
	srv.persistToken(ctx, srv.tokenRepo, user, refreshToken, entity.TokenKindRefresh)

	return accessToken, refreshToken, nil
}

// persistToken records an issued token. Bookkeeping failures are logged and
// swallowed: the signed string in the caller's hands is already valid, so
// failing the request over a missing audit row would only hurt the user.
func (srv *authService) persistToken(ctx context.Context, tokenRepo repository.TokenRepository, user *entity.User, tokenString string, kind entity.TokenKind) {
	record := &entity.Token{
		UserID: user.ID,
		Token:  tokenString,
		Kind:   kind,
	}

	if err := tokenRepo.CreateToken(ctx, record); err != nil {
		srv.log(ctx).Error("Failed to persist issued token",
			slog.Any("userID", user.ID),
			slog.String("kind", string(kind)),
			slog.Any("error", err),
		)
	}
}

// revokeActiveAccessTokens marks every non-revoked ACCESS token of the user as revoked.
func revokeActiveAccessTokens(ctx context.Context, tokenRepo repository.TokenRepository, user *entity.User) error {
	activeTokens, err := tokenRepo.FindValidAccessTokensByUserID(ctx, user.ID)
	if err != nil {
		return errors.Wrap(err, "failed to load active access tokens")
	}
	if len(activeTokens) == 0 {
		return nil
	}

	for _, token := range activeTokens {
		token.Revoked = true
	}

	if err := tokenRepo.SaveTokens(ctx, activeTokens); err != nil {
		return errors.Wrap(err, "failed to revoke active access tokens")
	}

	return nil
}

func toUserSummary(user *entity.User) *usecase.UserSummary {
	return &usecase.UserSummary{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      user.Role,
	}
}
