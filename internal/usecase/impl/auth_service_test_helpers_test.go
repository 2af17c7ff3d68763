package impl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nOir-79/pathfinder-api/internal/domain/entity"
	domainerrors "github.com/nOir-79/pathfinder-api/internal/domain/errors"
	"github.com/nOir-79/pathfinder-api/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- in-memory user repository ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*entity.User)}
}

func (r *memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *user

	return &clone, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Email == email {
			clone := *user

			return &clone, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *memUserRepo) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return domainerrors.ErrEmailTaken.WrapMessage("email already exists")
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	clone := *user
	r.users[user.ID] = &clone

	return nil
}

// --- in-memory token repository ---

type memTokenRepo struct {
	mu         sync.Mutex
	tokens     map[uuid.UUID]*entity.Token
	failCreate bool
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[uuid.UUID]*entity.Token)}
}

func (r *memTokenRepo) CreateToken(_ context.Context, token *entity.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCreate {
		return domainerrors.NewDatabaseExecuteError(errors.New("insert failed"), "failed to create token")
	}

	for _, existing := range r.tokens {
		if existing.Token == token.Token {
			return repository.ErrDuplicateToken
		}
	}

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()

	clone := *token
	r.tokens[token.ID] = &clone

	return nil
}

func (r *memTokenRepo) FindAllTokens(_ context.Context) ([]*entity.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*entity.Token, 0, len(r.tokens))
	for _, token := range r.tokens {
		clone := *token
		all = append(all, &clone)
	}

	return all, nil
}

func (r *memTokenRepo) FindValidAccessTokensByUserID(_ context.Context, userID uuid.UUID) ([]*entity.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*entity.Token
	for _, token := range r.tokens {
		if token.UserID == userID && token.Kind == entity.TokenKindAccess && !token.Revoked {
			clone := *token
			matched = append(matched, &clone)
		}
	}

	return matched, nil
}

func (r *memTokenRepo) SaveTokens(_ context.Context, tokens []*entity.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range tokens {
		clone := *token
		r.tokens[token.ID] = &clone
	}

	return nil
}

func (r *memTokenRepo) DeleteToken(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[id]; !ok {
		return repository.ErrTokenNotFound
	}
	delete(r.tokens, id)

	return nil
}

func (r *memTokenRepo) DeleteTokensByUserID(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, token := range r.tokens {
		if token.UserID == userID {
			delete(r.tokens, id)
		}
	}

	return nil
}

// findByTokenString returns the stored record for a token string, if any.
func (r *memTokenRepo) findByTokenString(tokenString string) *entity.Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, token := range r.tokens {
		if token.Token == tokenString {
			clone := *token

			return &clone
		}
	}

	return nil
}

func (r *memTokenRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.tokens)
}

// --- transaction manager stub ---

type stubFactory struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
}

func (f *stubFactory) UserRepo() repository.UserRepository   { return f.userRepo }
func (f *stubFactory) TokenRepo() repository.TokenRepository { return f.tokenRepo }

type stubTxManager struct {
	factory *stubFactory
}

func (m *stubTxManager) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	return fn(m.factory)
}

// --- deterministic token codec ---

// fakeCodec issues tokens of the form "KIND|userID|seq" and tracks expiry in
// a set, so tests can expire tokens at will.
type fakeCodec struct {
	mu      sync.Mutex
	seq     int
	expired map[string]bool
}

func newFakeCodec() *fakeCodec {
	return &fakeCodec{expired: make(map[string]bool)}
}

func (c *fakeCodec) Issue(user *entity.User, kind entity.TokenKind) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++

	return fmt.Sprintf("%s|%s|%d", kind, user.ID, c.seq), nil
}

func (c *fakeCodec) ExtractIdentity(tokenString string) (uuid.UUID, error) {
	parts := strings.Split(tokenString, "|")
	if len(parts) != 3 {
		return uuid.Nil, errors.New("malformed token")
	}

	userID, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "bad token subject")
	}

	return userID, nil
}

func (c *fakeCodec) IsExpired(tokenString string) bool {
	if _, err := c.ExtractIdentity(tokenString); err != nil {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.expired[tokenString]
}

func (c *fakeCodec) IsValid(tokenString string, user *entity.User) bool {
	userID, err := c.ExtractIdentity(tokenString)
	if err != nil {
		return false
	}

	return userID == user.ID && !c.IsExpired(tokenString)
}

func (c *fakeCodec) RefreshTokenDuration() time.Duration {
	return 7 * 24 * time.Hour
}

func (c *fakeCodec) expire(tokenString string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expired[tokenString] = true
}

// --- fixture ---

type authFixture struct {
	service   *authService
	userRepo  *memUserRepo
	tokenRepo *memTokenRepo
	codec     *fakeCodec
}

func newAuthFixture() *authFixture {
	userRepo := newMemUserRepo()
	tokenRepo := newMemTokenRepo()
	codec := newFakeCodec()
	txManager := &stubTxManager{factory: &stubFactory{userRepo: userRepo, tokenRepo: tokenRepo}}

	service := &authService{
		txManager: txManager,
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		hasher:    &plainHasher{},
		codec:     codec,
		logger:    newDiscardLogger(),
	}

	return &authFixture{
		service:   service,
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		codec:     codec,
	}
}

// plainHasher avoids bcrypt cost in tests while keeping real check semantics.
type plainHasher struct{}

func (h *plainHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (h *plainHasher) Check(password, hash string) bool {
	return hash == "hashed:"+password
}
