package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nOir-79/pathfinder-api/internal/delivery/http/validator"
	"github.com/nOir-79/pathfinder-api/internal/domain/entity"
	"github.com/nOir-79/pathfinder-api/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAuthUsecase records calls and returns canned outputs.
type stubAuthUsecase struct {
	registerOut *usecase.AuthOutput
	authOut     *usecase.AuthOutput
	refreshOut  *usecase.RefreshOutput
	refreshErr  error

	gotRefreshToken string
}

func (s *stubAuthUsecase) Register(_ context.Context, _ usecase.RegisterInput) (*usecase.AuthOutput, error) {
	return s.registerOut, nil
}

func (s *stubAuthUsecase) Authenticate(_ context.Context, _ usecase.AuthenticateInput) (*usecase.AuthOutput, error) {
	return s.authOut, nil
}

func (s *stubAuthUsecase) Refresh(_ context.Context, refreshToken string) (*usecase.RefreshOutput, error) {
	s.gotRefreshToken = refreshToken
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}

	return s.refreshOut, nil
}

func (s *stubAuthUsecase) SweepExpiredTokens(_ context.Context) (int, error) {
	return 0, nil
}

// stubCodec only needs to size the refresh cookie in handler tests.
type stubCodec struct{}

func (stubCodec) Issue(_ *entity.User, _ entity.TokenKind) (string, error) { return "", nil }
func (stubCodec) ExtractIdentity(_ string) (uuid.UUID, error)              { return uuid.Nil, errors.New("not implemented") }
func (stubCodec) IsExpired(_ string) bool                                  { return true }
func (stubCodec) IsValid(_ string, _ *entity.User) bool                    { return false }
func (stubCodec) RefreshTokenDuration() time.Duration                      { return 24 * time.Hour }

func newTestHandler(uc usecase.AuthUsecase) *AuthHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewAuthHandler(uc, stubCodec{}, logger)
}

func newEchoContext(t *testing.T, req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	e.Validator = validator.New()
	rec := httptest.NewRecorder()

	return e.NewContext(req, rec), rec
}

func sampleAuthOutput() *usecase.AuthOutput {
	return &usecase.AuthOutput{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		User: &usecase.UserSummary{
			ID:        uuid.New(),
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Role:      entity.RoleBuyer,
		},
	}
}

func TestAuthHandler_Refresh_MissingCookie(t *testing.T) {
	handler := newTestHandler(&stubAuthUsecase{})

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	c, rec := newEchoContext(t, req)

	err := handler.Refresh(c)

	// A missing cookie yields a bare 403 with an empty body.
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestAuthHandler_Refresh_Success(t *testing.T) {
	uc := &stubAuthUsecase{
		refreshOut: &usecase.RefreshOutput{AccessToken: "new-access", RefreshToken: "stored-refresh"},
	}
	handler := newTestHandler(uc)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "stored-refresh"})
	c, rec := newEchoContext(t, req)

	err := handler.Refresh(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stored-refresh", uc.gotRefreshToken)
	assert.Contains(t, rec.Body.String(), "new-access")

	// No rotation: the handler must not overwrite the cookie.
	assert.Empty(t, rec.Result().Cookies())
}

func TestAuthHandler_Login_SetsRefreshCookie(t *testing.T) {
	uc := &stubAuthUsecase{authOut: sampleAuthOutput()}
	handler := newTestHandler(uc)

	body := `{"email":"ada@example.com","password":"long-enough-password"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, rec := newEchoContext(t, req)

	err := handler.Login(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "refresh_token", cookies[0].Name)
	assert.Equal(t, "refresh-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, int((24 * time.Hour).Seconds()), cookies[0].MaxAge)

	// The body carries both tokens alongside the cookie.
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Contains(t, rec.Body.String(), "refresh-token")
	assert.Contains(t, rec.Body.String(), "access-token")
}

func TestAuthHandler_Register_Success(t *testing.T) {
	uc := &stubAuthUsecase{registerOut: sampleAuthOutput()}
	handler := newTestHandler(uc)

	body := `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","password":"long-enough-password","role":"buyer"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, rec := newEchoContext(t, req)

	err := handler.Register(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "access-token")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "refresh_token", cookies[0].Name)
}

func TestAuthHandler_Register_RejectsUnknownRole(t *testing.T) {
	handler := newTestHandler(&stubAuthUsecase{})

	body := `{"firstName":"Ada","email":"ada@example.com","password":"long-enough-password","role":"overlord"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, _ := newEchoContext(t, req)

	err := handler.Register(c)

	require.Error(t, err)

	var httpErr *echo.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}
