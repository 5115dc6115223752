package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-desk/internal/domain"
	"github.com/spec-kit/request-desk/internal/mocks"
	apperrors "github.com/spec-kit/request-desk/pkg/util"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)

	token, expiresAt, err := tm.GenerateToken("u-1", domain.RoleLead)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, domain.RoleLead, claims.Role)
}

func TestTokenManager_RejectsExpiredAndForeignTokens(t *testing.T) {
	issuer := NewTokenManager("secret", 1)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _, err := issuer.GenerateToken("u-1", domain.RoleUser)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 1).ParseToken(expired)
	assert.Error(t, err)

	foreign, _, err := NewTokenManager("other", 1).GenerateToken("u-1", domain.RoleUser)
	require.NoError(t, err)
	_, err = NewTokenManager("secret", 1).ParseToken(foreign)
	assert.Error(t, err)
}

// errorStatus mirrors the HTTP error middleware closely enough for status checks.
func errorStatus(c *fiber.Ctx, err error) error {
	return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
}

func newAuthApp(users *mocks.MockUserRepository, guard fiber.Handler) (*fiber.App, *TokenManager) {
	tm := NewTokenManager("secret", 5)
	app := fiber.New(fiber.Config{ErrorHandler: errorStatus})
	mw := NewAuthMiddleware(tm, users)
	app.Get("/me", mw.Handle, guard, func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(actor.UserID + "|" + string(actor.Role) + "|" + string(actor.Area))
	})
	return app, tm
}

func call(t *testing.T, app *fiber.App, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := make([]byte, 256)
	n, _ := resp.Body.Read(buf)
	return resp.StatusCode, string(buf[:n])
}

func TestAuthMiddleware_ResolvesActorFromStoredUser(t *testing.T) {
	users := mocks.NewMockUserRepository()
	users.On("GetByID", mock.Anything, "u-1").Return(&domain.User{ID: "u-1", Role: domain.RoleDirector, Area: domain.AreaAds, Active: true}, nil)
	app, tm := newAuthApp(users, RequireRole())

	// the token claims USER but the stored row wins
	token, _, err := tm.GenerateToken("u-1", domain.RoleUser)
	require.NoError(t, err)

	status, body := call(t, app, "Bearer "+token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "u-1|DIRECTOR|ADS", body)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	users := mocks.NewMockUserRepository()
	users.On("GetByID", mock.Anything, "ghost").Return(nil, pgx.ErrNoRows)
	users.On("GetByID", mock.Anything, "gone").Return(&domain.User{ID: "gone", Role: domain.RoleUser, Active: false}, nil)
	users.On("GetByID", mock.Anything, "u-2").Return(&domain.User{ID: "u-2", Role: domain.RoleUser, Area: domain.AreaDesign, Active: true}, nil)
	app, tm := newAuthApp(users, RequireRole(domain.RoleAdmin, domain.RoleDirector))

	sign := func(id string) string {
		token, _, err := tm.GenerateToken(id, domain.RoleAdmin)
		require.NoError(t, err)
		return "Bearer " + token
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "unknown user", header: sign("ghost"), want: http.StatusUnauthorized},
		{name: "inactive user", header: sign("gone"), want: http.StatusUnauthorized},
		{name: "role not allowed", header: sign("u-2"), want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := call(t, app, tt.header)
			assert.Equal(t, tt.want, status)
		})
	}
}
