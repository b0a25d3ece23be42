package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/voc-service/internal/config"
	"github.com/spec-kit/voc-service/internal/domain"
	apperrors "github.com/spec-kit/voc-service/pkg/util"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)

	token, expiresAt, err := tm.GenerateToken(42, domain.UserRoleManager)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expiresAt, time.Minute)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, domain.UserRoleManager, claims.Role)
}

func TestTokenManager_RejectsForeignSecretAndExpired(t *testing.T) {
	token, _, err := NewTokenManager("one", 5).GenerateToken(1, domain.UserRoleAdmin)
	require.NoError(t, err)
	_, err = NewTokenManager("two", 5).ParseToken(token)
	assert.Error(t, err)

	expired := NewTokenManager("one", 5)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err = expired.GenerateToken(1, domain.UserRoleAdmin)
	require.NoError(t, err)
	_, err = NewTokenManager("one", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHasher(t *testing.T) {
	hasher := NewPasswordHasher(config.AuthConfig{BcryptCost: 4})

	hash, err := hasher.Hash("correct horse")
	require.NoError(t, err)
	assert.NoError(t, hasher.Verify(hash, "correct horse"))
	assert.ErrorIs(t, hasher.Verify(hash, "battery staple"), ErrPasswordMismatch)
	assert.ErrorIs(t, hasher.Verify("not-a-hash", "correct horse"), ErrPasswordMismatch)

	_, err = hasher.Hash("short")
	assert.Error(t, err)
}

func TestPasswordHasher_Cost(t *testing.T) {
	cases := map[int]int{0: bcrypt.DefaultCost, 1: bcrypt.MinCost, 12: 12, 99: bcrypt.MaxCost}
	for configured, want := range cases {
		assert.Equal(t, want, NewPasswordHasher(config.AuthConfig{BcryptCost: configured}).Cost(), configured)
	}
}

func TestRequireRole(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	withRole := func(role domain.UserRole) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if role != "" {
				WithPrincipal(c, &Principal{User: &domain.User{ID: 1, Role: role}})
			}
			return c.Next()
		}
	}
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) }

	app.Get("/operator", withRole(domain.UserRoleOperator), RequireRole(domain.UserRoleAdmin, domain.UserRoleManager), ok)
	app.Get("/manager", withRole(domain.UserRoleManager), RequireRole(domain.UserRoleAdmin, domain.UserRoleManager), ok)
	app.Get("/anonymous", withRole(""), RequireRole(), ok)
	app.Get("/any", withRole(domain.UserRoleOperator), RequireRole(), ok)

	cases := map[string]int{
		"/operator":  fiber.StatusForbidden,
		"/manager":   fiber.StatusNoContent,
		"/anonymous": fiber.StatusUnauthorized,
		"/any":       fiber.StatusNoContent,
	}
	for path, want := range cases {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, path)
	}
}
