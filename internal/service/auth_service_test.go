package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freelance-market/internal/model"
	"freelance-market/pkg/apierror"
)

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user without exposing the hash", func(t *testing.T) {
		env := newTestEnv(t)

		user, err := env.auth.Register(ctx, "Bea", " B@X.com ", "secret123", "buyer")
		require.NoError(t, err)
		assert.Equal(t, "b@x.com", user.Email)
		assert.Equal(t, model.RoleBuyer, user.Role)

		stored, err := env.store.Users().FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.NotEqual(t, "secret123", stored.PasswordHash)
		assert.Nil(t, stored.RefreshToken)
	})

	t.Run("rejects duplicate email regardless of case", func(t *testing.T) {
		env := newTestEnv(t)
		env.register(t, "Bea", "b@x.com", model.RoleBuyer)

		_, err := env.auth.Register(ctx, "Other", "B@x.COM", "secret123", "SELLER")
		requireCode(t, err, apierror.CodeConflict)
		assert.ErrorIs(t, err, model.ErrEmailTaken)
	})

	t.Run("rejects missing fields and unknown roles", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.auth.Register(ctx, "", "b@x.com", "secret123", "BUYER")
		requireCode(t, err, apierror.CodeValidation)

		_, err = env.auth.Register(ctx, "Bea", "b@x.com", "secret123", "ADMIN")
		requireCode(t, err, apierror.CodeValidation)
	})
}

func TestAuthService_LoginAndVerify(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.register(t, "Bea", "b@x.com", model.RoleBuyer)

	pair, err := env.auth.Login(ctx, "b@x.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(time.Hour.Seconds()), pair.ExpiresIn)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	stored, err := env.store.Users().FindByID(ctx, buyer.UserID)
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, pair.RefreshToken, *stored.RefreshToken)

	claims, err := env.auth.ValidateToken(pair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, buyer.UserID, claims.UserID)
	assert.Equal(t, "b@x.com", claims.Email)
	assert.Equal(t, model.RoleBuyer, claims.Role)
	assert.NotEmpty(t, claims.TokenID)

	_, err = env.auth.ValidateToken(pair.RefreshToken, TokenTypeAccess)
	requireCode(t, err, apierror.CodeUnauthorized)

	_, err = env.auth.ValidateToken("not-a-jwt", TokenTypeAccess)
	requireCode(t, err, apierror.CodeUnauthorized)

	_, err = env.auth.Login(ctx, "b@x.com", "wrong")
	requireCode(t, err, apierror.CodeUnauthorized)

	_, err = env.auth.Login(ctx, "nobody@x.com", "secret123")
	requireCode(t, err, apierror.CodeUnauthorized)
}

func TestAuthService_ValidateTokenRejectsExpired(t *testing.T) {
	env := newTestEnv(t)

	token, err := signToken(env.auth.accessSecret, jwt.MapClaims{
		"id":   "user-1",
		"role": "BUYER",
		"typ":  TokenTypeAccess,
		"exp":  time.Now().Add(-time.Minute).Unix(),
	})
	require.NoError(t, err)

	_, err = env.auth.ValidateToken(token, TokenTypeAccess)
	requireCode(t, err, apierror.CodeUnauthorized)
}

func TestAuthService_RefreshRotation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "Bea", "b@x.com", model.RoleBuyer)

	first, err := env.auth.Login(ctx, "b@x.com", "secret123")
	require.NoError(t, err)

	second, err := env.auth.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = env.auth.Refresh(ctx, first.RefreshToken)
	requireCode(t, err, apierror.CodeForbidden)
	assert.ErrorIs(t, err, model.ErrTokenMismatch)

	_, err = env.auth.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestAuthService_RefreshFailureStatuses(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "Bea", "b@x.com", model.RoleBuyer)

	pair, err := env.auth.Login(ctx, "b@x.com", "secret123")
	require.NoError(t, err)

	var apiErr *apierror.APIError

	_, err = env.auth.Refresh(ctx, "")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatus)

	_, err = env.auth.Refresh(ctx, pair.AccessToken)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.HTTPStatus)

	_, err = env.auth.Refresh(ctx, "garbage")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.HTTPStatus)
}

func TestAuthService_LoginReplacesPreviousSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "Bea", "b@x.com", model.RoleBuyer)

	first, err := env.auth.Login(ctx, "b@x.com", "secret123")
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, "b@x.com", "secret123")
	require.NoError(t, err)

	_, err = env.auth.Refresh(ctx, first.RefreshToken)
	requireCode(t, err, apierror.CodeForbidden)
}

func TestAuthService_ConcurrentRefreshOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.register(t, "Bea", "b@x.com", model.RoleBuyer)

	pair, err := env.auth.Login(ctx, "b@x.com", "secret123")
	require.NoError(t, err)

	const callers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.auth.Refresh(ctx, pair.RefreshToken); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	buyer := env.register(t, "Bea", "b@x.com", model.RoleBuyer)

	assert.NotPanics(t, func() { env.auth.Logout(ctx, "") })
	assert.NotPanics(t, func() { env.auth.Logout(ctx, "garbage") })

	pair, err := env.auth.Login(ctx, "b@x.com", "secret123")
	require.NoError(t, err)

	env.auth.Logout(ctx, pair.RefreshToken)

	stored, err := env.store.Users().FindByID(ctx, buyer.UserID)
	require.NoError(t, err)
	assert.Nil(t, stored.RefreshToken)

	_, err = env.auth.Refresh(ctx, pair.RefreshToken)
	requireCode(t, err, apierror.CodeForbidden)
}

func TestAuthService_GetUserByID(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seller := env.register(t, "Sam", "s@x.com", model.RoleSeller)

	user, err := env.auth.GetUserByID(ctx, seller.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Sam", user.Name)

	_, err = env.auth.GetUserByID(ctx, "missing")
	requireCode(t, err, apierror.CodeNotFound)
}
