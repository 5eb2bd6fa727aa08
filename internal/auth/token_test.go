package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shop_service/internal/models"
	"shop_service/internal/storage"
)

func newTestManager(t *testing.T, ttl time.Duration) (*TokenManager, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewTokenManager("test-key", ttl, storage.NewRedisBlacklist(rdb)), mr
}

func testUser() models.User {
	return models.User{
		ID:    primitive.NewObjectID(),
		Email: "a@x.com",
		Role:  models.RoleUser,
	}
}

func TestIssueAndValidate(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)
	user := testUser()

	token, err := m.Issue(user)
	require.NoError(t, err)

	claims, err := m.Validate(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestValidateGarbageToken(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)

	_, err := m.Validate(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestValidateWrongKey(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)

	foreign := NewTokenManager("different-key", time.Hour, nil)
	foreignToken, err := foreign.Issue(testUser())
	require.NoError(t, err)

	_, err = m.Validate(context.Background(), foreignToken)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestRevokedTokenRejected(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)

	token, err := m.Issue(testUser())
	require.NoError(t, err)

	ctx := context.Background()

	_, err = m.Validate(ctx, token)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, token))

	// still within its signature lifetime, rejected anyway
	_, err = m.Validate(ctx, token)
	assert.ErrorIs(t, err, models.ErrTokenRevoked)
}

func TestRevokeIdempotent(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)

	token, err := m.Issue(testUser())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Revoke(ctx, token))
	require.NoError(t, m.Revoke(ctx, token))

	_, err = m.Validate(ctx, token)
	assert.ErrorIs(t, err, models.ErrTokenRevoked)
}

func TestBlacklistEntryExpiresWithToken(t *testing.T) {
	m, mr := newTestManager(t, 2*time.Hour)

	token, err := m.Issue(testUser())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Revoke(ctx, token))

	ttl := mr.TTL("revoked:" + TokenHash(token))
	assert.Greater(t, ttl, time.Hour)
	assert.LessOrEqual(t, ttl, 2*time.Hour)
}

func TestTokenHashIsNotPlaintext(t *testing.T) {
	hash := TokenHash("raw-token")

	assert.NotEqual(t, "raw-token", hash)
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, TokenHash("raw-token"))
}
