package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shop_service/internal/models"
)

// Floor for the blacklist entry lifetime. Covers clock skew between the
// issuing process and redis for tokens revoked just before expiry.
const minRevokeTTL = time.Minute

type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// RevocationStore is the denylist of token hashes. A present hash means
// the token is rejected no matter what its signature says.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}

type TokenManager struct {
	key     []byte
	ttl     time.Duration
	revoked RevocationStore
}

func NewTokenManager(jwtKey string, ttl time.Duration, revoked RevocationStore) *TokenManager {
	return &TokenManager{
		key:     []byte(jwtKey),
		ttl:     ttl,
		revoked: revoked,
	}
}

// TokenHash is the blacklist key for a raw token. The plaintext token
// never reaches the store.
func TokenHash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (m *TokenManager) Issue(user models.User) (string, error) {
	const op = "auth.Issue"

	now := time.Now()
	claims := &Claims{
		UserID: user.ID.Hex(),
		Role:   user.Role,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Validate checks the blacklist before the signature: a revoked token is
// rejected even while its signature and expiry are still valid.
func (m *TokenManager) Validate(ctx context.Context, raw string) (*Claims, error) {
	const op = "auth.Validate"

	revoked, err := m.revoked.IsRevoked(ctx, TokenHash(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if revoked {
		return nil, models.ErrTokenRevoked
	}

	claims, err := m.parse(raw)
	if err != nil {
		return nil, models.ErrTokenInvalid
	}

	return claims, nil
}

// Revoke blacklists the token's hash. The entry lives only as long as
// the token itself would; after that signature expiry rejects it anyway.
// Re-revoking overwrites the same key, so the call is idempotent.
func (m *TokenManager) Revoke(ctx context.Context, raw string) error {
	const op = "auth.Revoke"

	ttl := minRevokeTTL
	if claims, err := m.parse(raw); err == nil && claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > ttl {
			ttl = remaining
		}
	}

	if err := m.revoked.Revoke(ctx, TokenHash(raw), ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (m *TokenManager) parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.key, nil
	})
	if err != nil || !token.Valid {
		return nil, models.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, models.ErrTokenInvalid
	}

	return claims, nil
}
