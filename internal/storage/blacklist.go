package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:"

// RedisBlacklist keeps revoked token hashes in redis. Entries carry a
// TTL matching the token's remaining lifetime, so the set never grows
// past the number of live tokens.
type RedisBlacklist struct {
	rdb *redis.Client
}

func NewRedisBlacklist(rdb *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{rdb: rdb}
}

func (b *RedisBlacklist) Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error {
	const op = "storage.RedisBlacklist.Revoke"

	if err := b.rdb.Set(ctx, revokedKeyPrefix+tokenHash, 1, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	const op = "storage.RedisBlacklist.IsRevoked"

	n, err := b.rdb.Exists(ctx, revokedKeyPrefix+tokenHash).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}
