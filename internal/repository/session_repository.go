package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const blacklistPrefix = "auth:blacklist:"

// SessionRepository 在 Redis 中维护已注销 token 的黑名单。
type SessionRepository interface {
	// Revoke 将 token 加入黑名单直到其自然过期。ttl <= 0 时不做任何事。
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type sessionRepository struct {
	redisClient redis.Cmdable
}

func NewSessionRepository(redisClient redis.Cmdable) SessionRepository {
	return &sessionRepository{redisClient: redisClient}
}

func (r *sessionRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.redisClient.Set(ctx, blacklistPrefix+tokenID, 1, ttl).Err()
}

func (r *sessionRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.redisClient.Exists(ctx, blacklistPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
