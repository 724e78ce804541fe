package sessionstore

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/markdave123-py/researchhub/internal/core"
)

// MemoryDenylist keeps revoked token ids in process until they expire.
type MemoryDenylist struct {
	cache *cache.Cache
}

var _ core.TokenDenylist = (*MemoryDenylist)(nil)

func NewMemoryDenylist() *MemoryDenylist {
	// entries carry their own expiry; purge expired ones every 10 minutes
	return &MemoryDenylist{cache: cache.New(24*time.Hour, 10*time.Minute)}
}

func (d *MemoryDenylist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	d.cache.Set(jti, struct{}{}, ttl)
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, found := d.cache.Get(jti)
	return found, nil
}

// RedisDenylist shares revocations across API replicas.
type RedisDenylist struct {
	rdb *redis.Client
}

var _ core.TokenDenylist = (*RedisDenylist)(nil)

func NewRedisDenylist(ctx context.Context, redisURL string) (*RedisDenylist, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisDenylist{rdb: rdb}, nil
}

func key(jti string) string { return "researchhub:revoked:" + jti }

func (d *RedisDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return d.rdb.Set(ctx, key(jti), 1, ttl).Err()
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.rdb.Exists(ctx, key(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisDenylist) Close() error {
	return d.rdb.Close()
}
