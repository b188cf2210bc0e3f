package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"svario/internal/security"
	"svario/internal/shopify"

	"github.com/redis/go-redis/v9"
)

const (
	tokenKeyPrefix = "svario:token:"
	stateKeyPrefix = "svario:oauth-state:"
)

// RedisTokenStore keeps encrypted tokens without expiry.
type RedisTokenStore struct {
	rdb    redis.Cmdable
	sealer *security.Sealer
}

func NewRedisTokenStore(rdb redis.Cmdable, sealer *security.Sealer) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb, sealer: sealer}
}

func (s *RedisTokenStore) Put(ctx context.Context, shop string, token shopify.AccessToken) error {
	enc, err := s.sealer.Seal(shop, token.Value())
	if err != nil {
		return fmt.Errorf("encrypt token: %w", err)
	}
	if err := s.rdb.Set(ctx, tokenKeyPrefix+shop, enc, 0).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Get(ctx context.Context, shop string) (shopify.AccessToken, error) {
	enc, err := s.rdb.Get(ctx, tokenKeyPrefix+shop).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get token: %w", err)
	}
	plain, err := s.sealer.Open(shop, enc)
	if err != nil {
		return "", fmt.Errorf("decrypt token: %w", err)
	}
	return shopify.AccessToken(plain), nil
}

func (s *RedisTokenStore) Has(ctx context.Context, shop string) (bool, error) {
	n, err := s.rdb.Exists(ctx, tokenKeyPrefix+shop).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists token: %w", err)
	}
	return n > 0, nil
}

// RedisStateStore relies on key TTLs for expiry and GETDEL for one-time use.
type RedisStateStore struct {
	rdb redis.Cmdable
}

func NewRedisStateStore(rdb redis.Cmdable) *RedisStateStore {
	return &RedisStateStore{rdb: rdb}
}

func (s *RedisStateStore) Save(ctx context.Context, state, shop string, ttl time.Duration) error {
	ok, err := s.rdb.SetNX(ctx, stateKeyPrefix+state, shop, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx state: %w", err)
	}
	if !ok {
		return ErrStateCollision
	}
	return nil
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, error) {
	shop, err := s.rdb.GetDel(ctx, stateKeyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis getdel state: %w", err)
	}
	return shop, nil
}
