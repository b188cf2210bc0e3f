package store

import (
	"context"
	"errors"
	"time"

	"svario/internal/shopify"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrStateCollision = errors.New("oauth state already exists")
)

// TokenStore keeps at most one access token per shop. Put overwrites.
type TokenStore interface {
	Put(ctx context.Context, shop string, token shopify.AccessToken) error
	Get(ctx context.Context, shop string) (shopify.AccessToken, error)
	Has(ctx context.Context, shop string) (bool, error)
}

// StateStore holds install state values until the matching callback.
// Consume returns the shop the state was issued for and removes it, so a
// state can be used once. Expired or unknown states return ErrNotFound.
type StateStore interface {
	Save(ctx context.Context, state, shop string, ttl time.Duration) error
	Consume(ctx context.Context, state string) (string, error)
}
