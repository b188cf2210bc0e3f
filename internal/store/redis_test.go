package store

import (
	"context"
	"os"
	"testing"
	"time"

	"svario/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real Redis when REDIS_URL is set.
func TestRedisStores(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	rdb, err := db.NewRedisClient(ctx, url)
	require.NoError(t, err)
	defer rdb.Close()

	shop := "redis-test-" + time.Now().Format("150405.000000") + ".myshopify.com"
	defer rdb.Del(ctx, tokenKeyPrefix+shop)

	tokens := NewRedisTokenStore(rdb, testSealer(t))

	ok, err := tokens.Has(ctx, shop)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, tokens.Put(ctx, shop, "tok_1"))
	require.NoError(t, tokens.Put(ctx, shop, "tok_2"))
	tok, err := tokens.Get(ctx, shop)
	require.NoError(t, err)
	assert.Equal(t, "tok_2", tok.Value())

	raw, err := rdb.Get(ctx, tokenKeyPrefix+shop).Result()
	require.NoError(t, err)
	assert.NotContains(t, raw, "tok_2")

	states := NewRedisStateStore(rdb)
	state := "s-" + shop
	require.NoError(t, states.Save(ctx, state, shop, time.Minute))
	got, err := states.Consume(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, shop, got)
	_, err = states.Consume(ctx, state)
	assert.ErrorIs(t, err, ErrNotFound)
}
