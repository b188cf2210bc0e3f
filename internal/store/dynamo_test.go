package store

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"svario/internal/security"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDDB is a single-key-attribute table keyed by the first S attribute
// among PK and State.
type fakeDDB struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
	err   error
}

func newFakeDDB() *fakeDDB {
	return &fakeDDB{items: map[string]map[string]types.AttributeValue{}}
}

func keyOf(m map[string]types.AttributeValue) string {
	if v := attrS(m["PK"]); v != "" {
		return v
	}
	return attrS(m["State"])
}

func (f *fakeDDB) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeDDB) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	k := keyOf(in.Item)
	if aws.ToString(in.ConditionExpression) != "" {
		if _, exists := f.items[k]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	f.items[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDDB) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	k := keyOf(in.Key)
	old := f.items[k]
	delete(f.items, k)
	return &dynamodb.DeleteItemOutput{Attributes: old}, nil
}

func testSealer(t *testing.T) *security.Sealer {
	t.Helper()
	s, err := security.NewSealer(base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32))))
	require.NoError(t, err)
	return s
}

func TestDynamoTokenStore(t *testing.T) {
	ctx := context.Background()
	ddb := newFakeDDB()
	s := NewDynamoTokenStore(ddb, "integrations", testSealer(t))

	ok, err := s.Has(ctx, "foo.myshopify.com")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, "foo.myshopify.com")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "foo.myshopify.com", "tok_1"))

	item := ddb.items["SHOP#foo.myshopify.com"]
	require.NotNil(t, item)
	assert.Equal(t, "foo.myshopify.com", attrS(item["Shop"]))
	assert.NotContains(t, attrS(item["AccessTokenEnc"]), "tok_1")

	require.NoError(t, s.Put(ctx, "foo.myshopify.com", "tok_2"))
	tok, err := s.Get(ctx, "foo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "tok_2", tok.Value())

	ok, err = s.Has(ctx, "foo.myshopify.com")
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("ciphertext bound to shop", func(t *testing.T) {
		ddb.items["SHOP#bar.myshopify.com"] = map[string]types.AttributeValue{
			"PK":             &types.AttributeValueMemberS{Value: "SHOP#bar.myshopify.com"},
			"AccessTokenEnc": item["AccessTokenEnc"],
		}
		_, err := s.Get(ctx, "bar.myshopify.com")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("ddb error", func(t *testing.T) {
		ddb.err = errors.New("throttled")
		defer func() { ddb.err = nil }()
		_, err := s.Has(ctx, "foo.myshopify.com")
		assert.Error(t, err)
		assert.Error(t, s.Put(ctx, "foo.myshopify.com", "tok_3"))
	})
}

func TestDynamoStateStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ddb := newFakeDDB()
	s := NewDynamoStateStore(ddb, "oauth-states")
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, "abc", "foo.myshopify.com", 10*time.Minute))
	assert.Equal(t, "1714565400", attrN(ddb.items["abc"]["ExpiresAtEpoch"]))

	shop, err := s.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "foo.myshopify.com", shop)

	_, err = s.Consume(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)

	t.Run("duplicate state rejected", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "dup", "foo.myshopify.com", time.Minute))
		assert.ErrorIs(t, s.Save(ctx, "dup", "bar.myshopify.com", time.Minute), ErrStateCollision)
	})

	t.Run("expired but not yet swept", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "old", "foo.myshopify.com", time.Minute))
		now = now.Add(2 * time.Minute)
		_, err := s.Consume(ctx, "old")
		assert.ErrorIs(t, err, ErrNotFound)
		_, still := ddb.items["old"]
		assert.False(t, still)
	})
}
