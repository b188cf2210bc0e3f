package security

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))

func TestLoadKeyFromBase64(t *testing.T) {
	_, err := LoadKeyFromBase64(testKey)
	require.NoError(t, err)

	_, err = LoadKeyFromBase64(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrBadKey)

	_, err = LoadKeyFromBase64("not base64!")
	assert.ErrorIs(t, err, ErrBadKey)
}

func TestSealer(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	sealed, err := s.Seal("foo.myshopify.com", "shpat_123")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "shpat_123")

	plain, err := s.Open("foo.myshopify.com", sealed)
	require.NoError(t, err)
	assert.Equal(t, "shpat_123", plain)

	t.Run("bound to shop", func(t *testing.T) {
		_, err := s.Open("bar.myshopify.com", sealed)
		assert.Error(t, err)
	})

	t.Run("fresh nonce per seal", func(t *testing.T) {
		again, err := s.Seal("foo.myshopify.com", "shpat_123")
		require.NoError(t, err)
		assert.NotEqual(t, sealed, again)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := s.Open("foo.myshopify.com", "abc")
		assert.Error(t, err)
	})
}
