package shopify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/admin/api/2024-10/products.json", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "shpat_1", r.Header.Get("X-Shopify-Access-Token"))
		_, _ = w.Write([]byte(`{"products":[{"id":1,"title":"Hat"}]}`))
	}))
	defer srv.Close()

	c := NewClient("2024-10", time.Second, WithBaseURL(srv.URL))
	raw, err := c.ListProducts(context.Background(), "foo.myshopify.com", AccessToken("shpat_1"), 5)
	require.NoError(t, err)
	assert.JSONEq(t, `{"products":[{"id":1,"title":"Hat"}]}`, string(raw))
}

func TestListProducts_Failures(t *testing.T) {
	t.Run("upstream status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"errors":"[API] Invalid API key or access token"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		c := NewClient("2024-10", time.Second, WithBaseURL(srv.URL))
		_, err := c.ListProducts(context.Background(), "foo.myshopify.com", AccessToken("bad"), 5)
		assert.ErrorIs(t, err, ErrAdminRequest)
	})

	t.Run("non-JSON body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>maintenance</html>"))
		}))
		defer srv.Close()

		c := NewClient("2024-10", time.Second, WithBaseURL(srv.URL))
		_, err := c.ListProducts(context.Background(), "foo.myshopify.com", AccessToken("t"), 5)
		assert.ErrorIs(t, err, ErrAdminRequest)
	})
}
