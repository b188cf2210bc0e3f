package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

var ErrAdminRequest = errors.New("shopify admin request failed")

// ListProducts fetches /admin/api/{version}/products.json and returns the raw
// JSON body so it can be proxied unchanged.
func (c *Client) ListProducts(ctx context.Context, shop string, token AccessToken, limit int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	path := fmt.Sprintf("/admin/api/%s/products.json?%s", c.apiVersion, q.Encode())
	return c.getJSON(ctx, shop, token, path)
}

func (c *Client) getJSON(ctx context.Context, shop string, token AccessToken, path string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.shopURL(shop, path), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdminRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", token.Value())

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdminRequest, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrAdminRequest, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d", ErrAdminRequest, res.StatusCode)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: non-JSON response", ErrAdminRequest)
	}
	return json.RawMessage(raw), nil
}
