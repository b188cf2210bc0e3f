package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrExchangeFailed covers every way the code-for-token call can fail.
var ErrExchangeFailed = errors.New("token exchange failed")

type Credentials struct {
	ClientID     string
	ClientSecret string
}

type ExchangeResult struct {
	Token AccessToken
	Scope string
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}

// ExchangeCode trades an authorization code for a shop access token with a
// single POST to /admin/oauth/access_token. It never retries.
func (c *Client) ExchangeCode(ctx context.Context, shop, code string, creds Credentials) (*ExchangeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	b, err := json.Marshal(tokenRequest{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Code:         code,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrExchangeFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.shopURL(shop, "/admin/oauth/access_token"), bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrExchangeFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrExchangeFailed, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d", ErrExchangeFailed, res.StatusCode)
	}

	var tok tokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("%w: invalid token response", ErrExchangeFailed)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access_token", ErrExchangeFailed)
	}

	return &ExchangeResult{Token: AccessToken(tok.AccessToken), Scope: tok.Scope}, nil
}
