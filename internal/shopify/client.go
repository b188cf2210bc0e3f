package shopify

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 10 << 20

// Client talks to a shop's OAuth and Admin endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiVersion string
	timeout    time.Duration
}

type ClientOption func(*Client)

// WithBaseURL replaces https://{shop} in every request URL. Used by tests to
// point the client at a stub server.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(apiVersion string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		apiVersion: apiVersion,
		timeout:    timeout,
	}
	for _, o := range opts {
		o(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: timeout}
	}
	return c
}

func (c *Client) shopURL(shop, path string) string {
	if c.baseURL != "" {
		return c.baseURL + path
	}
	return fmt.Sprintf("https://%s%s", shop, path)
}
