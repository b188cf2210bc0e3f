package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"svario/internal/config"
	"svario/internal/logger"
	"svario/internal/metrics"
	"svario/internal/shopify"
	"svario/internal/store"
)

const (
	CallbackPath = "/auth/shopify/callback"
	stateBytes   = 16
)

// ShopifyAPI is the part of shopify.Client the flow needs.
type ShopifyAPI interface {
	ExchangeCode(ctx context.Context, shop, code string, creds shopify.Credentials) (*shopify.ExchangeResult, error)
	ListProducts(ctx context.Context, shop string, token shopify.AccessToken, limit int) (json.RawMessage, error)
}

// Flow drives the Shopify install and callback handshake and the read-only
// calls made afterwards with the stored token.
type Flow struct {
	cfg     *config.Config
	tokens  store.TokenStore
	states  store.StateStore
	shopify ShopifyAPI
	log     logger.Sugared
	metrics *metrics.RelayMetrics
}

func NewFlow(cfg *config.Config, tokens store.TokenStore, states store.StateStore, api ShopifyAPI, log logger.Sugared, m *metrics.RelayMetrics) *Flow {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.Noop()
	}
	return &Flow{cfg: cfg, tokens: tokens, states: states, shopify: api, log: log, metrics: m}
}

// ParseShop normalizes a shop parameter and checks it is a myshopify domain.
func ParseShop(raw string) (string, error) {
	shop := shopify.NormalizeShop(raw)
	if shop == "" {
		return "", clientInput("missing shop")
	}
	if !shopify.IsValidShopDomain(shop) {
		return "", clientInput("invalid shop (expected like your-store.myshopify.com)")
	}
	return shop, nil
}

// Install records a fresh state for shop and returns the Shopify authorize URL
// to redirect the merchant to.
func (f *Flow) Install(ctx context.Context, rawShop string) (string, error) {
	u, err := f.install(ctx, rawShop)
	if err != nil {
		f.metrics.InstallsTotal.WithLabelValues(outcomeOf(err)).Inc()
		f.log.Warnw("install rejected", "shop", rawShop, "err", err)
		return "", err
	}
	f.metrics.InstallsTotal.WithLabelValues("redirected").Inc()
	return u, nil
}

func (f *Flow) install(ctx context.Context, rawShop string) (string, error) {
	shop, err := ParseShop(rawShop)
	if err != nil {
		return "", err
	}
	if f.cfg.ShopifyAPIKey == "" || f.cfg.AppURL == "" {
		return "", configuration("missing SHOPIFY_API_KEY or APP_URL")
	}

	state, err := newState()
	if err != nil {
		return "", upstream("failed to generate state", err)
	}
	if err := f.states.Save(ctx, state, shop, f.cfg.StateTTL); err != nil {
		return "", upstream("failed to store oauth state", err)
	}

	q := url.Values{}
	q.Set("client_id", f.cfg.ShopifyAPIKey)
	q.Set("scope", f.cfg.ShopifyScopes)
	q.Set("redirect_uri", f.cfg.AppURL+CallbackPath)
	q.Set("state", state)

	u := url.URL{
		Scheme:   "https",
		Host:     shop,
		Path:     "/admin/oauth/authorize",
		RawQuery: q.Encode(),
	}
	f.log.Infow("install redirect", "shop", shop)
	return u.String(), nil
}

// Callback validates a redirect from Shopify, exchanges the code and stores
// the resulting token. It returns the shop that was connected.
func (f *Flow) Callback(ctx context.Context, params url.Values) (string, error) {
	shop, err := f.callback(ctx, params)
	if err != nil {
		f.metrics.CallbacksTotal.WithLabelValues(outcomeOf(err)).Inc()
		f.log.Warnw("callback rejected", "shop", params.Get("shop"), "err", err)
		return "", err
	}
	f.metrics.CallbacksTotal.WithLabelValues("stored").Inc()
	return shop, nil
}

func (f *Flow) callback(ctx context.Context, params url.Values) (string, error) {
	shop := shopify.NormalizeShop(params.Get("shop"))
	code := strings.TrimSpace(params.Get("code"))
	state := strings.TrimSpace(params.Get("state"))
	sig := strings.TrimSpace(params.Get("hmac"))

	if shop == "" || code == "" || state == "" || sig == "" {
		return "", clientInput("missing required oauth params")
	}
	if !shopify.IsValidShopDomain(shop) {
		return "", clientInput("invalid shop")
	}

	secret := f.cfg.ShopifyAPISecret
	if secret == "" {
		return "", configuration("SHOPIFY_API_SECRET not set")
	}
	if !shopify.VerifyQuery(params, secret) {
		return "", authentication("invalid hmac")
	}

	stateShop, err := f.states.Consume(ctx, state)
	if errors.Is(err, store.ErrNotFound) {
		return "", clientInput("invalid or expired state")
	}
	if err != nil {
		return "", upstream("failed to read oauth state", err)
	}
	if stateShop != shop {
		return "", clientInput("invalid or expired state")
	}

	if f.cfg.ShopifyAPIKey == "" {
		return "", configuration("SHOPIFY_API_KEY not set")
	}

	start := time.Now()
	res, err := f.shopify.ExchangeCode(ctx, shop, code, shopify.Credentials{
		ClientID:     f.cfg.ShopifyAPIKey,
		ClientSecret: secret,
	})
	f.metrics.ExchangeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", upstream("token exchange failed", err)
	}

	if err := f.tokens.Put(ctx, shop, res.Token); err != nil {
		return "", upstream("failed to store token", err)
	}

	f.log.Infow("shop connected", "shop", shop, "scope", res.Scope)
	return shop, nil
}

// Connected reports whether a token is stored for the shop.
func (f *Flow) Connected(ctx context.Context, rawShop string) (string, bool, error) {
	shop, err := ParseShop(rawShop)
	if err != nil {
		return "", false, err
	}
	ok, err := f.tokens.Has(ctx, shop)
	if err != nil {
		return shop, false, upstream("failed to read token store", err)
	}
	return shop, ok, nil
}

// Products proxies the Admin API product list for a connected shop.
func (f *Flow) Products(ctx context.Context, rawShop string, limit int) (json.RawMessage, error) {
	body, err := f.products(ctx, rawShop, limit)
	if err != nil {
		f.metrics.AdminRequestsTotal.WithLabelValues("products", outcomeOf(err)).Inc()
		return nil, err
	}
	f.metrics.AdminRequestsTotal.WithLabelValues("products", "ok").Inc()
	return body, nil
}

func (f *Flow) products(ctx context.Context, rawShop string, limit int) (json.RawMessage, error) {
	shop, err := ParseShop(rawShop)
	if err != nil {
		return nil, err
	}

	token, err := f.tokens.Get(ctx, shop)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notConnected("shop not connected")
	}
	if err != nil {
		return nil, upstream("failed to read token store", err)
	}

	body, err := f.shopify.ListProducts(ctx, shop, token, limit)
	if err != nil {
		f.log.Errorw("shopify products failed", "shop", shop, "err", err)
		return nil, upstream("shopify request failed", err)
	}
	return body, nil
}

func newState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}
