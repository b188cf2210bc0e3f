package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"svario/internal/logger"
	"svario/internal/messenger"
	"svario/internal/oauth"

	"github.com/aws/aws-lambda-go/events"
)

const (
	defaultProductLimit = 5
	maxProductLimit     = 250
)

// Relay exposes the relay routes in the API Gateway v2 handler shape.
type Relay struct {
	flow    *oauth.Flow
	webhook *messenger.Webhook
	log     logger.Sugared
}

func NewRelay(flow *oauth.Flow, webhook *messenger.Webhook, log logger.Sugared) *Relay {
	if log == nil {
		log = logger.Nop()
	}
	return &Relay{flow: flow, webhook: webhook, log: log}
}

// Handle routes by path + method. It is the Lambda entrypoint.
func (h *Relay) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := req.RequestContext.HTTP.Method
	switch req.RawPath {
	case "/", "":
		if method == http.MethodGet {
			return h.Health(ctx, req)
		}
	case "/facebook/webhook":
		if method == http.MethodGet {
			return h.MessengerVerify(ctx, req)
		}
		if method == http.MethodPost {
			return h.MessengerEvent(ctx, req)
		}
	case "/auth/shopify/install":
		if method == http.MethodGet {
			return h.Install(ctx, req)
		}
	case oauth.CallbackPath:
		if method == http.MethodGet {
			return h.Callback(ctx, req)
		}
	case "/shopify/products":
		if method == http.MethodGet {
			return h.Products(ctx, req)
		}
	case "/shopify/status":
		if method == http.MethodGet {
			return h.Status(ctx, req)
		}
	default:
		return errResp(404, "not found")
	}
	return errResp(405, "method not allowed")
}

func (h *Relay) Health(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return jsonResp(200, map[string]any{
		"ok":      true,
		"service": "svario-relay",
	})
}

func (h *Relay) MessengerVerify(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	q := queryValues(req)
	challenge, ok := h.webhook.Verify(q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"))
	if !ok {
		return textResp(403, "Forbidden")
	}
	return textResp(200, challenge)
}

func (h *Relay) MessengerEvent(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	body, err := requestBody(req)
	if err != nil {
		return errResp(400, "invalid body encoding")
	}

	err = h.webhook.HandleEvent(ctx, body, header(req, "X-Hub-Signature-256"))
	switch {
	case errors.Is(err, messenger.ErrBadSignature):
		return errResp(401, "invalid signature")
	case errors.Is(err, messenger.ErrBadPayload):
		return errResp(400, "invalid json")
	case err != nil:
		return errResp(500, "failed to handle event")
	}
	return textResp(200, "OK")
}

func (h *Relay) Install(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	location, err := h.flow.Install(ctx, queryValues(req).Get("shop"))
	if err != nil {
		return h.flowErr(err)
	}
	return redirectResp(location)
}

func (h *Relay) Callback(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	shop, err := h.flow.Callback(ctx, queryValues(req))
	if err != nil {
		return h.flowErr(err)
	}
	return jsonResp(200, map[string]any{
		"ok":   true,
		"shop": shop,
	})
}

func (h *Relay) Products(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	q := queryValues(req)

	limit := defaultProductLimit
	if s := strings.TrimSpace(q.Get("limit")); s != "" {
		if n, e := strconv.Atoi(s); e == nil && n >= 1 && n <= maxProductLimit {
			limit = n
		}
	}

	body, err := h.flow.Products(ctx, q.Get("shop"), limit)
	if err != nil {
		return h.flowErr(err)
	}
	return rawJSONResp(200, body)
}

func (h *Relay) Status(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	shop, connected, err := h.flow.Connected(ctx, queryValues(req).Get("shop"))
	if err != nil {
		return h.flowErr(err)
	}
	return jsonResp(200, map[string]any{
		"shop":      shop,
		"connected": connected,
	})
}

func (h *Relay) flowErr(err error) (events.APIGatewayV2HTTPResponse, error) {
	status, msg := oauth.StatusOf(err)
	if status >= 500 {
		h.log.Errorw("request failed", "status", status, "err", err)
	}
	return errResp(status, msg)
}
