package server

import (
	"net/http"

	"svario/internal/handlers"
	"svario/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts the relay routes plus /healthz and /metrics.
func NewRouter(relay *handlers.Relay, gatherer prometheus.Gatherer, log logger.Sugared, tracing func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID())
	r.Use(Recover(log))
	r.Use(Logging(log))
	if tracing != nil {
		r.Use(tracing)
	}

	r.Get("/", Bridge(relay.Health))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/facebook/webhook", Bridge(relay.MessengerVerify))
	r.Post("/facebook/webhook", Bridge(relay.MessengerEvent))

	r.Get("/auth/shopify/install", Bridge(relay.Install))
	r.Get("/auth/shopify/callback", Bridge(relay.Callback))

	r.Get("/shopify/products", Bridge(relay.Products))
	r.Get("/shopify/status", Bridge(relay.Status))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}
