package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"svario/internal/app"
	"svario/internal/config"
	"svario/internal/logger"
	"svario/internal/server"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalw("init relay", "err", err)
	}
	defer a.Close()

	tracing, shutdownTracing := server.Tracing(ctx, cfg.OTLPEndpoint, log)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.NewRouter(a.Relay, prometheus.DefaultGatherer, log, tracing),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infow("relay listening", "addr", srv.Addr, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	<-ctx.Done()
	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("shutdown", "err", err)
	}
	_ = shutdownTracing(shutdownCtx)
	log.Infow("relay stopped")
}
