package main

import (
	"context"
	"fmt"
	"os"

	"svario/internal/app"
	"svario/internal/config"
	"svario/internal/logger"

	"github.com/aws/aws-lambda-go/lambda"
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

	a, err := app.New(context.Background(), cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalw("init relay", "err", err)
	}
	defer a.Close()

	lambda.Start(a.Relay.Handle)
}
