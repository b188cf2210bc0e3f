package app

import (
	"context"
	"fmt"

	"svario/internal/config"
	"svario/internal/db"
	"svario/internal/handlers"
	"svario/internal/logger"
	"svario/internal/messenger"
	"svario/internal/metrics"
	"svario/internal/oauth"
	"svario/internal/security"
	"svario/internal/shopify"
	"svario/internal/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/prometheus/client_golang/prometheus"
)

// App is everything both entrypoints need, built once per process.
type App struct {
	Relay   *handlers.Relay
	Metrics *metrics.RelayMetrics
	closers []func() error
}

func (a *App) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}

// New resolves secrets, picks the store backend and wires the relay. AWS
// config is only loaded when some component needs it.
func New(ctx context.Context, cfg *config.Config, log logger.Sugared, reg prometheus.Registerer) (*App, error) {
	a := &App{Metrics: metrics.New(reg)}

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := db.LoadAWSConfig(ctx)
		if err != nil {
			return aws.Config{}, fmt.Errorf("load aws config: %w", err)
		}
		awsCfg = &c
		return c, nil
	}

	if cfg.NeedsSecretLookup() {
		ac, err := loadAWS()
		if err != nil {
			return nil, err
		}
		if err := cfg.ResolveSecrets(ctx, ssm.NewFromConfig(ac)); err != nil {
			return nil, err
		}
		log.Infow("shopify secret resolved from ssm", "param", cfg.ShopifyAPISecretParam)
	}

	tokens, states, err := a.stores(ctx, cfg, log, loadAWS)
	if err != nil {
		a.Close()
		return nil, err
	}

	var pub messenger.Publisher
	var archive messenger.ObjectPutter
	if cfg.MessengerTopicARN != "" || cfg.MessengerArchiveBucket != "" {
		ac, err := loadAWS()
		if err != nil {
			a.Close()
			return nil, err
		}
		if cfg.MessengerTopicARN != "" {
			pub = sns.NewFromConfig(ac)
		}
		if cfg.MessengerArchiveBucket != "" {
			archive = s3.NewFromConfig(ac)
		}
	}

	client := shopify.NewClient(cfg.ShopifyAPIVersion, cfg.ShopifyHTTPTimeout)
	flow := oauth.NewFlow(cfg, tokens, states, client, log, a.Metrics)
	hook := messenger.NewWebhook(messenger.Options{
		VerifyToken:   cfg.FBVerifyToken,
		AppSecret:     cfg.FBAppSecret,
		TopicARN:      cfg.MessengerTopicARN,
		ArchiveBucket: cfg.MessengerArchiveBucket,
	}, pub, archive, log, a.Metrics)

	a.Relay = handlers.NewRelay(flow, hook, log)

	if cfg.ShopifyAPIKey == "" || cfg.ShopifyAPISecret == "" || cfg.AppURL == "" {
		log.Warnw("shopify oauth not fully configured; install/callback will return 500",
			"has_api_key", cfg.ShopifyAPIKey != "",
			"has_api_secret", cfg.ShopifyAPISecret != "",
			"has_app_url", cfg.AppURL != "",
		)
	}
	return a, nil
}

func (a *App) stores(ctx context.Context, cfg *config.Config, log logger.Sugared, loadAWS func() (aws.Config, error)) (store.TokenStore, store.StateStore, error) {
	switch cfg.StoreBackend {
	case config.BackendDynamoDB:
		sealer, err := security.NewSealer(cfg.TokenEncKeyB64)
		if err != nil {
			return nil, nil, err
		}
		ac, err := loadAWS()
		if err != nil {
			return nil, nil, err
		}
		ddb := db.NewDynamoClient(ac)
		log.Infow("using dynamodb stores", "integrations", cfg.IntegrationsTable, "states", cfg.OAuthStateTable)
		return store.NewDynamoTokenStore(ddb, cfg.IntegrationsTable, sealer),
			store.NewDynamoStateStore(ddb, cfg.OAuthStateTable), nil

	case config.BackendRedis:
		sealer, err := security.NewSealer(cfg.TokenEncKeyB64)
		if err != nil {
			return nil, nil, err
		}
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		log.Infow("using redis stores", "url", db.RedactURL(cfg.RedisURL))
		return store.NewRedisTokenStore(rdb, sealer), store.NewRedisStateStore(rdb), nil

	default:
		log.Warnw("using in-memory stores; tokens are lost on restart")
		return store.NewMemoryTokenStore(), store.NewMemoryStateStore(), nil
	}
}
