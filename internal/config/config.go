package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Store backends accepted by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
)

// Config is built once at process start and passed down explicitly.
type Config struct {
	Env  string `env:"APP_ENV" envDefault:"dev"`
	Port string `env:"PORT" envDefault:"4000"`

	// Shopify app credentials. Missing values are reported per request, not at startup.
	ShopifyAPIKey         string        `env:"SHOPIFY_API_KEY"`
	ShopifyAPISecret      string        `env:"SHOPIFY_API_SECRET"`
	ShopifyAPISecretParam string        `env:"SHOPIFY_API_SECRET_SSM_PARAM"`
	ShopifyScopes         string        `env:"SHOPIFY_SCOPES" envDefault:"read_products"`
	ShopifyAPIVersion     string        `env:"SHOPIFY_API_VERSION" envDefault:"2024-10"`
	ShopifyHTTPTimeout    time.Duration `env:"SHOPIFY_HTTP_TIMEOUT" envDefault:"10s"`
	AppURL                string        `env:"APP_URL"`

	// Messenger webhook
	FBVerifyToken          string `env:"FB_VERIFY_TOKEN" envDefault:"svario-secret"`
	FBAppSecret            string `env:"FB_APP_SECRET"`
	MessengerTopicARN      string `env:"MESSENGER_SNS_TOPIC_ARN"`
	MessengerArchiveBucket string `env:"MESSENGER_ARCHIVE_BUCKET"`

	// Storage
	StoreBackend      string        `env:"STORE_BACKEND" envDefault:"memory"`
	IntegrationsTable string        `env:"INTEGRATIONS_TABLE"`
	OAuthStateTable   string        `env:"OAUTH_STATE_TABLE"`
	StateTTL          time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`
	RedisURL          string        `env:"REDIS_URL"`
	TokenEncKeyB64    string        `env:"TOKEN_ENC_KEY_B64"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads configuration from the environment, after an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.AppURL = strings.TrimRight(strings.TrimSpace(c.AppURL), "/")
	c.ShopifyScopes = strings.TrimSpace(c.ShopifyScopes)
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	if c.StoreBackend == "" {
		c.StoreBackend = BackendMemory
	}
	if c.ShopifyScopes == "" {
		c.ShopifyScopes = "read_products"
	}
	if c.ShopifyAPIVersion == "" {
		c.ShopifyAPIVersion = "2024-10"
	}
	if c.FBVerifyToken == "" {
		c.FBVerifyToken = "svario-secret"
	}
	if strings.TrimSpace(c.Port) == "" {
		c.Port = "4000"
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendDynamoDB:
		if c.IntegrationsTable == "" || c.OAuthStateTable == "" {
			return fmt.Errorf("STORE_BACKEND=dynamodb requires INTEGRATIONS_TABLE and OAUTH_STATE_TABLE")
		}
		if c.TokenEncKeyB64 == "" {
			return fmt.Errorf("STORE_BACKEND=dynamodb requires TOKEN_ENC_KEY_B64")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("STORE_BACKEND=redis requires REDIS_URL")
		}
		if c.TokenEncKeyB64 == "" {
			return fmt.Errorf("STORE_BACKEND=redis requires TOKEN_ENC_KEY_B64")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.ShopifyHTTPTimeout <= 0 {
		c.ShopifyHTTPTimeout = 10 * time.Second
	}
	if c.StateTTL <= 0 {
		c.StateTTL = 10 * time.Minute
	}
	return nil
}

// Addr is the listen address for the standalone server.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// ParamGetter is the subset of the SSM client used to resolve secrets.
type ParamGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// NeedsSecretLookup reports whether the Shopify secret has to come from SSM.
func (c *Config) NeedsSecretLookup() bool {
	return c.ShopifyAPISecret == "" && strings.TrimSpace(c.ShopifyAPISecretParam) != ""
}

// ResolveSecrets fills ShopifyAPISecret from SSM Parameter Store when only the
// parameter name is configured.
func (c *Config) ResolveSecrets(ctx context.Context, p ParamGetter) error {
	if !c.NeedsSecretLookup() {
		return nil
	}
	out, err := p.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(strings.TrimSpace(c.ShopifyAPISecretParam)),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("ssm GetParameter %s: %w", c.ShopifyAPISecretParam, err)
	}
	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return fmt.Errorf("ssm parameter %s is empty", c.ShopifyAPISecretParam)
	}
	c.ShopifyAPISecret = aws.ToString(out.Parameter.Value)
	return nil
}
