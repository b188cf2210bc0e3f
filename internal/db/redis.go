package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse: %w", err)
	}
	cli := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(pingCtx).Err(); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("redis ping %s: %w", RedactURL(url), err)
	}
	return cli, nil
}

// RedactURL hides credentials in a connection URL for logging.
func RedactURL(u string) string {
	if i := strings.Index(u, "@"); i > 0 {
		scheme := ""
		if j := strings.Index(u, "://"); j > 0 && j < i {
			scheme = u[:j+3]
		}
		return scheme + "***@" + u[i+1:]
	}
	return u
}
