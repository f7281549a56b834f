// Package redisstore keeps session tokens and the enforcement policy in Redis.
//
// Tokens live in one hash, <prefix>:tokens, keyed by user id with a JSON entry per field.
// The policy lives in the hash <prefix>:policy.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DefaultPrefix = "session_limiter"

var (
	ErrEmptyConnectionURL = errors.New("redis connection url is empty")
	ErrInvalidScheme      = errors.New("redis connection url must use redis:// or rediss://")
	ErrRedisNotReady      = errors.New("redis did not become ready")
)

type connectOptions struct {
	attempts int
	interval time.Duration
}

type ConnectOption func(*connectOptions)

func WithRetry(attempts int, interval time.Duration) ConnectOption {
	return func(o *connectOptions) {
		if attempts > 0 {
			o.attempts = attempts
		}
		if interval > 0 {
			o.interval = interval
		}
	}
}

// Connect parses url, opens a client and pings it until it answers or the attempts run out.
func Connect(ctx context.Context, url string, opts ...ConnectOption) (*redis.Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrEmptyConnectionURL
	}
	if !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://") {
		return nil, ErrInvalidScheme
	}

	o := connectOptions{attempts: 3, interval: time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("[redisstore Connect] failed to parse url: %w", err)
	}
	client := redis.NewClient(redisOpts)

	var pingErr error
	for attempt := 1; attempt <= o.attempts; attempt++ {
		if pingErr = client.Ping(ctx).Err(); pingErr == nil {
			return client, nil
		}
		log.Warn().Err(pingErr).Int("attempt", attempt).Msg("redis ping failed")

		if attempt == o.attempts {
			break
		}
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, fmt.Errorf("[redisstore Connect] %w: %w", ErrRedisNotReady, ctx.Err())
		case <-time.After(o.interval * time.Duration(attempt)):
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("[redisstore Connect] %w: %w", ErrRedisNotReady, pingErr)
}

// Healthcheck returns a probe that pings client.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("[redisstore Healthcheck] %w", err)
		}
		return nil
	}
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		return DefaultPrefix
	}
	return prefix
}
