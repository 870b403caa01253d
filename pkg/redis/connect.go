package redis

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
)

// Connect opens a client and pings it until it answers, retrying up to
// cfg.RetryAttempts times with cfg.RetryInterval between attempts.
//
// It returns ErrEmptyConnectionURL or ErrFailedToParseRedisConnString for
// bad configuration and ErrRedisNotReady when every attempt failed.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}
	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	attempts := max(cfg.RetryAttempts, 1)
	client, err := backoff.Retry(ctx, func() (*redis.Client, error) {
		c := redis.NewClient(opts)
		if err := c.Ping(ctx).Err(); err != nil {
			_ = c.Close()
			return nil, err
		}
		return c, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(cfg.RetryInterval)),
		backoff.WithMaxTries(uint(attempts)),
	)
	if err != nil {
		return nil, errors.Join(ErrRedisNotReady, err)
	}
	return client, nil
}
