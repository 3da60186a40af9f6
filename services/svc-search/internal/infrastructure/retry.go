package infrastructure

import (
	"context"
	"fmt"

	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/services/svc-search/internal/config"
	"github.com/cenkalti/backoff/v5"
)

// Connect calls dial until it succeeds, retrying with exponential backoff up
// to cfg.MaxRetries times. A context error stops the retries.
func Connect[T any](
	ctx context.Context,
	cfg config.Backoff,
	log logger.Logger,
	name string,
	dial func(ctx context.Context) (T, error),
) (T, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = cfg.BaseDelay
	expBackoff.Multiplier = cfg.Multiplier
	expBackoff.RandomizationFactor = cfg.Jitter
	expBackoff.MaxInterval = cfg.MaxDelay

	attempt := 0
	operation := func() (T, error) {
		attempt++

		conn, err := dial(ctx)
		if err == nil {
			return conn, nil
		}

		if ctx.Err() != nil {
			return conn, backoff.Permanent(err)
		}

		log.Warn().
			Err(err).
			Str("dependency", name).
			Int("attempt", attempt).
			Msg("connection attempt failed")

		return conn, err
	}

	conn, err := backoff.Retry(
		ctx,
		operation,
		backoff.WithMaxTries(cfg.MaxRetries+1),
		backoff.WithBackOff(expBackoff),
	)
	if err != nil {
		return conn, fmt.Errorf("connecting to %s after %d attempts: %w", name, attempt, err)
	}

	return conn, nil
}
