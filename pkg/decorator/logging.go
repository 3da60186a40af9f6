package decorator

import (
	"context"
	"time"

	"github.com/architeacher/smartsearch/pkg/idempotency"
	"github.com/architeacher/smartsearch/pkg/logger"
)

type (
	queryLoggingDecorator[Q Query, R Result] struct {
		base   QueryHandler[Q, R]
		logger logger.Logger
	}

	commandLoggingDecorator[C Command, R any] struct {
		base   CommandHandler[C, R]
		logger logger.Logger
	}
)

func (d queryLoggingDecorator[Q, R]) Execute(ctx context.Context, query Q) (result R, err error) {
	log := d.logger.WithContext(ctx)
	start := time.Now()

	log.Debug().
		Str("query", actionName(query)).
		Interface("payload", query).
		Msg("executing query")

	defer func() {
		if err != nil {
			log.Error().
				Err(err).
				Str("query", actionName(query)).
				Dur("elapsed", time.Since(start)).
				Msg("query failed")

			return
		}

		log.Debug().
			Str("query", actionName(query)).
			Str("cache", string(GetCacheStatus(ctx))).
			Dur("elapsed", time.Since(start)).
			Msg("query executed")
	}()

	return d.base.Execute(ctx, query)
}

func (d commandLoggingDecorator[C, R]) Handle(ctx context.Context, cmd C) (result R, err error) {
	log := d.logger.WithContext(ctx)
	if key, ok := idempotency.FromContext(ctx); ok {
		log = log.With().Str("idempotency_key", key).Logger()
	}

	start := time.Now()

	log.Debug().
		Str("command", actionName(cmd)).
		Interface("payload", cmd).
		Msg("handling command")

	defer func() {
		if err != nil {
			log.Error().
				Err(err).
				Str("command", actionName(cmd)).
				Dur("elapsed", time.Since(start)).
				Msg("command failed")

			return
		}

		log.Info().
			Str("command", actionName(cmd)).
			Dur("elapsed", time.Since(start)).
			Msg("command handled")
	}()

	return d.base.Handle(ctx, cmd)
}
