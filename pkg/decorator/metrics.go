package decorator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/architeacher/smartsearch/pkg/metrics"
)

type (
	commandMetricsDecorator[C Command, R any] struct {
		base   CommandHandler[C, R]
		client metrics.Client
	}

	queryMetricsDecorator[Q Query, R Result] struct {
		base   QueryHandler[Q, R]
		client metrics.Client
	}
)

func (d commandMetricsDecorator[C, R]) Handle(ctx context.Context, cmd C) (result R, err error) {
	defer func(start time.Time) {
		observe(ctx, d.client, "commands", actionName(cmd), start, err)
	}(time.Now())

	return d.base.Handle(ctx, cmd)
}

func (d queryMetricsDecorator[Q, R]) Execute(ctx context.Context, query Q) (result R, err error) {
	defer func(start time.Time) {
		observe(ctx, d.client, "queries", actionName(query), start, err)
	}(time.Now())

	return d.base.Execute(ctx, query)
}

func observe(ctx context.Context, client metrics.Client, kind, action string, start time.Time, err error) {
	if client == nil {
		return
	}

	action = strings.ToLower(action)

	client.Inc(ctx, fmt.Sprintf("%s.%s.duration", kind, action), time.Since(start).Seconds())

	if err == nil {
		client.Inc(ctx, fmt.Sprintf("%s.%s.success", kind, action), 1)
	} else {
		client.Inc(ctx, fmt.Sprintf("%s.%s.failure", kind, action), 1)
	}
}
