package services

import (
	"context"
	"sync"
	"time"

	"github.com/architeacher/smartsearch/services/svc-search/internal/config"
	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
	"github.com/architeacher/smartsearch/services/svc-search/internal/ports"
	"golang.org/x/sync/errgroup"
)

const defaultPingTimeout = 2 * time.Second

type (
	// Dependency is one pinged collaborator. A failing critical dependency
	// takes the service down, any other failure only degrades it.
	Dependency struct {
		Name     string
		Pinger   ports.Pinger
		Critical bool
	}

	HealthChecker struct {
		dependencies []Dependency
		timeout      time.Duration
	}
)

var _ ports.HealthChecker = (*HealthChecker)(nil)

func NewHealthChecker(timeout time.Duration, dependencies ...Dependency) *HealthChecker {
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}

	return &HealthChecker{
		dependencies: dependencies,
		timeout:      timeout,
	}
}

func (h *HealthChecker) Liveness(context.Context) (*model.LivenessReport, error) {
	return &model.LivenessReport{
		Status:    model.HealthStatusOK,
		Timestamp: time.Now().UTC(),
		Version:   config.ServiceVersion,
	}, nil
}

// Readiness pings every dependency concurrently.
func (h *HealthChecker) Readiness(ctx context.Context) (*model.ReadinessReport, error) {
	var (
		mu     sync.Mutex
		checks = make(map[string]model.DependencyCheck, len(h.dependencies))
		status = model.HealthStatusOK
	)

	group, groupCtx := errgroup.WithContext(ctx)

	for _, dep := range h.dependencies {
		group.Go(func() error {
			check := h.ping(groupCtx, dep.Pinger)

			mu.Lock()
			defer mu.Unlock()

			checks[dep.Name] = check

			if check.Status == model.DependencyStatusDown {
				switch {
				case dep.Critical:
					status = model.HealthStatusDown
				case status == model.HealthStatusOK:
					status = model.HealthStatusDegraded
				}
			}

			return nil
		})
	}

	_ = group.Wait()

	return &model.ReadinessReport{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Version:   config.ServiceVersion,
		Checks:    checks,
	}, nil
}

func (h *HealthChecker) ping(ctx context.Context, pinger ports.Pinger) model.DependencyCheck {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := pinger.Ping(ctx)
	check := model.DependencyCheck{
		Status:      model.DependencyStatusUp,
		LatencyMs:   uint64(time.Since(start).Milliseconds()),
		Message:     "ok",
		LastChecked: time.Now().UTC(),
	}

	if err != nil {
		check.Status = model.DependencyStatusDown
		check.Message = err.Error()
	}

	return check
}
