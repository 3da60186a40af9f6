package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Key suffixes select the instrument an Inc is recorded with. Any other key
// is a counter.
const (
	// DurationSuffix keys are float64 histograms in seconds.
	DurationSuffix = ".duration"
	// LatencySuffix keys are int64 histograms in milliseconds.
	LatencySuffix = ".latency"
)

type (
	Client interface {
		Inc(ctx context.Context, key string, value any, attributes ...attribute.KeyValue)
		Handler() http.Handler
		Shutdown(ctx context.Context) error
	}

	// Descriptor defines metadata used when registering OTEL instruments.
	Descriptor struct {
		Description string
		Unit        string
	}

	Instrument int
)

const (
	CounterInstrument Instrument = iota
	DurationInstrument
	LatencyInstrument
)

// InstrumentOf returns the instrument a key is recorded with.
func InstrumentOf(key string) Instrument {
	switch {
	case strings.HasSuffix(key, DurationSuffix):
		return DurationInstrument
	case strings.HasSuffix(key, LatencySuffix):
		return LatencyInstrument
	default:
		return CounterInstrument
	}
}

func (i Instrument) descriptor(key string) Descriptor {
	switch i {
	case DurationInstrument:
		return Descriptor{Description: "duration of " + strings.TrimSuffix(key, DurationSuffix), Unit: "s"}
	case LatencyInstrument:
		return Descriptor{Description: "latency of " + strings.TrimSuffix(key, LatencySuffix), Unit: "ms"}
	default:
		return Descriptor{Description: key, Unit: "1"}
	}
}

func RegisterInt64Counter(m metric.Meter, descriptor Descriptor, name string) (metric.Int64Counter, error) {
	counter, err := m.Int64Counter(
		name,
		metric.WithDescription(descriptor.Description),
		metric.WithUnit(descriptor.Unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s counter: %w", name, err)
	}

	return counter, nil
}

func RegisterFloat64Histogram(m metric.Meter, descriptor Descriptor, name string) (metric.Float64Histogram, error) {
	histogram, err := m.Float64Histogram(
		name,
		metric.WithDescription(descriptor.Description),
		metric.WithUnit(descriptor.Unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s histogram: %w", name, err)
	}

	return histogram, nil
}

func RegisterInt64Histogram(m metric.Meter, descriptor Descriptor, name string) (metric.Int64Histogram, error) {
	histogram, err := m.Int64Histogram(
		name,
		metric.WithDescription(descriptor.Description),
		metric.WithUnit(descriptor.Unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s histogram: %w", name, err)
	}

	return histogram, nil
}
