package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// OtelClient records every Inc as an OpenTelemetry instrument named after the
// key. InstrumentOf picks a counter or one of the histograms.
type OtelClient struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
	meter    metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
	latencies  map[string]metric.Int64Histogram
}

func NewOtelClient(serviceName string, opts ...sdkmetric.Option) *OtelClient {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(append(opts, sdkmetric.WithReader(reader))...)

	return &OtelClient{
		provider:   provider,
		reader:     reader,
		meter:      provider.Meter(serviceName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
		latencies:  make(map[string]metric.Int64Histogram),
	}
}

func (c *OtelClient) Inc(ctx context.Context, key string, value any, attributes ...attribute.KeyValue) {
	switch InstrumentOf(key) {
	case DurationInstrument:
		histogram, err := c.histogram(key)
		if err != nil {
			return
		}

		histogram.Record(ctx, toFloat(value), metric.WithAttributes(attributes...))
	case LatencyInstrument:
		histogram, err := c.latency(key)
		if err != nil {
			return
		}

		histogram.Record(ctx, int64(toFloat(value)), metric.WithAttributes(attributes...))
	default:
		counter, err := c.counter(key)
		if err != nil {
			return
		}

		counter.Add(ctx, int64(toFloat(value)), metric.WithAttributes(attributes...))
	}
}

func (c *OtelClient) counter(key string) (metric.Int64Counter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if counter, ok := c.counters[key]; ok {
		return counter, nil
	}

	counter, err := RegisterInt64Counter(c.meter, CounterInstrument.descriptor(key), key)
	if err != nil {
		return nil, err
	}

	c.counters[key] = counter

	return counter, nil
}

func (c *OtelClient) histogram(key string) (metric.Float64Histogram, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if histogram, ok := c.histograms[key]; ok {
		return histogram, nil
	}

	histogram, err := RegisterFloat64Histogram(c.meter, DurationInstrument.descriptor(key), key)
	if err != nil {
		return nil, err
	}

	c.histograms[key] = histogram

	return histogram, nil
}

func (c *OtelClient) latency(key string) (metric.Int64Histogram, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if histogram, ok := c.latencies[key]; ok {
		return histogram, nil
	}

	histogram, err := RegisterInt64Histogram(c.meter, LatencyInstrument.descriptor(key), key)
	if err != nil {
		return nil, err
	}

	c.latencies[key] = histogram

	return histogram, nil
}

// Snapshot collects the current value of every counter, keyed by name.
// Histograms report their sample count.
func (c *OtelClient) Snapshot(ctx context.Context) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := c.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("failed to collect metrics: %w", err)
	}

	out := make(map[string]int64)

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, point := range data.DataPoints {
					out[m.Name] += point.Value
				}
			case metricdata.Histogram[float64]:
				for _, point := range data.DataPoints {
					out[m.Name] += int64(point.Count)
				}
			case metricdata.Histogram[int64]:
				for _, point := range data.DataPoints {
					out[m.Name] += int64(point.Count)
				}
			}
		}
	}

	return out, nil
}

// Handler serves the snapshot as JSON.
func (c *OtelClient) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := c.Snapshot(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snapshot)
	})
}

func (c *OtelClient) Shutdown(ctx context.Context) error {
	return c.provider.Shutdown(ctx)
}

func toFloat(value any) float64 {
	switch v := value.(type) {
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case float32:
		return float64(v)
	case float64:
		return v
	default:
		return 0
	}
}
