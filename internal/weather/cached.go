package weather

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"WeatherUSSD/internal/cache"
)

// Cached serves repeated lookups for the same location from a TTL cache.
// Failed lookups are never cached.
type Cached struct {
	next    Provider
	reports *cache.Cache[Report]
	lookups metric.Int64Counter
	logger  *slog.Logger
}

// NewCached wraps next with a report cache.
func NewCached(next Provider, reports *cache.Cache[Report], meter metric.Meter, logger *slog.Logger) (*Cached, error) {
	counter, err := meter.Int64Counter(
		"weather.cache",
		metric.WithDescription("Weather lookups by cache result"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache counter: %w", err)
	}
	return &Cached{
		next:    next,
		reports: reports,
		lookups: counter,
		logger:  logger.With("component", "weather.cache"),
	}, nil
}

func (c *Cached) Lookup(ctx context.Context, location string) (Report, error) {
	key := cache.GenerateKey(location)
	if report, ok := c.reports.Get(key); ok {
		c.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", "hit")))
		c.logger.Debug("cache hit", "key", key[:16])
		return report, nil
	}
	c.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", "miss")))

	report, err := c.next.Lookup(ctx, location)
	if err != nil {
		return Report{}, err
	}
	c.reports.Put(key, report)
	c.logger.Debug("cached report", "key", key[:16])
	return report, nil
}
