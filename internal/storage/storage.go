// Package storage is the persistence collaborator for the computation core.
// The core consumes ordered series and writes derived points through the
// Store interface; it never touches SQL itself.
package storage

import (
	"context"
	"time"

	"gsrd/internal/metrics"
	"gsrd/internal/series"
)

// RatioAnalysis is the latest ratio observation joined with its most recent
// rolling statistics, as consumed by signal generation.
type RatioAnalysis struct {
	Ratio      float64          `json:"ratio"`
	Timestamp  time.Time        `json:"timestamp"`
	ZScore     series.NullFloat `json:"z_score"`
	Percentile series.NullFloat `json:"percentile"`
	BasePrice  series.NullFloat `json:"base_price"`
	QuotePrice series.NullFloat `json:"quote_price"`
}

// Store is the read/write surface the pipeline needs. Writes are idempotent:
// storing a value for an already-populated (metric, timestamp) is a no-op, so
// recomputation over populated ranges never duplicates points.
type Store interface {
	// PriceSeries returns the close-price series for an asset symbol,
	// ordered by timestamp. Zero start/end mean unbounded.
	PriceSeries(ctx context.Context, symbol string, start, end time.Time) (*series.Series, error)

	// MacroSeries returns the value series for a macro series code, ordered
	// by date.
	MacroSeries(ctx context.Context, code string, start, end time.Time) (*series.Series, error)

	// EnsureMetric returns the id of the named derived metric, creating it
	// if absent.
	EnsureMetric(ctx context.Context, name, description, method string) (int64, error)

	// SaveMetricValue stores one metric point. It reports whether the point
	// was inserted; a duplicate timestamp is skipped and reported as false.
	SaveMetricValue(ctx context.Context, metricID int64, t time.Time, value float64, metadata map[string]float64) (bool, error)

	// MetricSeries returns a stored derived metric as a plain series.
	MetricSeries(ctx context.Context, name string, start, end time.Time) (*series.Series, error)

	// RatioSeries rehydrates a stored ratio metric together with the
	// underlying asset prices carried in each point's metadata. Points
	// stored without price metadata are dropped.
	RatioSeries(ctx context.Context, name string, start, end time.Time) (*metrics.RatioSeries, error)

	// LatestRatioAnalysis returns the most recent ratio value and its
	// rolling statistics for the given window length.
	LatestRatioAnalysis(ctx context.Context, metricName string, window int) (*RatioAnalysis, error)

	// CurrentRegime returns the label of the latest open macro regime, or
	// empty when none is classified. Regimes are consumed, not computed.
	CurrentRegime(ctx context.Context) (string, error)
}
