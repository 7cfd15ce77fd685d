package metrics

import (
	"time"

	"gsrd/internal/errors"
	"gsrd/internal/series"
)

// RatioPoint is one observation of a derived ratio metric together with the
// two underlying prices it was computed from. The backtester needs both
// prices to convert balances between the assets.
type RatioPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	Ratio      float64   `json:"ratio"`
	BasePrice  float64   `json:"base_price"`
	QuotePrice float64   `json:"quote_price"`
}

// RatioSeries is a named, timestamp-ordered ratio metric series.
type RatioSeries struct {
	Name   string       `json:"name"`
	Points []RatioPoint `json:"points"`
}

// Len returns the number of points in the series.
func (s *RatioSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// Series converts the ratio series to a plain value series.
func (s *RatioSeries) Series() *series.Series {
	points := make([]series.Point, len(s.Points))
	for i, p := range s.Points {
		points[i] = series.Point{Timestamp: p.Timestamp, Value: p.Ratio}
	}
	return &series.Series{Name: s.Name, Points: points}
}

// RatioResult is the outcome of a ratio computation. Excluded lists the
// timestamps of joined points that were dropped because the quote price was
// zero; callers decide whether that matters, the engine only reports it.
type RatioResult struct {
	Series   *RatioSeries `json:"series"`
	Excluded []time.Time  `json:"excluded,omitempty"`
}

// ComputeRatio derives a ratio metric from two price series by inner-joining
// them on exact timestamps and dividing base by quote. Points present in only
// one series are dropped without interpolation. Returns an insufficient-data
// error when either input is empty or the join produces no points.
func ComputeRatio(name string, base, quote *series.Series) (*RatioResult, error) {
	if base.Empty() || quote.Empty() {
		return nil, errors.NewAppErrorWithDetails(
			errors.ErrCodeInsufficientData,
			"cannot compute ratio",
			"one or both input price series are empty",
			nil,
		)
	}

	pairs := series.Align(base, quote)
	if len(pairs) == 0 {
		return nil, errors.NewAppErrorWithDetails(
			errors.ErrCodeInsufficientData,
			"cannot compute ratio",
			"price series have no overlapping timestamps",
			nil,
		)
	}

	result := &RatioResult{
		Series: &RatioSeries{
			Name:   name,
			Points: make([]RatioPoint, 0, len(pairs)),
		},
	}

	for _, pair := range pairs {
		if pair.B == 0 {
			result.Excluded = append(result.Excluded, pair.Timestamp)
			continue
		}
		result.Series.Points = append(result.Series.Points, RatioPoint{
			Timestamp:  pair.Timestamp,
			Ratio:      pair.A / pair.B,
			BasePrice:  pair.A,
			QuotePrice: pair.B,
		})
	}

	if len(result.Series.Points) == 0 {
		return nil, errors.NewAppErrorWithDetails(
			errors.ErrCodeInsufficientData,
			"cannot compute ratio",
			"every joined point has a zero quote price",
			nil,
		)
	}

	return result, nil
}
