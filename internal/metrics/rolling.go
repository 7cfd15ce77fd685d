package metrics

import (
	"math"
	"time"

	"gsrd/internal/errors"
	"gsrd/internal/series"
)

// StatsPoint holds the trailing-window statistics for one input index.
// Mean/Std/ZScore/Percentile are missing while the window is not yet full;
// ZScore is additionally missing when the window has zero variance.
type StatsPoint struct {
	Timestamp  time.Time        `json:"timestamp"`
	Value      float64          `json:"value"`
	Mean       series.NullFloat `json:"mean"`
	Std        series.NullFloat `json:"std"`
	ZScore     series.NullFloat `json:"zscore"`
	Percentile series.NullFloat `json:"percentile"`
}

// WindowStats is the rolling-statistics series for a single window length.
type WindowStats struct {
	Window int          `json:"window"`
	Points []StatsPoint `json:"points"`
}

// ComputeRollingStats computes trailing-window mean, sample standard
// deviation, z-score and percentile rank for every requested window length.
// The input is never mutated and recomputation over the same input yields
// identical output.
func ComputeRollingStats(s *series.Series, windows []int) (map[int]*WindowStats, error) {
	if s.Empty() {
		return nil, errors.NewAppErrorWithDetails(
			errors.ErrCodeInsufficientData,
			"cannot compute rolling statistics",
			"input series is empty",
			nil,
		)
	}
	for _, w := range windows {
		if w < 2 {
			return nil, errors.NewAppErrorWithDetails(
				errors.ErrCodeInvalidConfig,
				"invalid rolling window",
				"window length must be at least 2",
				nil,
			).WithContext("window", w)
		}
	}

	result := make(map[int]*WindowStats, len(windows))
	for _, w := range windows {
		result[w] = computeWindowStats(s, w)
	}
	return result, nil
}

// computeWindowStats slides a window of length w across the series,
// maintaining a running sum for the mean. Std and percentile scan the window.
// The percentile rank is the fraction of trailing values strictly less than
// the current value, scaled to 0-100; ties count as not-less.
func computeWindowStats(s *series.Series, w int) *WindowStats {
	stats := &WindowStats{
		Window: w,
		Points: make([]StatsPoint, len(s.Points)),
	}

	var sum float64
	for i, p := range s.Points {
		sum += p.Value
		if i >= w {
			sum -= s.Points[i-w].Value
		}

		point := StatsPoint{Timestamp: p.Timestamp, Value: p.Value}
		if i >= w-1 {
			window := s.Points[i-w+1 : i+1]
			mean := sum / float64(w)
			std := sampleStd(window, mean)

			point.Mean = series.Float(mean)
			point.Std = series.Float(std)
			if std > 0 {
				point.ZScore = series.Float((p.Value - mean) / std)
			}
			point.Percentile = series.Float(percentileRank(window, p.Value))
		}
		stats.Points[i] = point
	}
	return stats
}

// sampleStd computes the sample standard deviation (n-1 denominator) of the
// window. A zero-variance window yields exactly 0, not NaN.
func sampleStd(window []series.Point, mean float64) float64 {
	if len(window) < 2 {
		return 0
	}
	var variance float64
	for _, p := range window {
		diff := p.Value - mean
		variance += diff * diff
	}
	variance /= float64(len(window) - 1)
	if variance <= 0 {
		return 0
	}
	return math.Sqrt(variance)
}

// percentileRank returns the percentage of window values strictly less than
// value.
func percentileRank(window []series.Point, value float64) float64 {
	below := 0
	for _, p := range window {
		if p.Value < value {
			below++
		}
	}
	return float64(below) / float64(len(window)) * 100
}
