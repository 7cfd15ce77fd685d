package metrics

import (
	"math"
	"time"

	"gsrd/internal/errors"
	"gsrd/internal/series"
)

// CorrPoint is a rolling correlation observation. Corr is missing while the
// window is not yet full or when either sequence is constant over the window.
type CorrPoint struct {
	Timestamp time.Time        `json:"timestamp"`
	Corr      series.NullFloat `json:"corr"`
}

// WindowCorrelation is the rolling correlation series for one window length.
type WindowCorrelation struct {
	Window int         `json:"window"`
	Points []CorrPoint `json:"points"`
}

// ComputeRollingCorrelation computes the trailing-window Pearson correlation
// between a metric series and a counterpart series for every requested window
// length. The two series are inner-joined on timestamp first, so windows are
// counted in joined points, not calendar days. The engine holds no opinion on
// what to correlate against; the counterpart is whatever the caller supplies.
func ComputeRollingCorrelation(metric, other *series.Series, windows []int) (map[int]*WindowCorrelation, error) {
	if metric.Empty() || other.Empty() {
		return nil, errors.NewAppErrorWithDetails(
			errors.ErrCodeInsufficientData,
			"cannot compute rolling correlation",
			"one or both input series are empty",
			nil,
		)
	}
	for _, w := range windows {
		if w < 2 {
			return nil, errors.NewAppErrorWithDetails(
				errors.ErrCodeInvalidConfig,
				"invalid correlation window",
				"window length must be at least 2",
				nil,
			).WithContext("window", w)
		}
	}

	pairs := series.Align(metric, other)
	if len(pairs) == 0 {
		return nil, errors.NewAppErrorWithDetails(
			errors.ErrCodeInsufficientData,
			"cannot compute rolling correlation",
			"series have no overlapping timestamps",
			nil,
		)
	}

	result := make(map[int]*WindowCorrelation, len(windows))
	for _, w := range windows {
		result[w] = computeWindowCorrelation(pairs, w)
	}
	return result, nil
}

func computeWindowCorrelation(pairs []series.AlignedPair, w int) *WindowCorrelation {
	corr := &WindowCorrelation{
		Window: w,
		Points: make([]CorrPoint, len(pairs)),
	}

	for i, pair := range pairs {
		point := CorrPoint{Timestamp: pair.Timestamp}
		if i >= w-1 {
			point.Corr = pearson(pairs[i-w+1 : i+1])
		}
		corr.Points[i] = point
	}
	return corr
}

// pearson computes the Pearson correlation coefficient over a window of
// aligned pairs. A constant sequence on either side makes the coefficient
// undefined, reported as missing rather than zero.
func pearson(window []series.AlignedPair) series.NullFloat {
	n := float64(len(window))

	var meanA, meanB float64
	for _, p := range window {
		meanA += p.A
		meanB += p.B
	}
	meanA /= n
	meanB /= n

	var cov, varA, varB float64
	for _, p := range window {
		da := p.A - meanA
		db := p.B - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	if varA == 0 || varB == 0 {
		return series.Null()
	}
	return series.FloatOrNull(cov / math.Sqrt(varA*varB))
}
