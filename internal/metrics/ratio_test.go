package metrics

import (
	"testing"
	"time"

	"gsrd/internal/errors"
	"gsrd/internal/series"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestComputeRatio(t *testing.T) {
	base := series.New("XAU", []series.Point{
		{Timestamp: day(0), Value: 2000},
		{Timestamp: day(1), Value: 2040},
		{Timestamp: day(2), Value: 2080},
	})
	quote := series.New("XAG", []series.Point{
		{Timestamp: day(0), Value: 25},
		{Timestamp: day(1), Value: 24},
		{Timestamp: day(3), Value: 26},
	})

	result, err := ComputeRatio("GSR", base, quote)
	if err != nil {
		t.Fatalf("ComputeRatio failed: %v", err)
	}

	// Only the jointly-present timestamps survive; day(2) and day(3) are
	// present in one series each and must be dropped.
	if len(result.Series.Points) != 2 {
		t.Fatalf("expected 2 ratio points, got %d", len(result.Series.Points))
	}

	first := result.Series.Points[0]
	if first.Ratio != 80.0 {
		t.Errorf("expected ratio 80.0, got %v", first.Ratio)
	}
	if first.BasePrice != 2000 || first.QuotePrice != 25 {
		t.Errorf("unexpected prices on first point: %+v", first)
	}

	second := result.Series.Points[1]
	if second.Ratio != 85.0 {
		t.Errorf("expected ratio 85.0, got %v", second.Ratio)
	}
}

func TestComputeRatioZeroQuote(t *testing.T) {
	base := series.New("XAU", []series.Point{
		{Timestamp: day(0), Value: 2000},
		{Timestamp: day(1), Value: 2040},
	})
	quote := series.New("XAG", []series.Point{
		{Timestamp: day(0), Value: 0},
		{Timestamp: day(1), Value: 24},
	})

	result, err := ComputeRatio("GSR", base, quote)
	if err != nil {
		t.Fatalf("ComputeRatio failed: %v", err)
	}

	if len(result.Series.Points) != 1 {
		t.Fatalf("expected 1 ratio point, got %d", len(result.Series.Points))
	}
	if len(result.Excluded) != 1 || !result.Excluded[0].Equal(day(0)) {
		t.Errorf("expected day(0) excluded, got %v", result.Excluded)
	}
}

func TestComputeRatioInsufficientData(t *testing.T) {
	base := series.New("XAU", []series.Point{{Timestamp: day(0), Value: 2000}})

	_, err := ComputeRatio("GSR", base, series.New("XAG", nil))
	if !errors.IsCode(err, errors.ErrCodeInsufficientData) {
		t.Errorf("expected insufficient-data error, got %v", err)
	}

	// No overlap at all is also insufficient.
	quote := series.New("XAG", []series.Point{{Timestamp: day(5), Value: 25}})
	_, err = ComputeRatio("GSR", base, quote)
	if !errors.IsCode(err, errors.ErrCodeInsufficientData) {
		t.Errorf("expected insufficient-data error for disjoint series, got %v", err)
	}
}
