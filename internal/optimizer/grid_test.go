package optimizer

import (
	"context"
	"testing"
	"time"

	"gsrd/internal/backtest"
	"gsrd/internal/errors"
	"gsrd/internal/metrics"
)

func ratioSeries(ratios ...float64) *metrics.RatioSeries {
	s := &metrics.RatioSeries{Name: "GSR"}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, r := range ratios {
		s.Points = append(s.Points, metrics.RatioPoint{
			Timestamp:  start.AddDate(0, 0, i),
			Ratio:      r,
			BasePrice:  2000,
			QuotePrice: 2000 / r,
		})
	}
	return s
}

func baseConfig() backtest.Config {
	return backtest.Config{InitialBaseUnits: 100}
}

func TestOptimizeSingletonRanges(t *testing.T) {
	opt := NewOptimizer(backtest.NewEngine(nil), nil, 2)

	ranges := ParamRanges{
		HighThresholds:   []float64{85},
		LowThresholds:    []float64{65},
		PositionSizes:    []float64{15},
		TransactionCosts: []float64{0.02},
	}

	report, err := opt.Optimize(context.Background(), ratioSeries(85, 80, 65, 70), baseConfig(), ranges)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if len(report.AllResults) != 1 {
		t.Fatalf("expected 1 result, got %d", len(report.AllResults))
	}
	if report.BestParams == nil {
		t.Fatal("expected best params")
	}
	want := Params{HighThreshold: 85, LowThreshold: 65, PositionSizePct: 15, TransactionCostPct: 0.02}
	if *report.BestParams != want {
		t.Errorf("expected %+v, got %+v", want, *report.BestParams)
	}
	if report.BestResult == nil {
		t.Error("expected the winning backtest result")
	}
}

func TestOptimizeGridOrder(t *testing.T) {
	opt := NewOptimizer(backtest.NewEngine(nil), nil, 4)

	ranges := ParamRanges{
		HighThresholds:   []float64{85, 90},
		LowThresholds:    []float64{60, 65},
		PositionSizes:    []float64{15},
		TransactionCosts: []float64{0.02},
	}

	report, err := opt.Optimize(context.Background(), ratioSeries(85, 92, 60, 70), baseConfig(), ranges)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if len(report.AllResults) != 4 {
		t.Fatalf("expected 4 results, got %d", len(report.AllResults))
	}

	// Enumeration order is high, then low, regardless of worker scheduling.
	wantOrder := []Params{
		{85, 60, 15, 0.02},
		{85, 65, 15, 0.02},
		{90, 60, 15, 0.02},
		{90, 65, 15, 0.02},
	}
	for i, want := range wantOrder {
		if report.AllResults[i].Params != want {
			t.Errorf("result %d: expected %+v, got %+v", i, want, report.AllResults[i].Params)
		}
	}
}

func TestOptimizeEmptyRangesUseDefaults(t *testing.T) {
	opt := NewOptimizer(backtest.NewEngine(nil), nil, 0)

	report, err := opt.Optimize(context.Background(), ratioSeries(85, 80), baseConfig(), ParamRanges{})
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if len(report.AllResults) != 1 {
		t.Fatalf("expected the single default combination, got %d", len(report.AllResults))
	}
}

func TestOptimizeSkipsInvalidCombos(t *testing.T) {
	opt := NewOptimizer(backtest.NewEngine(nil), nil, 2)

	ranges := ParamRanges{
		HighThresholds:   []float64{85},
		LowThresholds:    []float64{65},
		PositionSizes:    []float64{15, 200}, // 200 is out of range
		TransactionCosts: []float64{0.02},
	}

	report, err := opt.Optimize(context.Background(), ratioSeries(85, 80), baseConfig(), ranges)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if len(report.AllResults) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.AllResults))
	}

	skipped := 0
	for _, eval := range report.AllResults {
		if eval.Skipped {
			skipped++
			if eval.Error == "" {
				t.Error("skipped combination must carry the failure message")
			}
		}
	}
	if skipped != 1 {
		t.Errorf("expected 1 skipped combination, got %d", skipped)
	}
	if report.BestParams == nil || report.BestParams.PositionSizePct != 15 {
		t.Errorf("expected the valid combination to win, got %+v", report.BestParams)
	}
}

func TestOptimizeAllSkipped(t *testing.T) {
	opt := NewOptimizer(backtest.NewEngine(nil), nil, 1)

	ranges := ParamRanges{PositionSizes: []float64{0}}
	report, err := opt.Optimize(context.Background(), ratioSeries(85, 80), baseConfig(), ranges)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if report.BestParams != nil || report.BestResult != nil {
		t.Errorf("expected no winner when every combination is skipped, got %+v", report.BestParams)
	}
}

func TestOptimizeEmptySeries(t *testing.T) {
	opt := NewOptimizer(backtest.NewEngine(nil), nil, 1)

	_, err := opt.Optimize(context.Background(), &metrics.RatioSeries{}, baseConfig(), ParamRanges{})
	if !errors.IsCode(err, errors.ErrCodeNoData) {
		t.Errorf("expected no-data error, got %v", err)
	}
}

func TestOptimizeCancellation(t *testing.T) {
	opt := NewOptimizer(backtest.NewEngine(nil), nil, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := opt.Optimize(ctx, ratioSeries(85, 80), baseConfig(), ParamRanges{
		HighThresholds: []float64{80, 85, 90, 95},
	})
	if !errors.IsCode(err, errors.ErrCodeTimeout) {
		t.Errorf("expected cancellation error, got %v", err)
	}
}
