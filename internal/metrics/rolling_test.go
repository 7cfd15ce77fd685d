package metrics

import (
	"math"
	"reflect"
	"testing"

	"gsrd/internal/errors"
	"gsrd/internal/series"
)

func valueSeries(values ...float64) *series.Series {
	points := make([]series.Point, len(values))
	for i, v := range values {
		points[i] = series.Point{Timestamp: day(i), Value: v}
	}
	return series.New("test", points)
}

func TestComputeRollingStats(t *testing.T) {
	s := valueSeries(70, 75, 80, 85, 90)

	result, err := ComputeRollingStats(s, []int{3})
	if err != nil {
		t.Fatalf("ComputeRollingStats failed: %v", err)
	}

	stats := result[3]
	if stats == nil {
		t.Fatal("missing window 3 in result")
	}
	if len(stats.Points) != 5 {
		t.Fatalf("expected 5 points, got %d", len(stats.Points))
	}

	t.Run("unfilled prefix is missing", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			p := stats.Points[i]
			if p.Mean.Valid || p.Std.Valid || p.ZScore.Valid || p.Percentile.Valid {
				t.Errorf("point %d: expected missing stats before window fills, got %+v", i, p)
			}
		}
	})

	t.Run("trailing mean", func(t *testing.T) {
		last := stats.Points[4]
		if !last.Mean.Valid || last.Mean.Float64 != 85.0 {
			t.Errorf("expected trailing mean 85.0, got %+v", last.Mean)
		}
	})

	t.Run("sample std", func(t *testing.T) {
		// Window [80, 85, 90]: sample variance 25, std 5.
		last := stats.Points[4]
		if !last.Std.Valid || math.Abs(last.Std.Float64-5.0) > 1e-9 {
			t.Errorf("expected trailing std 5.0, got %+v", last.Std)
		}
	})

	t.Run("z-score", func(t *testing.T) {
		last := stats.Points[4]
		if !last.ZScore.Valid || math.Abs(last.ZScore.Float64-1.0) > 1e-9 {
			t.Errorf("expected trailing z-score 1.0, got %+v", last.ZScore)
		}
	})

	t.Run("percentile rank", func(t *testing.T) {
		// Window [80, 85, 90], current 90: 2 of 3 strictly below.
		last := stats.Points[4]
		want := 2.0 / 3.0 * 100
		if !last.Percentile.Valid || math.Abs(last.Percentile.Float64-want) > 1e-9 {
			t.Errorf("expected percentile %.4f, got %+v", want, last.Percentile)
		}
	})
}

func TestRollingStatsZeroVariance(t *testing.T) {
	s := valueSeries(50, 50, 50, 50)

	result, err := ComputeRollingStats(s, []int{3})
	if err != nil {
		t.Fatalf("ComputeRollingStats failed: %v", err)
	}

	last := result[3].Points[3]
	if !last.Std.Valid || last.Std.Float64 != 0 {
		t.Errorf("expected std exactly 0 for constant window, got %+v", last.Std)
	}
	if last.ZScore.Valid {
		t.Errorf("expected missing z-score for zero std, got %+v", last.ZScore)
	}
}

func TestRollingStatsZScoreZeroAtMean(t *testing.T) {
	// Current value equals the trailing mean with nonzero variance.
	s := valueSeries(70, 90, 80)

	result, err := ComputeRollingStats(s, []int{3})
	if err != nil {
		t.Fatalf("ComputeRollingStats failed: %v", err)
	}

	last := result[3].Points[2]
	if !last.ZScore.Valid || last.ZScore.Float64 != 0 {
		t.Errorf("expected z-score exactly 0, got %+v", last.ZScore)
	}
}

func TestPercentileRankTies(t *testing.T) {
	window := []series.Point{
		{Value: 5}, {Value: 5}, {Value: 5},
	}
	if got := percentileRank(window, 5); got != 0 {
		t.Errorf("ties count as not-less: expected 0, got %v", got)
	}

	window = []series.Point{
		{Value: 1}, {Value: 2}, {Value: 3}, {Value: 4}, {Value: 5},
	}
	if got := percentileRank(window, 5); got != 80 {
		t.Errorf("expected 80 (4 of 5 strictly below), got %v", got)
	}
}

func TestRollingStatsIdempotent(t *testing.T) {
	s := valueSeries(70, 75, 80, 85, 90)

	first, err := ComputeRollingStats(s, []int{2, 3})
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := ComputeRollingStats(s, []int{2, 3})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("recomputation over the same input produced different output")
	}
}

func TestRollingStatsInvalidWindow(t *testing.T) {
	s := valueSeries(1, 2, 3)

	_, err := ComputeRollingStats(s, []int{1})
	if !errors.IsCode(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("expected invalid-config error for window 1, got %v", err)
	}

	_, err = ComputeRollingStats(series.New("empty", nil), []int{3})
	if !errors.IsCode(err, errors.ErrCodeInsufficientData) {
		t.Errorf("expected insufficient-data error for empty series, got %v", err)
	}
}
