package signal

import (
	"strings"
	"testing"
	"time"

	"gsrd/internal/series"
)

func TestEvaluateHighSide(t *testing.T) {
	gen := NewGenerator(DefaultThresholds)

	sig := gen.Evaluate(Input{
		Ratio:      88.2,
		ZScore:     series.Float(2.5),
		Percentile: series.Float(95.3),
		Regime:     "neutral",
		Timestamp:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if sig == nil {
		t.Fatal("expected a high-side signal")
	}

	if sig.Type != TypeSwapBaseToQuote {
		t.Errorf("expected %s, got %s", TypeSwapBaseToQuote, sig.Type)
	}
	// 50 base + 10 (ratio >= 85) + 15 (z >= 2.0) + 15 (pct >= 95) = 90.
	if sig.Strength != 90 {
		t.Errorf("expected strength 90, got %v", sig.Strength)
	}
	if sig.PositionSizePct != 20.0 {
		t.Errorf("expected position size 20, got %v", sig.PositionSizePct)
	}
	if len(sig.Reasoning) != 3 {
		t.Fatalf("expected 3 reasoning entries, got %d: %v", len(sig.Reasoning), sig.Reasoning)
	}
	if !strings.Contains(sig.Reasoning[0], "ratio") {
		t.Errorf("expected ratio condition first, got %q", sig.Reasoning[0])
	}
	if !strings.Contains(sig.Reasoning[2], "percentile") {
		t.Errorf("expected percentile condition last, got %q", sig.Reasoning[2])
	}
}

func TestEvaluateStrongHigh(t *testing.T) {
	gen := NewGenerator(DefaultThresholds)

	sig := gen.Evaluate(Input{
		Ratio:      91.0,
		ZScore:     series.Float(2.1),
		Percentile: series.Float(97.0),
	})
	if sig == nil {
		t.Fatal("expected a signal")
	}
	// 50 + 20 (ratio >= 90) + 15 + 15 = 100, clamped at 100.
	if sig.Strength != 100 {
		t.Errorf("expected strength 100, got %v", sig.Strength)
	}
}

func TestEvaluateLowSide(t *testing.T) {
	gen := NewGenerator(DefaultThresholds)

	sig := gen.Evaluate(Input{
		Ratio:      58.0,
		ZScore:     series.Float(-1.8),
		Percentile: series.Float(5.0),
	})
	if sig == nil {
		t.Fatal("expected a low-side signal")
	}
	if sig.Type != TypeSwapQuoteToBase {
		t.Errorf("expected %s, got %s", TypeSwapQuoteToBase, sig.Type)
	}
	// 50 + 20 (ratio <= 60) + 15 (z <= -1.5) + 15 (pct <= 10) = 100.
	if sig.Strength != 100 {
		t.Errorf("expected strength 100, got %v", sig.Strength)
	}
}

func TestEvaluateNeutralZone(t *testing.T) {
	gen := NewGenerator(DefaultThresholds)

	sig := gen.Evaluate(Input{
		Ratio:      75.0,
		ZScore:     series.Float(0.2),
		Percentile: series.Float(50.0),
	})
	if sig != nil {
		t.Errorf("expected no signal inside the neutral zone, got %+v", sig)
	}
}

func TestEvaluatePercentileOnlyTrigger(t *testing.T) {
	gen := NewGenerator(DefaultThresholds)

	// Ratio below the high threshold, but the percentile alone triggers.
	sig := gen.Evaluate(Input{
		Ratio:      80.0,
		Percentile: series.Float(86.0),
	})
	if sig == nil {
		t.Fatal("expected a percentile-triggered signal")
	}
	if sig.Type != TypeSwapBaseToQuote {
		t.Errorf("expected high-side signal, got %s", sig.Type)
	}
	// Base 50 only: the ratio bonus and the >=90 percentile bonus do not apply.
	if sig.Strength != 50 {
		t.Errorf("expected strength 50, got %v", sig.Strength)
	}
	if sig.PositionSizePct != 10.0 {
		t.Errorf("expected position size 10, got %v", sig.PositionSizePct)
	}
}

func TestEvaluateMissingStats(t *testing.T) {
	gen := NewGenerator(DefaultThresholds)

	// Missing z-score and percentile skip their conditions without failing.
	sig := gen.Evaluate(Input{Ratio: 88.0})
	if sig == nil {
		t.Fatal("expected a signal from the ratio threshold alone")
	}
	if sig.Strength != 60 {
		t.Errorf("expected strength 60 (base + ratio bonus), got %v", sig.Strength)
	}
	if len(sig.Reasoning) != 1 {
		t.Errorf("expected a single reasoning entry, got %v", sig.Reasoning)
	}
}

func TestEvaluateOverlappingBandsHighWins(t *testing.T) {
	// Misconfigured bands where both sides trigger at once: high wins.
	gen := NewGenerator(Thresholds{High: 70, Low: 80})

	sig := gen.Evaluate(Input{Ratio: 75.0})
	if sig == nil {
		t.Fatal("expected a signal")
	}
	if sig.Type != TypeSwapBaseToQuote {
		t.Errorf("expected high side to win the tie-break, got %s", sig.Type)
	}
}

func TestPositionSizeSteps(t *testing.T) {
	cases := []struct {
		strength float64
		want     float64
	}{
		{100, 20.0},
		{80, 20.0},
		{79.9, 15.0},
		{70, 15.0},
		{65, 12.5},
		{60, 12.5},
		{59.9, 10.0},
		{0, 10.0},
	}
	for _, c := range cases {
		if got := positionSizeForStrength(c.strength); got != c.want {
			t.Errorf("strength %v: expected %v, got %v", c.strength, c.want, got)
		}
	}
}
