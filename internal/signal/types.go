package signal

import (
	"time"

	"gsrd/internal/series"
)

// Type represents the signal direction.
type Type string

const (
	// TypeSwapBaseToQuote fires when the ratio is rich: the base asset buys
	// unusually many quote units, so rotate base into quote.
	TypeSwapBaseToQuote Type = "swap_base_to_quote"
	// TypeSwapQuoteToBase fires when the ratio is cheap: rotate quote back
	// into base.
	TypeSwapQuoteToBase Type = "swap_quote_to_base"
)

// Signal is a directional trading recommendation. Signals are created fresh
// on every evaluation and never persisted by this package.
type Signal struct {
	Type            Type             `json:"type"`
	Strength        float64          `json:"strength"`
	RatioValue      float64          `json:"ratio_value"`
	Percentile      series.NullFloat `json:"percentile"`
	ZScore          series.NullFloat `json:"z_score"`
	Regime          string           `json:"regime"`
	Recommendation  string           `json:"recommendation"`
	PositionSizePct float64          `json:"position_size_pct"`
	Reasoning       []string         `json:"reasoning"`
	Timestamp       time.Time        `json:"timestamp"`
}

// Input carries the latest ratio observation and its rolling statistics.
// ZScore and Percentile may be missing; conditions that depend on them are
// simply skipped.
type Input struct {
	Ratio      float64
	ZScore     series.NullFloat
	Percentile series.NullFloat
	Regime     string
	Timestamp  time.Time
}

// Thresholds bound the neutral zone in which no swap signal fires.
type Thresholds struct {
	High float64
	Low  float64
}

// DefaultThresholds are the standard ratio bands.
var DefaultThresholds = Thresholds{High: 85.0, Low: 65.0}
