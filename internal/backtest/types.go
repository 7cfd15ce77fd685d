package backtest

import (
	"time"

	"gsrd/internal/errors"
)

// Direction represents the direction of a simulated swap.
type Direction string

const (
	DirectionBaseToQuote Direction = "base_to_quote"
	DirectionQuoteToBase Direction = "quote_to_base"
)

// DefaultInitialBaseUnits is the starting base-asset balance when the config
// leaves it unset.
const DefaultInitialBaseUnits = 100.0

// Config holds the simulation parameters. Start/End bound the replayed range;
// zero values mean unbounded. Misordered thresholds (low >= high) are legal:
// the strategy simply never alternates.
type Config struct {
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	InitialBaseUnits   float64   `json:"initial_base_units"`
	HighThreshold      float64   `json:"high_threshold"`
	LowThreshold       float64   `json:"low_threshold"`
	PositionSizePct    float64   `json:"position_size_pct"`
	TransactionCostPct float64   `json:"transaction_cost_pct"`
}

// Validate rejects out-of-range parameters before any data is touched.
func (c *Config) Validate() error {
	if c.PositionSizePct <= 0 || c.PositionSizePct > 100 {
		return errors.NewAppErrorWithDetails(
			errors.ErrCodeInvalidConfig,
			"invalid backtest configuration",
			"position_size_pct must be in (0, 100]",
			nil,
		).WithContext("position_size_pct", c.PositionSizePct)
	}
	if c.TransactionCostPct < 0 || c.TransactionCostPct >= 1 {
		return errors.NewAppErrorWithDetails(
			errors.ErrCodeInvalidConfig,
			"invalid backtest configuration",
			"transaction_cost_pct must be in [0, 1)",
			nil,
		).WithContext("transaction_cost_pct", c.TransactionCostPct)
	}
	if c.InitialBaseUnits < 0 {
		return errors.NewAppErrorWithDetails(
			errors.ErrCodeInvalidConfig,
			"invalid backtest configuration",
			"initial_base_units must not be negative",
			nil,
		).WithContext("initial_base_units", c.InitialBaseUnits)
	}
	return nil
}

// Trade records one executed swap. Trades are immutable once appended to the
// trade log.
type Trade struct {
	Date             time.Time `json:"date"`
	Direction        Direction `json:"direction"`
	RatioAtTrade     float64   `json:"ratio_at_trade"`
	BaseUnitsBefore  float64   `json:"base_units_before"`
	QuoteUnitsBefore float64   `json:"quote_units_before"`
	BaseUnitsAfter   float64   `json:"base_units_after"`
	QuoteUnitsAfter  float64   `json:"quote_units_after"`
	CostBaseUnits    float64   `json:"cost_base_units"`
}

// EquityPoint is the portfolio state at one bar, valued in base units. One
// point is recorded per input timestamp, including bars with no trade.
type EquityPoint struct {
	Date                time.Time `json:"date"`
	BaseUnits           float64   `json:"base_units"`
	QuoteUnits          float64   `json:"quote_units"`
	Ratio               float64   `json:"ratio"`
	TotalBaseEquivalent float64   `json:"total_base_equivalent"`
}

// Result is the completed simulation output. It is derived entirely from the
// config, trade log and equity curve, and is never mutated after construction.
type Result struct {
	ID                  string        `json:"id"`
	Config              Config        `json:"config"`
	FinalBaseEquivalent float64       `json:"final_base_equivalent"`
	Trades              []Trade       `json:"trades"`
	EquityCurve         []EquityPoint `json:"equity_curve"`
	Gain                float64       `json:"gain"`
	GainPct             float64       `json:"gain_pct"`
	TotalTrades         int           `json:"total_trades"`
	WinningTrades       int           `json:"winning_trades"`
	WinRate             float64       `json:"win_rate"`
	MaxDrawdown         float64       `json:"max_drawdown"`
	SharpeRatio         float64       `json:"sharpe_ratio"`
}
