package backtest

import (
	"github.com/sirupsen/logrus"

	"gsrd/internal/errors"
	"gsrd/internal/metrics"
)

// Engine replays a ratio series bar by bar and simulates threshold swaps
// between the two underlying assets. The engine holds no state across runs;
// every Run is an independent simulation over immutable inputs.
type Engine struct {
	logger logrus.FieldLogger
}

// NewEngine creates a backtest engine.
func NewEngine(logger logrus.FieldLogger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{logger: logger}
}

// Run simulates the swap strategy over the ratio series. The series carries,
// per bar, the ratio value plus both underlying asset prices. Bars are
// replayed strictly in timestamp order.
func (e *Engine) Run(ratio *metrics.RatioSeries, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ratio.Len() == 0 {
		return nil, errors.NewAppErrorWithDetails(
			errors.ErrCodeNoData,
			"cannot run backtest",
			"ratio series is empty",
			nil,
		)
	}

	bars := barsInRange(ratio.Points, cfg)
	if len(bars) == 0 {
		return nil, errors.NewAppErrorWithDetails(
			errors.ErrCodeNoData,
			"cannot run backtest",
			"no ratio data in the configured date range",
			nil,
		)
	}

	initialBase := cfg.InitialBaseUnits
	if initialBase == 0 {
		initialBase = DefaultInitialBaseUnits
	}

	baseUnits := initialBase
	quoteUnits := 0.0
	var lastAction Direction

	trades := make([]Trade, 0)
	curve := make([]EquityPoint, 0, len(bars))

	for _, bar := range bars {
		curve = append(curve, EquityPoint{
			Date:                bar.Timestamp,
			BaseUnits:           baseUnits,
			QuoteUnits:          quoteUnits,
			Ratio:               bar.Ratio,
			TotalBaseEquivalent: baseEquivalent(baseUnits, quoteUnits, bar),
		})

		// lastAction debounces the trigger: a ratio parked beyond a band
		// fires once, and only a swap in the other direction re-arms it.
		switch {
		case bar.Ratio >= cfg.HighThreshold && lastAction != DirectionBaseToQuote:
			swapAmount := baseUnits * (cfg.PositionSizePct / 100.0)
			if swapAmount <= 0 {
				continue
			}

			netAmount := swapAmount * (1 - cfg.TransactionCostPct)
			quoteReceived := netAmount * bar.BasePrice / bar.QuotePrice

			trade := Trade{
				Date:             bar.Timestamp,
				Direction:        DirectionBaseToQuote,
				RatioAtTrade:     bar.Ratio,
				BaseUnitsBefore:  baseUnits,
				QuoteUnitsBefore: quoteUnits,
				CostBaseUnits:    swapAmount * cfg.TransactionCostPct,
			}

			baseUnits -= swapAmount
			quoteUnits += quoteReceived
			trade.BaseUnitsAfter = baseUnits
			trade.QuoteUnitsAfter = quoteUnits
			trades = append(trades, trade)
			lastAction = DirectionBaseToQuote

			e.logger.WithFields(logrus.Fields{
				"date":  bar.Timestamp,
				"ratio": bar.Ratio,
				"swap":  swapAmount,
			}).Debug("swapped base to quote")

		case bar.Ratio <= cfg.LowThreshold && lastAction != DirectionQuoteToBase:
			swapAmount := quoteUnits * (cfg.PositionSizePct / 100.0)
			if swapAmount <= 0 {
				continue
			}

			netAmount := swapAmount * (1 - cfg.TransactionCostPct)
			baseReceived := netAmount * bar.QuotePrice / bar.BasePrice

			trade := Trade{
				Date:             bar.Timestamp,
				Direction:        DirectionQuoteToBase,
				RatioAtTrade:     bar.Ratio,
				BaseUnitsBefore:  baseUnits,
				QuoteUnitsBefore: quoteUnits,
				CostBaseUnits:    swapAmount * bar.QuotePrice / bar.BasePrice * cfg.TransactionCostPct,
			}

			quoteUnits -= swapAmount
			baseUnits += baseReceived
			trade.BaseUnitsAfter = baseUnits
			trade.QuoteUnitsAfter = quoteUnits
			trades = append(trades, trade)
			lastAction = DirectionQuoteToBase

			e.logger.WithFields(logrus.Fields{
				"date":  bar.Timestamp,
				"ratio": bar.Ratio,
				"swap":  swapAmount,
			}).Debug("swapped quote to base")
		}
	}

	last := bars[len(bars)-1]
	finalBase := baseEquivalent(baseUnits, quoteUnits, last)

	result := newResult(cfg, initialBase, finalBase, trades, curve)

	e.logger.WithFields(logrus.Fields{
		"gain_pct": result.GainPct,
		"trades":   result.TotalTrades,
		"win_rate": result.WinRate,
	}).Info("backtest complete")

	return result, nil
}

// baseEquivalent values the whole portfolio in base units at the bar's prices.
func baseEquivalent(baseUnits, quoteUnits float64, bar metrics.RatioPoint) float64 {
	return baseUnits + quoteUnits*bar.QuotePrice/bar.BasePrice
}

func barsInRange(points []metrics.RatioPoint, cfg Config) []metrics.RatioPoint {
	if cfg.Start.IsZero() && cfg.End.IsZero() {
		return points
	}
	bars := make([]metrics.RatioPoint, 0, len(points))
	for _, p := range points {
		if !cfg.Start.IsZero() && p.Timestamp.Before(cfg.Start) {
			continue
		}
		if !cfg.End.IsZero() && p.Timestamp.After(cfg.End) {
			continue
		}
		bars = append(bars, p)
	}
	return bars
}
