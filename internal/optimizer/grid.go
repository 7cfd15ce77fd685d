package optimizer

import (
	"context"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"gsrd/internal/backtest"
	"gsrd/internal/errors"
	"gsrd/internal/metrics"
)

// Params is one point in the strategy parameter grid.
type Params struct {
	HighThreshold      float64 `json:"high_threshold"`
	LowThreshold       float64 `json:"low_threshold"`
	PositionSizePct    float64 `json:"position_size_pct"`
	TransactionCostPct float64 `json:"transaction_cost_pct"`
}

// ParamRanges lists the candidate values per parameter. Empty lists fall back
// to the single default value, so an all-empty range still evaluates one
// combination.
type ParamRanges struct {
	HighThresholds   []float64 `json:"high_thresholds"`
	LowThresholds    []float64 `json:"low_thresholds"`
	PositionSizes    []float64 `json:"position_sizes"`
	TransactionCosts []float64 `json:"transaction_costs"`
}

// Default candidate values used when a range list is empty.
var (
	defaultHighThresholds   = []float64{85.0}
	defaultLowThresholds    = []float64{65.0}
	defaultPositionSizes    = []float64{15.0}
	defaultTransactionCosts = []float64{0.02}
)

// Evaluation summarizes one evaluated combination. Failed simulations are
// recorded as skipped with the failure message; they never abort the search.
type Evaluation struct {
	Params      Params  `json:"params"`
	GainPct     float64 `json:"gain_pct"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	WinRate     float64 `json:"win_rate"`
	TotalTrades int     `json:"total_trades"`
	Skipped     bool    `json:"skipped"`
	Error       string  `json:"error,omitempty"`
}

// Report is the full grid-search outcome. AllResults enumerates every
// combination in enumeration order for downstream inspection, not only the
// winner. Best fields are nil when every combination was skipped.
type Report struct {
	BestParams *Params          `json:"best_params"`
	BestResult *backtest.Result `json:"best_result"`
	AllResults []Evaluation     `json:"all_results"`
	Config     backtest.Config  `json:"config"`
}

// Optimizer grid-searches the backtest simulator over the Cartesian product
// of the supplied parameter values, maximizing gain percentage.
type Optimizer struct {
	engine  *backtest.Engine
	logger  logrus.FieldLogger
	workers int
}

// NewOptimizer creates a grid-search optimizer. workers <= 0 selects one
// worker per CPU; combinations are independent, so any worker count yields
// the same report.
func NewOptimizer(engine *backtest.Engine, logger logrus.FieldLogger, workers int) *Optimizer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Optimizer{engine: engine, logger: logger, workers: workers}
}

// Optimize evaluates every parameter combination against the ratio series.
// base holds the non-searched simulation settings (date range, initial
// balance). Result order in AllResults matches enumeration order regardless
// of worker scheduling.
func (o *Optimizer) Optimize(ctx context.Context, ratio *metrics.RatioSeries, base backtest.Config, ranges ParamRanges) (*Report, error) {
	if ratio.Len() == 0 {
		return nil, errors.NewAppErrorWithDetails(
			errors.ErrCodeNoData,
			"cannot optimize parameters",
			"ratio series is empty",
			nil,
		)
	}

	combos := enumerate(ranges)
	o.logger.WithField("combinations", len(combos)).Info("starting parameter grid search")

	evaluations := make([]Evaluation, len(combos))
	results := make([]*backtest.Result, len(combos))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				evaluations[idx], results[idx] = o.evaluate(ratio, base, combos[idx])
			}
		}()
	}

enqueue:
	for i := range combos {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break enqueue
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeTimeout, "parameter optimization cancelled")
	}

	report := &Report{
		AllResults: evaluations,
		Config:     base,
	}
	for i, eval := range evaluations {
		if eval.Skipped {
			continue
		}
		if report.BestParams == nil || eval.GainPct > report.BestResult.GainPct {
			params := eval.Params
			report.BestParams = &params
			report.BestResult = results[i]
		}
	}

	if report.BestParams == nil {
		o.logger.Warn("grid search finished with every combination skipped")
	}
	return report, nil
}

// evaluate runs one isolated simulation. Each combination writes only to its
// own result slot, so workers share nothing but the read-only input series.
func (o *Optimizer) evaluate(ratio *metrics.RatioSeries, base backtest.Config, params Params) (Evaluation, *backtest.Result) {
	cfg := base
	cfg.HighThreshold = params.HighThreshold
	cfg.LowThreshold = params.LowThreshold
	cfg.PositionSizePct = params.PositionSizePct
	cfg.TransactionCostPct = params.TransactionCostPct

	result, err := o.engine.Run(ratio, cfg)
	if err != nil {
		o.logger.WithError(err).WithField("params", params).Debug("combination skipped")
		return Evaluation{Params: params, Skipped: true, Error: err.Error()}, nil
	}

	return Evaluation{
		Params:      params,
		GainPct:     result.GainPct,
		SharpeRatio: result.SharpeRatio,
		WinRate:     result.WinRate,
		TotalTrades: result.TotalTrades,
	}, result
}

// enumerate expands the Cartesian product of the candidate values in a fixed
// order: high threshold, low threshold, position size, transaction cost.
func enumerate(ranges ParamRanges) []Params {
	highs := orDefault(ranges.HighThresholds, defaultHighThresholds)
	lows := orDefault(ranges.LowThresholds, defaultLowThresholds)
	sizes := orDefault(ranges.PositionSizes, defaultPositionSizes)
	costs := orDefault(ranges.TransactionCosts, defaultTransactionCosts)

	combos := make([]Params, 0, len(highs)*len(lows)*len(sizes)*len(costs))
	for _, high := range highs {
		for _, low := range lows {
			for _, size := range sizes {
				for _, cost := range costs {
					combos = append(combos, Params{
						HighThreshold:      high,
						LowThreshold:       low,
						PositionSizePct:    size,
						TransactionCostPct: cost,
					})
				}
			}
		}
	}
	return combos
}

func orDefault(values, fallback []float64) []float64 {
	if len(values) == 0 {
		return fallback
	}
	return values
}
