// Package pipeline orchestrates the batch computation chain: derived ratio
// metrics, rolling statistics, macro correlations, signal evaluation, and the
// backtest/optimizer entrypoints. It holds no process-wide state; any
// external scheduler can invoke each job as a pure batch operation.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"gsrd/internal/backtest"
	"gsrd/internal/cache"
	"gsrd/internal/config"
	"gsrd/internal/errors"
	"gsrd/internal/metrics"
	"gsrd/internal/monitoring"
	"gsrd/internal/optimizer"
	"gsrd/internal/series"
	"gsrd/internal/signal"
	"gsrd/internal/storage"
)

// defaultAnalysisWindow is the rolling window used for the latest-analysis
// snapshot that feeds signal generation.
const defaultAnalysisWindow = 90

// analysisCacheTTL bounds how stale a cached latest-analysis may be.
const analysisCacheTTL = 5 * time.Minute

// Pipeline wires the engines to the persistence collaborator.
type Pipeline struct {
	store   storage.Store
	cache   cache.Cache
	metrics *monitoring.Metrics
	logger  logrus.FieldLogger
	cfg     config.EngineConfig
	engine  *backtest.Engine
}

// New creates a pipeline. cache and monitor may be nil; caching and
// instrumentation are then skipped.
func New(store storage.Store, cacheClient cache.Cache, monitor *monitoring.Metrics, logger logrus.FieldLogger, cfg config.EngineConfig) *Pipeline {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pipeline{
		store:   store,
		cache:   cacheClient,
		metrics: monitor,
		logger:  logger,
		cfg:     cfg,
		engine:  backtest.NewEngine(logger),
	}
}

// ComputeStats summarizes one metric-computation run.
type ComputeStats struct {
	StartTime            time.Time     `json:"start_time"`
	EndTime              time.Time     `json:"end_time"`
	Duration             time.Duration `json:"duration"`
	RatioComputed        int           `json:"ratio_computed"`
	RatioExcluded        int           `json:"ratio_excluded"`
	RollingStatsComputed int           `json:"rolling_stats_computed"`
	CorrelationsComputed int           `json:"correlations_computed"`
	Errors               []string      `json:"errors,omitempty"`
}

// ComputeAll runs the full derived-metric chain: ratio, rolling statistics,
// correlations. Writes are idempotent, so re-running over already-populated
// ranges only fills gaps.
func (p *Pipeline) ComputeAll(ctx context.Context) (*ComputeStats, error) {
	stats := &ComputeStats{StartTime: time.Now()}
	p.logger.Info("starting metric computation")

	ratioCount, excluded, err := p.computeRatio(ctx)
	if err != nil {
		p.recordRun("compute", "error", stats.StartTime)
		return nil, err
	}
	stats.RatioComputed = ratioCount
	stats.RatioExcluded = excluded

	statCount, err := p.computeRollingStats(ctx)
	if err != nil {
		stats.Errors = append(stats.Errors, err.Error())
	}
	stats.RollingStatsComputed = statCount

	corrCount, corrErrs := p.computeCorrelations(ctx)
	stats.CorrelationsComputed = corrCount
	stats.Errors = append(stats.Errors, corrErrs...)

	// The cached snapshot is stale once new points exist.
	p.invalidateAnalysis(ctx)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	p.recordRun("compute", "success", stats.StartTime)
	p.logger.WithFields(logrus.Fields{
		"ratio":        stats.RatioComputed,
		"rolling":      stats.RollingStatsComputed,
		"correlations": stats.CorrelationsComputed,
		"duration":     stats.Duration,
	}).Info("metric computation completed")

	return stats, nil
}

// computeRatio derives the ratio metric from the configured asset pair and
// stores each point with its underlying prices.
func (p *Pipeline) computeRatio(ctx context.Context) (inserted, excluded int, err error) {
	since := time.Now().AddDate(0, 0, -p.cfg.LookbackDays)

	base, err := p.store.PriceSeries(ctx, p.cfg.BaseSymbol, since, time.Time{})
	if err != nil {
		return 0, 0, err
	}
	quote, err := p.store.PriceSeries(ctx, p.cfg.QuoteSymbol, since, time.Time{})
	if err != nil {
		return 0, 0, err
	}

	result, err := metrics.ComputeRatio(p.cfg.MetricName, base, quote)
	if err != nil {
		return 0, 0, err
	}
	if len(result.Excluded) > 0 {
		p.logger.WithField("count", len(result.Excluded)).
			Warn("excluded ratio points with zero quote price")
	}

	metricID, err := p.store.EnsureMetric(ctx, p.cfg.MetricName,
		fmt.Sprintf("%s/%s price ratio", p.cfg.BaseSymbol, p.cfg.QuoteSymbol),
		fmt.Sprintf("%s close / %s close at matching timestamps", p.cfg.BaseSymbol, p.cfg.QuoteSymbol))
	if err != nil {
		return 0, 0, err
	}

	for _, point := range result.Series.Points {
		ok, err := p.store.SaveMetricValue(ctx, metricID, point.Timestamp, point.Ratio, map[string]float64{
			"base_price":  point.BasePrice,
			"quote_price": point.QuotePrice,
		})
		if err != nil {
			return inserted, len(result.Excluded), err
		}
		if ok {
			inserted++
		}
	}

	p.recordPoints("ratio", inserted)
	return inserted, len(result.Excluded), nil
}

// computeRollingStats computes and stores the rolling statistics of the
// stored ratio metric for every configured window.
func (p *Pipeline) computeRollingStats(ctx context.Context) (int, error) {
	metricSeries, err := p.store.MetricSeries(ctx, p.cfg.MetricName, time.Time{}, time.Time{})
	if err != nil {
		return 0, err
	}

	windowStats, err := metrics.ComputeRollingStats(metricSeries, p.cfg.StatsWindows)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, w := range p.cfg.StatsWindows {
		stats := windowStats[w]

		kinds := []struct {
			name  string
			desc  string
			value func(metrics.StatsPoint) series.NullFloat
		}{
			{metrics.MeanMetricName(p.cfg.MetricName, w), fmt.Sprintf("%d-day moving average of %s", w, p.cfg.MetricName),
				func(sp metrics.StatsPoint) series.NullFloat { return sp.Mean }},
			{metrics.StdMetricName(p.cfg.MetricName, w), fmt.Sprintf("%d-day standard deviation of %s", w, p.cfg.MetricName),
				func(sp metrics.StatsPoint) series.NullFloat { return sp.Std }},
			{metrics.ZScoreMetricName(p.cfg.MetricName, w), fmt.Sprintf("%d-day z-score of %s", w, p.cfg.MetricName),
				func(sp metrics.StatsPoint) series.NullFloat { return sp.ZScore }},
			{metrics.PercentileMetricName(p.cfg.MetricName, w), fmt.Sprintf("%d-day percentile rank of %s", w, p.cfg.MetricName),
				func(sp metrics.StatsPoint) series.NullFloat { return sp.Percentile }},
		}

		for _, kind := range kinds {
			metricID, err := p.store.EnsureMetric(ctx, kind.name, kind.desc,
				fmt.Sprintf("rolling %d-day window", w))
			if err != nil {
				return inserted, err
			}
			for _, sp := range stats.Points {
				value := kind.value(sp)
				if !value.Valid {
					continue
				}
				ok, err := p.store.SaveMetricValue(ctx, metricID, sp.Timestamp, value.Float64, nil)
				if err != nil {
					return inserted, err
				}
				if ok {
					inserted++
				}
			}
		}
	}

	p.recordPoints("rolling_stats", inserted)
	return inserted, nil
}

// computeCorrelations computes and stores the rolling correlations between
// the ratio metric and every configured counterpart series. A missing or
// non-overlapping counterpart is skipped, not fatal.
func (p *Pipeline) computeCorrelations(ctx context.Context) (int, []string) {
	metricSeries, err := p.store.MetricSeries(ctx, p.cfg.MetricName, time.Time{}, time.Time{})
	if err != nil {
		return 0, []string{err.Error()}
	}

	inserted := 0
	var errs []string
	for _, code := range p.cfg.CorrelateWith {
		counterpart, err := p.store.MacroSeries(ctx, code, time.Time{}, time.Time{})
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if counterpart.Empty() {
			continue
		}

		correlations, err := metrics.ComputeRollingCorrelation(metricSeries, counterpart, p.cfg.CorrelationWindows)
		if err != nil {
			if errors.IsCode(err, errors.ErrCodeInsufficientData) {
				continue
			}
			errs = append(errs, err.Error())
			continue
		}

		for _, w := range p.cfg.CorrelationWindows {
			name := metrics.CorrelationMetricName(p.cfg.MetricName, code, w)
			metricID, err := p.store.EnsureMetric(ctx, name,
				fmt.Sprintf("%d-day rolling correlation: %s vs %s", w, p.cfg.MetricName, code),
				fmt.Sprintf("Pearson correlation over %d joined points", w))
			if err != nil {
				errs = append(errs, err.Error())
				continue
			}
			for _, cp := range correlations[w].Points {
				if !cp.Corr.Valid {
					continue
				}
				ok, err := p.store.SaveMetricValue(ctx, metricID, cp.Timestamp, cp.Corr.Float64, nil)
				if err != nil {
					errs = append(errs, err.Error())
					break
				}
				if ok {
					inserted++
				}
			}
		}
	}

	p.recordPoints("correlation", inserted)
	return inserted, errs
}

// GenerateSignal evaluates the latest ratio observation against the
// configured bands. Returns nil when the ratio sits inside the neutral zone.
func (p *Pipeline) GenerateSignal(ctx context.Context) (*signal.Signal, error) {
	analysis, err := p.latestAnalysis(ctx)
	if err != nil {
		return nil, err
	}

	regime, err := p.store.CurrentRegime(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("failed to load current regime")
		regime = ""
	}
	if regime == "" {
		regime = "unknown"
	}

	generator := signal.NewGenerator(signal.Thresholds{
		High: p.cfg.HighThreshold,
		Low:  p.cfg.LowThreshold,
	})
	sig := generator.Evaluate(signal.Input{
		Ratio:      analysis.Ratio,
		ZScore:     analysis.ZScore,
		Percentile: analysis.Percentile,
		Regime:     regime,
		Timestamp:  analysis.Timestamp,
	})

	if sig != nil && p.metrics != nil {
		p.metrics.RecordSignal(string(sig.Type))
	}
	return sig, nil
}

// RunBacktest replays the stored ratio metric through the swap simulator.
func (p *Pipeline) RunBacktest(ctx context.Context, cfg backtest.Config) (*backtest.Result, error) {
	ratio, err := p.store.RatioSeries(ctx, p.cfg.MetricName, cfg.Start, cfg.End)
	if err != nil {
		return nil, err
	}

	result, err := p.engine.Run(ratio, cfg)
	if p.metrics != nil {
		if err != nil {
			p.metrics.RecordBacktest("error")
		} else {
			p.metrics.RecordBacktest("success")
		}
	}
	return result, err
}

// Optimize grid-searches the simulator over the supplied parameter ranges.
func (p *Pipeline) Optimize(ctx context.Context, base backtest.Config, ranges optimizer.ParamRanges) (*optimizer.Report, error) {
	ratio, err := p.store.RatioSeries(ctx, p.cfg.MetricName, base.Start, base.End)
	if err != nil {
		return nil, err
	}

	opt := optimizer.NewOptimizer(p.engine, p.logger, p.cfg.OptimizerWorkers)
	report, err := opt.Optimize(ctx, ratio, base, ranges)
	if err != nil {
		return nil, err
	}

	if p.metrics != nil {
		skipped := 0
		for _, eval := range report.AllResults {
			if eval.Skipped {
				skipped++
			}
		}
		p.metrics.RecordGridCombinations(len(report.AllResults)-skipped, skipped)
	}
	return report, nil
}

// latestAnalysis returns the latest ratio analysis, served from cache when
// fresh.
func (p *Pipeline) latestAnalysis(ctx context.Context) (*storage.RatioAnalysis, error) {
	key := p.analysisCacheKey()

	if p.cache != nil {
		if data, err := p.cache.Get(ctx, key); err == nil {
			var cached storage.RatioAnalysis
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	analysis, err := p.store.LatestRatioAnalysis(ctx, p.cfg.MetricName, defaultAnalysisWindow)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if data, err := json.Marshal(analysis); err == nil {
			if err := p.cache.Set(ctx, key, data, analysisCacheTTL); err != nil {
				p.logger.WithError(err).Debug("failed to cache latest analysis")
			}
		}
	}
	return analysis, nil
}

func (p *Pipeline) invalidateAnalysis(ctx context.Context) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Delete(ctx, p.analysisCacheKey()); err != nil {
		p.logger.WithError(err).Debug("failed to invalidate analysis cache")
	}
}

func (p *Pipeline) analysisCacheKey() string {
	return fmt.Sprintf("analysis:latest:%s", p.cfg.MetricName)
}

func (p *Pipeline) recordRun(job, status string, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordPipelineRun(job, status, time.Since(start))
	}
}

func (p *Pipeline) recordPoints(kind string, count int) {
	if p.metrics != nil {
		p.metrics.RecordMetricPoints(kind, count)
	}
}
