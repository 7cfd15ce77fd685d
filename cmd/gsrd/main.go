package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"gsrd/internal/backtest"
	"gsrd/internal/cache"
	"gsrd/internal/config"
	"gsrd/internal/database"
	"gsrd/internal/logger"
	"gsrd/internal/monitoring"
	"gsrd/internal/optimizer"
	"gsrd/internal/pipeline"
	"gsrd/internal/storage"
)

func main() {
	var (
		configFile = flag.String("config", "configs/config.yaml", "Configuration file path")
		job        = flag.String("job", "compute", "Job to run (compute, signal, backtest, optimize)")

		// Backtest / optimize overrides.
		startDate = flag.String("start", "", "Backtest start date (YYYY-MM-DD, empty = unbounded)")
		endDate   = flag.String("end", "", "Backtest end date (YYYY-MM-DD, empty = unbounded)")
		high      = flag.Float64("high", 0, "High threshold override (0 = use config)")
		low       = flag.Float64("low", 0, "Low threshold override (0 = use config)")
		size      = flag.Float64("size", 0, "Position size percent override (0 = use config)")
		cost      = flag.Float64("cost", -1, "Transaction cost percent override (-1 = use config)")

		// Optimizer grid (comma-separated candidate values).
		highs = flag.String("highs", "", "High threshold candidates for optimize")
		lows  = flag.String("lows", "", "Low threshold candidates for optimize")
		sizes = flag.String("sizes", "", "Position size candidates for optimize")
		costs = flag.String("costs", "", "Transaction cost candidates for optimize")
	)
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		Filename:   cfg.Logging.Filename,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := database.NewConnection(&database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		MaxOpen:  cfg.Database.MaxOpen,
		MaxIdle:  cfg.Database.MaxIdle,
		Timeout:  cfg.Database.Timeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.MigrationsPath != "" {
		if err := runMigrations(db, cfg.Database.MigrationsPath, appLogger); err != nil {
			appLogger.WithError(err).Fatal("failed to run migrations")
		}
	}

	cacheClient := buildCache(cfg.Redis, appLogger)
	defer cacheClient.Close()

	var monitor *monitoring.Metrics
	if cfg.Monitoring.Enabled {
		monitor = monitoring.NewMetrics()
		startMetricsServer(cfg.Monitoring, monitor, appLogger)
	}

	store := storage.NewPostgresStore(db)
	pipe := pipeline.New(store, cacheClient, monitor, appLogger, cfg.Engine)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *job {
	case "compute":
		err = runCompute(ctx, pipe)
	case "signal":
		err = runSignal(ctx, pipe)
	case "backtest":
		btCfg, cfgErr := buildBacktestConfig(cfg.Engine, *startDate, *endDate, *high, *low, *size, *cost)
		if cfgErr != nil {
			appLogger.WithError(cfgErr).Fatal("invalid backtest parameters")
		}
		err = runBacktest(ctx, pipe, btCfg)
	case "optimize":
		btCfg, cfgErr := buildBacktestConfig(cfg.Engine, *startDate, *endDate, *high, *low, *size, *cost)
		if cfgErr != nil {
			appLogger.WithError(cfgErr).Fatal("invalid backtest parameters")
		}
		ranges, cfgErr := buildRanges(*highs, *lows, *sizes, *costs)
		if cfgErr != nil {
			appLogger.WithError(cfgErr).Fatal("invalid optimizer ranges")
		}
		err = runOptimize(ctx, pipe, btCfg, ranges)
	default:
		appLogger.Fatalf("unknown job %q (want compute, signal, backtest or optimize)", *job)
	}

	if err != nil {
		appLogger.WithError(err).WithField("job", *job).Fatal("job failed")
	}
}

func runCompute(ctx context.Context, pipe *pipeline.Pipeline) error {
	stats, err := pipe.ComputeAll(ctx)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func runSignal(ctx context.Context, pipe *pipeline.Pipeline) error {
	sig, err := pipe.GenerateSignal(ctx)
	if err != nil {
		return err
	}
	if sig == nil {
		return printJSON(map[string]string{"status": "no_signal"})
	}
	return printJSON(sig)
}

func runBacktest(ctx context.Context, pipe *pipeline.Pipeline, cfg backtest.Config) error {
	result, err := pipe.RunBacktest(ctx, cfg)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runOptimize(ctx context.Context, pipe *pipeline.Pipeline, cfg backtest.Config, ranges optimizer.ParamRanges) error {
	report, err := pipe.Optimize(ctx, cfg, ranges)
	if err != nil {
		return err
	}
	return printJSON(report)
}

// buildBacktestConfig assembles the simulation config from the engine defaults
// and any CLI overrides.
func buildBacktestConfig(engine config.EngineConfig, start, end string, high, low, size, cost float64) (backtest.Config, error) {
	cfg := backtest.Config{
		InitialBaseUnits:   engine.InitialBaseUnits,
		HighThreshold:      engine.HighThreshold,
		LowThreshold:       engine.LowThreshold,
		PositionSizePct:    engine.PositionSizePct,
		TransactionCostPct: engine.TransactionCostPct,
	}

	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return cfg, fmt.Errorf("invalid start date %q: %w", start, err)
		}
		cfg.Start = t
	}
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return cfg, fmt.Errorf("invalid end date %q: %w", end, err)
		}
		cfg.End = t
	}
	if high > 0 {
		cfg.HighThreshold = high
	}
	if low > 0 {
		cfg.LowThreshold = low
	}
	if size > 0 {
		cfg.PositionSizePct = size
	}
	if cost >= 0 {
		cfg.TransactionCostPct = cost
	}
	return cfg, nil
}

func buildRanges(highs, lows, sizes, costs string) (optimizer.ParamRanges, error) {
	var ranges optimizer.ParamRanges
	var err error

	if ranges.HighThresholds, err = parseFloats(highs); err != nil {
		return ranges, fmt.Errorf("invalid -highs: %w", err)
	}
	if ranges.LowThresholds, err = parseFloats(lows); err != nil {
		return ranges, fmt.Errorf("invalid -lows: %w", err)
	}
	if ranges.PositionSizes, err = parseFloats(sizes); err != nil {
		return ranges, fmt.Errorf("invalid -sizes: %w", err)
	}
	if ranges.TransactionCosts, err = parseFloats(costs); err != nil {
		return ranges, fmt.Errorf("invalid -costs: %w", err)
	}
	return ranges, nil
}

func parseFloats(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func runMigrations(db *database.DB, path string, appLogger *logrus.Logger) error {
	migrator, err := database.NewMigrator(db, path)
	if err != nil {
		return err
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil {
		return err
	}

	version, err := migrator.Version()
	if err != nil {
		return err
	}
	appLogger.WithField("version", version).Info("database schema up to date")
	return nil
}

// buildCache prefers Redis when enabled and reachable, falling back to the
// in-memory cache so batch jobs still run without the shared cache.
func buildCache(cfg config.RedisConfig, appLogger *logrus.Logger) cache.Cache {
	if cfg.Enabled {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		})
		if err == nil {
			return redisCache
		}
		appLogger.WithError(err).Warn("redis unavailable, using in-memory cache")
	}
	return cache.NewMemoryCache(0)
}

func startMetricsServer(cfg config.MonitoringConfig, monitor *monitoring.Metrics, appLogger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, monitor.Handler())

	server := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Warn("metrics server stopped")
		}
	}()
	appLogger.WithField("addr", cfg.Addr).Info("metrics server started")
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
