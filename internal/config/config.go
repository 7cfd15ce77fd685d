package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Engine     EngineConfig     `yaml:"engine"`
}

// AppConfig represents application metadata.
type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	DBName         string        `yaml:"dbname"`
	SSLMode        string        `yaml:"sslmode"`
	MaxOpen        int           `yaml:"max_open"`
	MaxIdle        int           `yaml:"max_idle"`
	Timeout        time.Duration `yaml:"timeout"`
	MigrationsPath string        `yaml:"migrations_path"`
}

// RedisConfig represents Redis configuration. Redis is optional; when
// disabled the pipeline falls back to the in-memory cache.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	Filename   string `yaml:"filename"`
	MaxSizeMB  int    `yaml:"max_size"`
	MaxAgeDays int    `yaml:"max_age"`
	MaxBackups int    `yaml:"max_backups"`
}

// MonitoringConfig represents Prometheus exposure configuration.
type MonitoringConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// EngineConfig holds the metric/signal/backtest parameters consumed (not
// owned) by the computation core.
type EngineConfig struct {
	MetricName         string   `yaml:"metric_name"`
	BaseSymbol         string   `yaml:"base_symbol"`
	QuoteSymbol        string   `yaml:"quote_symbol"`
	LookbackDays       int      `yaml:"lookback_days"`
	StatsWindows       []int    `yaml:"stats_windows"`
	CorrelationWindows []int    `yaml:"correlation_windows"`
	CorrelateWith      []string `yaml:"correlate_with"`
	HighThreshold      float64  `yaml:"high_threshold"`
	LowThreshold       float64  `yaml:"low_threshold"`
	PositionSizePct    float64  `yaml:"position_size_pct"`
	TransactionCostPct float64  `yaml:"transaction_cost_pct"`
	InitialBaseUnits   float64  `yaml:"initial_base_units"`
	OptimizerWorkers   int      `yaml:"optimizer_workers"`
}

// Load loads configuration from a YAML file. ${VAR} and ${VAR:default}
// references are expanded from the environment before parsing.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default returns the configuration defaults applied before file values.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name: "gsrd",
			Env:  "development",
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
			MaxOpen: 25,
			MaxIdle: 5,
			Timeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Monitoring: MonitoringConfig{
			Path: "/metrics",
		},
		Engine: EngineConfig{
			MetricName:         "GSR",
			BaseSymbol:         "XAU",
			QuoteSymbol:        "XAG",
			LookbackDays:       365,
			StatsWindows:       []int{30, 90, 180, 365},
			CorrelationWindows: []int{30, 90, 180},
			CorrelateWith:      []string{"DGS10", "DTWEXBGS", "CPIAUCSL", "DCOILWTICO", "SP500", "VIXCLS"},
			HighThreshold:      85.0,
			LowThreshold:       65.0,
			PositionSizePct:    15.0,
			TransactionCostPct: 0.02,
			InitialBaseUnits:   100.0,
		},
	}
}

// Validate rejects configurations the engines would refuse anyway, so bad
// values surface at startup instead of mid-pipeline.
func (c *Config) Validate() error {
	e := c.Engine
	if e.BaseSymbol == "" || e.QuoteSymbol == "" {
		return fmt.Errorf("engine.base_symbol and engine.quote_symbol are required")
	}
	if e.PositionSizePct <= 0 || e.PositionSizePct > 100 {
		return fmt.Errorf("engine.position_size_pct must be in (0, 100], got %v", e.PositionSizePct)
	}
	if e.TransactionCostPct < 0 || e.TransactionCostPct >= 1 {
		return fmt.Errorf("engine.transaction_cost_pct must be in [0, 1), got %v", e.TransactionCostPct)
	}
	for _, w := range append(append([]int{}, e.StatsWindows...), e.CorrelationWindows...) {
		if w < 2 {
			return fmt.Errorf("rolling windows must be at least 2, got %d", w)
		}
	}
	if e.LookbackDays <= 0 {
		return fmt.Errorf("engine.lookback_days must be positive, got %d", e.LookbackDays)
	}
	return nil
}
