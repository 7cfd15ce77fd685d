package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the process logger.
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json or text
	Output     string `yaml:"output" json:"output"` // stdout, stderr, file
	Filename   string `yaml:"filename" json:"filename"`
	MaxSizeMB  int    `yaml:"max_size" json:"max_size"`
	MaxAgeDays int    `yaml:"max_age" json:"max_age"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// DefaultConfig is used when fields are left unset.
var DefaultConfig = Config{
	Level:      "info",
	Format:     "json",
	Output:     "stdout",
	MaxSizeMB:  100,
	MaxAgeDays: 30,
	MaxBackups: 10,
	Compress:   true,
}

// New creates a configured logrus logger.
func New(config Config) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if config.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	}

	output, err := buildOutput(config)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(output)

	return logger, nil
}

func buildOutput(config Config) (io.Writer, error) {
	switch config.Output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "file":
		if config.Filename == "" {
			return nil, fmt.Errorf("logger output is file but filename is empty")
		}
		if err := os.MkdirAll(filepath.Dir(config.Filename), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		maxSize := config.MaxSizeMB
		if maxSize <= 0 {
			maxSize = DefaultConfig.MaxSizeMB
		}
		return &lumberjack.Logger{
			Filename:   config.Filename,
			MaxSize:    maxSize,
			MaxAge:     config.MaxAgeDays,
			MaxBackups: config.MaxBackups,
			Compress:   config.Compress,
		}, nil
	default:
		return nil, fmt.Errorf("unknown logger output %q", config.Output)
	}
}
