// Package logger builds the zap loggers the example binaries run with.
// Library packages take a *zap.Logger in their options and default to a
// nop; this package only decides what a configured one looks like.
package logger

import (
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config defines logging configuration
type Config struct {
	Level            string `yaml:"level" env:"POOLSIZER_LOG_LEVEL"`
	Format           string `yaml:"format" env:"POOLSIZER_LOG_FORMAT"` // json or console
	EnableSampling   bool   `yaml:"enable_sampling" env:"POOLSIZER_LOG_SAMPLING"`
	SampleInitial    int    `yaml:"sample_initial" env:"POOLSIZER_LOG_SAMPLE_INITIAL"`
	SampleThereafter int    `yaml:"sample_thereafter" env:"POOLSIZER_LOG_SAMPLE_THEREAFTER"`
	Development      bool   `yaml:"development" env:"POOLSIZER_LOG_DEVELOPMENT"`
}

// DefaultConfig returns production-ready default configuration
func DefaultConfig() Config {
	return Config{
		Level:            "info",
		Format:           "json",
		EnableSampling:   true,
		SampleInitial:    100,  // First 100 messages per level pass through
		SampleThereafter: 1000, // Then 1 in 1000
		Development:      false,
	}
}

// DevelopmentConfig returns development configuration
func DevelopmentConfig() Config {
	return Config{
		Level:          "debug",
		Format:         "console",
		EnableSampling: false,
		Development:    true,
	}
}

// New builds a zap logger from cfg. Unparseable levels fall back to
// info rather than failing the run.
func New(cfg Config) (*zap.Logger, error) {
	var zapConfig zap.Config

	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	} else {
		zapConfig.Encoding = "json"
	}

	if cfg.EnableSampling {
		zapConfig.Sampling = &zap.SamplingConfig{
			Initial:    cfg.SampleInitial,
			Thereafter: cfg.SampleThereafter,
		}
	} else {
		zapConfig.Sampling = nil
	}

	return zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
}

// FromEnv creates a logger based on environment variables
func FromEnv() (*zap.Logger, error) {
	return New(ConfigFromEnv())
}

// ForComponent creates a logger with a component field pre-set
func ForComponent(component string) (*zap.Logger, error) {
	log, err := FromEnv()
	if err != nil {
		return nil, err
	}
	return log.With(zap.String("component", component)), nil
}

// ConfigFromEnv builds Config from environment variables. Anything not
// explicitly overridden follows the development profile unless
// POOLSIZER_ENV says production.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if strings.ToLower(os.Getenv("POOLSIZER_ENV")) != "production" {
		cfg = DevelopmentConfig()
	}

	if level := os.Getenv("POOLSIZER_LOG_LEVEL"); level != "" {
		cfg.Level = level
	}

	if format := os.Getenv("POOLSIZER_LOG_FORMAT"); format != "" {
		cfg.Format = format
	}

	if sampling := os.Getenv("POOLSIZER_LOG_SAMPLING"); sampling != "" {
		cfg.EnableSampling = strings.ToLower(sampling) == "true"
	}

	if initial := os.Getenv("POOLSIZER_LOG_SAMPLE_INITIAL"); initial != "" {
		if val, err := strconv.Atoi(initial); err == nil {
			cfg.SampleInitial = val
		}
	}

	if thereafter := os.Getenv("POOLSIZER_LOG_SAMPLE_THEREAFTER"); thereafter != "" {
		if val, err := strconv.Atoi(thereafter); err == nil {
			cfg.SampleThereafter = val
		}
	}

	if dev := os.Getenv("POOLSIZER_LOG_DEVELOPMENT"); dev != "" {
		cfg.Development = strings.ToLower(dev) == "true"
	}

	return cfg
}
