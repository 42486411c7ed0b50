// Package config loads the backtest CLI settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all runtime configuration for the backtest binary.
type Config struct {
	LogLevel string

	QueueParam  decimal.Decimal
	FillParam   decimal.Decimal
	InitialCash decimal.Decimal

	// PipelineCapacity enables the pipelined replay when positive. Must be a power of 2.
	PipelineCapacity int64
	// RunTimeout bounds a pipelined replay.
	RunTimeout       time.Duration

	QuoteSize       decimal.Decimal
	MaxPosition     decimal.Decimal
	RequoteDistance decimal.Decimal
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	logLevel := getStr("BACKTEST_LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid BACKTEST_LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	queueParam, err := getDecimal("BACKTEST_QUEUE_PARAM", decimal.NewFromInt(1))
	if err != nil || queueParam.IsNegative() {
		return nil, fmt.Errorf("invalid BACKTEST_QUEUE_PARAM: %w", nonNegative(err))
	}

	fillParam, err := getDecimal("BACKTEST_FILL_PARAM", decimal.NewFromInt(1))
	if err != nil || fillParam.IsNegative() {
		return nil, fmt.Errorf("invalid BACKTEST_FILL_PARAM: %w", nonNegative(err))
	}

	initialCash, err := getDecimal("BACKTEST_INITIAL_CASH", decimal.Zero)
	if err != nil {
		return nil, fmt.Errorf("invalid BACKTEST_INITIAL_CASH: %w", err)
	}

	capacity, err := getInt("BACKTEST_PIPELINE_CAPACITY", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid BACKTEST_PIPELINE_CAPACITY: %w", err)
	}
	if capacity < 0 || (capacity > 0 && capacity&(capacity-1) != 0) {
		return nil, fmt.Errorf("invalid BACKTEST_PIPELINE_CAPACITY: %d is not 0 or a power of 2", capacity)
	}

	runTimeout, err := getDuration("BACKTEST_RUN_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid BACKTEST_RUN_TIMEOUT: %w", err)
	}

	quoteSize, err := getDecimal("BACKTEST_QUOTE_SIZE", decimal.NewFromInt(1))
	if err != nil || !quoteSize.IsPositive() {
		return nil, fmt.Errorf("invalid BACKTEST_QUOTE_SIZE: %w", positive(err))
	}

	maxPosition, err := getDecimal("BACKTEST_MAX_POSITION", quoteSize)
	if err != nil || maxPosition.LessThan(quoteSize) {
		return nil, fmt.Errorf("invalid BACKTEST_MAX_POSITION: %w", atLeastQuoteSize(err))
	}

	requoteDistance, err := getDecimal("BACKTEST_REQUOTE_DISTANCE", decimal.Zero)
	if err != nil || requoteDistance.IsNegative() {
		return nil, fmt.Errorf("invalid BACKTEST_REQUOTE_DISTANCE: %w", nonNegative(err))
	}

	return &Config{
		LogLevel:         logLevel,
		QueueParam:       queueParam,
		FillParam:        fillParam,
		InitialCash:      initialCash,
		PipelineCapacity: int64(capacity),
		RunTimeout:       runTimeout,
		QuoteSize:        quoteSize,
		MaxPosition:      maxPosition,
		RequoteDistance:  requoteDistance,
	}, nil
}

// SlogLevel maps LogLevel to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDecimal(key string, defaultVal decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return decimal.NewFromString(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

var (
	errNegative       = errors.New("must not be negative")
	errNotPositive    = errors.New("must be positive")
	errBelowQuoteSize = errors.New("must not be below the quote size")
)

func nonNegative(err error) error {
	if err != nil {
		return err
	}
	return errNegative
}

func positive(err error) error {
	if err != nil {
		return err
	}
	return errNotPositive
}

func atLeastQuoteSize(err error) error {
	if err != nil {
		return err
	}
	return errBelowQuoteSize
}
