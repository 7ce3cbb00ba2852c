package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a JSON zap logger at the LOG_LEVEL environment level (default info).
func NewLogger() (*zap.Logger, error) {
	return NewLoggerWithLevel(os.Getenv("LOG_LEVEL"))
}

// NewLoggerWithLevel creates a JSON zap logger. Valid levels: debug, info, warn, error.
func NewLoggerWithLevel(levelStr string) (*zap.Logger, error) {
	if levelStr == "" {
		levelStr = "info"
	}

	var level zapcore.Level
	err := level.UnmarshalText([]byte(levelStr))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelStr, err)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.Encoding = "json"
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger, nil
}
