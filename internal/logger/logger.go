package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger глобальный логгер процесса; до Initialize не пишет никуда
var Logger = zap.NewNop()

// New создает логгер с заданным уровнем. debug включает консольный
// формат разработки, остальные уровни пишут JSON.
func New(level string) (*zap.Logger, error) {
	var config zap.Config

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	if lvl == zapcore.DebugLevel {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	// Настраиваем формат времени
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build()
}

// Initialize инициализирует глобальный логгер
func Initialize(level string) error {
	l, err := New(level)
	if err != nil {
		return err
	}
	Logger = l
	return nil
}

// Cleanup сбрасывает буферы глобального логгера
func Cleanup() {
	_ = Logger.Sync()
}
