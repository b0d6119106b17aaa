// Package logger configures the application-wide zap logger.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a zap logger for the given environment. "local" gets a
// human-readable console encoder at debug level, everything else gets
// production JSON at info level.
func New(env string) *zap.Logger {
	switch env {
	case "local", "dev":
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		log, err := cfg.Build()
		if err != nil {
			panic(err)
		}
		return log
	default:
		cfg := zap.NewProductionConfig()
		log, err := cfg.Build()
		if err != nil {
			panic(err)
		}
		return log
	}
}

// NewWithRotation builds a production JSON logger that writes both to
// stdout and to a size-rotated file.
func NewWithRotation(env string, filename string, maxSizeMB, maxBackups, maxAgeDays int) *zap.Logger {
	if filename == "" {
		return New(env)
	}

	rotator := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}

	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	level := zapcore.InfoLevel
	if env == "local" || env == "dev" {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(rotator), level),
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level),
	)

	return zap.New(core, zap.AddCaller())
}
