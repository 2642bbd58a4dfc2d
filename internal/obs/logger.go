// Copyright 2025 James Ross
package obs

import (
	"strings"

	"github.com/flyingrobots/go-redis-job-engine/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.Encoding = "json"
	return cfg.Build()
}

// NewRotatingLogger writes JSON logs to a size-rotated file when one is
// configured, falling back to stderr otherwise.
func NewRotatingLogger(o config.Observability) (*zap.Logger, error) {
	if o.LogRotation.File == "" {
		return NewLogger(o.LogLevel)
	}
	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   o.LogRotation.File,
		MaxSize:    o.LogRotation.MaxSizeMB,
		MaxBackups: o.LogRotation.MaxBackups,
		MaxAge:     o.LogRotation.MaxAgeDays,
	})
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(enc, sink, parseLevel(o.LogLevel))
	return zap.New(core), nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// Convenience typed fields
func String(k, v string) zap.Field { return zap.String(k, v) }
func Int(k string, v int) zap.Field { return zap.Int(k, v) }
func Int64(k string, v int64) zap.Field { return zap.Int64(k, v) }
func Bool(k string, v bool) zap.Field { return zap.Bool(k, v) }
func Err(err error) zap.Field { return zap.Error(err) }
