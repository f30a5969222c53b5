// Package logging builds the zap logger shared by the storefront commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoder and sinks.
type Config struct {
	Level string
	Dev   bool
	// File, when set, receives a copy of every entry in a daily rotated
	// file. File itself is kept as a symlink to the current one.
	File string
	// Output defaults to stderr; stdout carries command output.
	Output io.Writer
}

// Rotation settings for the file sink.
const (
	RotationTime = 24 * time.Hour
	MaxAge       = 7 * 24 * time.Hour
)

// ConfigFromEnv reads minimal config from env vars.
func ConfigFromEnv() Config {
	dev := os.Getenv("LOG_DEV") == "1"
	return Config{
		Level: defaultLevel(os.Getenv("LOG_LEVEL"), dev),
		Dev:   dev,
		File:  strings.TrimSpace(os.Getenv("LOG_FILE")),
	}
}

func defaultLevel(lvl string, dev bool) string {
	if lvl != "" {
		return lvl
	}
	if dev {
		return "debug"
	}
	return "info"
}

func levelFromString(l string) zapcore.Level {
	switch strings.ToLower(l) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init initializes and returns a *zap.Logger.
func Init(cfg Config) (*zap.Logger, error) {
	lvl := zap.NewAtomicLevelAt(levelFromString(defaultLevel(cfg.Level, cfg.Dev)))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var encoder zapcore.Encoder
	if cfg.Dev {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.AddSync(out), lvl)}
	if cfg.File != "" {
		sink, err := fileSink(cfg.File)
		if err != nil {
			return nil, err
		}
		// The file always gets JSON so it can be shipped as is.
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), sink, lvl))
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Dev {
		opts = append(opts, zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

func fileSink(path string) (zapcore.WriteSyncer, error) {
	w, err := rotatelogs.New(
		path+".%Y%m%d",
		rotatelogs.WithLinkName(path),
		rotatelogs.WithMaxAge(MaxAge),
		rotatelogs.WithRotationTime(RotationTime),
	)
	if err != nil {
		return nil, fmt.Errorf("log file %s: %w", path, err)
	}
	return zapcore.AddSync(w), nil
}

// Nop is the logger libraries fall back to when none is injected.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
