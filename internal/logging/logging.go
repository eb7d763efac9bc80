// Package logging builds the zap logger shared by every command.
package logging

import (
	"fmt"
	"os"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Config controls logger construction
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console, json, or empty to pick by terminal
	File   string // optional path; rotated when set

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Output replaces stderr when set
	Output zapcore.WriteSyncer
}

// New builds a logger writing to stderr (or Output) and, when File is set,
// to a rotated log file in JSON.
func New(cfg Config) (*zap.Logger, error) {
	var level zapcore.Level
	if cfg.Level == "" {
		level = zapcore.InfoLevel
	} else if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	out := cfg.Output
	color := false
	if out == nil {
		out = zapcore.Lock(os.Stderr)
		color = term.IsTerminal(int(os.Stderr.Fd()))
	}

	format := cfg.Format
	if format == "" {
		format = "json"
		if color || cfg.Output != nil {
			format = "console"
		}
	}

	var stderrEnc zapcore.Encoder
	switch format {
	case "console":
		ec := zap.NewDevelopmentEncoderConfig()
		if color {
			ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		stderrEnc = zapcore.NewConsoleEncoder(ec)
	case "json":
		stderrEnc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(stderrEnc, out, level),
	}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rotator),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
