// Package logging builds the host tools' zap logger and routes kernel
// debug output into it.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"tempo/config"
	"tempo/core"
)

// New builds a logger from cfg. Output goes to a size-rotated file when
// a path is configured, and to stderr when StdOut is set or no file is.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	if cfg.Path != "" {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("log dir: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Path, cfg.Name+".log"),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level))
	}
	if cfg.StdOut || cfg.Path == "" {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

// Bridge returns a core.DebugWriter that logs kernel debug lines. Lines
// tagged [FATAL] are logged at error level, everything else at debug.
func Bridge(log *zap.Logger) core.DebugWriter {
	log = log.Named("kernel")
	return func(msg string) {
		if strings.HasPrefix(msg, "[FATAL]") {
			log.Error(strings.TrimSpace(strings.TrimPrefix(msg, "[FATAL]")))
			return
		}
		log.Debug(msg)
	}
}

// Install routes core debug output into log and enables it when log
// accepts debug entries
func Install(log *zap.Logger) {
	core.SetDebugWriter(Bridge(log))
	core.SetDebugEnabled(log.Core().Enabled(zapcore.DebugLevel))
}
