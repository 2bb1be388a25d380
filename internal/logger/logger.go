package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters (lumberjack semantics).
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes the combined stdout+stderr destination of the supervised
// process. Without rotation the file is opened in truncate mode at every
// relaunch, so the log only ever contains output from the current run.
type Config struct {
	Path       string `toml:"path" mapstructure:"path"`                 // combined output file
	Rotate     bool   `toml:"rotate" mapstructure:"rotate"`             // use size-based rotation instead of truncation
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`   // megabytes before rotation
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`   // rotated files to keep
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"` // days to keep
	Compress   bool   `toml:"compress" mapstructure:"compress"`         // gzip rotated files
}

// Writer returns the WriteCloser the relaunched process's stdout and stderr
// are both attached to.
func (c Config) Writer() (io.WriteCloser, error) {
	if c.Path == "" {
		return os.OpenFile(os.DevNull, os.O_RDWR, 0)
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o750); err != nil {
		return nil, err
	}
	if c.Rotate {
		return &lj.Logger{
			Filename:   c.Path,
			MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   c.Compress,
		}, nil
	}
	// #nosec G304 -- path comes from the operator's own config
	return os.OpenFile(c.Path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Setup installs the default slog logger for operator console output.
// Colors are enabled when stderr is a terminal-ish destination; callers pass
// color=false for plain output (e.g. when piped).
func Setup(level slog.Level, color bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if color {
		h = NewColorTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	l := slog.New(h)
	slog.SetDefault(l)
	return l
}
