package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/revivr/internal/logger"
	"github.com/loykin/revivr/internal/supervisor"
)

// Built-in defaults. The tool is usable with no config file at all; these
// mirror the classic fixed-constant invocation (python3 mainbot.py from the
// current directory, combined output in bot.log).
const (
	DefaultInterpreter = "python3"
	DefaultScript      = "mainbot.py"
	DefaultWorkDir     = "."
	DefaultLogFile     = "bot.log"
)

// Config is the top-level TOML structure.
type Config struct {
	Name        string   `toml:"name" mapstructure:"name"`
	Interpreter string   `toml:"interpreter" mapstructure:"interpreter"`
	Script      string   `toml:"script" mapstructure:"script"`
	WorkDir     string   `toml:"workdir" mapstructure:"workdir"`
	Pattern     string   `toml:"pattern" mapstructure:"pattern"`
	PIDFile     string   `toml:"pidfile" mapstructure:"pidfile"`
	Env         []string `toml:"env" mapstructure:"env"`
	EnvFiles    []string `toml:"env_files" mapstructure:"env_files"`

	GraceTimeout    time.Duration `toml:"grace_timeout" mapstructure:"grace_timeout"`
	StartDuration   time.Duration `toml:"start_duration" mapstructure:"start_duration"`
	PollInterval    time.Duration `toml:"poll_interval" mapstructure:"poll_interval"`
	RestartInterval time.Duration `toml:"restart_interval" mapstructure:"restart_interval"`

	Log     logger.Config `toml:"log" mapstructure:"log"`
	History HistoryConfig `toml:"history" mapstructure:"history"`
	Server  ServerConfig  `toml:"server" mapstructure:"server"`
}

// HistoryConfig selects an optional restart-history sink by DSN.
type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// ServerConfig configures the watch-mode HTTP API.
type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

// Default returns the zero-argument configuration.
func Default() Config {
	return Config{
		Interpreter: DefaultInterpreter,
		Script:      DefaultScript,
		WorkDir:     DefaultWorkDir,
		Log:         logger.Config{Path: DefaultLogFile},
	}
}

// Load reads a TOML config file layered over Default(). An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

// ToSpec converts the config into a supervisor spec. Relative log and
// pidfile paths are anchored at the workdir, matching where the supervised
// process writes.
func (c Config) ToSpec() supervisor.Spec {
	logPath := c.Log.Path
	if logPath != "" && !filepath.IsAbs(logPath) {
		logPath = filepath.Join(c.WorkDir, logPath)
	}
	pidFile := c.PIDFile
	if pidFile != "" && !filepath.IsAbs(pidFile) {
		pidFile = filepath.Join(c.WorkDir, pidFile)
	}
	log := c.Log
	log.Path = logPath
	return supervisor.Spec{
		Name:            c.Name,
		Interpreter:     c.Interpreter,
		Script:          c.Script,
		WorkDir:         c.WorkDir,
		Pattern:         c.Pattern,
		PIDFile:         pidFile,
		Env:             c.Env,
		EnvFiles:        c.EnvFiles,
		Log:             log,
		GraceTimeout:    c.GraceTimeout,
		StartDuration:   c.StartDuration,
		PollInterval:    c.PollInterval,
		RestartInterval: c.RestartInterval,
	}
}
