package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/loykin/revivr"
	"github.com/loykin/revivr/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
)

type command struct {
	flags *GlobalFlags
}

// build loads config, applies overrides, and constructs the supervisor with
// an optional history sink. The returned closer flushes the sink.
func (c command) build(over RestartFlags) (*revivr.Supervisor, revivr.Config, func(), error) {
	logger.Setup(slog.LevelInfo, !c.flags.NoColor)

	cfg, err := revivr.LoadConfig(c.flags.ConfigPath)
	if err != nil {
		return nil, cfg, nil, err
	}
	if over.Script != "" {
		cfg.Script = over.Script
	}
	if over.Interpreter != "" {
		cfg.Interpreter = over.Interpreter
	}
	if over.WorkDir != "" {
		cfg.WorkDir = over.WorkDir
	}

	sup, err := revivr.New(cfg.ToSpec())
	if err != nil {
		return nil, cfg, nil, err
	}

	closer := func() {}
	if cfg.History.DSN != "" {
		sink, err := revivr.NewHistorySink(cfg.History.DSN)
		if err != nil {
			return nil, cfg, nil, fmt.Errorf("open history sink: %w", err)
		}
		sup.SetHistory(sink)
		closer = func() { _ = sink.Close() }
	}
	return sup, cfg, closer, nil
}

func (c command) Restart(flags RestartFlags) error {
	sup, cfg, closer, err := c.build(flags)
	if err != nil {
		return err
	}
	defer closer()
	_ = revivr.RegisterMetricsDefault()

	res, err := sup.Restart(context.Background())
	if err != nil {
		return err
	}
	if !res.OK {
		slog.Error("restart failed, inspect the log file", "log", cfg.ToSpec().Log.Path)
		return revivr.ErrVerifyFailed
	}
	slog.Info("restart verified", "pid", res.PID, "forced", res.Forced)
	return nil
}

func (c command) Status() error {
	sup, _, closer, err := c.build(RestartFlags{})
	if err != nil {
		return err
	}
	defer closer()

	st, err := sup.Status()
	if err != nil {
		return err
	}
	if st.Alive {
		slog.Info("process is running", "name", st.Name, "pid", st.PID, "method", st.Method)
	} else {
		slog.Warn("process is not running", "name", st.Name)
	}
	for _, m := range st.Matches {
		slog.Info("match", "pid", m.PID, "cmdline", m.Cmdline)
	}
	return nil
}

func (c command) Stop() error {
	sup, _, closer, err := c.build(RestartFlags{})
	if err != nil {
		return err
	}
	defer closer()
	_ = revivr.RegisterMetricsDefault()

	stopped, forced, err := sup.Stop(context.Background())
	if err != nil {
		return err
	}
	slog.Info("stop complete", "stopped", stopped, "forced", forced)
	return nil
}

func (c command) Watch(flags WatchFlags) error {
	sup, cfg, closer, err := c.build(RestartFlags{})
	if err != nil {
		return err
	}
	defer closer()
	_ = revivr.RegisterMetrics(prometheus.DefaultRegisterer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		slog.Info("shutting down")
		cancel()
	}()

	listen := cfg.Server.Listen
	if flags.Listen != "" {
		listen = flags.Listen
	}
	if listen != "" {
		srv := revivr.NewHTTPServer(listen, cfg.Server.BasePath, sup)
		defer func() { _ = srv.Close() }()
		slog.Info("http api listening", "addr", listen, "base", cfg.Server.BasePath)
	}

	err = sup.Watch(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
