// Package revivr restarts a supervised process: find it, stop it gracefully,
// force-kill survivors, relaunch it detached, and verify the relaunch.
package revivr

import (
	"context"
	"net/http"

	cfg "github.com/loykin/revivr/internal/config"
	"github.com/loykin/revivr/internal/history"
	"github.com/loykin/revivr/internal/history/factory"
	"github.com/loykin/revivr/internal/metrics"
	iapi "github.com/loykin/revivr/internal/server"
	"github.com/loykin/revivr/internal/supervisor"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Spec = supervisor.Spec

type Result = supervisor.Result

type Status = supervisor.Status

type Config = cfg.Config

type HistorySink = history.Sink

// ErrVerifyFailed is returned when the relaunched process is not alive after
// the verify window; callers surface it as a non-zero exit status.
var ErrVerifyFailed = supervisor.ErrVerifyFailed

// Supervisor is a thin facade over internal/supervisor.Supervisor.
// It provides a stable public API for embedding.
type Supervisor struct{ inner *supervisor.Supervisor }

func New(spec Spec) (*Supervisor, error) {
	s, err := supervisor.New(spec)
	if err != nil {
		return nil, err
	}
	return &Supervisor{inner: s}, nil
}

func (s *Supervisor) Restart(ctx context.Context) (Result, error) { return s.inner.Restart(ctx) }

func (s *Supervisor) Stop(ctx context.Context) ([]int, bool, error) {
	return s.inner.Stop(ctx)
}

func (s *Supervisor) Status() (Status, error) { return s.inner.Status() }

func (s *Supervisor) Watch(ctx context.Context) error { return s.inner.Watch(ctx) }

func (s *Supervisor) SetHistory(sink HistorySink) { s.inner.SetHistory(sink) }

// LoadConfig reads a TOML config file layered over the built-in defaults.
func LoadConfig(path string) (Config, error) { return cfg.Load(path) }

// NewHistorySink builds a history sink from a DSN (sqlite path or
// postgres URL).
func NewHistorySink(dsn string) (HistorySink, error) { return factory.NewSinkFromDSN(dsn) }

// NewHTTPServer starts the watch-mode HTTP API on addr.
func NewHTTPServer(addr, basePath string, s *Supervisor) *http.Server {
	return iapi.NewServer(addr, basePath, s.inner)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
