package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	restarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "revivr",
			Subsystem: "supervisor",
			Name:      "restarts_total",
			Help:      "Number of completed restart operations.",
		}, []string{"name"},
	)
	stops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "revivr",
			Subsystem: "supervisor",
			Name:      "stops_total",
			Help:      "Number of processes stopped, by delivery mode.",
		}, []string{"name", "mode"},
	)
	launchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "revivr",
			Subsystem: "supervisor",
			Name:      "launch_failures_total",
			Help:      "Number of relaunch attempts that failed to start.",
		}, []string{"name"},
	)
	verifyFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "revivr",
			Subsystem: "supervisor",
			Name:      "verify_failures_total",
			Help:      "Number of relaunches whose process was not alive after the verify window.",
		}, []string{"name"},
	)
	supervisedUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "revivr",
			Subsystem: "supervisor",
			Name:      "supervised_up",
			Help:      "Whether the supervised process was alive at the last poll (1 or 0).",
		}, []string{"name"},
	)
)

// Stop delivery modes.
const (
	ModeGraceful = "graceful"
	ModeForced   = "forced"
)

// Register registers all metrics with the provided registerer.
// Safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{restarts, stops, launchFailures, verifyFailures, supervisedUp}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncRestart(name string) {
	if regOK.Load() {
		restarts.WithLabelValues(name).Inc()
	}
}

func IncStop(name, mode string) {
	if regOK.Load() {
		stops.WithLabelValues(name, mode).Inc()
	}
}

func IncLaunchFailure(name string) {
	if regOK.Load() {
		launchFailures.WithLabelValues(name).Inc()
	}
}

func IncVerifyFailure(name string) {
	if regOK.Load() {
		verifyFailures.WithLabelValues(name).Inc()
	}
}

func SetSupervisedUp(name string, up bool) {
	if regOK.Load() {
		v := 0.0
		if up {
			v = 1.0
		}
		supervisedUp.WithLabelValues(name).Set(v)
	}
}
