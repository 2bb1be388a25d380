package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loykin/revivr/internal/detector"
	"github.com/loykin/revivr/internal/env"
	"github.com/loykin/revivr/internal/history"
	"github.com/loykin/revivr/internal/metrics"
	"github.com/loykin/revivr/internal/proctable"
)

// Supervisor restarts a single named process: discover, stop gracefully,
// force-kill survivors, relaunch detached, verify. Operations are strictly
// sequential; mu serializes callers (watch loop and HTTP API) so at most one
// restart sequence runs at a time.
type Supervisor struct {
	mu   sync.Mutex
	spec Spec
	envc *env.Env
	hist history.Sink
}

// New validates the spec and returns a Supervisor.
func New(spec Spec) (*Supervisor, error) {
	if err := spec.Normalize(); err != nil {
		return nil, err
	}
	return &Supervisor{spec: spec, envc: env.New()}, nil
}

// SetHistory attaches an optional sink for restart events.
func (s *Supervisor) SetHistory(sink history.Sink) { s.hist = sink }

// Spec returns a copy of the normalized spec.
func (s *Supervisor) Spec() Spec { return s.spec }

// Restart performs the full stop/relaunch/verify sequence.
// The returned error covers operational failures (unreadable process table,
// unwritable log). A healthy run that fails verification returns Result with
// OK=false and a nil error; the caller decides the exit status.
func (s *Supervisor) Restart(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res Result

	stopped, forced, err := s.stopLocked(ctx)
	if err != nil {
		return res, err
	}
	res.Stopped = stopped
	res.Forced = forced

	pid, err := s.launch()
	if err != nil {
		metrics.IncLaunchFailure(s.spec.Name)
		s.record(ctx, history.EventLaunchFail, 0, stopped, forced, err.Error())
		return res, fmt.Errorf("relaunch %s: %w", s.spec.Name, err)
	}
	res.PID = pid
	slog.Info("relaunched", "name", s.spec.Name, "pid", pid)

	res.OK = s.verify(ctx, pid)
	if res.OK {
		metrics.IncRestart(s.spec.Name)
		metrics.SetSupervisedUp(s.spec.Name, true)
		s.record(ctx, history.EventRestart, pid, stopped, forced, "")
	} else {
		metrics.IncVerifyFailure(s.spec.Name)
		metrics.SetSupervisedUp(s.spec.Name, false)
		s.record(ctx, history.EventVerifyFail, pid, stopped, forced, "not alive after verify window")
		slog.Warn("process not alive after relaunch, check the log file",
			"name", s.spec.Name, "pid", pid, "log", s.spec.Log.Path)
	}
	return res, nil
}

// Stop runs only the discover/terminate/kill sequence. It returns the PIDs
// that were signaled and whether any needed SIGKILL. Finding nothing to stop
// is not an error.
func (s *Supervisor) Stop(ctx context.Context) ([]int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(ctx)
}

func (s *Supervisor) stopLocked(ctx context.Context) ([]int, bool, error) {
	targets, err := s.findTargets()
	if err != nil {
		return nil, false, err
	}
	if len(targets) == 0 {
		slog.Info("no running process found", "name", s.spec.Name, "pattern", s.spec.Pattern)
		return nil, false, nil
	}

	for _, pid := range targets {
		slog.Info("stopping", "name", s.spec.Name, "pid", pid)
		_ = proctable.Terminate(pid)
	}
	survivors := s.waitDead(ctx, targets, s.spec.GraceTimeout)

	forced := false
	if len(survivors) > 0 {
		forced = true
		for _, pid := range survivors {
			slog.Warn("still alive after grace period, killing", "name", s.spec.Name, "pid", pid)
			_ = proctable.Kill(pid)
		}
		// SIGKILL cannot be ignored; give the kernel a moment to reap.
		s.waitDead(ctx, survivors, 500*time.Millisecond)
	}

	mode := metrics.ModeGraceful
	if forced {
		mode = metrics.ModeForced
	}
	metrics.IncStop(s.spec.Name, mode)
	return targets, forced, nil
}

// Status reports current liveness without touching anything.
func (s *Supervisor) Status() (Status, error) {
	st := Status{Name: s.spec.Name}
	for _, d := range s.detectors() {
		alive, err := d.Alive()
		if err != nil {
			continue
		}
		if alive {
			st.Alive = true
			st.Method = d.Describe()
			break
		}
	}
	if s.spec.PIDFile != "" {
		if pid, _, err := detector.ReadPIDFile(s.spec.PIDFile); err == nil {
			st.PID = pid
		}
	}
	matches, err := proctable.FindByPattern(s.spec.Pattern)
	if err != nil {
		return st, err
	}
	st.Matches = matches
	if st.PID == 0 && len(matches) > 0 {
		st.PID = matches[0].PID
	}
	return st, nil
}

// findTargets prefers the recorded pidfile identity; a command-line pattern
// scan is the compatibility fallback and may match several processes
// (e.g. parent/child pairs from different interpreter invocations).
func (s *Supervisor) findTargets() ([]int, error) {
	if s.spec.PIDFile != "" {
		d := detector.PIDFileDetector{PIDFile: s.spec.PIDFile}
		alive, err := d.Alive()
		if err == nil && alive {
			pid, _, rerr := detector.ReadPIDFile(s.spec.PIDFile)
			if rerr == nil {
				return []int{pid}, nil
			}
		}
		// stale or unreadable pidfile: fall through to pattern match
	}
	matches, err := proctable.FindByPattern(s.spec.Pattern)
	if err != nil {
		return nil, fmt.Errorf("scan process table: %w", err)
	}
	pids := make([]int, 0, len(matches))
	for _, m := range matches {
		pids = append(pids, m.PID)
	}
	return pids, nil
}

func (s *Supervisor) detectors() []detector.Detector {
	dets := make([]detector.Detector, 0, 2)
	if s.spec.PIDFile != "" {
		dets = append(dets, detector.PIDFileDetector{PIDFile: s.spec.PIDFile})
	}
	dets = append(dets, detector.PatternDetector{Pattern: s.spec.Pattern})
	return dets
}

// waitDead polls until every pid in pids is gone or the bound elapses,
// returning the survivors.
func (s *Supervisor) waitDead(ctx context.Context, pids []int, bound time.Duration) []int {
	deadline := time.Now().Add(bound)
	remaining := append([]int(nil), pids...)
	for len(remaining) > 0 && time.Now().Before(deadline) && ctx.Err() == nil {
		alive := remaining[:0]
		for _, pid := range remaining {
			if proctable.Alive(pid) {
				alive = append(alive, pid)
			}
		}
		remaining = alive
		if len(remaining) == 0 {
			break
		}
		time.Sleep(s.spec.PollInterval)
	}
	return remaining
}

// verify polls the new pid through the start window. The process must stay
// alive for the whole window; an early exit fails immediately.
func (s *Supervisor) verify(ctx context.Context, pid int) bool {
	deadline := time.Now().Add(s.spec.StartDuration)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		if !s.aliveNow(pid) {
			return false
		}
		time.Sleep(s.spec.PollInterval)
	}
	return s.aliveNow(pid)
}

// aliveNow checks the launched pid, guarding against PID reuse via the
// pidfile meta when available.
func (s *Supervisor) aliveNow(pid int) bool {
	if s.spec.PIDFile != "" {
		alive, err := (detector.PIDFileDetector{PIDFile: s.spec.PIDFile}).Alive()
		if err == nil {
			return alive
		}
	}
	return proctable.Alive(pid)
}

func (s *Supervisor) record(ctx context.Context, typ history.EventType, pid int, stopped []int, forced bool, detail string) {
	if s.hist == nil {
		return
	}
	e := history.Event{
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		Name:       s.spec.Name,
		PID:        pid,
		Stopped:    stopped,
		Forced:     forced,
		Detail:     detail,
	}
	if err := s.hist.Send(ctx, e); err != nil {
		slog.Warn("history sink failed", "error", err)
	}
}
