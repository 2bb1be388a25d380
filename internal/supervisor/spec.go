package supervisor

import (
	"errors"
	"strings"
	"time"

	"github.com/loykin/revivr/internal/logger"
	"github.com/loykin/revivr/internal/proctable"
)

// Default timings. GraceTimeout and StartDuration bound the two poll loops
// that replaced the original fixed sleeps.
const (
	DefaultGraceTimeout    = 2 * time.Second
	DefaultStartDuration   = 1 * time.Second
	DefaultPollInterval    = 100 * time.Millisecond
	DefaultRestartInterval = 1 * time.Second
)

// Spec describes the process to supervise. Immutable for the run's duration.
type Spec struct {
	Name        string        `json:"name"`
	Interpreter string        `json:"interpreter"` // e.g. python3
	Script      string        `json:"script"`      // executable passed to the interpreter
	WorkDir     string        `json:"work_dir"`    // directory to launch from
	Pattern     string        `json:"pattern"`     // cmdline substring; defaults to Script
	PIDFile     string        `json:"pid_file"`    // preferred identity when set
	Env         []string      `json:"env"`         // extra K=V entries
	EnvFiles    []string      `json:"env_files"`   // .env files layered under Env
	Log         logger.Config `json:"log"`         // combined stdout+stderr destination

	GraceTimeout    time.Duration `json:"grace_timeout"`    // bound on the post-SIGTERM wait
	StartDuration   time.Duration `json:"start_duration"`   // verify window after relaunch
	PollInterval    time.Duration `json:"poll_interval"`    // liveness poll step
	RestartInterval time.Duration `json:"restart_interval"` // watch mode: wait before relaunching a dead process
}

// Normalize fills defaults and validates required fields.
func (s *Spec) Normalize() error {
	if strings.TrimSpace(s.Script) == "" {
		return errors.New("spec: script is required")
	}
	if s.Name == "" {
		s.Name = s.Script
	}
	if s.Pattern == "" {
		s.Pattern = s.Script
	}
	if s.GraceTimeout <= 0 {
		s.GraceTimeout = DefaultGraceTimeout
	}
	if s.StartDuration <= 0 {
		s.StartDuration = DefaultStartDuration
	}
	if s.PollInterval <= 0 {
		s.PollInterval = DefaultPollInterval
	}
	if s.RestartInterval <= 0 {
		s.RestartInterval = DefaultRestartInterval
	}
	return nil
}

// Result reports the outcome of a restart.
type Result struct {
	PID     int   `json:"pid"`     // identifier of the relaunched process
	Stopped []int `json:"stopped"` // identifiers signaled during the stop phase
	Forced  bool  `json:"forced"`  // true when any survivor needed SIGKILL
	OK      bool  `json:"ok"`      // alive after the verify window
}

// Status is an on-demand liveness report; nothing here is cached.
type Status struct {
	Name    string            `json:"name"`
	Alive   bool              `json:"alive"`
	PID     int               `json:"pid,omitempty"`
	Method  string            `json:"method,omitempty"` // detector that answered
	Matches []proctable.Match `json:"matches,omitempty"`
}
