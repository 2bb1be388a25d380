package supervisor

import (
	"fmt"
	"os/exec"

	"github.com/loykin/revivr/internal/detector"
)

// launch starts a fresh instance of the supervised process: interpreter plus
// script in the configured workdir, stdout and stderr both attached to the
// configured log writer, in its own session so it outlives the supervisor.
// The supervisor never blocks on the child; a reaper goroutine collects the
// exit status if the child dies while the supervisor is still around.
func (s *Supervisor) launch() (int, error) {
	merged, err := s.envc.Merge(s.spec.EnvFiles, s.spec.Env)
	if err != nil {
		return 0, fmt.Errorf("compose environment: %w", err)
	}

	w, err := s.spec.Log.Writer()
	if err != nil {
		return 0, fmt.Errorf("open log %s: %w", s.spec.Log.Path, err)
	}

	var cmd *exec.Cmd
	if s.spec.Interpreter != "" {
		// #nosec G204 -- interpreter and script come from the operator's config
		cmd = exec.Command(s.spec.Interpreter, s.spec.Script)
	} else {
		// #nosec G204
		cmd = exec.Command(s.spec.Script)
	}
	if s.spec.WorkDir != "" {
		cmd.Dir = s.spec.WorkDir
	}
	cmd.Env = merged
	cmd.Stdout = w
	cmd.Stderr = w
	cmd.SysProcAttr = detachAttrs()

	if err := cmd.Start(); err != nil {
		_ = w.Close()
		return 0, err
	}
	// The child holds its own descriptor; close the parent's copy.
	_ = w.Close()

	pid := cmd.Process.Pid
	if s.spec.PIDFile != "" {
		if err := detector.WritePIDFile(s.spec.PIDFile, pid); err != nil {
			return pid, fmt.Errorf("write pidfile %s: %w", s.spec.PIDFile, err)
		}
	}

	// Reap the child if it exits before we do. The new session keeps it
	// running after the supervisor is gone.
	go func() { _ = cmd.Wait() }()

	return pid, nil
}
