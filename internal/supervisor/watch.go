package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/loykin/revivr/internal/metrics"
)

// Watch restarts the process once, then keeps polling its liveness and
// relaunches it whenever it dies. It returns when ctx is canceled or when a
// relaunch cannot be verified (the operator should look at the log before
// the loop hammers a broken program).
func (s *Supervisor) Watch(ctx context.Context) error {
	res, err := s.Restart(ctx)
	if err != nil {
		return err
	}
	if !res.OK {
		return ErrVerifyFailed
	}
	pid := res.PID

	ticker := time.NewTicker(s.spec.PollInterval * 5)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if s.aliveNow(pid) {
			metrics.SetSupervisedUp(s.spec.Name, true)
			continue
		}
		metrics.SetSupervisedUp(s.spec.Name, false)
		slog.Warn("supervised process died, relaunching",
			"name", s.spec.Name, "pid", pid, "after", s.spec.RestartInterval)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.spec.RestartInterval):
		}

		res, err = s.Restart(ctx)
		if err != nil {
			return err
		}
		if !res.OK {
			return ErrVerifyFailed
		}
		pid = res.PID
	}
}
