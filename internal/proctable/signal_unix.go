//go:build !windows

package proctable

import (
	"errors"
	"syscall"
)

// Alive reports whether a process with the given pid exists. EPERM means the
// process exists but belongs to another user, so it counts as alive.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// Terminate delivers the graceful termination signal (SIGTERM).
// Signaling an already-gone process is not an error.
func Terminate(pid int) error {
	err := syscall.Kill(pid, syscall.SIGTERM)
	if err != nil && errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

// Kill delivers the non-ignorable termination signal (SIGKILL).
func Kill(pid int) error {
	err := syscall.Kill(pid, syscall.SIGKILL)
	if err != nil && errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
