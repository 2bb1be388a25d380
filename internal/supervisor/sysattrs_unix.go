//go:build !windows

package supervisor

import "syscall"

// detachAttrs puts the child in its own session so it is not delivered the
// supervisor's terminal signals and survives the supervisor's exit.
func detachAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
