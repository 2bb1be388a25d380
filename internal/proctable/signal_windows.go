//go:build windows

package proctable

import (
	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// Alive reports whether a process with the given pid exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := gopsproc.PidExists(int32(pid))
	return err == nil && ok
}

// Terminate asks the process to exit. Windows has no SIGTERM equivalent that
// a console process is guaranteed to handle, so this is best-effort.
func Terminate(pid int) error {
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return nil // already gone
	}
	return p.Terminate()
}

// Kill forcibly ends the process.
func Kill(pid int) error {
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return nil // already gone
	}
	return p.Kill()
}
