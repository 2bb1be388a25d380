//go:build windows

package supervisor

import "syscall"

const detachedProcess = 0x00000008

// detachAttrs detaches the child from the supervisor's console so it keeps
// running after the supervisor exits.
func detachAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | detachedProcess,
	}
}
