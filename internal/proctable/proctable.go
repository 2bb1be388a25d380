package proctable

import (
	"os"
	"strings"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// Match is one live process whose command line contained the search pattern.
type Match struct {
	PID     int
	Cmdline string
}

// FindByPattern scans the process table and returns every live process whose
// full command line contains pattern as a substring. The calling process and
// its parent are always excluded so the supervisor never signals itself.
// Matching zero processes is not an error.
func FindByPattern(pattern string) ([]Match, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, nil
	}
	procs, err := gopsproc.Processes()
	if err != nil {
		return nil, err
	}
	self := os.Getpid()
	parent := os.Getppid()
	var out []Match
	for _, p := range procs {
		pid := int(p.Pid)
		if pid == self || pid == parent {
			continue
		}
		// Cmdline fails for processes we cannot inspect; skip those.
		cl, err := p.Cmdline()
		if err != nil || cl == "" {
			continue
		}
		if strings.Contains(cl, pattern) {
			out = append(out, Match{PID: pid, Cmdline: cl})
		}
	}
	return out, nil
}
