package detector

import (
	"fmt"
	"os"

	"github.com/loykin/revivr/internal/proctable"
)

// PIDFileDetector detects the supervised process via its pidfile.
// A missing pidfile means not running, not an error.
type PIDFileDetector struct {
	PIDFile string
}

func (d PIDFileDetector) Alive() (bool, error) {
	pid, meta, err := ReadPIDFile(d.PIDFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if meta.StartUnix > 0 {
		cur := proctable.StartUnix(pid)
		if cur > 0 && cur != meta.StartUnix {
			return false, nil // PID reused; not our process
		}
	}
	return proctable.Alive(pid), nil
}

func (d PIDFileDetector) Describe() string { return "pidfile:" + d.PIDFile }

// PIDDetector detects by a known PID number.
type PIDDetector struct{ PID int }

func (d PIDDetector) Alive() (bool, error) { return proctable.Alive(d.PID), nil }

func (d PIDDetector) Describe() string { return fmt.Sprintf("pid:%d", d.PID) }
