package detector

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/loykin/revivr/internal/proctable"
)

// Meta is the second line of a pidfile: the process start time recorded at
// launch. A later liveness check compares it against the current start time
// of the same PID, so a reused PID is not mistaken for the supervised process.
type Meta struct {
	StartUnix int64 `json:"start_unix"`
}

// WritePIDFile writes "PID\n{meta}\n" for the given pid.
func WritePIDFile(path string, pid int) error {
	if path == "" || pid <= 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	meta, err := json.Marshal(Meta{StartUnix: proctable.StartUnix(pid)})
	if err != nil {
		return err
	}
	content := strconv.Itoa(pid) + "\n" + string(meta) + "\n"
	return os.WriteFile(path, []byte(content), 0o600)
}

// ReadPIDFile parses a pidfile written by WritePIDFile. Legacy files holding
// only a PID are accepted; meta start time is then zero.
func ReadPIDFile(path string) (int, Meta, error) {
	var meta Meta
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, meta, err
	}
	pidLine, rest, _ := strings.Cut(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(pidLine))
	if err != nil {
		return 0, meta, fmt.Errorf("invalid pid in %s: %w", path, err)
	}
	rest = strings.TrimSpace(rest)
	if rest != "" {
		// Tolerate unparseable meta; the PID alone is still usable.
		if line, _, ok := strings.Cut(rest, "\n"); ok {
			rest = line
		}
		_ = json.Unmarshal([]byte(rest), &meta)
	}
	return pid, meta, nil
}
