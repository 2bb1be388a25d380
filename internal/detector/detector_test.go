package detector

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/loykin/revivr/internal/proctable"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "bot.pid")
	pid := os.Getpid()
	if err := WritePIDFile(path, pid); err != nil {
		t.Fatalf("WritePIDFile: %v", err)
	}
	got, meta, err := ReadPIDFile(path)
	if err != nil {
		t.Fatalf("ReadPIDFile: %v", err)
	}
	if got != pid {
		t.Fatalf("pid mismatch: got %d want %d", got, pid)
	}
	if meta.StartUnix != proctable.StartUnix(pid) {
		t.Fatalf("meta start mismatch: %d", meta.StartUnix)
	}
}

func TestReadPIDFileLegacyFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.pid")
	if err := os.WriteFile(path, []byte("12345\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	pid, meta, err := ReadPIDFile(path)
	if err != nil || pid != 12345 || meta.StartUnix != 0 {
		t.Fatalf("legacy read: pid=%d meta=%+v err=%v", pid, meta, err)
	}
}

func TestPIDFileDetector(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "d.pid")
	d := PIDFileDetector{PIDFile: path}

	// missing file -> false, nil
	alive, err := d.Alive()
	if err != nil || alive {
		t.Fatalf("missing pidfile: alive=%v err=%v", alive, err)
	}

	// invalid content -> error
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Alive(); err == nil {
		t.Fatal("expected error for invalid pid")
	}

	// own pid with real meta -> alive
	if err := WritePIDFile(path, os.Getpid()); err != nil {
		t.Fatal(err)
	}
	alive, err = d.Alive()
	if err != nil || !alive {
		t.Fatalf("own pid should be alive: alive=%v err=%v", alive, err)
	}

	// stale meta simulating PID reuse -> not alive
	content := strconv.Itoa(os.Getpid()) + "\n" + `{"start_unix":1}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	alive, err = d.Alive()
	if err != nil || alive {
		t.Fatalf("reused pid should not be alive: alive=%v err=%v", alive, err)
	}
}

func TestPIDDetector(t *testing.T) {
	d := PIDDetector{PID: os.Getpid()}
	alive, err := d.Alive()
	if err != nil || !alive {
		t.Fatalf("own pid: alive=%v err=%v", alive, err)
	}
	if d.Describe() == "" {
		t.Fatal("empty describe")
	}
	d = PIDDetector{PID: 0}
	if alive, _ := d.Alive(); alive {
		t.Fatal("pid 0 must not be alive")
	}
}

func TestPatternDetector(t *testing.T) {
	requireUnix(t)
	marker := fmt.Sprintf("detector-pattern-%d", os.Getpid())
	cmd := exec.Command("/bin/sh", "-c", "sleep 30 # "+marker)
	if err := cmd.Start(); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})

	d := PatternDetector{Pattern: marker}
	var alive bool
	var err error
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		alive, err = d.Alive()
		if err == nil && alive {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil || !alive {
		t.Fatalf("marked process not detected: alive=%v err=%v", alive, err)
	}

	d = PatternDetector{Pattern: "no-such-cmdline-substring-zzz"}
	alive, err = d.Alive()
	if err != nil || alive {
		t.Fatalf("unexpected detection: alive=%v err=%v", alive, err)
	}
	if d.Describe() != "pattern:no-such-cmdline-substring-zzz" {
		t.Fatalf("describe: %q", d.Describe())
	}
}
