package supervisor

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/loykin/revivr/internal/logger"
	"github.com/loykin/revivr/internal/proctable"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests require sh/sleep on Unix-like systems")
	}
}

// writeScript drops a shell script into dir and returns its path. The path is
// unique per test, so it doubles as the discovery pattern.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func fastSpec(t *testing.T, dir, script string) Spec {
	t.Helper()
	return Spec{
		Name:          "bot",
		Interpreter:   "/bin/sh",
		Script:        script,
		WorkDir:       dir,
		Log:           logger.Config{Path: filepath.Join(dir, "bot.log")},
		GraceTimeout:  400 * time.Millisecond,
		StartDuration: 300 * time.Millisecond,
		PollInterval:  50 * time.Millisecond,
	}
}

func reap(t *testing.T, pid int) {
	t.Helper()
	if pid > 0 {
		_ = proctable.Kill(pid)
	}
}

func TestRestartWithNoPriorProcess(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	script := writeScript(t, dir, "bot.sh", "echo started\nsleep 30\n")

	s, err := New(fastSpec(t, dir, script))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Restart(context.Background())
	if err != nil {
		t.Fatalf("Restart: %v", err)
	}
	defer reap(t, res.PID)

	if !res.OK || res.PID <= 0 {
		t.Fatalf("expected verified relaunch, got %+v", res)
	}
	if len(res.Stopped) != 0 || res.Forced {
		t.Fatalf("nothing should have been stopped: %+v", res)
	}
	b, err := os.ReadFile(filepath.Join(dir, "bot.log"))
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	if !strings.Contains(string(b), "started") {
		t.Fatalf("log missing script output: %q", string(b))
	}
}

func TestRestartReplacesRunningProcess(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	script := writeScript(t, dir, "bot.sh", "sleep 30\n")

	prior := exec.Command("/bin/sh", script)
	if err := prior.Start(); err != nil {
		t.Fatalf("spawn prior: %v", err)
	}
	oldPID := prior.Process.Pid
	go func() { _ = prior.Wait() }()
	t.Cleanup(func() { reap(t, oldPID) })

	s, err := New(fastSpec(t, dir, script))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Restart(context.Background())
	if err != nil {
		t.Fatalf("Restart: %v", err)
	}
	defer reap(t, res.PID)

	if !res.OK {
		t.Fatalf("restart failed: %+v", res)
	}
	if res.PID == oldPID {
		t.Fatal("new pid must differ from prior pid")
	}
	found := false
	for _, pid := range res.Stopped {
		if pid == oldPID {
			found = true
		}
	}
	if !found {
		t.Fatalf("prior pid %d not in stopped set %v", oldPID, res.Stopped)
	}
	if proctable.Alive(oldPID) {
		t.Fatal("prior process still alive after restart")
	}
}

func TestRestartForceKillsUnresponsiveProcess(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	script := writeScript(t, dir, "bot.sh", "trap '' TERM\nwhile true; do sleep 0.1; done\n")

	prior := exec.Command("/bin/sh", script)
	if err := prior.Start(); err != nil {
		t.Fatalf("spawn prior: %v", err)
	}
	oldPID := prior.Process.Pid
	go func() { _ = prior.Wait() }()
	t.Cleanup(func() { reap(t, oldPID) })
	// give the trap a moment to install
	time.Sleep(150 * time.Millisecond)

	spec := fastSpec(t, dir, script)
	// the relaunched copy also ignores TERM; shorten the verify window
	s, err := New(spec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Restart(context.Background())
	if err != nil {
		t.Fatalf("Restart: %v", err)
	}
	defer reap(t, res.PID)

	if !res.Forced {
		t.Fatalf("expected forced kill, got %+v", res)
	}
	if proctable.Alive(oldPID) {
		t.Fatal("unresponsive process survived SIGKILL")
	}
	if !res.OK || res.PID == oldPID {
		t.Fatalf("bad relaunch result: %+v", res)
	}
}

func TestRestartTruncatesLog(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	script := writeScript(t, dir, "bot.sh", "echo fresh\nsleep 30\n")
	logPath := filepath.Join(dir, "bot.log")
	if err := os.WriteFile(logPath, []byte("stale output from the previous run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := New(fastSpec(t, dir, script))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Restart(context.Background())
	if err != nil {
		t.Fatalf("Restart: %v", err)
	}
	defer reap(t, res.PID)

	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "stale") {
		t.Fatalf("log not truncated: %q", string(b))
	}
	if !strings.Contains(string(b), "fresh") {
		t.Fatalf("log missing current output: %q", string(b))
	}
}

func TestRestartVerifyFailureOnQuickExit(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	script := writeScript(t, dir, "bot.sh", "echo dying\nexit 1\n")

	s, err := New(fastSpec(t, dir, script))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Restart(context.Background())
	if err != nil {
		t.Fatalf("Restart should not error on verify failure: %v", err)
	}
	if res.OK {
		t.Fatalf("expected OK=false for quick-exit script, got %+v", res)
	}
}

func TestRestartUsesPIDFileIdentity(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	script := writeScript(t, dir, "bot.sh", "sleep 30\n")

	spec := fastSpec(t, dir, script)
	spec.PIDFile = filepath.Join(dir, "bot.pid")
	s, err := New(spec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first, err := s.Restart(context.Background())
	if err != nil || !first.OK {
		t.Fatalf("first restart: res=%+v err=%v", first, err)
	}
	defer reap(t, first.PID)

	second, err := s.Restart(context.Background())
	if err != nil || !second.OK {
		t.Fatalf("second restart: res=%+v err=%v", second, err)
	}
	defer reap(t, second.PID)

	if len(second.Stopped) != 1 || second.Stopped[0] != first.PID {
		t.Fatalf("pidfile identity not used: stopped=%v want [%d]", second.Stopped, first.PID)
	}
	if second.PID == first.PID {
		t.Fatal("pids must differ across restarts")
	}
}

func TestStatusAfterRestart(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	script := writeScript(t, dir, "bot.sh", "sleep 30\n")

	s, err := New(fastSpec(t, dir, script))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	st, err := s.Status()
	if err != nil {
		t.Fatalf("Status before: %v", err)
	}
	if st.Alive {
		t.Fatalf("nothing running yet: %+v", st)
	}

	res, err := s.Restart(context.Background())
	if err != nil || !res.OK {
		t.Fatalf("Restart: res=%+v err=%v", res, err)
	}
	defer reap(t, res.PID)

	st, err = s.Status()
	if err != nil {
		t.Fatalf("Status after: %v", err)
	}
	if !st.Alive || st.PID != res.PID {
		t.Fatalf("status mismatch: %+v want pid %d", st, res.PID)
	}
}

func TestStopWithNothingRunning(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	script := writeScript(t, dir, "bot.sh", "sleep 30\n")

	s, err := New(fastSpec(t, dir, script))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stopped, forced, err := s.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(stopped) != 0 || forced {
		t.Fatalf("no-match must be a clean no-op: %v %v", stopped, forced)
	}
}

func TestSpecNormalizeDefaults(t *testing.T) {
	s := Spec{Script: "mainbot.py", Interpreter: "python3"}
	if err := s.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if s.Name != "mainbot.py" || s.Pattern != "mainbot.py" {
		t.Fatalf("defaults not filled: %+v", s)
	}
	if s.GraceTimeout != DefaultGraceTimeout || s.StartDuration != DefaultStartDuration {
		t.Fatalf("timing defaults not filled: %+v", s)
	}

	empty := Spec{}
	if err := empty.Normalize(); err == nil {
		t.Fatal("empty script must be rejected")
	}
}

func TestWatchRelaunchesDeadProcess(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	script := writeScript(t, dir, "bot.sh", "sleep 30\n")

	spec := fastSpec(t, dir, script)
	spec.PIDFile = filepath.Join(dir, "bot.pid")
	spec.RestartInterval = 100 * time.Millisecond
	s, err := New(spec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	// wait until the first launch lands, then kill it behind the watcher's back
	var firstPID int
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if st, err := s.Status(); err == nil && st.Alive {
			firstPID = st.PID
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if firstPID == 0 {
		t.Fatal("watch never launched the process")
	}
	t.Cleanup(func() { reap(t, firstPID) })
	_ = proctable.Kill(firstPID)

	var secondPID int
	deadline = time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if st, err := s.Status(); err == nil && st.Alive && st.PID != firstPID {
			secondPID = st.PID
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if secondPID == 0 {
		t.Fatal("watch did not relaunch the dead process")
	}
	t.Cleanup(func() { reap(t, secondPID) })

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop on cancel")
	}
}
