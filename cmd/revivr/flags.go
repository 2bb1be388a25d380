package main

// RestartFlags holds per-invocation overrides for the restart command.
type RestartFlags struct {
	Script      string
	Interpreter string
	WorkDir     string
}

// WatchFlags holds flags for the watch command.
type WatchFlags struct {
	Listen string
}
