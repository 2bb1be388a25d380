package history

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// EventType defines the kind of supervisor event.
type EventType string

const (
	EventRestart    EventType = "restart"
	EventStop       EventType = "stop"
	EventLaunchFail EventType = "launch_fail"
	EventVerifyFail EventType = "verify_fail"
)

// Event is one restart-operation outcome to be exported for audit.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Name       string    `json:"name"`
	PID        int       `json:"pid"`     // relaunched pid, 0 when launch failed
	Stopped    []int     `json:"stopped"` // pids signaled during the stop phase
	Forced     bool      `json:"forced"`  // a survivor needed SIGKILL
	Detail     string    `json:"detail,omitempty"`
}

// StoppedList renders the stopped pids as a comma-separated string for
// storage in a flat column.
func (e Event) StoppedList() string {
	if len(e.Stopped) == 0 {
		return ""
	}
	parts := make([]string, 0, len(e.Stopped))
	for _, pid := range e.Stopped {
		parts = append(parts, strconv.Itoa(pid))
	}
	return strings.Join(parts, ",")
}

// Sink is a destination for supervisor events.
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
