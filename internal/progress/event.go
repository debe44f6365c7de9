// Package progress defines the append-only event stream emitted by crawl
// runs and the hub that fans events out to sinks.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a log event.
type Kind string

// Supported event kinds.
const (
	KindInfo     Kind = "info"
	KindProgress Kind = "progress"
	KindSuccess  Kind = "success"
	KindWarning  Kind = "warning"
	KindError    Kind = "error"
)

// Event captures a single crawl log entry. Events are immutable once
// emitted.
type Event struct {
	// RunID ties the event to one crawl_history row.
	RunID int64
	// Kind is info/progress/success/warning/error.
	Kind Kind
	// Message is free text for operators.
	Message string
	// Percent is meaningful only for KindProgress and stays in [0,100].
	Percent int
	// TS is the timestamp recorded by the emitter.
	TS time.Time
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.Message == "" {
		return errors.New("message is required")
	}
	switch e.Kind {
	case KindInfo, KindSuccess, KindWarning, KindError:
	case KindProgress:
		if e.Percent < 0 || e.Percent > 100 {
			return fmt.Errorf("progress %d out of range", e.Percent)
		}
	default:
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	return nil
}
