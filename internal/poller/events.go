package poller

import (
	"github.com/haltarr/haltarr/internal/arr"
	"github.com/haltarr/haltarr/internal/changelog"
	"github.com/haltarr/haltarr/internal/history"
)

// WebSocket event types broadcast by the poll engine.
const (
	EventCycleStarted   = "cycle:started"
	EventCycleCompleted = "cycle:completed"
	EventActionTaken    = "cycle:action"
)

// StartedEvent is the payload for cycle:started.
type StartedEvent struct {
	Services []arr.Service `json:"services"`
}

// CompletedEvent is the payload for cycle:completed.
type CompletedEvent struct {
	Summaries []history.RunSummary `json:"summaries"`
	ElapsedMs int                  `json:"elapsed"`
}

// ActionEvent is the payload for cycle:action.
type ActionEvent struct {
	Entry changelog.Entry `json:"entry"`
}
