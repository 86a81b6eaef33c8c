package pipeline

import (
	"time"

	"github.com/serroba/linkbot/internal/links"
)

// State is the position of a message in the pipeline.
type State string

const (
	StateIdle          State = "idle"
	StateLinksDetected State = "links_detected"
	StateResolving     State = "resolving"
	StateSubstituted   State = "substituted"
	StateDelivered     State = "delivered"
	StateNoLinks       State = "no_links"
)

// Status is the outcome of resolving one link.
type Status string

const (
	StatusResolved     Status = "resolved"
	StatusMissingToken Status = "missing_token"
	StatusFailed       Status = "failed"
)

// Result is the resolution of one candidate. Results are index-aligned with
// the detected candidates.
type Result struct {
	Candidate links.Candidate
	Resolved  string
	Status    Status
	Err       error
}

// Text returns the resolved URL, or the original substring on any failure.
func (r Result) Text() string {
	if r.Status == StatusResolved {
		return r.Resolved
	}

	return r.Candidate.Raw
}

// Outcome describes one processed message.
type Outcome struct {
	RunID   string
	State   State
	Results []Result
	Text    string
	Notices int
}

// Observer is notified of per-link and per-message outcomes.
type Observer interface {
	LinkResolved(status Status, elapsed time.Duration)
	MessageProcessed(state State)
}

type nopObserver struct{}

func (nopObserver) LinkResolved(Status, time.Duration) {}
func (nopObserver) MessageProcessed(State)             {}
