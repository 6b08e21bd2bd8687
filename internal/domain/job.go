package domain

import "strings"

// JobStatus is the lifecycle state of a generation request.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusGenerating JobStatus = "generating"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// CancelledMarker prefixes the error message of a job stopped by cancellation.
const CancelledMarker = "cancelled"

// transitions lists the allowed next states. Pending -> Completed is the
// external completion path.
var transitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusGenerating, JobStatusCompleted, JobStatusFailed},
	JobStatusGenerating: {JobStatusCompleted, JobStatusFailed},
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusGenerating, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether s -> next is allowed.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Predecessors returns every status that may transition into next.
func Predecessors(next JobStatus) []JobStatus {
	var out []JobStatus
	for _, from := range []JobStatus{JobStatusPending, JobStatusGenerating} {
		if from.CanTransitionTo(next) {
			out = append(out, from)
		}
	}
	return out
}

// CancelledMessage builds the error message stored for a cancelled job.
func CancelledMessage(reason string) string {
	if reason == "" {
		return CancelledMarker
	}
	return CancelledMarker + ": " + reason
}

// IsCancelledMessage reports whether msg was produced by CancelledMessage.
func IsCancelledMessage(msg string) bool {
	return strings.HasPrefix(msg, CancelledMarker)
}
