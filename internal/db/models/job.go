package models

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusTemplated  JobStatus = "templated"
	JobStatusNormalized JobStatus = "normalized"
	JobStatusValidated  JobStatus = "validated"
	JobStatusRejected   JobStatus = "rejected"
	JobStatusSubmitted  JobStatus = "submitted"
	JobStatusFailed     JobStatus = "failed"
)

// statusRank orders the pipeline stages; validated and rejected share a rank
// because they are alternatives for the same stage.
var statusRank = map[JobStatus]int{
	JobStatusPending:    0,
	JobStatusTemplated:  1,
	JobStatusNormalized: 2,
	JobStatusValidated:  3,
	JobStatusRejected:   3,
	JobStatusSubmitted:  4,
	JobStatusFailed:     5,
}

func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusRejected, JobStatusSubmitted, JobStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next keeps the status
// machine strictly forward. A job never returns to pending, and terminal
// statuses never change.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == JobStatusFailed {
		return true
	}

	currentRank, ok := statusRank[s]
	if !ok {
		return false
	}
	nextRank, ok := statusRank[next]
	if !ok {
		return false
	}

	return nextRank > currentRank
}

type Job struct {
	bun.BaseModel `bun:"table:jobs"`

	ID       uuid.UUID `bun:",pk"`
	Status   JobStatus `bun:",notnull"`
	FileName string    `bun:",notnull"`
	Prompt   string    `bun:",notnull"`
	UID      string    `bun:",nullzero"`

	// Correlation id sent to the executor as client_id; equal to ID.
	ComfyClientID string `bun:",notnull"`

	// Msgpack-encoded input parameters, as submitted by the caller.
	Input []byte `bun:",notnull"`

	// Extra fields merged in by status updates (errors, prompt_id, ...).
	Details json.RawMessage `bun:",nullzero"`

	UpdatedAt bun.NullTime `bun:",nullzero,notnull,default:current_timestamp"`
	CreatedAt bun.NullTime `bun:",nullzero,notnull,default:current_timestamp"`
}
