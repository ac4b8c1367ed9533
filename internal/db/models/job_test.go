package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusIsTerminal(t *testing.T) {
	assert.True(t, JobStatusRejected.IsTerminal())
	assert.True(t, JobStatusSubmitted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())

	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusTemplated.IsTerminal())
	assert.False(t, JobStatusNormalized.IsTerminal())
	assert.False(t, JobStatusValidated.IsTerminal())
}

func TestJobStatusCanTransitionTo(t *testing.T) {
	// The happy path advances one stage at a time.
	assert.True(t, JobStatusPending.CanTransitionTo(JobStatusTemplated))
	assert.True(t, JobStatusTemplated.CanTransitionTo(JobStatusNormalized))
	assert.True(t, JobStatusNormalized.CanTransitionTo(JobStatusValidated))
	assert.True(t, JobStatusNormalized.CanTransitionTo(JobStatusRejected))
	assert.True(t, JobStatusValidated.CanTransitionTo(JobStatusSubmitted))

	// Skipping stages forward is allowed; going backward is not.
	assert.True(t, JobStatusPending.CanTransitionTo(JobStatusValidated))
	assert.False(t, JobStatusValidated.CanTransitionTo(JobStatusTemplated))
	assert.False(t, JobStatusTemplated.CanTransitionTo(JobStatusPending))
	assert.False(t, JobStatusValidated.CanTransitionTo(JobStatusValidated))

	// validated and rejected are alternatives for the same stage.
	assert.False(t, JobStatusValidated.CanTransitionTo(JobStatusRejected))

	// Any non-terminal job may fail.
	assert.True(t, JobStatusPending.CanTransitionTo(JobStatusFailed))
	assert.True(t, JobStatusValidated.CanTransitionTo(JobStatusFailed))

	// Terminal statuses never change.
	assert.False(t, JobStatusSubmitted.CanTransitionTo(JobStatusFailed))
	assert.False(t, JobStatusRejected.CanTransitionTo(JobStatusSubmitted))
	assert.False(t, JobStatusFailed.CanTransitionTo(JobStatusSubmitted))
}
