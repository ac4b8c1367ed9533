package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/comfygate/comfy-gateway/internal/db/drivers"
	"github.com/comfygate/comfy-gateway/internal/db/models"
	"github.com/comfygate/comfy-gateway/internal/db/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

func newTestLedger(t *testing.T) (*Ledger, repository.IJobRepository) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	driver, err := drivers.NewSQLiteDriver(dsn)
	require.NoError(t, err)

	db := driver.GetDB()
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.NewCreateTable().Model((*models.Job)(nil)).IfNotExists().Exec(context.Background())
	require.NoError(t, err)

	jobs := repository.NewJobRepository(db)
	return NewLedger(jobs, zap.NewNop()), jobs
}

func TestLedgerCreate(t *testing.T) {
	l, jobs := newTestLedger(t)
	ctx := context.Background()

	id, err := l.Create(ctx, CreateParams{
		FileName: "ref.png",
		Prompt:   "a red fox",
		UID:      "user-1",
	})
	require.NoError(t, err)
	require.NoError(t, uuid.Validate(id))

	job, err := jobs.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, "ref.png", job.FileName)
	assert.Equal(t, "a red fox", job.Prompt)
	assert.Equal(t, "user-1", job.UID)
	assert.Equal(t, id, job.ComfyClientID)
	assert.False(t, job.CreatedAt.IsZero())
	assert.False(t, job.UpdatedAt.IsZero())

	var input map[string]any
	require.NoError(t, msgpack.Unmarshal(job.Input, &input))
	assert.Equal(t, "ref.png", input["file_name"])
	assert.Equal(t, "a red fox", input["prompt"])
}

func TestLedgerCreate_DistinctIDsForIdenticalParams(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	params := CreateParams{FileName: "ref.png", Prompt: "same"}
	first, err := l.Create(ctx, params)
	require.NoError(t, err)
	second, err := l.Create(ctx, params)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestLedgerUpdateStatus_ForwardProgression(t *testing.T) {
	l, jobs := newTestLedger(t)
	ctx := context.Background()

	id, err := l.Create(ctx, CreateParams{FileName: "f", Prompt: "p"})
	require.NoError(t, err)

	for _, status := range []models.JobStatus{
		models.JobStatusTemplated,
		models.JobStatusNormalized,
		models.JobStatusValidated,
		models.JobStatusSubmitted,
	} {
		assert.True(t, l.UpdateStatus(ctx, id, status, nil), "to %s", status)
	}

	job, err := jobs.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSubmitted, job.Status)
}

func TestLedgerUpdateStatus_RefusesBackwardTransition(t *testing.T) {
	l, jobs := newTestLedger(t)
	ctx := context.Background()

	id, err := l.Create(ctx, CreateParams{FileName: "f", Prompt: "p"})
	require.NoError(t, err)

	require.True(t, l.UpdateStatus(ctx, id, models.JobStatusValidated, nil))
	assert.False(t, l.UpdateStatus(ctx, id, models.JobStatusTemplated, nil))

	job, err := jobs.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusValidated, job.Status)
}

func TestLedgerUpdateStatus_TerminalIsFinal(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	id, err := l.Create(ctx, CreateParams{FileName: "f", Prompt: "p"})
	require.NoError(t, err)

	require.True(t, l.UpdateStatus(ctx, id, models.JobStatusRejected, nil))
	assert.False(t, l.UpdateStatus(ctx, id, models.JobStatusSubmitted, nil))
	assert.False(t, l.UpdateStatus(ctx, id, models.JobStatusFailed, nil))
}

func TestLedgerUpdateStatus_MergesDetails(t *testing.T) {
	l, jobs := newTestLedger(t)
	ctx := context.Background()

	id, err := l.Create(ctx, CreateParams{FileName: "f", Prompt: "p"})
	require.NoError(t, err)

	require.True(t, l.UpdateStatus(ctx, id, models.JobStatusValidated, map[string]any{
		"validation_errors": []string{},
	}))
	require.True(t, l.UpdateStatus(ctx, id, models.JobStatusSubmitted, map[string]any{
		"prompt_id": "abc123",
	}))

	job, err := jobs.GetByID(ctx, id)
	require.NoError(t, err)

	var details map[string]any
	require.NoError(t, json.Unmarshal(job.Details, &details))
	assert.Equal(t, "abc123", details["prompt_id"])
	assert.Contains(t, details, "validation_errors")
}

func TestLedgerUpdateStatus_UnknownJob(t *testing.T) {
	l, _ := newTestLedger(t)

	assert.False(t, l.UpdateStatus(context.Background(), uuid.NewString(), models.JobStatusFailed, nil))
}

func TestLedgerGet(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	id, err := l.Create(ctx, CreateParams{FileName: "f", Prompt: "p"})
	require.NoError(t, err)

	job, err := l.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, job.ID.String())

	_, err = l.Get(ctx, uuid.NewString())
	assert.Error(t, err)
}
