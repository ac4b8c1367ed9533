package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/comfygate/comfy-gateway/internal/db/models"
	"github.com/comfygate/comfy-gateway/internal/db/repository"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

var ErrPersistence = errors.New("job ledger write failed")

// CreateParams are the caller inputs recorded on a new job.
type CreateParams struct {
	FileName string
	Prompt   string
	UID      string
}

// Ledger owns JobRecord persistence. Create failures are fatal to the job;
// UpdateStatus is best-effort and reports success as a bool.
type Ledger struct {
	jobs   repository.IJobRepository
	logger *zap.Logger
}

func NewLedger(jobs repository.IJobRepository, logger *zap.Logger) *Ledger {
	return &Ledger{jobs: jobs, logger: logger}
}

// Create writes a new JobRecord with status pending and returns the job id.
// The executor correlation id (comfy_client_id) is the job id itself.
func (l *Ledger) Create(ctx context.Context, params CreateParams) (string, error) {
	id := uuid.New()
	now := time.Now().UTC()

	input, err := msgpack.Marshal(map[string]any{
		"file_name": params.FileName,
		"prompt":    params.Prompt,
		"uid":       params.UID,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	job := &models.Job{
		ID:            id,
		Status:        models.JobStatusPending,
		FileName:      params.FileName,
		Prompt:        params.Prompt,
		UID:           params.UID,
		ComfyClientID: id.String(),
		Input:         input,
		CreatedAt:     bun.NullTime{Time: now},
		UpdatedAt:     bun.NullTime{Time: now},
	}

	if _, err := l.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return id.String(), nil
}

// UpdateStatus moves the job forward and merges extra fields into its details
// document. Failures (missing job, backward transition, write error) are
// logged and reported as false; they never abort the pipeline being reported
// on.
func (l *Ledger) UpdateStatus(ctx context.Context, jobID string, status models.JobStatus, extra map[string]any) bool {
	job, err := l.jobs.GetByID(ctx, jobID)
	if err != nil {
		l.logger.Warn("failed to load job for status update",
			zap.String("job_id", jobID), zap.Error(err))
		return false
	}

	if !job.Status.CanTransitionTo(status) {
		l.logger.Warn("refusing backward status transition",
			zap.String("job_id", jobID),
			zap.String("from", string(job.Status)),
			zap.String("to", string(status)))
		return false
	}

	details, err := mergeDetails(job.Details, extra)
	if err != nil {
		l.logger.Warn("failed to merge job details",
			zap.String("job_id", jobID), zap.Error(err))
		return false
	}

	if err := l.jobs.UpdateStatusByID(ctx, jobID, status, details); err != nil {
		l.logger.Warn("failed to update job status",
			zap.String("job_id", jobID), zap.String("status", string(status)), zap.Error(err))
		return false
	}

	return true
}

func (l *Ledger) Get(ctx context.Context, jobID string) (*models.Job, error) {
	return l.jobs.GetByID(ctx, jobID)
}

func mergeDetails(current json.RawMessage, extra map[string]any) (json.RawMessage, error) {
	if len(extra) == 0 {
		return current, nil
	}

	merged := map[string]any{}
	if len(current) > 0 {
		if err := json.Unmarshal(current, &merged); err != nil {
			return nil, err
		}
	}

	for k, v := range extra {
		merged[k] = v
	}

	return json.Marshal(merged)
}
