package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/comfygate/comfy-gateway/internal/config"
	"github.com/comfygate/comfy-gateway/internal/db/models"
	"github.com/comfygate/comfy-gateway/internal/mq"
	"github.com/comfygate/comfy-gateway/internal/services/comfy"
	"github.com/comfygate/comfy-gateway/internal/services/ledger"
	"github.com/comfygate/comfy-gateway/internal/services/templates"
	"github.com/comfygate/comfy-gateway/internal/services/workflow"

	"go.uber.org/zap"
)

// MissingFieldError reports a required caller field that was absent. It is
// raised before any ledger write happens.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// StartJobParams are the caller-supplied inputs for one pipeline run.
type StartJobParams struct {
	FileName string
	Prompt   string
	UID      string
}

// Result reports how far a pipeline run advanced. The three progress flags
// are part of the contract: callers use them to decide whether to retry from
// scratch or resume.
type Result struct {
	JobID             *string          `json:"job_id"`
	Status            models.JobStatus `json:"status"`
	Error             string           `json:"error,omitempty"`
	ValidationErrors  []string         `json:"validation_errors,omitempty"`
	ValidationDetails map[string]any   `json:"validation_details,omitempty"`
	WorkflowUpdated   bool             `json:"workflow_updated"`
	WorkflowValidated bool             `json:"workflow_validated"`
	ComfySubmitted    bool             `json:"comfy_submitted"`
}

// statusEvent is published to the job's MQ topic after every transition.
type statusEvent struct {
	JobID  string           `json:"job_id"`
	Status models.JobStatus `json:"status"`
	Time   time.Time        `json:"time"`
}

// Pipeline runs the end-to-end sequence for one named template: create
// ledger entry, inject parameters, normalize, validate against the executor,
// record submission. Stages run strictly sequentially; there are no retries.
type Pipeline struct {
	templateName string
	store        *templates.Store
	injector     workflow.Injector
	comfy        *comfy.Client
	ledger       *ledger.Ledger
	queue        mq.MQ
	logger       *zap.Logger
}

func NewPipeline(
	templateName string,
	store *templates.Store,
	injector workflow.Injector,
	client *comfy.Client,
	jobLedger *ledger.Ledger,
	queue mq.MQ,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		templateName: templateName,
		store:        store,
		injector:     injector,
		comfy:        client,
		ledger:       jobLedger,
		queue:        queue,
		logger:       logger,
	}
}

// StartJob runs the full pipeline. A MissingFieldError is returned before any
// state is written; every later failure is encoded into the Result instead.
func (p *Pipeline) StartJob(ctx context.Context, params StartJobParams) (Result, error) {
	if params.FileName == "" {
		return Result{}, &MissingFieldError{Field: "fileName"}
	}
	if params.Prompt == "" {
		return Result{}, &MissingFieldError{Field: "prompt"}
	}

	jobID, err := p.ledger.Create(ctx, ledger.CreateParams{
		FileName: params.FileName,
		Prompt:   params.Prompt,
		UID:      params.UID,
	})
	if err != nil {
		p.logger.Error("failed to create job record", zap.Error(err))
		return Result{
			JobID:  nil,
			Status: models.JobStatusFailed,
			Error:  err.Error(),
		}, nil
	}

	log := p.logger.With(zap.String("job_id", jobID), zap.String("template", p.templateName))
	log.Info("job created")

	doc, err := p.store.Load(p.templateName)
	if err != nil {
		return p.fail(ctx, jobID, err, Result{JobID: &jobID}), nil
	}

	injected, err := p.injector.Inject(doc, workflow.Params{
		JobID:    jobID,
		FileName: params.FileName,
		Prompt:   params.Prompt,
	})
	if err != nil {
		return p.fail(ctx, jobID, err, Result{JobID: &jobID}), nil
	}

	p.transition(ctx, jobID, models.JobStatusTemplated, nil)
	log.Info("workflow updated with job parameters")

	normalized := workflow.Normalize(injected)
	p.transition(ctx, jobID, models.JobStatusNormalized, nil)

	validation := p.comfy.Validate(ctx, normalized, jobID)
	if !validation.Valid {
		log.Warn("workflow validation failed", zap.Strings("errors", validation.Errors))
		p.transition(ctx, jobID, models.JobStatusRejected, map[string]any{
			"validation_errors": validation.Errors,
		})
		return Result{
			JobID:             &jobID,
			Status:            models.JobStatusRejected,
			Error:             "workflow validation failed",
			ValidationErrors:  validation.Errors,
			ValidationDetails: validation.Details,
			WorkflowUpdated:   true,
		}, nil
	}

	p.transition(ctx, jobID, models.JobStatusValidated, nil)
	log.Info("workflow validated")

	// The validation call already queued the prompt with the executor, with
	// client_id equal to the job id; record the executor-side identifier.
	submitExtra := map[string]any{}
	if promptID, ok := validation.Details["prompt_id"]; ok {
		submitExtra["prompt_id"] = promptID
	}
	p.transition(ctx, jobID, models.JobStatusSubmitted, submitExtra)
	log.Info("job submitted to executor")

	return Result{
		JobID:             &jobID,
		Status:            models.JobStatusSubmitted,
		ValidationDetails: validation.Details,
		WorkflowUpdated:   true,
		WorkflowValidated: true,
		ComfySubmitted:    true,
	}, nil
}

// ValidateTemplate loads, normalizes, and validates a stored template without
// creating a job. The result's details are enriched with template metadata,
// node count, and required model files.
func (p *Pipeline) ValidateTemplate(ctx context.Context, name string) comfy.ValidationResult {
	doc, err := p.store.Load(name)
	if err != nil {
		return comfy.ValidationResult{
			Valid:   false,
			Errors:  []string{fmt.Sprintf("workflow file '%s.json' not found or invalid", name)},
			Details: map[string]any{},
		}
	}

	normalized := workflow.Normalize(doc)
	result := p.comfy.Validate(ctx, normalized, "validation-service")

	details := map[string]any{
		"workflow_metadata": doc.Metadata(),
		"node_count":        len(normalized),
		"required_models":   comfy.ExtractRequiredModels(normalized),
		"comfy_validation":  result.Details,
	}
	result.Details = details

	return result
}

func (p *Pipeline) ListTemplates() ([]string, error) {
	return p.store.List()
}

// fail marks the job failed and folds the error into the partial result. The
// progress flags on partial keep whatever the caller had set before the
// failing stage.
func (p *Pipeline) fail(ctx context.Context, jobID string, err error, partial Result) Result {
	p.logger.Error("pipeline stage failed", zap.String("job_id", jobID), zap.Error(err))

	p.transition(ctx, jobID, models.JobStatusFailed, map[string]any{
		"error": err.Error(),
	})

	partial.Status = models.JobStatusFailed
	partial.Error = err.Error()
	return partial
}

// transition updates the ledger and publishes a status event; both are
// best-effort.
func (p *Pipeline) transition(ctx context.Context, jobID string, status models.JobStatus, extra map[string]any) {
	p.ledger.UpdateStatus(ctx, jobID, status, extra)

	event, err := json.Marshal(statusEvent{
		JobID:  jobID,
		Status: status,
		Time:   time.Now().UTC(),
	})
	if err != nil {
		return
	}

	topic := config.DefaultJobEventsTopic + "/" + jobID
	if err := p.queue.Publish(ctx, topic, event); err != nil {
		p.logger.Warn("failed to publish job event",
			zap.String("job_id", jobID), zap.Error(err))
	}
}
