package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/comfygate/comfy-gateway/internal/services/workflow"

	"go.uber.org/zap"
)

const (
	probeTimeout  = 5 * time.Second
	submitTimeout = 10 * time.Second

	// Cap on raw error bodies surfaced to callers.
	maxErrorExcerpt = 200
)

// CheckpointLoaderType is the node class whose ckpt_name input names a model
// file the executor must have on disk.
const CheckpointLoaderType = "CheckpointLoaderSimple"

// ValidationResult is the outcome of submitting a workflow to the executor.
// Executor failures are values, never errors: Valid=false with
// details.connectivity=false means the executor was unreachable, while
// connectivity=true means it was reachable but rejected the workflow.
type ValidationResult struct {
	Valid   bool           `json:"valid"`
	Errors  []string       `json:"errors"`
	Details map[string]any `json:"details"`
}

// Client talks to the ComfyUI executor HTTP API.
type Client struct {
	baseURL string
	probe   *http.Client
	submit  *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		probe:   &http.Client{Timeout: probeTimeout},
		submit:  &http.Client{Timeout: submitTimeout},
		logger:  logger,
	}
}

type promptRequest struct {
	Prompt   workflow.Normalized `json:"prompt"`
	ClientID string              `json:"client_id"`
}

type promptResponse struct {
	PromptID string   `json:"prompt_id"`
	Number   *float64 `json:"number,omitempty"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Validate submits a normalized workflow to the executor's /prompt endpoint,
// probing liveness first. It never returns an error; every failure mode maps
// to a negative ValidationResult.
func (c *Client) Validate(ctx context.Context, wf workflow.Normalized, clientID string) ValidationResult {
	if result, ok := c.checkLiveness(ctx); !ok {
		return result
	}

	body, err := json.Marshal(promptRequest{Prompt: wf, ClientID: clientID})
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Errors:  []string{fmt.Sprintf("validation request failed: %v", err)},
			Details: map[string]any{"connectivity": true},
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(body))
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Errors:  []string{fmt.Sprintf("validation request failed: %v", err)},
			Details: map[string]any{"connectivity": true},
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.submit.Do(req)
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Errors:  []string{fmt.Sprintf("validation request failed: %v", err)},
			Details: map[string]any{"connectivity": true},
		}
	}
	defer resp.Body.Close()

	responseText, err := io.ReadAll(resp.Body)
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Errors:  []string{fmt.Sprintf("validation request failed: %v", err)},
			Details: map[string]any{"connectivity": true},
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return c.parseAccepted(responseText)
	}

	return c.parseRejected(resp.StatusCode, responseText)
}

func (c *Client) checkLiveness(ctx context.Context) (ValidationResult, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/system_stats", nil)
	if err != nil {
		return ValidationResult{
			Valid:   false,
			Errors:  []string{fmt.Sprintf("cannot connect to ComfyUI: %v", err)},
			Details: map[string]any{"connectivity": false},
		}, false
	}

	resp, err := c.probe.Do(req)
	if err != nil {
		c.logger.Warn("executor liveness probe failed", zap.Error(err))
		return ValidationResult{
			Valid:   false,
			Errors:  []string{fmt.Sprintf("cannot connect to ComfyUI: %v", err)},
			Details: map[string]any{"connectivity": false},
		}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ValidationResult{
			Valid:   false,
			Errors:  []string{fmt.Sprintf("ComfyUI not responding (status: %d)", resp.StatusCode)},
			Details: map[string]any{"connectivity": false},
		}, false
	}

	return ValidationResult{}, true
}

func (c *Client) parseAccepted(body []byte) ValidationResult {
	var accepted promptResponse
	if err := json.Unmarshal(body, &accepted); err != nil || accepted.PromptID == "" {
		return ValidationResult{
			Valid:   false,
			Errors:  []string{fmt.Sprintf("ComfyUI error (status 200): %s", excerpt(body))},
			Details: map[string]any{"connectivity": true},
		}
	}

	details := map[string]any{
		"connectivity":      true,
		"prompt_id":         accepted.PromptID,
		"validation_method": "prompt_submission",
	}
	if accepted.Number != nil {
		details["number"] = *accepted.Number
	}

	return ValidationResult{Valid: true, Errors: []string{}, Details: details}
}

func (c *Client) parseRejected(status int, body []byte) ValidationResult {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return ValidationResult{
			Valid:  false,
			Errors: []string{envelope.Error.Message},
			Details: map[string]any{
				"connectivity":      true,
				"validation_method": "prompt_submission",
			},
		}
	}

	return ValidationResult{
		Valid:   false,
		Errors:  []string{fmt.Sprintf("ComfyUI error (status %d): %s", status, excerpt(body))},
		Details: map[string]any{"connectivity": true},
	}
}

// ExtractRequiredModels collects the checkpoint filenames a workflow loads,
// in numeric node-id order. Duplicates are preserved.
func ExtractRequiredModels(wf workflow.Normalized) []string {
	models := []string{}
	for _, id := range workflow.SortedNodeIDs(wf) {
		node := wf[id]
		if node.ClassType != CheckpointLoaderType {
			continue
		}

		if name, ok := node.Inputs["ckpt_name"].(string); ok && name != "" {
			models = append(models, name)
		}
	}

	return models
}

func excerpt(body []byte) string {
	text := string(body)
	if len(text) > maxErrorExcerpt {
		return text[:maxErrorExcerpt]
	}
	return text
}
