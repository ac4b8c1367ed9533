package comfy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/comfygate/comfy-gateway/internal/services/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testWorkflow() workflow.Normalized {
	return workflow.Normalized{
		"3": {ClassType: "KSampler", Inputs: map[string]any{"seed": 42}},
	}
}

// fakeExecutor answers /system_stats and delegates /prompt to the given
// handler, capturing the submitted request body.
func fakeExecutor(t *testing.T, prompt http.HandlerFunc) (*httptest.Server, *[]byte) {
	t.Helper()

	var captured []byte
	mux := http.NewServeMux()
	mux.HandleFunc("/system_stats", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/prompt", func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		prompt(w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &captured
}

func TestValidate_ExecutorUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := NewClient(server.URL, zap.NewNop())
	result := client.Validate(context.Background(), testWorkflow(), "job-1")

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "cannot connect to ComfyUI")
	assert.Equal(t, false, result.Details["connectivity"])
}

func TestValidate_ProbeBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, zap.NewNop())
	result := client.Validate(context.Background(), testWorkflow(), "job-1")

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "ComfyUI not responding (status: 500)")
	assert.Equal(t, false, result.Details["connectivity"])
}

func TestValidate_Accepted(t *testing.T) {
	server, captured := fakeExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"prompt_id": "abc123", "number": 7}`))
	})

	client := NewClient(server.URL, zap.NewNop())
	result := client.Validate(context.Background(), testWorkflow(), "job-1")

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "abc123", result.Details["prompt_id"])
	assert.Equal(t, true, result.Details["connectivity"])
	assert.Equal(t, "prompt_submission", result.Details["validation_method"])
	assert.Equal(t, float64(7), result.Details["number"])

	var submitted promptRequest
	require.NoError(t, json.Unmarshal(*captured, &submitted))
	assert.Equal(t, "job-1", submitted.ClientID)
	assert.Contains(t, submitted.Prompt, "3")
}

func TestValidate_RejectedWithErrorEnvelope(t *testing.T) {
	server, _ := fakeExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "bad node"}}`))
	})

	client := NewClient(server.URL, zap.NewNop())
	result := client.Validate(context.Background(), testWorkflow(), "job-1")

	assert.False(t, result.Valid)
	assert.Equal(t, []string{"bad node"}, result.Errors)
	assert.Equal(t, true, result.Details["connectivity"])
}

func TestValidate_RejectedWithRawBodyExcerpt(t *testing.T) {
	longBody := strings.Repeat("x", 500)
	server, _ := fakeExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(longBody))
	})

	client := NewClient(server.URL, zap.NewNop())
	result := client.Validate(context.Background(), testWorkflow(), "job-1")

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "ComfyUI error (status 502)")
	assert.LessOrEqual(t, len(result.Errors[0]), len("ComfyUI error (status 502): ")+200)
}

func TestValidate_AcceptedWithoutPromptID(t *testing.T) {
	server, _ := fakeExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected": true}`))
	})

	client := NewClient(server.URL, zap.NewNop())
	result := client.Validate(context.Background(), testWorkflow(), "job-1")

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "ComfyUI error (status 200)")
}

func TestExtractRequiredModels(t *testing.T) {
	wf := workflow.Normalized{
		"12": {ClassType: "CheckpointLoaderSimple", Inputs: map[string]any{"ckpt_name": "b.safetensors"}},
		"4":  {ClassType: "CheckpointLoaderSimple", Inputs: map[string]any{"ckpt_name": "a.safetensors"}},
		"3":  {ClassType: "KSampler", Inputs: map[string]any{"seed": 1}},
		"20": {ClassType: "CheckpointLoaderSimple", Inputs: map[string]any{"ckpt_name": "a.safetensors"}},
	}

	// Numeric node-id order, duplicates preserved.
	assert.Equal(t,
		[]string{"a.safetensors", "b.safetensors", "a.safetensors"},
		ExtractRequiredModels(wf),
	)
}

func TestExtractRequiredModels_NoLoaders(t *testing.T) {
	wf := workflow.Normalized{
		"3": {ClassType: "KSampler", Inputs: map[string]any{}},
	}

	assert.Empty(t, ExtractRequiredModels(wf))
}
