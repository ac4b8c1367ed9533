package router

import (
	"context"
	"fmt"

	"github.com/comfygate/comfy-gateway/internal/services/orchestrator"
)

// NewGateway wires the two generation services onto a router. text2image jobs
// run through the placeholder-substitution pipeline, img2vid jobs through the
// node-id pipeline; both share the task vocabulary of the original service.
func NewGateway(text2image, img2vid *orchestrator.Pipeline) *Router {
	r := New()

	registerService(r, ServiceText2Image, text2image)
	registerService(r, ServiceImg2Vid, img2vid)

	r.Register(ServiceText2Image, TaskGenerateImage, notImplemented("generateImage"))
	r.Register(ServiceImg2Vid, TaskGenerateVideo, notImplemented("generateVideo"))

	return r
}

func registerService(r *Router, service Service, pipeline *orchestrator.Pipeline) {
	r.Register(service, TaskValidateWorkflow, validateWorkflowHandler(pipeline))
	r.Register(service, TaskListWorkflows, listWorkflowsHandler(pipeline))
	r.Register(service, TaskStartJob, startJobHandler(pipeline))
}

func validateWorkflowHandler(pipeline *orchestrator.Pipeline) Handler {
	return func(ctx context.Context, data map[string]any) (map[string]any, error) {
		name, ok := data["workflowName"].(string)
		if !ok || name == "" {
			return nil, &orchestrator.MissingFieldError{Field: "workflowName"}
		}

		result := pipeline.ValidateTemplate(ctx, name)
		return map[string]any{
			"task":         "validateWorkflow",
			"workflowName": name,
			"validation":   result,
		}, nil
	}
}

func listWorkflowsHandler(pipeline *orchestrator.Pipeline) Handler {
	return func(ctx context.Context, data map[string]any) (map[string]any, error) {
		workflows, err := pipeline.ListTemplates()
		if err != nil {
			return nil, err
		}

		return map[string]any{
			"task":      "listWorkflows",
			"workflows": workflows,
		}, nil
	}
}

func startJobHandler(pipeline *orchestrator.Pipeline) Handler {
	return func(ctx context.Context, data map[string]any) (map[string]any, error) {
		params := orchestrator.StartJobParams{}
		if fileName, ok := data["fileName"].(string); ok {
			params.FileName = fileName
		}
		if prompt, ok := data["prompt"].(string); ok {
			params.Prompt = prompt
		}
		if uid, ok := data["uid"].(string); ok {
			params.UID = uid
		}

		result, err := pipeline.StartJob(ctx, params)
		if err != nil {
			return nil, err
		}

		return map[string]any{
			"task":   "startJob",
			"result": result,
		}, nil
	}
}

func notImplemented(task string) Handler {
	return func(ctx context.Context, data map[string]any) (map[string]any, error) {
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, task)
	}
}
