package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownService = errors.New("unknown service")
	ErrUnknownTask    = errors.New("unknown task")
	ErrNotImplemented = errors.New("task not implemented")
)

// Service and Task form the closed key space the router dispatches on.
// Unknown keys are rejected at the boundary with a typed error.
type Service string

type Task string

const (
	ServiceText2Image Service = "text2image"
	ServiceImg2Vid    Service = "img2vid"
)

const (
	TaskValidateWorkflow Task = "validateworkflow"
	TaskListWorkflows    Task = "listworkflows"
	TaskStartJob         Task = "startjob"
	TaskGenerateImage    Task = "generateimage"
	TaskGenerateVideo    Task = "generatevideo"
)

// Handler processes one task's data payload into a response mapping.
type Handler func(ctx context.Context, data map[string]any) (map[string]any, error)

// Router maps (service, task) pairs to handlers. The key set is declared
// statically at construction; Route only looks up, it never registers.
type Router struct {
	routes map[Service]map[Task]Handler
}

func New() *Router {
	return &Router{routes: make(map[Service]map[Task]Handler)}
}

func (r *Router) Register(service Service, task Task, handler Handler) {
	tasks, ok := r.routes[service]
	if !ok {
		tasks = make(map[Task]Handler)
		r.routes[service] = tasks
	}

	tasks[task] = handler
}

// Route dispatches the inbound triple. Service and task names are matched
// case-insensitively, so both "text2Image" and "text2image" are accepted.
func (r *Router) Route(ctx context.Context, service, task string, data map[string]any) (map[string]any, error) {
	tasks, ok := r.routes[Service(strings.ToLower(service))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, service)
	}

	handler, ok := tasks[Task(strings.ToLower(task))]
	if !ok {
		return nil, fmt.Errorf("%w: %s:%s", ErrUnknownTask, service, task)
	}

	return handler(ctx, data)
}

// Services lists the registered service names.
func (r *Router) Services() []string {
	names := make([]string, 0, len(r.routes))
	for service := range r.routes {
		names = append(names, string(service))
	}
	return names
}
