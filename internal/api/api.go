package api

import (
	"errors"
	"net/http"

	"github.com/comfygate/comfy-gateway/internal/app"
	"github.com/comfygate/comfy-gateway/internal/router"
	"github.com/comfygate/comfy-gateway/internal/services/orchestrator"
	"github.com/gin-gonic/gin"
)

type RouteRequestBody struct {
	Service string         `json:"service" binding:"required"`
	Task    string         `json:"task" binding:"required"`
	Data    map[string]any `json:"data"`
}

// RouteRequest is the single dispatch entry point: a (service, task, data)
// triple is routed to the matching pipeline operation.
func RouteRequest(c *gin.Context) {
	var body RouteRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to parse request body"})
		return
	}

	app := c.MustGet("app").(*app.App)
	if body.Data == nil {
		body.Data = map[string]any{}
	}

	result, err := app.Router.Route(c.Request.Context(), body.Service, body.Task, body.Data)
	if err != nil {
		status, message := mapRouteError(err)
		c.JSON(status, gin.H{"message": message})
		return
	}

	c.JSON(http.StatusOK, result)
}

func mapRouteError(err error) (int, string) {
	var missing *orchestrator.MissingFieldError
	switch {
	case errors.As(err, &missing):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, router.ErrUnknownService), errors.Is(err, router.ErrUnknownTask):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, router.ErrNotImplemented):
		return http.StatusNotImplemented, err.Error()
	}

	return http.StatusInternalServerError, err.Error()
}
