package api

import (
	"net/http"

	"github.com/comfygate/comfy-gateway/internal/app"
	"github.com/comfygate/comfy-gateway/internal/router"
	"github.com/gin-gonic/gin"
)

// ListWorkflows reports the workflow templates the gateway can serve. Both
// services read the same template directory, so the text2image registration
// answers for all of them.
func ListWorkflows(c *gin.Context) {
	app := c.MustGet("app").(*app.App)

	result, err := app.Router.Route(
		c.Request.Context(),
		string(router.ServiceText2Image),
		string(router.TaskListWorkflows),
		map[string]any{},
	)
	if err != nil {
		status, message := mapRouteError(err)
		c.JSON(status, gin.H{"message": message})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ValidateWorkflow dry-runs a named template against the executor without
// creating a job.
func ValidateWorkflow(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "workflow name is required"})
		return
	}

	app := c.MustGet("app").(*app.App)
	result, err := app.Router.Route(
		c.Request.Context(),
		string(router.ServiceText2Image),
		string(router.TaskValidateWorkflow),
		map[string]any{"workflowName": name},
	)
	if err != nil {
		status, message := mapRouteError(err)
		c.JSON(status, gin.H{"message": message})
		return
	}

	c.JSON(http.StatusOK, result)
}
