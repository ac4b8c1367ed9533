package server

import (
	"net/http"

	"github.com/comfygate/comfy-gateway/internal/api"
	"github.com/comfygate/comfy-gateway/internal/app"
	"github.com/gin-gonic/gin"
)

func (s *Server) SetupRoutes(app *app.App) {
	// Health check endpoint
	s.ginEngine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Not an API, just a simple file server endpoint
	s.ginEngine.GET("/file/:filename", handlerWrapper(app, api.GetFile))

	apiV1 := s.ginEngine.Group("/api/v1")

	apiV1.POST("/route", handlerWrapper(app, api.RouteRequest))
	apiV1.POST("/upload", handlerWrapper(app, api.UploadFile))

	apiV1.GET("/workflows", handlerWrapper(app, api.ListWorkflows))
	apiV1.POST("/workflows/:name/validate", handlerWrapper(app, api.ValidateWorkflow))

	apiV1.GET("/jobs/:id", handlerWrapper(app, api.GetJob))
	apiV1.GET("/jobs/:id/stream", handlerWrapper(app, api.StreamJob))
}

func handlerWrapper(app *app.App, f func(c *gin.Context)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set("app", app)
		f(ctx)
	}
}
