package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/comfygate/comfy-gateway/internal/app"
	"github.com/comfygate/comfy-gateway/internal/config"
	"github.com/comfygate/comfy-gateway/internal/db/models"
	"github.com/comfygate/comfy-gateway/internal/mq"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type JobResponse struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	FileName  string          `json:"file_name"`
	Prompt    string          `json:"prompt"`
	UID       string          `json:"uid,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt string          `json:"created_at,omitempty"`
	UpdatedAt string          `json:"updated_at,omitempty"`
}

func toJobResponse(job *models.Job) JobResponse {
	resp := JobResponse{
		ID:       job.ID.String(),
		Status:   string(job.Status),
		FileName: job.FileName,
		Prompt:   job.Prompt,
		UID:      job.UID,
		Details:  job.Details,
	}
	if !job.CreatedAt.IsZero() {
		resp.CreatedAt = job.CreatedAt.Time.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	if !job.UpdatedAt.IsZero() {
		resp.UpdatedAt = job.UpdatedAt.Time.UTC().Format("2006-01-02T15:04:05Z07:00")
	}

	return resp
}

func GetJob(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid job id"})
		return
	}

	app := c.MustGet("app").(*app.App)
	job, err := app.JobLedger.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "job not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toJobResponse(job)})
}

// StreamJob replays job status transitions over SSE until the job reaches a
// terminal status or the client goes away.
func StreamJob(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid job id"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	app := c.MustGet("app").(*app.App)
	topic := config.DefaultJobEventsTopic + "/" + id
	for {
		select {
		case <-c.Request.Context().Done():
			return
		default:
			message, err := app.MQ().Receive(c.Request.Context(), topic)
			if err != nil {
				if errors.Is(err, mq.ErrTopicClosed) || errors.Is(err, mq.ErrQueueClosed) {
					return
				}

				continue
			}

			messageData, err := app.MQ().GetMessageData(message)
			if err != nil {
				continue
			}

			if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", string(messageData)); err != nil {
				continue
			}
			c.Writer.Flush()

			var event struct {
				Status models.JobStatus `json:"status"`
			}
			if err := json.Unmarshal(messageData, &event); err == nil && event.Status.IsTerminal() {
				if err := app.MQ().CloseTopic(topic); err != nil {
					app.Logger.Warn("failed to close job event topic")
				}
				return
			}
		}
	}
}
