package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/abdnh/anki-copycat-importer/internal/tasks"
)

// TasksController handles task queue endpoints.
type TasksController struct {
	client      *tasks.Client
	maintenance MaintenanceTrigger
}

func NewTasksController(client *tasks.Client, maintenance MaintenanceTrigger) *TasksController {
	return &TasksController{client: client, maintenance: maintenance}
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.client.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "get task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

// RunMaintenance handles POST /api/tasks/maintenance/run
func (tc *TasksController) RunMaintenance(c *gin.Context) {
	if tc.maintenance == nil {
		respondError(c, http.StatusServiceUnavailable, "maintenance is not configured")
		return
	}
	id, err := tc.maintenance.RunNow()
	if err != nil {
		respondInternalError(c, err, "enqueue maintenance")
		return
	}
	respondAccepted(c, "task enqueued", gin.H{"task_id": id, "type": "maintenance"})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
