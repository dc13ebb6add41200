package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mudralaya/mudralaya-api/internal/dto"
	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/services"
	"github.com/mudralaya/mudralaya-api/internal/utils"
)

// TaskHandler serves the user side of the catalog and assignments.
type TaskHandler struct {
	catalog *services.CatalogService
	tasks   *services.TaskService
}

func NewTaskHandler(catalog *services.CatalogService, tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{catalog: catalog, tasks: tasks}
}

// ListTasks returns active tasks annotated with the caller's status.
// Filters: audience, category.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	tasks, total, err := h.catalog.ListTasks(c.Request.Context(), services.ListTasksInput{
		Audience: c.Query("audience"),
		Category: c.Query("category"),
		Page:     params.Page,
		PageSize: params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	annotated, err := h.tasks.AnnotateTasks(c.Request.Context(), userID, tasks)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":      annotated,
		"pagination": params.Response(total),
	})
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.catalog.GetTask(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// StartTask is idempotent; a repeated call returns the same assignment.
func (h *TaskHandler) StartTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	assignment, err := h.tasks.StartTask(c.Request.Context(), userID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

func (h *TaskHandler) CompleteTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.CompleteTaskRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}
	}

	assignment, err := h.tasks.CompleteTask(c.Request.Context(), userID, taskID, req.SubmissionData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// MyTasks lists the caller's assignments.
func (h *TaskHandler) MyTasks(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	assignments, err := h.tasks.ListMyTasks(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": assignments})
}
