package handlers

import (
	"net/http"
	"time"

	"task_manager/internal/domain"
	"task_manager/internal/service"

	"github.com/gin-gonic/gin"
)

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	DueDate     string `json:"dueDate"`
	ProjectID   string `json:"projectId"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	DueDate     *string `json:"dueDate"`
}

var dueDateLayouts = []string{time.RFC3339, "2006-01-02"}

// parseDueDate accepts RFC3339 or a bare date; "" means no due date.
func parseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, &domain.ValidationError{Field: "dueDate", Message: "Invalid due date"}
}

func (h *Handler) ListTasks(c *gin.Context) {
	userID, _ := getUserID(c)
	tasks, err := h.Tasks.List(c.Request.Context(), userID, c.Param("projectId"))
	if err != nil {
		writeError(c, err)
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *Handler) CreateTask(c *gin.Context) {
	userID, _ := getUserID(c)
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	due, err := parseDueDate(req.DueDate)
	if err != nil {
		writeError(c, err)
		return
	}

	t, err := h.Tasks.Create(c.Request.Context(), userID, service.TaskInput{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.TaskStatus(req.Status),
		DueDate:     due,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) UpdateTask(c *gin.Context) {
	userID, _ := getUserID(c)
	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	patch := domain.TaskPatch{Title: req.Title, Description: req.Description}
	if req.Status != nil {
		s := domain.TaskStatus(*req.Status)
		patch.Status = &s
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			writeError(c, err)
			return
		}
		patch.DueDate = due
		patch.ClearDueDate = due == nil
	}

	t, err := h.Tasks.Update(c.Request.Context(), userID, c.Param("taskId"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteTask(c *gin.Context) {
	userID, _ := getUserID(c)
	if err := h.Tasks.Delete(c.Request.Context(), userID, c.Param("taskId")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task removed"})
}
