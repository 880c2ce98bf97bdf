package handlers

import (
	"task_manager/internal/http/middleware"
	"task_manager/internal/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Auth     *service.AuthService
	Projects *service.ProjectService
	Tasks    *service.TaskService
}

func NewHandler(auth *service.AuthService, projects *service.ProjectService, tasks *service.TaskService) *Handler {
	return &Handler{Auth: auth, Projects: projects, Tasks: tasks}
}

// getUserID returns the caller id stored by the auth middleware.
func getUserID(c *gin.Context) (string, bool) {
	return middleware.UserID(c)
}
