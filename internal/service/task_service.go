package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"task_manager/internal/domain"

	"github.com/google/uuid"
)

// TaskInput holds the fields of a new task.
type TaskInput struct {
	ProjectID   string
	Title       string
	Description string
	Status      domain.TaskStatus
	DueDate     *time.Time
}

// TaskService manages tasks. Access to a task is decided by the owner of
// its project, looked up on every call.
type TaskService struct {
	projects ProjectStore
	tasks    TaskStore
	events   EventPublisher
	now      func() time.Time
}

func NewTaskService(projects ProjectStore, tasks TaskStore, events EventPublisher) *TaskService {
	return &TaskService{projects: projects, tasks: tasks, events: publisherOrNop(events), now: time.Now}
}

func (s *TaskService) Create(ctx context.Context, ownerID string, in TaskInput) (*domain.Task, error) {
	if strings.TrimSpace(in.Title) == "" || in.ProjectID == "" {
		return nil, &domain.ValidationError{Field: "title", Message: "Task title and project ID are required"}
	}
	if _, err := s.ownedProject(ctx, ownerID, in.ProjectID); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = domain.TaskStatusTodo
	}
	if !status.Valid() {
		return nil, &domain.ValidationError{Field: "status", Message: "Invalid task status"}
	}

	now := s.now().UTC()
	t := &domain.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		DueDate:     in.DueDate,
		ProjectID:   in.ProjectID,
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, err
	}

	s.events.Publish(Event{Type: EventTaskCreated, UserID: ownerID, Data: t})
	return t, nil
}

// List returns the tasks of projectID if ownerID owns the project.
func (s *TaskService) List(ctx context.Context, ownerID, projectID string) ([]*domain.Task, error) {
	if _, err := s.ownedProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}
	return s.tasks.ListByProject(ctx, projectID)
}

func (s *TaskService) Update(ctx context.Context, ownerID, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	t, err := s.ownedTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(t); err != nil {
		return nil, err
	}
	t.UpdatedAt = s.now().UTC()
	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, err
	}

	s.events.Publish(Event{Type: EventTaskUpdated, UserID: ownerID, Data: t})
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, ownerID, taskID string) error {
	t, err := s.ownedTask(ctx, ownerID, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, t.ID); err != nil {
		return err
	}

	s.events.Publish(Event{Type: EventTaskDeleted, UserID: ownerID, Data: t})
	return nil
}

func (s *TaskService) ownedProject(ctx context.Context, ownerID, projectID string) (*domain.Project, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(ownerID) {
		return nil, domain.ErrForbidden
	}
	return p, nil
}

// ownedTask resolves the task and its project. A missing task, a missing
// project and a foreign owner all report domain.ErrTaskNotFound.
func (s *TaskService) ownedTask(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	p, err := s.projects.GetByID(ctx, t.ProjectID)
	switch {
	case errors.Is(err, domain.ErrProjectNotFound):
		return nil, domain.ErrTaskNotFound
	case err != nil:
		return nil, err
	case !p.OwnedBy(ownerID):
		return nil, domain.ErrTaskNotFound
	}
	return t, nil
}
