package service

import (
	"context"
	"strings"
	"time"

	"task_manager/internal/domain"

	"github.com/google/uuid"
)

type ProjectService struct {
	projects ProjectStore
	events   EventPublisher
	now      func() time.Time
}

func NewProjectService(projects ProjectStore, events EventPublisher) *ProjectService {
	return &ProjectService{projects: projects, events: publisherOrNop(events), now: time.Now}
}

func (s *ProjectService) Create(ctx context.Context, ownerID, name, description string) (*domain.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "Project name is required"}
	}

	now := s.now().UTC()
	p := &domain.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, err
	}

	s.events.Publish(Event{Type: EventProjectCreated, UserID: ownerID, Data: p})
	return p, nil
}

// List returns the projects owned by ownerID.
func (s *ProjectService) List(ctx context.Context, ownerID string) ([]*domain.Project, error) {
	return s.projects.ListByUser(ctx, ownerID)
}

func (s *ProjectService) Update(ctx context.Context, ownerID, projectID string, patch domain.ProjectPatch) (*domain.Project, error) {
	p, err := s.owned(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now().UTC()
	if err := s.projects.Update(ctx, p); err != nil {
		return nil, err
	}

	s.events.Publish(Event{Type: EventProjectUpdated, UserID: ownerID, Data: p})
	return p, nil
}

// Delete removes the project and its tasks and returns the removed project.
func (s *ProjectService) Delete(ctx context.Context, ownerID, projectID string) (*domain.Project, error) {
	p, err := s.owned(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.projects.Delete(ctx, p.ID); err != nil {
		return nil, err
	}

	s.events.Publish(Event{Type: EventProjectDeleted, UserID: ownerID, Data: p})
	return p, nil
}

// owned loads projectID and checks that ownerID owns it.
func (s *ProjectService) owned(ctx context.Context, ownerID, projectID string) (*domain.Project, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(ownerID) {
		return nil, domain.ErrForbidden
	}
	return p, nil
}
