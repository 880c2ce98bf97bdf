package domain

import (
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "To-Do"
	TaskStatusInProgress TaskStatus = "In-Progress"
	TaskStatusCompleted  TaskStatus = "Completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// Task belongs to a project. UserID records who created it; access is
// always decided by the owner of ProjectID.
type Task struct {
	ID          string     `db:"id" bson:"_id" json:"id"`
	Title       string     `db:"title" bson:"title" json:"title" validate:"required"`
	Description string     `db:"description" bson:"description" json:"description"`
	Status      TaskStatus `db:"status" bson:"status" json:"status" validate:"required,oneof=To-Do In-Progress Completed"`
	DueDate     *time.Time `db:"due_date" bson:"due_date,omitempty" json:"dueDate,omitempty"`
	ProjectID   string     `db:"project_id" bson:"project_id" json:"project" validate:"required"`
	UserID      string     `db:"user_id" bson:"user_id" json:"user" validate:"required"`
	CreatedAt   time.Time  `db:"created_at" bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" bson:"updated_at" json:"updatedAt"`
}

func (t *Task) Validate() error {
	return validateStruct(t)
}

// TaskPatch carries the fields of a partial update; nil means unchanged.
// ClearDueDate removes the due date and wins over DueDate.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *TaskStatus
	DueDate      *time.Time
	ClearDueDate bool
}

// Apply overwrites the provided fields on t.
func (tp TaskPatch) Apply(t *Task) error {
	if tp.Title != nil {
		if strings.TrimSpace(*tp.Title) == "" {
			return &ValidationError{Field: "title", Message: "Task title is required"}
		}
		t.Title = *tp.Title
	}
	if tp.Description != nil {
		t.Description = *tp.Description
	}
	if tp.Status != nil {
		if !tp.Status.Valid() {
			return &ValidationError{Field: "status", Message: "Invalid task status"}
		}
		t.Status = *tp.Status
	}
	switch {
	case tp.ClearDueDate:
		t.DueDate = nil
	case tp.DueDate != nil:
		d := *tp.DueDate
		t.DueDate = &d
	}
	return nil
}
