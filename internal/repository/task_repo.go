package repository

import (
	"context"
	"fmt"

	"task_manager/internal/domain"
	"task_manager/internal/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO tasks (id, title, description, status, due_date, project_id, user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.Title, t.Description, string(t.Status), t.DueDate, t.ProjectID, t.UserID, t.CreatedAt, t.UpdatedAt,
	)
	return translateTaskWrite("insert task", err)
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	if !validID(id) {
		return nil, domain.ErrTaskNotFound
	}
	row := r.db.QueryRow(ctx,
		`SELECT id, title, description, status, due_date, project_id, user_id, created_at, updated_at
		 FROM tasks
		 WHERE id = $1`,
		id,
	)
	return scanTask(row)
}

func (r *TaskRepository) ListByProject(ctx context.Context, projectID string) ([]*domain.Task, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, description, status, due_date, project_id, user_id, created_at, updated_at
		 FROM tasks
		 WHERE project_id = $1
		 ORDER BY created_at`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	res := []*domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *TaskRepository) Update(ctx context.Context, t *domain.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE tasks
		 SET title = $1, description = $2, status = $3, due_date = $4, updated_at = $5
		 WHERE id = $6`,
		t.Title, t.Description, string(t.Status), t.DueDate, t.UpdatedAt, t.ID,
	)
	if err := translateTaskWrite("update task", err); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrTaskNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func translateTaskWrite(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case pgCode(err) == pgForeignKeyViolation:
		// parent project was deleted concurrently
		return domain.ErrProjectNotFound
	case pgCode(err) == pgCheckViolation:
		return &domain.ValidationError{Field: "status", Message: "Invalid task status"}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t      domain.Task
		status string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &t.DueDate, &t.ProjectID, &t.UserID, &t.CreatedAt, &t.UpdatedAt)
	if isNoRows(err) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	t.Status = domain.TaskStatus(status)
	return &t, nil
}

var _ service.TaskStore = (*TaskRepository)(nil)
