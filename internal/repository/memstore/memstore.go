// Package memstore keeps users, projects and tasks in process memory. It
// backs the tests and the STORE_DRIVER=memory development mode.
package memstore

import (
	"context"
	"sort"
	"sync"

	"task_manager/internal/domain"
	"task_manager/internal/service"
)

type entry[T any] struct {
	seq uint64
	v   T
}

// DB is the shared state behind the three repositories.
type DB struct {
	mu       sync.RWMutex
	seq      uint64
	users    map[string]entry[domain.User]
	emails   map[string]string
	projects map[string]entry[domain.Project]
	tasks    map[string]entry[domain.Task]
}

func New() *DB {
	return &DB{
		users:    make(map[string]entry[domain.User]),
		emails:   make(map[string]string),
		projects: make(map[string]entry[domain.Project]),
		tasks:    make(map[string]entry[domain.Task]),
	}
}

func (db *DB) Ping(context.Context) error { return nil }

func (db *DB) Users() *UserRepository       { return &UserRepository{db: db} }
func (db *DB) Projects() *ProjectRepository { return &ProjectRepository{db: db} }
func (db *DB) Tasks() *TaskRepository       { return &TaskRepository{db: db} }

func (db *DB) next() uint64 {
	db.seq++
	return db.seq
}

// sorted returns the values in insertion order.
func sorted[T any](entries []entry[T]) []*T {
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	res := make([]*T, 0, len(entries))
	for i := range entries {
		v := entries[i].v
		res = append(res, &v)
	}
	return res
}

type UserRepository struct{ db *DB }

func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.emails[u.Email]; ok {
		return domain.ErrEmailTaken
	}
	r.db.users[u.ID] = entry[domain.User]{seq: r.db.next(), v: *u}
	r.db.emails[u.Email] = u.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	e, ok := r.db.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := e.v
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.db.mu.RLock()
	id, ok := r.db.emails[email]
	r.db.mu.RUnlock()
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) List(context.Context) ([]*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	entries := make([]entry[domain.User], 0, len(r.db.users))
	for _, e := range r.db.users {
		entries = append(entries, e)
	}
	return sorted(entries), nil
}

type ProjectRepository struct{ db *DB }

func (r *ProjectRepository) Create(_ context.Context, p *domain.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.projects[p.ID] = entry[domain.Project]{seq: r.db.next(), v: *p}
	return nil
}

func (r *ProjectRepository) GetByID(_ context.Context, id string) (*domain.Project, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	e, ok := r.db.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	p := e.v
	return &p, nil
}

func (r *ProjectRepository) ListByUser(_ context.Context, userID string) ([]*domain.Project, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var entries []entry[domain.Project]
	for _, e := range r.db.projects {
		if e.v.UserID == userID {
			entries = append(entries, e)
		}
	}
	return sorted(entries), nil
}

func (r *ProjectRepository) Update(_ context.Context, p *domain.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.projects[p.ID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	e.v = *p
	r.db.projects[p.ID] = e
	return nil
}

func (r *ProjectRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.projects[id]; !ok {
		return domain.ErrProjectNotFound
	}
	for tid, e := range r.db.tasks {
		if e.v.ProjectID == id {
			delete(r.db.tasks, tid)
		}
	}
	delete(r.db.projects, id)
	return nil
}

type TaskRepository struct{ db *DB }

func (r *TaskRepository) Create(_ context.Context, t *domain.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.tasks[t.ID] = entry[domain.Task]{seq: r.db.next(), v: copyTask(t)}
	return nil
}

func (r *TaskRepository) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	e, ok := r.db.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	t := copyTask(&e.v)
	return &t, nil
}

func (r *TaskRepository) ListByProject(_ context.Context, projectID string) ([]*domain.Task, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var entries []entry[domain.Task]
	for _, e := range r.db.tasks {
		if e.v.ProjectID == projectID {
			e.v = copyTask(&e.v)
			entries = append(entries, e)
		}
	}
	return sorted(entries), nil
}

func (r *TaskRepository) Update(_ context.Context, t *domain.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.tasks[t.ID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	e.v = copyTask(t)
	r.db.tasks[t.ID] = e
	return nil
}

func (r *TaskRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(r.db.tasks, id)
	return nil
}

// copyTask detaches the due date pointer from the caller's value.
func copyTask(t *domain.Task) domain.Task {
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	return c
}

var (
	_ service.UserStore    = (*UserRepository)(nil)
	_ service.ProjectStore = (*ProjectRepository)(nil)
	_ service.TaskStore    = (*TaskRepository)(nil)
)
