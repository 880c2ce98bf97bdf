package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"task_manager/internal/domain"
	"task_manager/internal/repository/memstore"
	"task_manager/internal/service"

	"golang.org/x/crypto/bcrypt"
)

type recorder struct {
	mu     sync.Mutex
	events []service.Event
}

func (r *recorder) Publish(e service.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []string
	for _, e := range r.events {
		res = append(res, e.Type)
	}
	return res
}

type fixture struct {
	db       *memstore.DB
	auth     *service.AuthService
	projects *service.ProjectService
	tasks    *service.TaskService
	events   *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memstore.New()
	events := &recorder{}
	tokens := service.NewTokenService("test-secret", time.Hour)
	return &fixture{
		db:       db,
		auth:     service.NewAuthService(db.Users(), tokens, bcrypt.MinCost),
		projects: service.NewProjectService(db.Projects(), events),
		tasks:    service.NewTaskService(db.Projects(), db.Tasks(), events),
		events:   events,
	}
}

func (f *fixture) register(t *testing.T, name, email, password string) *service.AuthResult {
	t.Helper()
	res, err := f.auth.Register(context.Background(), name, email, password)
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return res
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.register(t, "Alice", "alice@x.com", "pw1")
	if first.Token == "" || first.User.PasswordHash == "pw1" {
		t.Fatalf("expected token and hashed password, got %+v", first)
	}

	for _, tc := range []struct{ name, email, password string }{
		{"Alice", "alice@x.com", "pw1"},
		{"Mallory", "alice@x.com", "other"},
		{"Alice2", "  ALICE@x.com ", "pw1"},
	} {
		if _, err := f.auth.Register(ctx, tc.name, tc.email, tc.password); !errors.Is(err, domain.ErrEmailTaken) {
			t.Fatalf("register %q: expected ErrEmailTaken, got %v", tc.email, err)
		}
	}
}

func TestRegister_MissingFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var verr *domain.ValidationError
	if _, err := f.auth.Register(ctx, "", "a@x.com", "pw"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty name, got %v", err)
	}
	if _, err := f.auth.Register(ctx, "A", "a@x.com", ""); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty password, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, "Alice", "alice@x.com", "pw1")

	res, err := f.auth.Login(ctx, "alice@x.com", "pw1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.User.ID != reg.User.ID || res.Token == "" {
		t.Fatalf("unexpected login result %+v", res)
	}

	if _, err := f.auth.Login(ctx, "alice@x.com", "wrong"); !errors.Is(err, domain.ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if _, err := f.auth.Login(ctx, "nobody@x.com", "pw1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := f.register(t, "Alice", "alice@x.com", "pw1")

	u, err := f.auth.Authenticate(ctx, reg.Token)
	if err != nil || u.ID != reg.User.ID {
		t.Fatalf("authenticate: %v %+v", err, u)
	}
	if _, err := f.auth.Authenticate(ctx, "garbage"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	orphan, _ := service.NewTokenService("test-secret", time.Hour).Generate("no-such-user")
	if _, err := f.auth.Authenticate(ctx, orphan); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for deleted user, got %v", err)
	}
}

func TestProjects_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@x.com", "pw1").User
	bob := f.register(t, "Bob", "bob@x.com", "pw2").User

	p, err := f.projects.Create(ctx, alice.ID, "P1", "first")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "stolen"
	if _, err := f.projects.Update(ctx, bob.ID, p.ID, domain.ProjectPatch{Name: &name}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden on foreign update, got %v", err)
	}
	if _, err := f.projects.Delete(ctx, bob.ID, p.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden on foreign delete, got %v", err)
	}

	name = "P1 renamed"
	updated, err := f.projects.Update(ctx, alice.ID, p.ID, domain.ProjectPatch{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "P1 renamed" || updated.Description != "first" {
		t.Fatalf("unexpected update result %+v", updated)
	}
	stored, _ := f.db.Projects().GetByID(ctx, p.ID)
	if stored.Name != "P1 renamed" {
		t.Fatalf("update not persisted: %+v", stored)
	}

	if _, err := f.projects.Update(ctx, alice.ID, "missing", domain.ProjectPatch{}); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestProjects_CreateRequiresName(t *testing.T) {
	f := newFixture(t)
	var verr *domain.ValidationError
	if _, err := f.projects.Create(context.Background(), "u1", "  ", ""); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestProjects_ListRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@x.com", "pw1").User
	bob := f.register(t, "Bob", "bob@x.com", "pw2").User

	if _, err := f.projects.Create(ctx, bob.ID, "Bob's", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	p, err := f.projects.Create(ctx, alice.ID, "P1", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := f.projects.List(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if count(list, p.ID) != 1 || len(list) != 1 {
		t.Fatalf("expected exactly P1 in alice's list, got %+v", list)
	}

	if _, err := f.projects.Delete(ctx, alice.ID, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ = f.projects.List(ctx, alice.ID)
	if count(list, p.ID) != 0 {
		t.Fatalf("deleted project still listed")
	}

	want := []string{service.EventProjectCreated, service.EventProjectCreated, service.EventProjectDeleted}
	if got := f.events.types(); len(got) != len(want) || got[2] != want[2] {
		t.Fatalf("unexpected events %v", got)
	}
}

func count(list []*domain.Project, id string) int {
	n := 0
	for _, p := range list {
		if p.ID == id {
			n++
		}
	}
	return n
}

func TestTasks_CreateAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@x.com", "pw1").User
	bob := f.register(t, "Bob", "bob@x.com", "pw2").User
	p, _ := f.projects.Create(ctx, alice.ID, "P1", "")

	task, err := f.tasks.Create(ctx, alice.ID, service.TaskInput{ProjectID: p.ID, Title: "first"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Status != domain.TaskStatusTodo {
		t.Fatalf("expected default status To-Do, got %s", task.Status)
	}
	if task.UserID != alice.ID || task.ProjectID != p.ID {
		t.Fatalf("unexpected references %+v", task)
	}

	if _, err := f.tasks.Create(ctx, bob.ID, service.TaskInput{ProjectID: p.ID, Title: "intrude"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := f.tasks.Create(ctx, alice.ID, service.TaskInput{ProjectID: "missing", Title: "orphan"}); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
	var verr *domain.ValidationError
	if _, err := f.tasks.Create(ctx, alice.ID, service.TaskInput{ProjectID: p.ID}); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for missing title, got %v", err)
	}
	if _, err := f.tasks.Create(ctx, alice.ID, service.TaskInput{ProjectID: p.ID, Title: "x", Status: "Blocked"}); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for unknown status, got %v", err)
	}

	list, err := f.tasks.List(ctx, alice.ID, p.ID)
	if err != nil || len(list) != 1 || list[0].ID != task.ID {
		t.Fatalf("list: %v %+v", err, list)
	}
	if _, err := f.tasks.List(ctx, bob.ID, p.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden on foreign list, got %v", err)
	}
	if _, err := f.tasks.List(ctx, alice.ID, "missing"); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestTasks_OwnershipFollowsProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@x.com", "pw1").User
	bob := f.register(t, "Bob", "bob@x.com", "pw2").User
	p, _ := f.projects.Create(ctx, alice.ID, "P1", "")
	task, _ := f.tasks.Create(ctx, alice.ID, service.TaskInput{ProjectID: p.ID, Title: "first"})

	// Corrupt the creator field: it must not grant or deny access.
	stored, _ := f.db.Tasks().GetByID(ctx, task.ID)
	stored.UserID = bob.ID
	if err := f.db.Tasks().Update(ctx, stored); err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	title := "bob was here"
	if _, err := f.tasks.Update(ctx, bob.ID, task.ID, domain.TaskPatch{Title: &title}); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound for bob, got %v", err)
	}
	if err := f.tasks.Delete(ctx, bob.ID, task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound for bob delete, got %v", err)
	}

	status := domain.TaskStatusInProgress
	updated, err := f.tasks.Update(ctx, alice.ID, task.ID, domain.TaskPatch{Status: &status})
	if err != nil {
		t.Fatalf("alice update: %v", err)
	}
	if updated.Status != domain.TaskStatusInProgress || updated.Title != "first" {
		t.Fatalf("unexpected update result %+v", updated)
	}

	if err := f.tasks.Delete(ctx, alice.ID, task.ID); err != nil {
		t.Fatalf("alice delete: %v", err)
	}
	if _, err := f.db.Tasks().GetByID(ctx, task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected task gone, got %v", err)
	}
}

func TestTasks_UpdateRejectsInvalidStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@x.com", "pw1").User
	p, _ := f.projects.Create(ctx, alice.ID, "P1", "")
	task, _ := f.tasks.Create(ctx, alice.ID, service.TaskInput{ProjectID: p.ID, Title: "first"})

	bogus := domain.TaskStatus("Done")
	var verr *domain.ValidationError
	if _, err := f.tasks.Update(ctx, alice.ID, task.ID, domain.TaskPatch{Status: &bogus}); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	stored, _ := f.db.Tasks().GetByID(ctx, task.ID)
	if stored.Status != domain.TaskStatusTodo {
		t.Fatalf("rejected update leaked into store: %s", stored.Status)
	}
}

func TestProjectDelete_RemovesTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice", "alice@x.com", "pw1").User
	p, _ := f.projects.Create(ctx, alice.ID, "P1", "")
	task, _ := f.tasks.Create(ctx, alice.ID, service.TaskInput{ProjectID: p.ID, Title: "first"})

	if _, err := f.projects.Delete(ctx, alice.ID, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.db.Tasks().GetByID(ctx, task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected cascaded delete, got %v", err)
	}
}
