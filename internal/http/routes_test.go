package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"task_manager/internal/http/handlers"
	"task_manager/internal/repository/memstore"
	"task_manager/internal/service"
	"task_manager/internal/ws"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type api struct {
	t      *testing.T
	engine *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	return newAPIWithConfig(t, RouteConfig{AllowedOrigin: "*"})
}

func newAPIWithConfig(t *testing.T, cfg RouteConfig) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := memstore.New()
	hub := ws.NewHub()
	tokens := service.NewTokenService("test-secret", time.Hour)
	h := handlers.NewHandler(
		service.NewAuthService(db.Users(), tokens, bcrypt.MinCost),
		service.NewProjectService(db.Projects(), hub),
		service.NewTaskService(db.Projects(), db.Tasks(), hub),
	)
	r := NewRouter(cfg)
	RegisterRoutes(r, h, handlers.NewHealthHandler(db, "memory", "test", hub), hub, cfg)
	return &api{t: t, engine: r}
}

func (a *api) do(method, path, token string, body any) (int, []byte) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w.Code, w.Body.Bytes()
}

func (a *api) decode(b []byte, v any) {
	a.t.Helper()
	if err := json.Unmarshal(b, v); err != nil {
		a.t.Fatalf("decode %s: %v", b, err)
	}
}

func (a *api) register(name, email, password string) handlers.AuthResponse {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/api/auth/register", "", gin.H{"name": name, "email": email, "password": password})
	if code != http.StatusCreated {
		a.t.Fatalf("register %s: %d %s", email, code, body)
	}
	var res handlers.AuthResponse
	a.decode(body, &res)
	return res
}

type projectJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	User        string `json:"user"`
}

type taskJSON struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Status  string  `json:"status"`
	DueDate *string `json:"dueDate"`
	Project string  `json:"project"`
}

func TestAuthEndpoints(t *testing.T) {
	a := newAPI(t)
	alice := a.register("Alice", "alice@x.com", "pw1")
	if alice.ID == "" || alice.Token == "" || alice.Email != "alice@x.com" {
		t.Fatalf("unexpected register response %+v", alice)
	}

	code, body := a.do(http.MethodPost, "/api/auth/register", "", gin.H{"name": "Other", "email": "alice@x.com", "password": "different"})
	if code != http.StatusBadRequest {
		t.Fatalf("duplicate register: expected 400, got %d %s", code, body)
	}

	code, body = a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@x.com", "password": "pw1"})
	if code != http.StatusOK {
		t.Fatalf("login: %d %s", code, body)
	}
	var login handlers.AuthResponse
	a.decode(body, &login)
	if login.ID != alice.ID || login.Token == "" {
		t.Fatalf("unexpected login response %+v", login)
	}

	if code, _ := a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@x.com", "password": "nope"}); code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", code)
	}
	if code, _ := a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ghost@x.com", "password": "pw1"}); code != http.StatusBadRequest {
		t.Fatalf("unknown email: expected 400, got %d", code)
	}

	if code, _ := a.do(http.MethodGet, "/api/auth/users", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("user listing must require auth, got %d", code)
	}
	code, body = a.do(http.MethodGet, "/api/auth/users", login.Token, nil)
	if code != http.StatusOK {
		t.Fatalf("list users: %d %s", code, body)
	}
	if bytes.Contains(body, []byte("password")) || bytes.Contains(body, []byte("$2a$")) {
		t.Fatalf("user listing leaks password hash: %s", body)
	}

	code, body = a.do(http.MethodGet, "/api/auth/me", login.Token, nil)
	if code != http.StatusOK || !bytes.Contains(body, []byte(alice.ID)) {
		t.Fatalf("me: %d %s", code, body)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	a := newAPI(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/project"},
		{http.MethodPost, "/api/project"},
		{http.MethodPut, "/api/project/x"},
		{http.MethodDelete, "/api/project/x"},
		{http.MethodGet, "/api/task/x"},
		{http.MethodPost, "/api/task"},
		{http.MethodPut, "/api/task/x"},
		{http.MethodDelete, "/api/task/x"},
	} {
		code, body := a.do(tc.method, tc.path, "", gin.H{})
		if code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, code)
		}
		if !bytes.Contains(body, []byte(`"message"`)) {
			t.Fatalf("%s %s: expected message body, got %s", tc.method, tc.path, body)
		}
		if code, _ := a.do(tc.method, tc.path, "not-a-token", gin.H{}); code != http.StatusUnauthorized {
			t.Fatalf("%s %s with bad token: expected 401, got %d", tc.method, tc.path, code)
		}
	}
}

func TestOwnershipScenario(t *testing.T) {
	a := newAPI(t)
	a.register("Alice", "alice@x.com", "pw1")
	code, body := a.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@x.com", "password": "pw1"})
	if code != http.StatusOK {
		t.Fatalf("login: %d %s", code, body)
	}
	var login handlers.AuthResponse
	a.decode(body, &login)
	tokenA := login.Token
	tokenB := a.register("Bob", "bob@x.com", "pw2").Token

	code, body = a.do(http.MethodPost, "/api/project", tokenA, gin.H{"name": "P1"})
	if code != http.StatusCreated {
		t.Fatalf("create project: %d %s", code, body)
	}
	var p1 projectJSON
	a.decode(body, &p1)
	if p1.User != login.ID {
		t.Fatalf("project owner %s, want %s", p1.User, login.ID)
	}

	if code, _ := a.do(http.MethodDelete, "/api/project/"+p1.ID, tokenB, nil); code != http.StatusUnauthorized {
		t.Fatalf("bob delete: expected 401, got %d", code)
	}
	if code, _ := a.do(http.MethodPut, "/api/project/"+p1.ID, tokenB, gin.H{"name": "mine"}); code != http.StatusUnauthorized {
		t.Fatalf("bob update: expected 401, got %d", code)
	}

	code, body = a.do(http.MethodGet, "/api/project", tokenB, nil)
	if code != http.StatusOK || string(bytes.TrimSpace(body)) != "[]" {
		t.Fatalf("bob should see no projects: %d %s", code, body)
	}

	code, body = a.do(http.MethodDelete, "/api/project/"+p1.ID, tokenA, nil)
	if code != http.StatusOK {
		t.Fatalf("alice delete: %d %s", code, body)
	}
	var del struct {
		Message string      `json:"message"`
		Project projectJSON `json:"project"`
	}
	a.decode(body, &del)
	if del.Message != "Project Deleted" || del.Project.ID != p1.ID {
		t.Fatalf("unexpected delete body %s", body)
	}

	code, body = a.do(http.MethodGet, "/api/project", tokenA, nil)
	var list []projectJSON
	a.decode(body, &list)
	if code != http.StatusOK || len(list) != 0 {
		t.Fatalf("expected empty list after delete, got %d %s", code, body)
	}

	if code, _ := a.do(http.MethodDelete, "/api/project/"+p1.ID, tokenA, nil); code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", code)
	}
}

func TestProjectValidationAndUpdate(t *testing.T) {
	a := newAPI(t)
	token := a.register("Alice", "alice@x.com", "pw1").Token

	if code, _ := a.do(http.MethodPost, "/api/project", token, gin.H{"description": "no name"}); code != http.StatusBadRequest {
		t.Fatalf("missing name: expected 400, got %d", code)
	}

	_, body := a.do(http.MethodPost, "/api/project", token, gin.H{"name": "P1", "description": "first"})
	var p projectJSON
	a.decode(body, &p)

	code, body := a.do(http.MethodPut, "/api/project/"+p.ID, token, gin.H{"description": "second"})
	if code != http.StatusOK {
		t.Fatalf("update: %d %s", code, body)
	}
	var updated projectJSON
	a.decode(body, &updated)
	if updated.Name != "P1" || updated.Description != "second" {
		t.Fatalf("partial update broke fields: %+v", updated)
	}

	for _, blank := range []string{"", "   "} {
		if code, _ := a.do(http.MethodPut, "/api/project/"+p.ID, token, gin.H{"name": blank}); code != http.StatusBadRequest {
			t.Fatalf("blank name %q: expected 400, got %d", blank, code)
		}
	}
	if code, _ := a.do(http.MethodPost, "/api/project", token, gin.H{"name": "   "}); code != http.StatusBadRequest {
		t.Fatalf("blank name on create: expected 400, got %d", code)
	}
	_, body = a.do(http.MethodGet, "/api/project", token, nil)
	var list []projectJSON
	a.decode(body, &list)
	if len(list) != 1 || list[0].Name != "P1" {
		t.Fatalf("blank rename must not be stored: %s", body)
	}
	if code, _ := a.do(http.MethodPut, "/api/project/missing", token, gin.H{"name": "x"}); code != http.StatusNotFound {
		t.Fatalf("missing project: expected 404, got %d", code)
	}
}

func TestTaskEndpoints(t *testing.T) {
	a := newAPI(t)
	tokenA := a.register("Alice", "alice@x.com", "pw1").Token
	tokenB := a.register("Bob", "bob@x.com", "pw2").Token

	_, body := a.do(http.MethodPost, "/api/project", tokenA, gin.H{"name": "P1"})
	var p projectJSON
	a.decode(body, &p)

	code, body := a.do(http.MethodPost, "/api/task", tokenA, gin.H{"title": "T1", "projectId": p.ID, "dueDate": "2026-11-01"})
	if code != http.StatusCreated {
		t.Fatalf("create task: %d %s", code, body)
	}
	var task taskJSON
	a.decode(body, &task)
	if task.Status != "To-Do" || task.Project != p.ID || task.DueDate == nil {
		t.Fatalf("unexpected task %s", body)
	}

	for _, tc := range []struct {
		name  string
		token string
		body  gin.H
		want  int
	}{
		{"missing title", tokenA, gin.H{"projectId": p.ID}, http.StatusBadRequest},
		{"missing project id", tokenA, gin.H{"title": "x"}, http.StatusBadRequest},
		{"unknown project", tokenA, gin.H{"title": "x", "projectId": "nope"}, http.StatusNotFound},
		{"foreign project", tokenB, gin.H{"title": "x", "projectId": p.ID}, http.StatusUnauthorized},
		{"bad status", tokenA, gin.H{"title": "x", "projectId": p.ID, "status": "Done"}, http.StatusBadRequest},
		{"bad due date", tokenA, gin.H{"title": "x", "projectId": p.ID, "dueDate": "tomorrow"}, http.StatusBadRequest},
	} {
		if code, body := a.do(http.MethodPost, "/api/task", tc.token, tc.body); code != tc.want {
			t.Fatalf("%s: expected %d, got %d %s", tc.name, tc.want, code, body)
		}
	}

	code, body = a.do(http.MethodGet, "/api/task/"+p.ID, tokenA, nil)
	var tasks []taskJSON
	a.decode(body, &tasks)
	if code != http.StatusOK || len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Fatalf("list tasks: %d %s", code, body)
	}
	if code, _ := a.do(http.MethodGet, "/api/task/"+p.ID, tokenB, nil); code != http.StatusUnauthorized {
		t.Fatalf("foreign list: expected 401, got %d", code)
	}
	if code, _ := a.do(http.MethodGet, "/api/task/missing", tokenA, nil); code != http.StatusNotFound {
		t.Fatalf("missing project list: expected 404, got %d", code)
	}

	if code, _ := a.do(http.MethodPut, "/api/task/"+task.ID, tokenB, gin.H{"status": "Completed"}); code != http.StatusNotFound {
		t.Fatalf("foreign update: expected 404, got %d", code)
	}
	code, body = a.do(http.MethodPut, "/api/task/"+task.ID, tokenA, gin.H{"status": "In-Progress", "dueDate": ""})
	if code != http.StatusOK {
		t.Fatalf("update: %d %s", code, body)
	}
	var updated taskJSON
	a.decode(body, &updated)
	if updated.Status != "In-Progress" || updated.Title != "T1" || updated.DueDate != nil {
		t.Fatalf("unexpected updated task %s", body)
	}
	if code, _ := a.do(http.MethodPut, "/api/task/"+task.ID, tokenA, gin.H{"title": "   "}); code != http.StatusBadRequest {
		t.Fatalf("blank title update: expected 400, got %d", code)
	}
	if code, _ := a.do(http.MethodPut, "/api/task/"+task.ID, tokenA, gin.H{"status": "Blocked"}); code != http.StatusBadRequest {
		t.Fatalf("invalid status update: expected 400, got %d", code)
	}

	if code, _ := a.do(http.MethodDelete, "/api/task/"+task.ID, tokenB, nil); code != http.StatusNotFound {
		t.Fatalf("foreign delete: expected 404, got %d", code)
	}
	code, body = a.do(http.MethodDelete, "/api/task/"+task.ID, tokenA, nil)
	if code != http.StatusOK || !bytes.Contains(body, []byte("Task removed")) {
		t.Fatalf("delete: %d %s", code, body)
	}
	if code, _ := a.do(http.MethodDelete, "/api/task/"+task.ID, tokenA, nil); code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", code)
	}
}

func TestHealthAndUnknownRoute(t *testing.T) {
	a := newAPI(t)
	if code, _ := a.do(http.MethodGet, "/healthz", "", nil); code != http.StatusOK {
		t.Fatalf("healthz: %d", code)
	}
	code, body := a.do(http.MethodGet, "/readyz", "", nil)
	var ready handlers.ReadinessResponse
	a.decode(body, &ready)
	if code != http.StatusOK || ready.Status != "ready" || ready.Store.Driver != "memory" || ready.Store.Status != "up" {
		t.Fatalf("readyz: %d %s", code, body)
	}
	if code, body := a.do(http.MethodGet, "/api/nowhere", "", nil); code != http.StatusNotFound || !bytes.Contains(body, []byte(`"message"`)) {
		t.Fatalf("unknown route: %d %s", code, body)
	}
}

func TestWebsocketUpgradeIsRateLimited(t *testing.T) {
	a := newAPIWithConfig(t, RouteConfig{AllowedOrigin: "*", WSRateLimit: 2, WSRateWindow: time.Minute})

	for i := 0; i < 2; i++ {
		if code, _ := a.do(http.MethodGet, "/ws?token=bogus", "", nil); code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, code)
		}
	}
	code, body := a.do(http.MethodGet, "/ws?token=bogus", "", nil)
	if code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d %s", code, body)
	}
}
