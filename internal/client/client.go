// Package client is a typed HTTP client for the task manager API. It keeps
// the session token between runs and attaches it to every protected call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"task_manager/internal/domain"
)

// ErrNoSession is returned by protected calls made before a login.
var ErrNoSession = errors.New("client: not logged in")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

type Client struct {
	baseURL  string
	http     *http.Client
	sessions SessionStore
	session  *Session
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithSessionStore(s SessionStore) Option {
	return func(c *Client) { c.sessions = s }
}

// New builds a client for baseURL (e.g. http://localhost:5000/api). A
// previously saved session is loaded once here.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		sessions: NopSessionStore{},
	}
	for _, opt := range opts {
		opt(c)
	}

	s, err := c.sessions.Load()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	c.session = s
	return c, nil
}

// Session returns the current session, or nil when logged out.
func (c *Client) Session() *Session {
	return c.session
}

// AuthResult is the body returned by register and login.
type AuthResult struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	var res AuthResult
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", false, body, &res); err != nil {
		return nil, err
	}
	return &res, c.setSession(res.Token)
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", false, body, &res); err != nil {
		return nil, err
	}
	return &res, c.setSession(res.Token)
}

// Logout forgets the token locally. Tokens are stateless, so the server is
// not contacted.
func (c *Client) Logout() error {
	c.session = nil
	return c.sessions.Clear()
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", true, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/users", true, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var projects []domain.Project
	if err := c.do(ctx, http.MethodGet, "/project", true, nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *Client) CreateProject(ctx context.Context, name, description string) (*domain.Project, error) {
	var p domain.Project
	body := map[string]string{"name": name, "description": description}
	if err := c.do(ctx, http.MethodPost, "/project", true, body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ProjectUpdate carries the fields to change; nil fields are left alone.
type ProjectUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (c *Client) UpdateProject(ctx context.Context, id string, upd ProjectUpdate) (*domain.Project, error) {
	var p domain.Project
	if err := c.do(ctx, http.MethodPut, "/project/"+url.PathEscape(id), true, upd, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/project/"+url.PathEscape(id), true, nil, nil)
}

func (c *Client) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := c.do(ctx, http.MethodGet, "/task/"+url.PathEscape(projectID), true, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// NewTask is the body of a task creation. DueDate is RFC3339 or YYYY-MM-DD.
type NewTask struct {
	ProjectID   string `json:"projectId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
}

func (c *Client) CreateTask(ctx context.Context, in NewTask) (*domain.Task, error) {
	var t domain.Task
	if err := c.do(ctx, http.MethodPost, "/task", true, in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// TaskUpdate carries the fields to change. An empty DueDate clears it.
type TaskUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
}

func (c *Client) UpdateTask(ctx context.Context, id string, upd TaskUpdate) (*domain.Task, error) {
	var t domain.Task
	if err := c.do(ctx, http.MethodPut, "/task/"+url.PathEscape(id), true, upd, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/task/"+url.PathEscape(id), true, nil, nil)
}

// GroupTasksByStatus buckets tasks into the board columns, keeping order.
// Every known status is present in the result, possibly empty.
func GroupTasksByStatus(tasks []domain.Task) map[domain.TaskStatus][]domain.Task {
	board := map[domain.TaskStatus][]domain.Task{
		domain.TaskStatusTodo:       {},
		domain.TaskStatusInProgress: {},
		domain.TaskStatusCompleted:  {},
	}
	for _, t := range tasks {
		board[t.Status] = append(board[t.Status], t)
	}
	return board
}

func (c *Client) setSession(token string) error {
	s, err := NewSession(token)
	if err != nil {
		return err
	}
	c.session = s
	return c.sessions.Save(s)
}

func (c *Client) do(ctx context.Context, method, path string, auth bool, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		if c.session == nil {
			return ErrNoSession
		}
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &e) != nil || e.Message == "" {
			e.Message = strings.TrimSpace(string(raw))
		}
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Message}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
