package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"task_manager/internal/service"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the persisted login: the bearer token and the user id it
// carries.
type Session struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// NewSession reads the user id out of token without verifying it. The
// server remains the only party that checks signatures.
func NewSession(token string) (*Session, error) {
	var claims service.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.UserID == "" {
		return nil, errors.New("token carries no user id")
	}
	return &Session{Token: token, UserID: claims.UserID}, nil
}

type SessionStore interface {
	Load() (*Session, error)
	Save(*Session) error
	Clear() error
}

// NopSessionStore keeps nothing between runs.
type NopSessionStore struct{}

func (NopSessionStore) Load() (*Session, error) { return nil, nil }
func (NopSessionStore) Save(*Session) error     { return nil }
func (NopSessionStore) Clear() error            { return nil }

// FileSessionStore keeps the session as JSON at Path with 0600 permissions.
type FileSessionStore struct {
	Path string
}

func (f FileSessionStore) Load() (*Session, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Path, err)
	}
	if s.Token == "" {
		return nil, nil
	}
	return &s, nil
}

func (f FileSessionStore) Save(s *Session) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, b, 0o600)
}

func (f FileSessionStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
