// Package session keeps the signed-in username between CLI invocations
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrNoSession = errors.New("no active session")

// Session is the signed-in user. An empty Username means there is no session.
type Session struct {
	Username string `json:"username"`
}

// Manager persists a session to a single JSON file
type Manager struct {
	Path string
}

func NewManager(path string) *Manager {
	return &Manager{Path: path}
}

// DefaultPath is the session file under the user's config directory
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}

	return filepath.Join(dir, "bitbnb", "session.json")
}

// Load returns ErrNoSession if nobody is signed in
func (m *Manager) Load() (*Session, error) {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}

		return nil, fmt.Errorf("failed to read session file, %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session file, %w", err)
	}

	if s.Username == "" {
		return nil, ErrNoSession
	}

	return &s, nil
}

func (m *Manager) Save(s *Session) error {
	if s == nil || s.Username == "" {
		return errors.New("refusing to save a session without a username")
	}

	if err := os.MkdirAll(filepath.Dir(m.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory, %w", err)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	tmp := m.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file, %w", err)
	}

	return os.Rename(tmp, m.Path)
}

// Clear removes the session. Clearing without a session is not an error.
func (m *Manager) Clear() error {
	if err := os.Remove(m.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file, %w", err)
	}

	return nil
}
