package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/papercomputeco/docqa/pkg/composer"
)

const (
	sessionFile = "session.json"
)

// ChatSession is the persisted conversation of the chat command.
type ChatSession struct {
	// Collection is the vector collection the conversation was grounded on.
	Collection string `json:"collection,omitempty"`

	// Turns is the conversation history in chronological order.
	Turns []composer.Turn `json:"turns"`
}

// LoadSession loads the chat session from a target .docqa/session.json.
// Returns nil, nil if no session exists.
func (m *Manager) LoadSession(overrideDir string) (*ChatSession, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, sessionFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading chat session: %w", err)
	}

	session := &ChatSession{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("parsing chat session: %w", err)
	}

	return session, nil
}

// SaveSession persists the chat session to a target .docqa/session.json.
func (m *Manager) SaveSession(session *ChatSession, overrideDir string) error {
	if session == nil {
		return errors.New("cannot save nil chat session")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling chat session: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, sessionFile), data, 0o600); err != nil {
		return fmt.Errorf("writing chat session: %w", err)
	}

	return nil
}

// ClearSession removes the chat session file so the next chat starts with
// no history. Returns nil if the file doesn't exist.
func (m *Manager) ClearSession(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, sessionFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing chat session: %w", err)
	}

	return nil
}
