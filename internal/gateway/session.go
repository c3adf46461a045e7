// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// stateFileName is the fixed local key store: the gateway-assigned session id
// must survive restarts, as do the user's language/theme preferences.
const stateFileName = "state.json"

type persistedState struct {
	SessionID string `json:"session_id,omitempty"`
	Language  string `json:"language,omitempty"`
	Theme     string `json:"theme,omitempty"`
}

// SessionStore persists the session identity and user preferences in a small
// state file under the configured state directory.
type SessionStore struct {
	mu    sync.Mutex
	path  string
	state persistedState
	log   zerolog.Logger
}

// NewSessionStore loads (or initializes) the persisted state under dir.
// A corrupt state file is discarded with a warning rather than failing
// startup.
func NewSessionStore(dir string, log zerolog.Logger) (*SessionStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	s := &SessionStore{
		path: filepath.Join(dir, stateFileName),
		log:  log,
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read state file: %w", err)
		}
		return s, nil
	}

	if err := json.Unmarshal(data, &s.state); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Discarding corrupt state file")
		s.state = persistedState{}
	}
	return s, nil
}

// SessionID returns the persisted session id, empty when none is assigned.
func (s *SessionStore) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SessionID
}

// SetSessionID persists the gateway-assigned session id.
func (s *SessionStore) SetSessionID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SessionID = id
	return s.saveLocked()
}

// Language returns the persisted language preference.
func (s *SessionStore) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Language
}

// SetLanguage persists the language preference.
func (s *SessionStore) SetLanguage(lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Language = lang
	return s.saveLocked()
}

// Theme returns the persisted theme preference.
func (s *SessionStore) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Theme
}

// SetTheme persists the theme preference.
func (s *SessionStore) SetTheme(theme string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Theme = theme
	return s.saveLocked()
}

// ResetSession clears the persisted session id. Preferences are kept.
func (s *SessionStore) ResetSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SessionID = ""
	return s.saveLocked()
}

func (s *SessionStore) saveLocked() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
