// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_PersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	log := zerolog.New(io.Discard)

	s, err := NewSessionStore(dir, log)
	require.NoError(t, err)
	require.NoError(t, s.SetSessionID("sess-42"))
	require.NoError(t, s.SetLanguage("en"))
	require.NoError(t, s.SetTheme("dark"))

	// A fresh store over the same directory sees the persisted values.
	reloaded, err := NewSessionStore(dir, log)
	require.NoError(t, err)
	assert.Equal(t, "sess-42", reloaded.SessionID())
	assert.Equal(t, "en", reloaded.Language())
	assert.Equal(t, "dark", reloaded.Theme())
}

func TestSessionStore_ResetKeepsPreferences(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSessionStore(dir, zerolog.New(io.Discard))
	require.NoError(t, err)
	require.NoError(t, s.SetSessionID("sess-42"))
	require.NoError(t, s.SetTheme("dark"))

	require.NoError(t, s.ResetSession())

	assert.Empty(t, s.SessionID())
	assert.Equal(t, "dark", s.Theme())

	reloaded, err := NewSessionStore(dir, zerolog.New(io.Discard))
	require.NoError(t, err)
	assert.Empty(t, reloaded.SessionID())
}

func TestSessionStore_CorruptFileDiscarded(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFileName), []byte("not json"), 0600))

	s, err := NewSessionStore(dir, zerolog.New(io.Discard))
	require.NoError(t, err)
	assert.Empty(t, s.SessionID())

	// The store is still writable after discarding the corrupt file.
	require.NoError(t, s.SetSessionID("sess-new"))
	assert.Equal(t, "sess-new", s.SessionID())
}
