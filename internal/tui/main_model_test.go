// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth-home/hearth/internal/api"
	"github.com/hearth-home/hearth/internal/config"
	"github.com/hearth-home/hearth/internal/gateway"
	"github.com/hearth-home/hearth/internal/transcript"
	"github.com/hearth-home/hearth/internal/tui/messages"
	"github.com/hearth-home/hearth/test/testutil"
)

func newTestMainModel(t *testing.T) (MainModel, *transcript.Store) {
	t.Helper()
	log := zerolog.New(io.Discard)
	store := transcript.NewStore(log)
	sessions, err := gateway.NewSessionStore(t.TempDir(), log)
	require.NoError(t, err)
	client := gateway.NewClient(config.GatewayConfig{BaseURL: "http://127.0.0.1:1"}, store, sessions, log)
	t.Cleanup(client.Close)
	rest, err := api.NewClient("http://127.0.0.1:1", log)
	require.NoError(t, err)

	return NewMainModel(client, rest, store, sessions, transcript.NewSnapshotCache()), store
}

func TestMainModel_NavigationCachesTranscript(t *testing.T) {
	m, store := newTestMainModel(t)

	store.BeginQuestion("turn on the porch light", nil, nil)
	store.Dispatch(testutil.StreamEnvelope("<final_answer>done</final_answer>"))
	store.Dispatch(testutil.FinishEnvelope(true))
	require.Len(t, store.Turns(), 2)

	// Leaving the chat screen stashes and clears the transcript.
	next, _ := m.Update(messages.GoToSettingsMsg{})
	m = next.(MainModel)
	assert.Equal(t, SettingsScreen, m.currentScreen)
	assert.Empty(t, store.Turns())

	// Coming back restores it, exactly once.
	next, _ = m.Update(messages.GoBackMsg{})
	m = next.(MainModel)
	assert.Equal(t, ChatScreen, m.currentScreen)
	require.Len(t, store.Turns(), 2)
	assert.Equal(t, "turn on the porch light", store.Turns()[0].Question)

	// A second round trip with an untouched transcript gets a fresh
	// snapshot, not the stale one.
	store.Clear()
	next, _ = m.Update(messages.GoToSettingsMsg{})
	m = next.(MainModel)
	next, _ = m.Update(messages.GoBackMsg{})
	m = next.(MainModel)
	assert.Empty(t, store.Turns())
}

func TestMainModel_SettingsSavedPersistsPreferences(t *testing.T) {
	m, _ := newTestMainModel(t)

	next, _ := m.Update(messages.SettingsSavedMsg{Language: "de", Theme: "light"})
	m = next.(MainModel)

	assert.Equal(t, "de", m.sessions.Language())
	assert.Equal(t, "light", m.sessions.Theme())
}

func TestMainModel_WindowSizePropagates(t *testing.T) {
	m, _ := newTestMainModel(t)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(MainModel)
	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40, m.height)
}
