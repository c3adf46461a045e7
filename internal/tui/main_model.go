// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hearth-home/hearth/internal/gateway"
	"github.com/hearth-home/hearth/internal/transcript"
	"github.com/hearth-home/hearth/internal/tui/messages"
	"github.com/hearth-home/hearth/internal/tui/screens/chat"
	"github.com/hearth-home/hearth/internal/tui/screens/settings"
)

// ScreenType represents the current active screen
type ScreenType int

const (
	ChatScreen ScreenType = iota
	SettingsScreen
)

// MainModel routes messages to the active screen and owns the
// cross-navigation transcript cache: leaving the chat screen snapshots the
// transcript, returning consumes the snapshot exactly once.
type MainModel struct {
	currentScreen ScreenType

	chat     chat.Model
	settings settings.Model

	client   *gateway.Client
	store    *transcript.Store
	sessions *gateway.SessionStore
	cache    *transcript.SnapshotCache

	width, height int
}

// NewMainModel creates the main model with the chat screen active.
func NewMainModel(client *gateway.Client, rest chat.Collaborators, store *transcript.Store, sessions *gateway.SessionStore, cache *transcript.SnapshotCache) MainModel {
	return MainModel{
		currentScreen: ChatScreen,
		chat:          chat.NewModel(client, rest, store),
		client:        client,
		store:         store,
		sessions:      sessions,
		cache:         cache,
	}
}

func (m MainModel) Init() tea.Cmd {
	return m.chat.Init()
}

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = size.Width
		m.height = size.Height
	}

	switch msg := msg.(type) {
	case messages.GoToSettingsMsg:
		// A streaming answer cannot follow us off-screen; stop it, then
		// stash the transcript for the return trip.
		if m.store.Answering() {
			m.client.Stop()
		}
		m.cache.Put(m.store.Snapshot(m.sessions.SessionID()))
		m.store.Clear()

		m.currentScreen = SettingsScreen
		m.settings = settings.NewModel(m.sessions.Language(), m.sessions.Theme())
		m.settings.SetSize(m.width, m.height)
		return m, m.settings.Init()

	case messages.GoBackMsg:
		if snap := m.cache.Take(); snap != nil {
			m.store.Restore(snap)
		}
		m.currentScreen = ChatScreen
		m.chat.SetSize(m.width, m.height)
		return m, nil

	case messages.SettingsSavedMsg:
		m.applySettings(msg)
		return m, nil
	}

	var cmd tea.Cmd
	switch m.currentScreen {
	case ChatScreen:
		m.chat, cmd = m.chat.Update(msg)
	case SettingsScreen:
		m.settings, cmd = m.settings.Update(msg)
	}
	return m, cmd
}

func (m *MainModel) applySettings(msg messages.SettingsSavedMsg) {
	if err := m.sessions.SetLanguage(msg.Language); err != nil {
		getLog().Warn().Err(err).Msg("Failed to persist language")
	}
	if err := m.sessions.SetTheme(msg.Theme); err != nil {
		getLog().Warn().Err(err).Msg("Failed to persist theme")
	}
	if msg.ResetSession {
		// A reset session invalidates the cached transcript too.
		m.cache.Take()
		if err := m.client.ResetSession(); err != nil {
			getLog().Warn().Err(err).Msg("Failed to reset session")
		}
	}
}

func (m MainModel) View() string {
	switch m.currentScreen {
	case SettingsScreen:
		return m.settings.View()
	default:
		return m.chat.View()
	}
}
