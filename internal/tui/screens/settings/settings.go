// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings is the preferences screen: a huh form over the persisted
// language/theme preferences plus a session-reset toggle.
package settings

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/hearth-home/hearth/internal/tui/layout"
	"github.com/hearth-home/hearth/internal/tui/messages"
)

// Model is the model for the settings screen.
type Model struct {
	form *huh.Form

	language     string
	theme        string
	resetSession bool

	width  int
	height int
}

// NewModel creates a settings form pre-filled with the current preferences.
func NewModel(language, theme string) Model {
	m := Model{
		language: language,
		theme:    theme,
		width:    80,
		height:   24,
	}
	m.initForm()
	return m
}

func (m *Model) initForm() {
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("language").
				Title("Language").
				Options(
					huh.NewOption("English", "en"),
					huh.NewOption("Deutsch", "de"),
					huh.NewOption("简体中文", "zh"),
				).
				Value(&m.language),

			huh.NewSelect[string]().
				Key("theme").
				Title("Theme").
				Options(
					huh.NewOption("Dark", "dark"),
					huh.NewOption("Light", "light"),
				).
				Value(&m.theme),

			huh.NewConfirm().
				Key("reset").
				Title("Start a fresh session?").
				Value(&m.resetSession),
		),
	).WithTheme(huh.ThemeCharm())
}

func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// SetSize updates the model's dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			return m, func() tea.Msg { return messages.GoBackMsg{} }
		case "ctrl+c":
			return m, tea.Quit
		}
	}
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.SetSize(size.Width, size.Height)
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		saved := messages.SettingsSavedMsg{
			Language:     m.language,
			Theme:        m.theme,
			ResetSession: m.resetSession,
		}
		return m, tea.Batch(cmd,
			func() tea.Msg { return saved },
			func() tea.Msg { return messages.GoBackMsg{} },
		)
	}
	return m, cmd
}

// View renders the settings screen.
func (m Model) View() string {
	header := layout.RenderHeader("Settings", "", m.width)
	footer := layout.RenderFooter([]layout.HelpItem{
		{Key: "enter", Description: "next"},
		{Key: "esc", Description: "back"},
		{Key: "ctrl+c", Description: "quit"},
	}, m.width)
	return header + "\n" + m.form.View() + "\n" + footer
}
