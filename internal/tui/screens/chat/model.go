// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the conversation screen: the transcript viewport, the
// question input, and the connection status line.
package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hearth-home/hearth/internal/api"
	"github.com/hearth-home/hearth/internal/gateway"
	"github.com/hearth-home/hearth/internal/transcript"
	"github.com/hearth-home/hearth/internal/tui/layout"
)

// Gateway is the subset of the connection manager the chat screen drives.
// The screen never touches the socket or the transcript internals.
type Gateway interface {
	Ask(ctx context.Context, query string, cameraIDs, mcpList []string) (string, error)
	Stop()
	ResetSession() error
	State() gateway.State
}

// Collaborators is the subset of the REST client the chat screen uses to
// fetch the capability lists attached to each question.
type Collaborators interface {
	Cameras(ctx context.Context) ([]api.Device, error)
	McpServices(ctx context.Context) ([]api.McpService, error)
}

// Transcript is the read side of the session transcript.
type Transcript interface {
	Turns() []transcript.Turn
	Answering() bool
	Clear()
}

// Model is the model for the chat screen.
type Model struct {
	gw     Gateway
	collab Collaborators
	store  Transcript

	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model

	// Capability lists fetched from the REST collaborators, carried on
	// every outbound question.
	cameraIDs []string
	mcpList   []string

	answering bool
	status    string
	statusErr bool

	width  int
	height int
	ready  bool
}

// NewModel creates the chat screen.
func NewModel(gw Gateway, collab Collaborators, store Transcript) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask the house..."
	ta.ShowLineNumbers = false
	ta.SetHeight(1)
	ta.CharLimit = 500
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = layout.StatusStyle

	return Model{
		gw:       gw,
		collab:   collab,
		store:    store,
		viewport: viewport.New(80, 20),
		input:    ta,
		spin:     sp,
		width:    80,
		height:   24,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.loadCapabilitiesCmd())
}

// SetSize updates the model's dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	// Header, divider, status, input, and footer take the fixed rows.
	vpHeight := height - 7
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.input.SetWidth(width - 2)
	m.ready = true
	m.refreshViewport()
}

// Answering reports whether an answer is currently streaming in.
func (m Model) Answering() bool {
	return m.answering
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(RenderTranscript(m.store.Turns(), m.viewport.Width))
	m.viewport.GotoBottom()
}
