// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"github.com/hearth-home/hearth/internal/api"
	"github.com/hearth-home/hearth/internal/gateway"
	"github.com/hearth-home/hearth/internal/transcript"
	"github.com/hearth-home/hearth/internal/tui/messages"
)

// askFailedMsg reports a failed question submission.
type askFailedMsg struct{ err error }

// askSentMsg confirms the question reached the gateway.
type askSentMsg struct{}

// capabilitiesMsg delivers the camera and MCP service ids attached to every
// outbound question.
type capabilitiesMsg struct {
	cameraIDs []string
	mcpList   []string
	err       error
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)

	case spinner.TickMsg:
		if m.answering {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			cmds = append(cmds, cmd)
		}

	case messages.TranscriptChangedMsg:
		switch msg.Change.Type {
		case transcript.TurnCompleted:
			m.answering = false
			m.status = ""
		case transcript.NoticeRaised:
			m.status = msg.Change.Notice
			m.statusErr = true
		case transcript.Cleared:
			m.answering = false
			m.status = ""
			m.statusErr = false
		}
		m.refreshViewport()

	case messages.GatewayEventMsg:
		m.applyGatewayEvent(msg.Event)

	case askFailedMsg:
		m.answering = false
		m.status = fmt.Sprintf("send failed: %v", msg.err)
		m.statusErr = true
		m.refreshViewport()

	case askSentMsg:
		// Streaming frames drive the transcript from here on.

	case capabilitiesMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("device list unavailable: %v", msg.err)
			m.statusErr = true
		} else {
			m.cameraIDs = msg.cameraIDs
			m.mcpList = msg.mcpList
		}

	case tea.KeyMsg:
		return m.handleKey(msg, cmds)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg, cmds []tea.Cmd) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		query := strings.TrimSpace(m.input.Value())
		if query == "" || m.answering {
			return m, nil
		}
		m.input.Reset()
		m.answering = true
		m.status = ""
		m.statusErr = false
		return m, tea.Batch(m.spin.Tick, m.askCmd(query))

	case "esc":
		if m.answering {
			m.gw.Stop()
			m.answering = false
			m.refreshViewport()
		}
		return m, nil

	case "ctrl+n":
		if err := m.gw.ResetSession(); err != nil {
			m.status = fmt.Sprintf("reset failed: %v", err)
			m.statusErr = true
			return m, nil
		}
		m.store.Clear()
		m.answering = false
		m.refreshViewport()
		return m, nil

	case "ctrl+s":
		return m, func() tea.Msg { return messages.GoToSettingsMsg{} }

	case "ctrl+c":
		return m, tea.Quit

	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) applyGatewayEvent(e gateway.Event) {
	switch e.Type {
	case gateway.EventStateChanged:
		if e.State == gateway.StateConnecting {
			m.status = "connecting..."
			m.statusErr = false
		}
	case gateway.EventConnectionOpen:
		m.status = "connected"
		m.statusErr = false
	case gateway.EventConnectionClose:
		if e.Clean {
			m.status = ""
		} else {
			m.status = fmt.Sprintf("connection lost (%d)", e.Code)
			m.statusErr = true
		}
	case gateway.EventConnectionError:
		m.status = e.Message
		m.statusErr = true
	}
}

func (m Model) askCmd(query string) tea.Cmd {
	gw := m.gw
	cameraIDs := m.cameraIDs
	mcpList := m.mcpList
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := gw.Ask(ctx, query, cameraIDs, mcpList); err != nil {
			return askFailedMsg{err: err}
		}
		return askSentMsg{}
	}
}

// loadCapabilitiesCmd fetches the online cameras and enabled MCP services
// whose ids ride along with every question. A fetch failure degrades to
// questions without capability lists.
func (m Model) loadCapabilitiesCmd() tea.Cmd {
	collab := m.collab
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cameras, err := collab.Cameras(ctx)
		if err != nil {
			return capabilitiesMsg{err: err}
		}
		services, err := collab.McpServices(ctx)
		if err != nil {
			return capabilitiesMsg{err: err}
		}

		return capabilitiesMsg{
			cameraIDs: lo.FilterMap(cameras, func(d api.Device, _ int) (string, bool) {
				return d.ID, d.Online
			}),
			mcpList: lo.FilterMap(services, func(s api.McpService, _ int) (string, bool) {
				return s.ID, s.Enabled
			}),
		}
	}
}
