// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth-home/hearth/internal/api"
	"github.com/hearth-home/hearth/internal/gateway"
	"github.com/hearth-home/hearth/internal/transcript"
	"github.com/hearth-home/hearth/internal/tui/messages"
)

type fakeGateway struct {
	asked     []string
	cameraIDs []string
	mcpList   []string
	stopped   int
	resets    int
	askErr    error
}

func (f *fakeGateway) Ask(ctx context.Context, query string, cameraIDs, mcpList []string) (string, error) {
	f.asked = append(f.asked, query)
	f.cameraIDs = cameraIDs
	f.mcpList = mcpList
	return "req-1", f.askErr
}

func (f *fakeGateway) Stop()               { f.stopped++ }
func (f *fakeGateway) ResetSession() error { f.resets++; return nil }
func (f *fakeGateway) State() gateway.State {
	return gateway.StateDisconnected
}

type fakeCollaborators struct {
	devices  []api.Device
	services []api.McpService
	err      error
}

func (f *fakeCollaborators) Cameras(ctx context.Context) ([]api.Device, error) {
	if f.err != nil {
		return nil, f.err
	}
	cameras := f.devices[:0:0]
	for _, d := range f.devices {
		if d.Type == "camera" {
			cameras = append(cameras, d)
		}
	}
	return cameras, nil
}

func (f *fakeCollaborators) McpServices(ctx context.Context) ([]api.McpService, error) {
	return f.services, f.err
}

func newTestChat(t *testing.T) (Model, *fakeGateway, *transcript.Store) {
	t.Helper()
	gw := &fakeGateway{}
	store := transcript.NewStore(zerolog.New(io.Discard))
	return NewModel(gw, &fakeCollaborators{}, store), gw, store
}

func typeQuery(m Model, query string) Model {
	for _, r := range query {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestChat_EnterSubmitsQuestion(t *testing.T) {
	m, gw, _ := newTestChat(t)
	m = typeQuery(m, "lights off")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.Answering())
	assert.Empty(t, m.input.Value(), "input resets on submit")

	// The batched command includes the ask; run it and check the gateway
	// saw the query.
	drainCmd(cmd)
	assert.Equal(t, []string{"lights off"}, gw.asked)
}

func TestChat_EmptyInputIsNotSubmitted(t *testing.T) {
	m, gw, _ := newTestChat(t)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, m.Answering())
	assert.Empty(t, gw.asked)
}

func TestChat_SecondQuestionBlockedWhileAnswering(t *testing.T) {
	m, gw, _ := newTestChat(t)
	m = typeQuery(m, "first")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drainCmd(cmd)

	m = typeQuery(m, "second")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"first"}, gw.asked)
}

func TestChat_EscStopsStreaming(t *testing.T) {
	m, gw, _ := newTestChat(t)
	m = typeQuery(m, "q")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drainCmd(cmd)
	require.True(t, m.Answering())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, 1, gw.stopped)
	assert.False(t, m.Answering())
}

func TestChat_CtrlNStartsNewChat(t *testing.T) {
	m, gw, store := newTestChat(t)
	store.BeginQuestion("old question", nil, nil)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, 1, gw.resets)
	assert.Empty(t, store.Turns())
	_ = m
}

func TestChat_CtrlSNavigatesToSettings(t *testing.T) {
	m, _, _ := newTestChat(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	assert.IsType(t, messages.GoToSettingsMsg{}, cmd())
}

func TestChat_TurnCompletedStopsSpinner(t *testing.T) {
	m, _, _ := newTestChat(t)
	m.answering = true

	m, _ = m.Update(messages.TranscriptChangedMsg{Change: transcript.Change{Type: transcript.TurnCompleted}})
	assert.False(t, m.Answering())
}

func TestChat_QuestionsCarryCapabilityLists(t *testing.T) {
	gw := &fakeGateway{}
	collab := &fakeCollaborators{
		devices: []api.Device{
			{ID: "cam-door", Type: "camera", Online: true},
			{ID: "cam-attic", Type: "camera", Online: false},
			{ID: "light-hall", Type: "light", Online: true},
		},
		services: []api.McpService{
			{ID: "mcp-weather", Enabled: true},
			{ID: "mcp-legacy", Enabled: false},
		},
	}
	store := transcript.NewStore(zerolog.New(io.Discard))
	m := NewModel(gw, collab, store)

	m = deliverCmd(m, m.Init())
	m = typeQuery(m, "who is at the door?")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drainCmd(cmd)

	require.Equal(t, []string{"who is at the door?"}, gw.asked)
	assert.Equal(t, []string{"cam-door"}, gw.cameraIDs, "only online cameras ride along")
	assert.Equal(t, []string{"mcp-weather"}, gw.mcpList, "only enabled services ride along")
}

func TestChat_CapabilityFetchFailureStillAsks(t *testing.T) {
	gw := &fakeGateway{}
	collab := &fakeCollaborators{err: errors.New("gateway offline")}
	store := transcript.NewStore(zerolog.New(io.Discard))
	m := NewModel(gw, collab, store)

	m = deliverCmd(m, m.Init())
	m = typeQuery(m, "hello")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drainCmd(cmd)

	assert.Equal(t, []string{"hello"}, gw.asked)
	assert.Empty(t, gw.cameraIDs)
	assert.Empty(t, gw.mcpList)
}

// drainCmd executes a (possibly batched) command tree, discarding results.
func drainCmd(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			drainCmd(c)
		}
	}
}

// deliverCmd executes a (possibly batched) command tree and feeds every
// resulting message back into the model.
func deliverCmd(m Model, cmd tea.Cmd) Model {
	if cmd == nil {
		return m
	}
	msg := cmd()
	if msg == nil {
		return m
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			m = deliverCmd(m, c)
		}
		return m
	}
	m, _ = m.Update(msg)
	return m
}
