// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tui is the terminal chat dashboard. It consumes transcript store
// notifications and connection lifecycle events; all socket and transcript
// ownership stays with the gateway client and the store.
package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/hearth-home/hearth/internal/gateway"
	"github.com/hearth-home/hearth/internal/logger"
	"github.com/hearth-home/hearth/internal/transcript"
	"github.com/hearth-home/hearth/internal/tui/messages"
	"github.com/hearth-home/hearth/internal/tui/screens/chat"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetTUILogger()
		log = &l
	})
	return log
}

// StartTUI initializes and runs the dashboard. It blocks until the user
// quits.
func StartTUI(client *gateway.Client, rest chat.Collaborators, store *transcript.Store, sessions *gateway.SessionStore) error {
	cache := transcript.NewSnapshotCache()
	mainModel := NewMainModel(client, rest, store, sessions, cache)

	p := tea.NewProgram(mainModel, tea.WithAltScreen())

	// Forward store changes and connection events into the program.
	go func() {
		for change := range store.Subscribe() {
			p.Send(messages.TranscriptChangedMsg{Change: change})
		}
	}()
	go func() {
		for event := range client.Subscribe() {
			p.Send(messages.GatewayEventMsg{Event: event})
		}
	}()

	_, err := p.Run()
	return err
}
