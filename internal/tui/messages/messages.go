// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package messages defines the bubbletea messages exchanged between screens
// and the forwarding goroutines in the TUI entrypoint.
package messages

import (
	"github.com/hearth-home/hearth/internal/gateway"
	"github.com/hearth-home/hearth/internal/transcript"
)

// GoToSettingsMsg navigates from the chat screen to the settings screen.
type GoToSettingsMsg struct{}

// GoBackMsg navigates back to the chat screen.
type GoBackMsg struct{}

// SettingsSavedMsg carries the completed settings form values.
type SettingsSavedMsg struct {
	Language     string
	Theme        string
	ResetSession bool
}

// TranscriptChangedMsg wraps a transcript store notification.
type TranscriptChangedMsg struct {
	Change transcript.Change
}

// GatewayEventMsg wraps a connection lifecycle event.
type GatewayEventMsg struct {
	Event gateway.Event
}
