// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package logger

import (
	"github.com/rs/zerolog"
)

// Static logger getters that map directly to config.yaml log.levels
// These ensure consistent logger names across the codebase

// GetGatewayLogger returns a logger for the connection manager
func GetGatewayLogger() zerolog.Logger {
	return GetLogger("gateway")
}

// GetTranscriptLogger returns a logger for the transcript store
func GetTranscriptLogger() zerolog.Logger {
	return GetLogger("transcript")
}

// GetAPILogger returns a logger for REST collaborator calls
func GetAPILogger() zerolog.Logger {
	return GetLogger("api")
}

// GetSimLogger returns a logger for the gateway simulator
func GetSimLogger() zerolog.Logger {
	return GetLogger("sim")
}

// GetHistoryLogger returns a logger for the history store
func GetHistoryLogger() zerolog.Logger {
	return GetLogger("history")
}

// GetTUILogger returns a logger for TUI components
func GetTUILogger() zerolog.Logger {
	return GetLogger("tui")
}
