// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import "encoding/json"

// envelope is the fixed response contract of every REST collaborator:
// code 0 means success, anything else is an application-level failure.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Device is one controllable or observable device known to the gateway.
type Device struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"` // "camera", "light", "sensor", ...
	Room   string `json:"room,omitempty"`
	Online bool   `json:"online"`
}

// Action is one scene or automation action selectable in rules.
type Action struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"` // "scene" or "automation"
}

// Rule is an automation rule authored through the dashboard.
type Rule struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Enabled   bool            `json:"enabled"`
	Trigger   json.RawMessage `json:"trigger"`
	Actions   json.RawMessage `json:"actions"`
	CreatedAt int64           `json:"created_at,omitempty"`
}

// Model is one configured language model backend.
type Model struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Endpoint string `json:"endpoint"`
	Default  bool   `json:"default"`
}

// McpService is an external tool/action provider attachable to a request.
type McpService struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
}

// HistorySession is one persisted conversation summary.
type HistorySession struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	UpdatedAt int64  `json:"updated_at"`
	TurnCount int    `json:"turn_count"`
}

// HistoryTurn is one persisted question/answer pair in a session.
type HistoryTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Success  bool   `json:"success"`
	AskedAt  int64  `json:"asked_at"`
}

// Settings is the gateway-side settings document.
type Settings struct {
	Language string `json:"language"`
	Theme    string `json:"theme"`
	ModelID  string `json:"model_id"`
}

// LoginRequest carries dashboard credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token for subsequent calls.
type LoginResponse struct {
	Token string `json:"token"`
}
