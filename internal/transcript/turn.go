// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript owns the ordered log of chat turns and the in-flight
// accumulation buffer. All mutation goes through Store methods; UI code only
// reads state and subscribes to change events. The dispatch logic is a
// reducer over classified envelopes, so it is unit-testable without a socket.
package transcript

import (
	"github.com/hearth-home/hearth/internal/protocol"
	"github.com/hearth-home/hearth/internal/stream"
)

// Role distinguishes the two turn shapes.
type Role string

const (
	RoleQuestion Role = "question"
	RoleAnswer   Role = "answer"
)

// Entry is one classified envelope inside an answer turn. ParseErr is set
// when the payload failed to decode; the entry is still kept so the UI can
// render an inline parse notice in place of the message.
type Entry struct {
	Env      protocol.Envelope
	Kind     protocol.Kind
	ParseErr string
}

// Turn is one unit of the transcript: an immutable question (text plus the
// capability lists it was sent with) or an answer accumulating entries until
// its terminal FinishChat arrives.
type Turn struct {
	Role      Role
	Question  string
	CameraIDs []string
	McpList   []string

	Entries  []Entry
	Building bool
	Complete bool
	Success  bool
}

// StreamText concatenates the turn's ToastStream fragments in arrival order.
// Entries whose payload failed to decode contribute nothing.
func (t Turn) StreamText() string {
	buf := ""
	for _, e := range t.Entries {
		if e.Kind != protocol.KindToastStream || e.ParseErr != "" {
			continue
		}
		if frag, err := e.Env.StreamFragment(); err == nil {
			buf = stream.Accumulate(buf, frag)
		}
	}
	return buf
}

// Parsed runs the answer grammar over the turn's accumulated stream text.
func (t Turn) Parsed() stream.Parsed {
	return stream.Parse(t.StreamText())
}

// ToolCall finds the CallTool entry whose payload id matches. Results are
// rendered against their originating call, never standalone.
func (t Turn) ToolCall(id string) (protocol.CallToolPayload, bool) {
	for _, e := range t.Entries {
		if e.Kind != protocol.KindCallTool || e.ParseErr != "" {
			continue
		}
		var p protocol.CallToolPayload
		if err := e.Env.DecodePayload(&p); err == nil && p.ID == id {
			return p, true
		}
	}
	return protocol.CallToolPayload{}, false
}
