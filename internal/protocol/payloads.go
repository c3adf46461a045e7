// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"encoding/json"
	"fmt"
)

// RequestPayload is the outbound query that opens a turn. CameraIDs and
// McpList name the capabilities the query was sent with.
type RequestPayload struct {
	Query     string   `json:"query"`
	CameraIDs []string `json:"camera_ids"`
	McpList   []string `json:"mcp_list"`
}

// StreamPayload carries one partial-text fragment of the answer.
type StreamPayload struct {
	Stream string `json:"stream"`
}

// CallToolPayload announces a tool invocation. ID correlates the later
// CallToolResult; it is unrelated to the envelope's request_id.
type CallToolPayload struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CallToolResultPayload reports a tool invocation outcome. Matched to its
// CallTool by ID equality.
type CallToolResultPayload struct {
	ID      string `json:"id"`
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
}

// CameraImage is one frame of a camera image burst.
type CameraImage struct {
	CameraID string `json:"camera_id"`
	URL      string `json:"url"`
}

// CameraImagesPayload carries a burst of camera snapshots.
type CameraImagesPayload struct {
	Images []CameraImage `json:"images"`
}

// ExceptionPayload is an application-level error reported in-band. It does
// not close the connection.
type ExceptionPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RuleOption is a selectable device or action offered by a rule confirmation.
type RuleOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RuleConfirmPayload asks the user to confirm a generated automation rule.
// CameraOptions and ActionOptions may arrive on the confirm, the result, or
// both; the dispatch layer merges them (confirm values win only when the
// result lacks its own).
type RuleConfirmPayload struct {
	Rule          json.RawMessage `json:"rule,omitempty"`
	Saved         bool            `json:"saved,omitempty"`
	CameraOptions []RuleOption    `json:"camera_options,omitempty"`
	ActionOptions []RuleOption    `json:"action_options,omitempty"`
}

// FinishPayload terminates a turn.
type FinishPayload struct {
	Success bool `json:"success"`
}

// GeneratedAction is one automation step proposed by the model.
type GeneratedAction struct {
	DeviceID string          `json:"device_id"`
	Action   string          `json:"action"`
	Params   json.RawMessage `json:"params,omitempty"`
}

// AiGeneratedActionsPayload lists automation steps proposed for the query.
type AiGeneratedActionsPayload struct {
	Actions []GeneratedAction `json:"actions"`
}

// DecodePayload unmarshals the envelope's payload string into out. The error
// identifies the envelope so callers can render an inline parse notice.
func (e Envelope) DecodePayload(out interface{}) error {
	if err := json.Unmarshal([]byte(e.Payload), out); err != nil {
		return fmt.Errorf("failed to decode %s/%s payload: %w", e.Header.Namespace, e.Header.Name, err)
	}
	return nil
}

// StreamFragment extracts the partial-text fragment from a ToastStream
// envelope.
func (e Envelope) StreamFragment() (string, error) {
	var p StreamPayload
	if err := e.DecodePayload(&p); err != nil {
		return "", err
	}
	return p.Stream, nil
}
