// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package protocol defines the wire contract of the gateway's chat channel.
// Every frame exchanged over the websocket is an Envelope: a routing header
// plus a string payload holding JSON that is decoded on demand. Payload
// decoding failures are recoverable per-message errors, never fatal to the
// connection or the transcript.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType is the coarse direction/category of an envelope.
type MessageType string

const (
	TypeEvent       MessageType = "event"
	TypeInstruction MessageType = "instruction"
)

// Namespace scopes envelope names.
type Namespace string

const (
	NamespaceNlp          Namespace = "Nlp"
	NamespaceTemplate     Namespace = "Template"
	NamespaceDialog       Namespace = "Dialog"
	NamespaceConfirmation Namespace = "Confirmation"
)

// Envelope names, scoped by namespace.
const (
	NameRequest            = "Request"
	NameCallTool           = "CallTool"
	NameCallToolResult     = "CallToolResult"
	NameToastStream        = "ToastStream"
	NameCameraImages       = "CameraImages"
	NameException          = "Exception"
	NameFinishChat         = "FinishChat"
	NameSaveRuleConfirm    = "SaveRuleConfirm"
	NameSaveRuleConfirmRes = "SaveRuleConfirmResult"
	NameAiGeneratedActions = "AiGeneratedActions"
)

// Header carries routing and correlation metadata for one envelope.
// SessionID is assigned by the gateway on the first reply of a session and
// echoed by the client afterwards; RequestID is client-generated per request.
type Header struct {
	Type      MessageType `json:"type"`
	Namespace Namespace   `json:"namespace"`
	Name      string      `json:"name"`
	Timestamp int64       `json:"timestamp"`
	RequestID string      `json:"request_id"`
	SessionID string      `json:"session_id,omitempty"`
}

// Envelope is one wire unit. Payload is a string containing JSON-encoded
// structured data; use the typed decoders in payloads.go to read it.
type Envelope struct {
	Header  Header `json:"header"`
	Payload string `json:"payload"`
}

// Kind classifies the envelope by its (type, namespace, name) triple.
func (e Envelope) Kind() Kind {
	return Classify(e.Header.Type, e.Header.Namespace, e.Header.Name)
}

// Encode serializes the envelope for the wire.
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope parses one inbound frame. A frame that is not a JSON
// envelope at all is a decode error for the caller to surface; a frame whose
// payload string is malformed still decodes successfully here.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return env, nil
}

// NewEnvelope builds an envelope with the current timestamp and the given
// payload object serialized into the payload string.
func NewEnvelope(typ MessageType, ns Namespace, name, requestID, sessionID string, payload interface{}) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s payload: %w", name, err)
	}
	return Envelope{
		Header: Header{
			Type:      typ,
			Namespace: ns,
			Name:      name,
			Timestamp: time.Now().Unix(),
			RequestID: requestID,
			SessionID: sessionID,
		},
		Payload: string(body),
	}, nil
}

// WithPayload returns a copy of the envelope carrying the given payload
// object. The header, including the wire timestamp, is kept as-is.
func (e Envelope) WithPayload(payload interface{}) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s payload: %w", e.Header.Name, err)
	}
	e.Payload = string(body)
	return e, nil
}

// NewRequestEnvelope builds the outbound query envelope that opens a turn.
func NewRequestEnvelope(requestID, sessionID, query string, cameraIDs, mcpList []string) (Envelope, error) {
	if cameraIDs == nil {
		cameraIDs = []string{}
	}
	if mcpList == nil {
		mcpList = []string{}
	}
	return NewEnvelope(TypeInstruction, NamespaceNlp, NameRequest, requestID, sessionID, RequestPayload{
		Query:     query,
		CameraIDs: cameraIDs,
		McpList:   mcpList,
	})
}
