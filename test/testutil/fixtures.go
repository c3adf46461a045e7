// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package testutil provides shared envelope fixtures and helpers for tests.
package testutil

import (
	"encoding/json"
	"time"

	"github.com/hearth-home/hearth/internal/protocol"
)

// Fixed correlation ids used across tests.
const (
	RequestID = "req-test-1"
	SessionID = "sess-test-1"
)

// envelope builds a fixture envelope with the shared test correlation ids.
func envelope(typ protocol.MessageType, ns protocol.Namespace, name string, payload interface{}) protocol.Envelope {
	body, err := json.Marshal(payload)
	if err != nil {
		panic(err) // fixtures are static, a marshal failure is a test bug
	}
	return protocol.Envelope{
		Header: protocol.Header{
			Type:      typ,
			Namespace: ns,
			Name:      name,
			Timestamp: time.Now().Unix(),
			RequestID: RequestID,
			SessionID: SessionID,
		},
		Payload: string(body),
	}
}

// StreamEnvelope returns a ToastStream envelope carrying one fragment.
func StreamEnvelope(fragment string) protocol.Envelope {
	return envelope(protocol.TypeEvent, protocol.NamespaceNlp, protocol.NameToastStream,
		protocol.StreamPayload{Stream: fragment})
}

// FinishEnvelope returns the terminal FinishChat envelope.
func FinishEnvelope(success bool) protocol.Envelope {
	return envelope(protocol.TypeEvent, protocol.NamespaceNlp, protocol.NameFinishChat,
		protocol.FinishPayload{Success: success})
}

// ExceptionEnvelope returns an in-band application error envelope.
func ExceptionEnvelope(code int, message string) protocol.Envelope {
	return envelope(protocol.TypeEvent, protocol.NamespaceNlp, protocol.NameException,
		protocol.ExceptionPayload{Code: code, Message: message})
}

// CallToolEnvelope returns a tool invocation envelope with the given call id.
func CallToolEnvelope(id, name string) protocol.Envelope {
	return envelope(protocol.TypeEvent, protocol.NamespaceTemplate, protocol.NameCallTool,
		protocol.CallToolPayload{ID: id, Name: name})
}

// CallToolResultEnvelope returns the result envelope for a prior tool call.
func CallToolResultEnvelope(id, result string, isError bool) protocol.Envelope {
	return envelope(protocol.TypeEvent, protocol.NamespaceTemplate, protocol.NameCallToolResult,
		protocol.CallToolResultPayload{ID: id, Result: result, IsError: isError})
}

// CameraImagesEnvelope returns a camera snapshot burst envelope.
func CameraImagesEnvelope(images ...protocol.CameraImage) protocol.Envelope {
	return envelope(protocol.TypeEvent, protocol.NamespaceDialog, protocol.NameCameraImages,
		protocol.CameraImagesPayload{Images: images})
}

// RuleConfirmEnvelope returns a SaveRuleConfirm envelope carrying options.
func RuleConfirmEnvelope(cameraOptions, actionOptions []protocol.RuleOption) protocol.Envelope {
	return envelope(protocol.TypeEvent, protocol.NamespaceConfirmation, protocol.NameSaveRuleConfirm,
		protocol.RuleConfirmPayload{CameraOptions: cameraOptions, ActionOptions: actionOptions})
}

// RuleConfirmResultEnvelope returns a SaveRuleConfirmResult envelope.
func RuleConfirmResultEnvelope(p protocol.RuleConfirmPayload) protocol.Envelope {
	return envelope(protocol.TypeInstruction, protocol.NamespaceConfirmation, protocol.NameSaveRuleConfirmRes, p)
}

// MalformedEnvelope returns an envelope of the given triple whose payload is
// not valid JSON, for exercising per-message decode recovery.
func MalformedEnvelope(typ protocol.MessageType, ns protocol.Namespace, name string) protocol.Envelope {
	return protocol.Envelope{
		Header: protocol.Header{
			Type:      typ,
			Namespace: ns,
			Name:      name,
			Timestamp: time.Now().Unix(),
			RequestID: RequestID,
		},
		Payload: `{"broken": `,
	}
}

// RequestEnvelope returns the outbound query envelope used in replay tests.
func RequestEnvelope(query string, cameraIDs, mcpList []string) protocol.Envelope {
	env, err := protocol.NewRequestEnvelope(RequestID, SessionID, query, cameraIDs, mcpList)
	if err != nil {
		panic(err)
	}
	return env
}
