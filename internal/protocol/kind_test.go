// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_KnownTriples(t *testing.T) {
	cases := []struct {
		typ  MessageType
		ns   Namespace
		name string
		want Kind
	}{
		{TypeInstruction, NamespaceNlp, NameRequest, KindRequest},
		{TypeEvent, NamespaceTemplate, NameCallTool, KindCallTool},
		{TypeEvent, NamespaceTemplate, NameCallToolResult, KindCallToolResult},
		{TypeEvent, NamespaceNlp, NameToastStream, KindToastStream},
		{TypeEvent, NamespaceDialog, NameCameraImages, KindCameraImages},
		{TypeEvent, NamespaceNlp, NameException, KindException},
		{TypeEvent, NamespaceNlp, NameFinishChat, KindFinishChat},
		{TypeEvent, NamespaceConfirmation, NameSaveRuleConfirm, KindSaveRuleConfirm},
		{TypeInstruction, NamespaceConfirmation, NameSaveRuleConfirmRes, KindSaveRuleConfirmResult},
		{TypeEvent, NamespaceNlp, NameAiGeneratedActions, KindAiGeneratedActions},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.typ, tc.ns, tc.name))
		})
	}
}

func TestClassify_UnknownTriples(t *testing.T) {
	cases := []struct {
		label string
		typ   MessageType
		ns    Namespace
		name  string
	}{
		{"unknown name", TypeEvent, NamespaceNlp, "SomethingNew"},
		{"wrong type for known name", TypeInstruction, NamespaceNlp, NameToastStream},
		{"wrong namespace for known name", TypeEvent, NamespaceDialog, NameToastStream},
		{"empty triple", "", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			assert.Equal(t, KindUnknown, Classify(tc.typ, tc.ns, tc.name))
		})
	}
}

func TestClassify_TableIsExhaustive(t *testing.T) {
	// Every Kind except Unknown must be reachable from exactly one rule.
	seen := make(map[Kind]int)
	for _, kind := range classificationTable {
		seen[kind]++
	}

	for kind := KindRequest; kind <= KindAiGeneratedActions; kind++ {
		assert.Equal(t, 1, seen[kind], "kind %s should have exactly one classification rule", kind)
	}
}

func TestEnvelope_Kind(t *testing.T) {
	env := Envelope{
		Header: Header{
			Type:      TypeEvent,
			Namespace: NamespaceNlp,
			Name:      NameFinishChat,
			RequestID: "req-1",
		},
		Payload: `{"success":true}`,
	}
	assert.Equal(t, KindFinishChat, env.Kind())
}

func TestEnvelope_EncodeDecode(t *testing.T) {
	env, err := NewRequestEnvelope("req-1", "sess-1", "turn off lights", nil, []string{"x"})
	require.NoError(t, err)

	data, err := env.Encode()
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, KindRequest, decoded.Kind())
	assert.Equal(t, "req-1", decoded.Header.RequestID)
	assert.Equal(t, "sess-1", decoded.Header.SessionID)

	var payload RequestPayload
	require.NoError(t, decoded.DecodePayload(&payload))
	assert.Equal(t, "turn off lights", payload.Query)
	assert.Empty(t, payload.CameraIDs)
	assert.Equal(t, []string{"x"}, payload.McpList)
}

func TestEnvelope_DecodePayload_Malformed(t *testing.T) {
	env := Envelope{
		Header:  Header{Type: TypeEvent, Namespace: NamespaceNlp, Name: NameToastStream},
		Payload: `{"stream": `,
	}

	_, err := env.StreamFragment()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nlp/ToastStream")
}

func TestDecodeEnvelope_MalformedFrame(t *testing.T) {
	_, err := DecodeEnvelope([]byte("not json"))
	require.Error(t, err)
}
