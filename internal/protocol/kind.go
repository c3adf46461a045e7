// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

// Kind is the semantic message kind derived from an envelope's
// (type, namespace, name) triple. Classification is total: every triple maps
// to exactly one Kind, with KindUnknown as the fallback so no envelope is
// silently dropped before classification.
type Kind int

const (
	KindUnknown Kind = iota
	KindRequest
	KindCallTool
	KindCallToolResult
	KindToastStream
	KindCameraImages
	KindException
	KindFinishChat
	KindSaveRuleConfirm
	KindSaveRuleConfirmResult
	KindAiGeneratedActions
)

// kindNames indexes String() by Kind value.
var kindNames = [...]string{
	KindUnknown:               "Unknown",
	KindRequest:               "Request",
	KindCallTool:              "CallTool",
	KindCallToolResult:        "CallToolResult",
	KindToastStream:           "ToastStream",
	KindCameraImages:          "CameraImages",
	KindException:             "Exception",
	KindFinishChat:            "FinishChat",
	KindSaveRuleConfirm:       "SaveRuleConfirm",
	KindSaveRuleConfirmResult: "SaveRuleConfirmResult",
	KindAiGeneratedActions:    "AiGeneratedActions",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// tripleKey identifies one classification rule.
type tripleKey struct {
	typ  MessageType
	ns   Namespace
	name string
}

// classificationTable is the single source of truth for classification.
// Adding a new wire message means adding exactly one entry here.
var classificationTable = map[tripleKey]Kind{
	{TypeInstruction, NamespaceNlp, NameRequest}:                     KindRequest,
	{TypeEvent, NamespaceTemplate, NameCallTool}:                     KindCallTool,
	{TypeEvent, NamespaceTemplate, NameCallToolResult}:               KindCallToolResult,
	{TypeEvent, NamespaceNlp, NameToastStream}:                       KindToastStream,
	{TypeEvent, NamespaceDialog, NameCameraImages}:                   KindCameraImages,
	{TypeEvent, NamespaceNlp, NameException}:                         KindException,
	{TypeEvent, NamespaceNlp, NameFinishChat}:                        KindFinishChat,
	{TypeEvent, NamespaceConfirmation, NameSaveRuleConfirm}:          KindSaveRuleConfirm,
	{TypeInstruction, NamespaceConfirmation, NameSaveRuleConfirmRes}: KindSaveRuleConfirmResult,
	{TypeEvent, NamespaceNlp, NameAiGeneratedActions}:                KindAiGeneratedActions,
}

// Classify maps a (type, namespace, name) triple to its Kind. Pure function,
// no side effects; unmatched triples resolve to KindUnknown.
func Classify(typ MessageType, ns Namespace, name string) Kind {
	if kind, ok := classificationTable[tripleKey{typ, ns, name}]; ok {
		return kind
	}
	return KindUnknown
}
