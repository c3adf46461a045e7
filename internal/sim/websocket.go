// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package sim

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hearth-home/hearth/internal/history"
	"github.com/hearth-home/hearth/internal/protocol"
	"github.com/hearth-home/hearth/internal/stream"
)

const (
	maxMessageSize = 64 * 1024
	writeWait      = 10 * time.Second
	// streamChunkRunes deliberately cuts section tags across frames so
	// clients must reparse the accumulated buffer, not single fragments.
	streamChunkRunes = 9
)

// newUpgrader creates a WebSocket upgrader that respects the configured
// allowed origins. When allowedOrigins is empty the upgrader accepts any
// origin (localhost development mode).
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			_, ok := allowed[origin]
			return ok
		},
	}
}

// chatConn is one accepted chat channel. Scenario playback is sequential,
// so writes never race.
type chatConn struct {
	conn          *websocket.Conn
	sessionID     string
	book          *Book
	history       *history.Store
	fragmentDelay time.Duration
}

// HandleChat returns the handler for the chat WebSocket endpoint. The
// session id comes from the query when the client resumes, otherwise a new
// one is assigned and stamped on every reply frame.
func HandleChat(book *Book, hist *history.Store, fragmentDelay time.Duration, allowedOrigins []string) http.HandlerFunc {
	upgrader := newUpgrader(allowedOrigins)

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			getLog().Warn().Err(err).Msg("Chat upgrade failed")
			return
		}

		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		c := &chatConn{
			conn:          conn,
			sessionID:     sessionID,
			book:          book,
			history:       hist,
			fragmentDelay: fragmentDelay,
		}
		getLog().Info().
			Str("session_id", sessionID).
			Str("request_id", r.URL.Query().Get("request_id")).
			Msg("Chat channel opened")
		// The upgrade hijacked the connection, so the request context dies
		// with this handler; playback must not inherit it.
		c.run(context.Background())
	}
}

func (c *chatConn) run(ctx context.Context) {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				getLog().Warn().Err(err).Str("session_id", c.sessionID).Msg("Chat channel closed abnormally")
			}
			return
		}

		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			getLog().Warn().Err(err).Msg("Discarding undecodable frame")
			continue
		}
		if env.Kind() != protocol.KindRequest {
			getLog().Debug().Str("name", env.Header.Name).Msg("Ignoring non-request frame")
			continue
		}

		var req protocol.RequestPayload
		if err := env.DecodePayload(&req); err != nil {
			getLog().Warn().Err(err).Msg("Discarding request with bad payload")
			continue
		}

		if err := c.answer(ctx, env.Header.RequestID, req); err != nil {
			getLog().Warn().Err(err).Str("session_id", c.sessionID).Msg("Answer playback aborted")
			return
		}
	}
}

// answer plays the scenario matched by the query and terminates the turn
// with FinishChat.
func (c *chatConn) answer(ctx context.Context, requestID string, req protocol.RequestPayload) error {
	sc := c.book.Pick(req.Query)
	var answerText string

	for _, step := range sc.Steps {
		var err error
		switch {
		case step.Stream != "":
			answerText = stream.Accumulate(answerText, step.Stream)
			err = c.streamText(requestID, step.Stream)
		case step.Tool != nil:
			err = c.sendToolPair(requestID, step.Tool)
		case len(step.Cameras) > 0:
			err = c.send(protocol.TypeEvent, protocol.NamespaceDialog, protocol.NameCameraImages,
				requestID, protocol.CameraImagesPayload{Images: step.Cameras})
		case step.Rule != nil:
			err = c.sendRuleFlow(requestID, step.Rule)
		case step.Exception != nil:
			err = c.send(protocol.TypeEvent, protocol.NamespaceNlp, protocol.NameException,
				requestID, protocol.ExceptionPayload{Code: step.Exception.Code, Message: step.Exception.Message})
		case len(step.Actions) > 0:
			err = c.send(protocol.TypeEvent, protocol.NamespaceNlp, protocol.NameAiGeneratedActions,
				requestID, protocol.AiGeneratedActionsPayload{Actions: step.Actions})
		}
		if err != nil {
			return err
		}
	}

	success := sc.success()
	if err := c.send(protocol.TypeEvent, protocol.NamespaceNlp, protocol.NameFinishChat,
		requestID, protocol.FinishPayload{Success: success}); err != nil {
		return err
	}

	answer := stream.Parse(answerText).FinalAnswer()
	if err := c.history.RecordTurn(ctx, c.sessionID, req.Query, answer, success); err != nil {
		getLog().Error().Err(err).Msg("Failed to persist turn")
	}
	return nil
}

// streamText emits the text as a run of ToastStream fragments.
func (c *chatConn) streamText(requestID, text string) error {
	runes := []rune(text)
	for start := 0; start < len(runes); start += streamChunkRunes {
		end := start + streamChunkRunes
		if end > len(runes) {
			end = len(runes)
		}
		if err := c.send(protocol.TypeEvent, protocol.NamespaceNlp, protocol.NameToastStream,
			requestID, protocol.StreamPayload{Stream: string(runes[start:end])}); err != nil {
			return err
		}
		if c.fragmentDelay > 0 {
			time.Sleep(c.fragmentDelay)
		}
	}
	return nil
}

func (c *chatConn) sendToolPair(requestID string, tool *ToolStep) error {
	id := tool.ID
	if id == "" {
		id = uuid.New().String()
	}
	call := protocol.CallToolPayload{ID: id, Name: tool.Name}
	if tool.Arguments != "" {
		call.Arguments = json.RawMessage(tool.Arguments)
	}
	if err := c.send(protocol.TypeEvent, protocol.NamespaceTemplate, protocol.NameCallTool, requestID, call); err != nil {
		return err
	}
	return c.send(protocol.TypeEvent, protocol.NamespaceTemplate, protocol.NameCallToolResult, requestID,
		protocol.CallToolResultPayload{ID: id, Result: tool.Result, IsError: tool.IsError})
}

// sendRuleFlow emits the confirmation and, when scripted, the saved result
// that supersedes it.
func (c *chatConn) sendRuleFlow(requestID string, rule *RuleStep) error {
	confirm := protocol.RuleConfirmPayload{
		CameraOptions: rule.CameraOptions,
		ActionOptions: rule.ActionOptions,
	}
	if rule.Rule != "" {
		confirm.Rule = json.RawMessage(rule.Rule)
	}
	if err := c.send(protocol.TypeEvent, protocol.NamespaceConfirmation, protocol.NameSaveRuleConfirm, requestID, confirm); err != nil {
		return err
	}
	if !rule.SendResult {
		return nil
	}

	result := protocol.RuleConfirmPayload{Saved: true}
	if rule.Rule != "" {
		result.Rule = json.RawMessage(rule.Rule)
	}
	if rule.ResultHasOptions {
		result.CameraOptions = rule.CameraOptions
		result.ActionOptions = rule.ActionOptions
	}
	return c.send(protocol.TypeInstruction, protocol.NamespaceConfirmation, protocol.NameSaveRuleConfirmRes, requestID, result)
}

func (c *chatConn) send(typ protocol.MessageType, ns protocol.Namespace, name, requestID string, payload interface{}) error {
	env, err := protocol.NewEnvelope(typ, ns, name, requestID, c.sessionID, payload)
	if err != nil {
		return err
	}
	data, err := env.Encode()
	if err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
