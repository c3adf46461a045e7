// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/hearth-home/hearth/internal/protocol"
)

// ChangeType enumerates store change notifications.
type ChangeType string

const (
	// TurnUpdated fires when the building answer gained or merged an entry.
	TurnUpdated ChangeType = "turn_updated"
	// TurnCompleted fires when a FinishChat committed the building answer.
	TurnCompleted ChangeType = "turn_completed"
	// NoticeRaised fires for per-message recoverable failures (payload
	// decode errors, in-band exceptions).
	NoticeRaised ChangeType = "notice_raised"
	// Cleared fires when the transcript was reset by a new-chat or
	// delete-history action.
	Cleared ChangeType = "cleared"
)

// Change is one store change notification delivered to subscribers.
type Change struct {
	Type   ChangeType
	Notice string
}

// Store is the session transcript: the committed turns plus the accumulation
// buffer of the in-flight answer. It is an explicit constructed instance
// injected where needed, never package-level state, so tests can reset it
// cleanly.
type Store struct {
	mu        sync.Mutex
	turns     []Turn
	buffer    []Entry
	answering bool

	// Options cached from a SaveRuleConfirm, merged into the eventual
	// SaveRuleConfirmResult when the result lacks its own.
	cachedCameraOptions []protocol.RuleOption
	cachedActionOptions []protocol.RuleOption

	subs []chan Change
	log  zerolog.Logger
}

// NewStore creates an empty transcript store.
func NewStore(log zerolog.Logger) *Store {
	return &Store{log: log}
}

// Subscribe returns a channel of change notifications. Slow subscribers have
// notifications dropped rather than blocking dispatch.
func (s *Store) Subscribe() <-chan Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Change, 64)
	s.subs = append(s.subs, ch)
	return ch
}

func (s *Store) notify(c Change) {
	s.mu.Lock()
	subs := append([]chan Change(nil), s.subs...)
	s.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- c:
		default:
			s.log.Warn().Str("change", string(c.Type)).Msg("Dropping change notification for slow subscriber")
		}
	}
}

// Turns returns a copy of the committed transcript, with the building answer
// turn appended last while one is in flight.
func (s *Store) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns), len(s.turns)+1)
	copy(out, s.turns)
	if s.answering {
		out = append(out, Turn{Role: RoleAnswer, Building: true, Entries: append([]Entry(nil), s.buffer...)})
	}
	return out
}

// Answering reports whether an answer turn is currently building.
func (s *Store) Answering() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answering
}

// BeginQuestion appends a question turn and opens the accumulation buffer for
// its answer. Any previous in-flight accumulation is abandoned as-is (no
// rollback of partially streamed text).
func (s *Store) BeginQuestion(query string, cameraIDs, mcpList []string) {
	s.mu.Lock()
	s.turns = append(s.turns, Turn{
		Role:      RoleQuestion,
		Question:  query,
		CameraIDs: append([]string(nil), cameraIDs...),
		McpList:   append([]string(nil), mcpList...),
		Complete:  true,
	})
	s.buffer = nil
	s.answering = true
	s.cachedCameraOptions = nil
	s.cachedActionOptions = nil
	s.mu.Unlock()
	s.notify(Change{Type: TurnUpdated})
}

// StopAnswering clears the in-flight flags without committing a turn. This is
// the user-triggered stop path: already accumulated entries stay visible in
// the building turn until the next question resets the buffer.
func (s *Store) StopAnswering() {
	s.mu.Lock()
	if s.answering && len(s.buffer) > 0 {
		// Keep what streamed so far as an incomplete committed turn.
		s.turns = append(s.turns, Turn{Role: RoleAnswer, Entries: s.buffer, Complete: false})
	}
	s.buffer = nil
	s.answering = false
	s.mu.Unlock()
	s.notify(Change{Type: TurnUpdated})
}

// Clear drops the whole transcript (explicit new-chat or delete-history).
func (s *Store) Clear() {
	s.mu.Lock()
	s.turns = nil
	s.buffer = nil
	s.answering = false
	s.cachedCameraOptions = nil
	s.cachedActionOptions = nil
	s.mu.Unlock()
	s.notify(Change{Type: Cleared})
}

// RaiseNotice surfaces a user-visible notice that has no envelope of its own
// (frame-level decode failures, transport errors).
func (s *Store) RaiseNotice(msg string) {
	s.notify(Change{Type: NoticeRaised, Notice: msg})
}

// Dispatch routes one classified inbound envelope into the accumulation
// buffer or commits the building turn. A payload that fails to decode is
// recorded as an inline parse notice; one bad payload never aborts the
// transcript.
func (s *Store) Dispatch(env protocol.Envelope) {
	kind := env.Kind()

	switch kind {
	case protocol.KindToastStream:
		s.dispatchStream(env)
	case protocol.KindSaveRuleConfirm:
		s.dispatchRuleConfirm(env)
	case protocol.KindSaveRuleConfirmResult:
		s.dispatchRuleConfirmResult(env)
	case protocol.KindFinishChat:
		s.dispatchFinish(env)
	case protocol.KindRequest:
		// Only seen when replaying persisted history: a request starts a
		// fresh question/answer pair.
		var p protocol.RequestPayload
		if err := env.DecodePayload(&p); err != nil {
			s.appendNotice(env, kind, err)
			return
		}
		s.BeginQuestion(p.Query, p.CameraIDs, p.McpList)
	case protocol.KindException:
		var p protocol.ExceptionPayload
		if err := env.DecodePayload(&p); err != nil {
			s.appendNotice(env, kind, err)
			return
		}
		s.append(env, kind)
		s.notify(Change{Type: NoticeRaised, Notice: p.Message})
	default:
		// CameraImages, CallTool, CallToolResult, AiGeneratedActions and
		// any Unknown kind: appended as-is, forward-compatible.
		s.append(env, kind)
	}
}

// append adds an entry to the accumulation buffer and refreshes the building
// turn view so intermediate non-stream events are visible immediately.
func (s *Store) append(env protocol.Envelope, kind protocol.Kind) {
	s.mu.Lock()
	s.buffer = append(s.buffer, Entry{Env: env, Kind: kind})
	s.mu.Unlock()
	s.notify(Change{Type: TurnUpdated})
}

func (s *Store) appendNotice(env protocol.Envelope, kind protocol.Kind, decodeErr error) {
	s.log.Warn().Err(decodeErr).
		Str("namespace", string(env.Header.Namespace)).
		Str("name", env.Header.Name).
		Msg("Failed to decode payload, rendering parse notice")
	s.mu.Lock()
	s.buffer = append(s.buffer, Entry{Env: env, Kind: kind, ParseErr: decodeErr.Error()})
	s.mu.Unlock()
	s.notify(Change{Type: NoticeRaised, Notice: decodeErr.Error()})
}

// dispatchStream merges consecutive ToastStream fragments into the last
// buffer entry when it is also a stream, otherwise appends a new entry.
func (s *Store) dispatchStream(env protocol.Envelope) {
	frag, err := env.StreamFragment()
	if err != nil {
		s.appendNotice(env, protocol.KindToastStream, err)
		return
	}

	s.mu.Lock()
	merged := false
	if n := len(s.buffer); n > 0 && s.buffer[n-1].Kind == protocol.KindToastStream && s.buffer[n-1].ParseErr == "" {
		if prev, err := s.buffer[n-1].Env.StreamFragment(); err == nil {
			// Keep the first fragment's header so the merged entry carries
			// the wire timestamp of when the stream started.
			combined, encErr := s.buffer[n-1].Env.WithPayload(protocol.StreamPayload{Stream: prev + frag})
			if encErr == nil {
				s.buffer[n-1].Env = combined
				merged = true
			}
		}
	}
	if !merged {
		s.buffer = append(s.buffer, Entry{Env: env, Kind: protocol.KindToastStream})
	}
	s.mu.Unlock()
	s.notify(Change{Type: TurnUpdated})
}

// dispatchRuleConfirm appends the confirm and caches its options for the
// eventual result merge.
func (s *Store) dispatchRuleConfirm(env protocol.Envelope) {
	var p protocol.RuleConfirmPayload
	if err := env.DecodePayload(&p); err != nil {
		s.appendNotice(env, protocol.KindSaveRuleConfirm, err)
		return
	}

	s.mu.Lock()
	if len(p.CameraOptions) > 0 {
		s.cachedCameraOptions = p.CameraOptions
	}
	if len(p.ActionOptions) > 0 {
		s.cachedActionOptions = p.ActionOptions
	}
	s.buffer = append(s.buffer, Entry{Env: env, Kind: protocol.KindSaveRuleConfirm})
	s.mu.Unlock()
	s.notify(Change{Type: TurnUpdated})
}

// dispatchRuleConfirmResult supersedes any pending SaveRuleConfirm entries,
// merging their cached options into the result when the result lacks its own.
func (s *Store) dispatchRuleConfirmResult(env protocol.Envelope) {
	var p protocol.RuleConfirmPayload
	if err := env.DecodePayload(&p); err != nil {
		s.appendNotice(env, protocol.KindSaveRuleConfirmResult, err)
		return
	}

	s.mu.Lock()
	s.buffer = lo.Filter(s.buffer, func(e Entry, _ int) bool {
		return e.Kind != protocol.KindSaveRuleConfirm
	})

	if len(p.CameraOptions) == 0 {
		p.CameraOptions = s.cachedCameraOptions
	}
	if len(p.ActionOptions) == 0 {
		p.ActionOptions = s.cachedActionOptions
	}

	merged, err := env.WithPayload(p)
	if err != nil {
		merged = env
	}
	s.buffer = append(s.buffer, Entry{Env: merged, Kind: protocol.KindSaveRuleConfirmResult})
	s.mu.Unlock()
	s.notify(Change{Type: TurnUpdated})
}

// dispatchFinish appends the terminal envelope and atomically commits the
// accumulation buffer as a completed answer turn.
func (s *Store) dispatchFinish(env protocol.Envelope) {
	var p protocol.FinishPayload
	success := true
	if err := env.DecodePayload(&p); err == nil {
		success = p.Success
	}

	s.mu.Lock()
	buffer := append(s.buffer, Entry{Env: env, Kind: protocol.KindFinishChat})
	s.turns = append(s.turns, Turn{
		Role:     RoleAnswer,
		Entries:  buffer,
		Complete: true,
		Success:  success,
	})
	s.buffer = nil
	s.answering = false
	s.cachedCameraOptions = nil
	s.cachedActionOptions = nil
	s.mu.Unlock()
	s.notify(Change{Type: TurnCompleted})
}
