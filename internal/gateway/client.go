// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway owns the single websocket connection to the smart-home
// gateway's chat channel: its lifecycle state machine, request/session
// correlation, reconnect and grace timers, and the persisted session
// identity. Only this package opens, closes or replaces the connection;
// inbound envelopes are handed to the transcript store's dispatch.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/hearth-home/hearth/internal/config"
	"github.com/hearth-home/hearth/internal/protocol"
	"github.com/hearth-home/hearth/internal/transcript"
)

// State is the connection lifecycle state, owned exclusively by the Client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Sentinel errors reported by Send.
var (
	ErrNotConnected = errors.New("gateway: not connected")
	ErrSendTimeout  = errors.New("gateway: timed out waiting for connection")
	ErrClosed       = errors.New("gateway: client closed")
)

// Close reasons used on client-initiated closes. The gateway distinguishes
// post-completion closes (session kept warm) from explicit user disconnects.
const (
	closeReasonKeepSession    = "keep session"
	closeReasonUserDisconnect = "user disconnect"
	closeReasonSuperseded     = "superseded"
)

// EventType enumerates connection domain events.
type EventType string

const (
	EventStateChanged    EventType = "state_changed"
	EventConnectionOpen  EventType = "connection_opened"
	EventConnectionClose EventType = "connection_closed"
	EventConnectionError EventType = "connection_error"
)

// Event is one connection lifecycle notification.
type Event struct {
	Type    EventType
	State   State
	Code    int
	Clean   bool
	Message string
}

// Client is the connection manager. One Client owns at most one canonical
// websocket connection at a time: opening a new one always closes the old
// one first, and a generation counter makes the old socket's handlers inert
// so no frames interleave across generations.
type Client struct {
	cfg      config.GatewayConfig
	log      zerolog.Logger
	store    *transcript.Store
	sessions *SessionStore
	timers   *timerRegistry
	tracer   oteltrace.Tracer

	mu          sync.Mutex
	conn        *websocket.Conn
	state       State
	generation  uint64
	requestID   string
	expectClose bool
	closed      bool
	subs        []chan Event

	// writeMu serializes frame writes; gorilla permits one concurrent writer.
	writeMu sync.Mutex
}

// NewClient creates a connection manager bound to the given transcript store
// and persisted session store. The client starts Disconnected; Close tears it
// down.
func NewClient(cfg config.GatewayConfig, store *transcript.Store, sessions *SessionStore, log zerolog.Logger) *Client {
	return &Client{
		cfg:      cfg,
		log:      log,
		store:    store,
		sessions: sessions,
		timers:   newTimerRegistry(),
		tracer:   otel.Tracer("hearth/gateway"),
		state:    StateDisconnected,
	}
}

// Subscribe returns a channel of connection events. Slow subscribers have
// events dropped rather than blocking the read loop.
func (c *Client) Subscribe() <-chan Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan Event, 32)
	c.subs = append(c.subs, ch)
	return ch
}

func (c *Client) emit(e Event) {
	c.mu.Lock()
	subs := append([]chan Event(nil), c.subs...)
	c.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- e:
		default:
			c.log.Warn().Str("event", string(e.Type)).Msg("Dropping connection event for slow subscriber")
		}
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RequestID returns the current request id used for correlation.
func (c *Client) RequestID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestID
}

func (c *Client) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	// emit outside the lock
	go c.emit(Event{Type: EventStateChanged, State: s})
}

// chatURL builds the websocket endpoint URL: ws/wss derived from the base
// URL's TLS, fixed chat path under the API prefix, request_id required and
// session_id attached once known.
func (c *Client) chatURL(requestID, sessionID string) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid gateway base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + c.cfg.ChatPath

	q := u.Query()
	q.Set("request_id", requestID)
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect opens a new canonical connection for the given request id. An
// existing connection is closed first without draining. The known session id
// is attached automatically.
func (c *Client) Connect(ctx context.Context, requestID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.conn != nil {
		c.closeConnLocked(websocket.CloseNormalClosure, closeReasonSuperseded)
	}
	c.generation++
	gen := c.generation
	c.requestID = requestID
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	sessionID := c.sessions.SessionID()
	endpoint, err := c.chatURL(requestID, sessionID)
	if err != nil {
		c.failConnect(gen, err)
		return err
	}

	ctx, span := c.tracer.Start(ctx, "gateway.connect", oteltrace.WithAttributes(
		attribute.String("request_id", requestID),
		attribute.Bool("session_resumed", sessionID != ""),
	))
	defer span.End()

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		span.RecordError(err)
		c.failConnect(gen, err)
		return fmt.Errorf("failed to connect to gateway: %w", err)
	}

	c.mu.Lock()
	if gen != c.generation || c.closed {
		// Superseded while dialing: this connection is not canonical.
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.expectClose = false
	c.setStateLocked(StateConnected)
	c.mu.Unlock()

	c.timers.Cancel(timerReconnect)
	c.log.Info().Str("request_id", requestID).Bool("session_resumed", sessionID != "").Msg("Gateway connection opened")
	c.emit(Event{Type: EventConnectionOpen, State: StateConnected})

	go c.readLoop(gen, conn)
	return nil
}

func (c *Client) failConnect(gen uint64, err error) {
	c.mu.Lock()
	if gen == c.generation {
		c.setStateLocked(StateError)
	}
	c.mu.Unlock()
	c.log.Error().Err(err).Msg("Gateway connection failed")
	c.emit(Event{Type: EventConnectionError, State: StateError, Message: err.Error()})
}

// readLoop processes inbound frames strictly sequentially: one frame is fully
// dispatched before the next is read, so downstream state needs no locking
// against this path.
func (c *Client) readLoop(gen uint64, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(gen, err)
			return
		}
		if c.stale(gen) {
			return
		}

		env, derr := protocol.DecodeEnvelope(data)
		if derr != nil {
			// Frame-level decode failure is recovered per-message.
			c.log.Warn().Err(derr).Msg("Dropping malformed frame")
			c.store.RaiseNotice(derr.Error())
			continue
		}

		c.adoptIdentity(env.Header)
		kind := env.Kind()
		c.store.Dispatch(env)

		if kind == protocol.KindFinishChat {
			// Close after a short grace delay so the final render never
			// races the close; the session id is kept for resumption.
			c.timers.Schedule(timerGrace, c.cfg.GraceDelay, func() {
				c.DisconnectKeepSession()
			})
		}
	}
}

func (c *Client) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.generation || c.closed
}

// adoptIdentity records server-communicated correlation ids. The session id
// is adopted and persisted only on first assignment; a differing session id
// arriving mid-session is ignored with a warning rather than silently
// switching sessions.
func (c *Client) adoptIdentity(h protocol.Header) {
	if h.SessionID != "" {
		known := c.sessions.SessionID()
		switch {
		case known == "":
			if err := c.sessions.SetSessionID(h.SessionID); err != nil {
				c.log.Error().Err(err).Msg("Failed to persist session id")
			} else {
				c.log.Info().Str("session_id", h.SessionID).Msg("Adopted gateway-assigned session id")
			}
		case known != h.SessionID:
			c.log.Warn().
				Str("known", known).
				Str("received", h.SessionID).
				Msg("Ignoring mid-session session id change")
		}
	}

	if h.RequestID != "" {
		c.mu.Lock()
		c.requestID = h.RequestID
		c.mu.Unlock()
	}
}

// handleReadError classifies the end of a connection generation. Clean closes
// (client-initiated, or normal/going-away close frames) never reconnect; an
// abnormal close while an answer is still building schedules exactly one
// reconnect with the same request id and session id.
func (c *Client) handleReadError(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.generation || c.closed {
		// An old generation's handlers are inert.
		c.mu.Unlock()
		return
	}
	expected := c.expectClose
	requestID := c.requestID
	c.conn = nil
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	code := websocket.CloseAbnormalClosure
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		code = closeErr.Code
	}
	clean := expected || code == websocket.CloseNormalClosure || code == websocket.CloseGoingAway

	c.log.Info().Int("code", code).Bool("clean", clean).Err(err).Msg("Gateway connection closed")
	c.emit(Event{Type: EventConnectionClose, State: StateDisconnected, Code: code, Clean: clean})

	if !clean && c.store.Answering() {
		c.log.Warn().
			Dur("backoff", c.cfg.ReconnectBackoff).
			Str("request_id", requestID).
			Msg("Abnormal close mid-answer, scheduling reconnect")
		c.timers.Schedule(timerReconnect, c.cfg.ReconnectBackoff, func() {
			if rerr := c.Connect(context.Background(), requestID); rerr != nil {
				c.log.Error().Err(rerr).Msg("Reconnect failed")
			}
		})
	}
}

// Send writes one envelope. While the connection is still Connecting it polls
// for Connected in bounded ticks instead of failing immediately, and reports
// an error if the connection reaches a terminal state while waiting.
func (c *Client) Send(ctx context.Context, env protocol.Envelope) error {
	deadline := time.Now().Add(c.cfg.SendTimeout)
	for {
		switch state := c.State(); state {
		case StateConnected:
		case StateConnecting:
			if time.Now().After(deadline) {
				return ErrSendTimeout
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.SendPollInterval):
			}
			continue
		default:
			err := fmt.Errorf("cannot send in state %s: %w", state, ErrNotConnected)
			c.log.Error().Str("state", state.String()).Msg("Cannot send, connection not ready")
			c.mu.Lock()
			c.setStateLocked(StateError)
			c.mu.Unlock()
			c.emit(Event{Type: EventConnectionError, State: StateError, Message: err.Error()})
			return err
		}
		break
	}

	data, err := env.Encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.mu.Lock()
		c.setStateLocked(StateError)
		c.mu.Unlock()
		c.emit(Event{Type: EventConnectionError, State: StateError, Message: err.Error()})
		return fmt.Errorf("failed to send envelope: %w", err)
	}
	return nil
}

// Ask opens a turn: generates a fresh request id, records the question in the
// transcript, (re)connects and sends the request envelope. Returns the
// request id used.
func (c *Client) Ask(ctx context.Context, query string, cameraIDs, mcpList []string) (string, error) {
	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "gateway.turn", oteltrace.WithAttributes(
		attribute.String("request_id", requestID),
	))
	defer span.End()

	c.store.BeginQuestion(query, cameraIDs, mcpList)

	if err := c.Connect(ctx, requestID); err != nil {
		c.store.StopAnswering()
		return "", err
	}

	env, err := protocol.NewRequestEnvelope(requestID, c.sessions.SessionID(), query, cameraIDs, mcpList)
	if err != nil {
		c.store.StopAnswering()
		return "", err
	}

	if err := c.Send(ctx, env); err != nil {
		span.RecordError(err)
		c.store.StopAnswering()
		return "", err
	}
	return requestID, nil
}

// Stop is the user-triggered cancellation: stop processing frames for this
// turn and close, keeping the session. Server-side work is not cancelled.
func (c *Client) Stop() {
	c.DisconnectKeepSession()
	c.store.StopAnswering()
}

// closeConnLocked performs the non-blocking client-initiated close of the
// current connection. Callers hold c.mu.
func (c *Client) closeConnLocked(code int, reason string) {
	if c.conn == nil {
		return
	}
	c.expectClose = true
	msg := websocket.FormatCloseMessage(code, reason)
	deadline := time.Now().Add(time.Second)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		c.log.Debug().Err(err).Msg("Failed to write close frame")
	}
	c.conn.Close()
	c.conn = nil
}

// Disconnect is the explicit clean close taken on user logout/reset: all
// timers cleared, state back to Disconnected.
func (c *Client) Disconnect() {
	c.timers.CancelAll()
	c.mu.Lock()
	c.generation++ // invalidate the read loop
	c.closeConnLocked(websocket.CloseNormalClosure, closeReasonUserDisconnect)
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()
}

// DisconnectKeepSession closes the transport after normal turn completion.
// Unlike Disconnect it retains the session id so the next request resumes the
// conversation, and it leaves the answering flag alone.
func (c *Client) DisconnectKeepSession() {
	c.timers.Cancel(timerReconnect)
	c.mu.Lock()
	c.generation++
	c.closeConnLocked(websocket.CloseNormalClosure, closeReasonKeepSession)
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()
}

// ResetSession disconnects and clears both the persisted session id and the
// current request id.
func (c *Client) ResetSession() error {
	c.Disconnect()
	c.mu.Lock()
	c.requestID = ""
	c.mu.Unlock()
	return c.sessions.ResetSession()
}

// Close tears the client down for good.
func (c *Client) Close() {
	c.Disconnect()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
