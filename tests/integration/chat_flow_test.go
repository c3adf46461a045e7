// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package integration exercises the full client-to-simulator path: the
// connection manager dialing the simulator's chat endpoint, scripted frames
// flowing through the transcript store, and the turn landing in history.
package integration

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth-home/hearth/internal/config"
	"github.com/hearth-home/hearth/internal/gateway"
	"github.com/hearth-home/hearth/internal/history"
	"github.com/hearth-home/hearth/internal/sim"
	"github.com/hearth-home/hearth/internal/transcript"
)

type fixture struct {
	client   *gateway.Client
	store    *transcript.Store
	sessions *gateway.SessionStore
	history  *history.Store
}

func setup(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.New(io.Discard)

	hist, err := history.NewStore(&config.DatabaseConfig{
		Driver:   "sqlite",
		Database: filepath.Join(t.TempDir(), "history.db"),
	}, log)
	require.NoError(t, err)

	srv, err := sim.New(
		&config.ServerConfig{Host: "127.0.0.1", Port: 0},
		&config.SimConfig{FragmentDelay: time.Millisecond},
		hist,
	)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	store := transcript.NewStore(log)
	sessions, err := gateway.NewSessionStore(t.TempDir(), log)
	require.NoError(t, err)

	client := gateway.NewClient(config.GatewayConfig{
		BaseURL:          ts.URL,
		ChatPath:         "/api/v1/chat",
		HandshakeTimeout: 2 * time.Second,
		ReconnectBackoff: 50 * time.Millisecond,
		GraceDelay:       10 * time.Millisecond,
		SendPollInterval: 10 * time.Millisecond,
		SendTimeout:      2 * time.Second,
	}, store, sessions, log)
	t.Cleanup(client.Close)

	return &fixture{client: client, store: store, sessions: sessions, history: hist}
}

// waitForCompletedTurn blocks until a TurnCompleted change arrives.
func waitForCompletedTurn(t *testing.T, changes <-chan transcript.Change) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Type == transcript.TurnCompleted {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for the turn to complete")
		}
	}
}

func TestChatFlow_QuestionToCompletedTurn(t *testing.T) {
	f := setup(t)
	changes := f.store.Subscribe()

	_, err := f.client.Ask(context.Background(), "turn off the lights", nil, nil)
	require.NoError(t, err)
	waitForCompletedTurn(t, changes)

	turns := f.store.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "turn off the lights", turns[0].Question)

	answer := turns[1]
	assert.True(t, answer.Complete)
	assert.True(t, answer.Success)
	parsed := answer.Parsed()
	assert.True(t, parsed.HasStructure)
	assert.Contains(t, parsed.FinalAnswer(), "turn off the lights")

	// The simulator assigned a session id and the client adopted it.
	sessionID := f.sessions.SessionID()
	require.NotEmpty(t, sessionID)

	// The turn was persisted under that session.
	require.Eventually(t, func() bool {
		hturns, err := f.history.Turns(context.Background(), sessionID)
		return err == nil && len(hturns) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestChatFlow_SecondQuestionKeepsSession(t *testing.T) {
	f := setup(t)
	changes := f.store.Subscribe()

	_, err := f.client.Ask(context.Background(), "first question", nil, nil)
	require.NoError(t, err)
	waitForCompletedTurn(t, changes)
	sessionID := f.sessions.SessionID()
	require.NotEmpty(t, sessionID)

	_, err = f.client.Ask(context.Background(), "second question", nil, nil)
	require.NoError(t, err)
	waitForCompletedTurn(t, changes)
	assert.Equal(t, sessionID, f.sessions.SessionID())

	// Both turns grouped under one history session.
	require.Eventually(t, func() bool {
		sessions, err := f.history.Sessions(context.Background())
		return err == nil && len(sessions) == 1
	}, 2*time.Second, 20*time.Millisecond)
	count, err := f.history.TurnCount(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestChatFlow_ResetSessionStartsFresh(t *testing.T) {
	f := setup(t)
	changes := f.store.Subscribe()

	_, err := f.client.Ask(context.Background(), "hello", nil, nil)
	require.NoError(t, err)
	waitForCompletedTurn(t, changes)
	first := f.sessions.SessionID()
	require.NotEmpty(t, first)

	require.NoError(t, f.client.ResetSession())
	assert.Empty(t, f.sessions.SessionID())

	_, err = f.client.Ask(context.Background(), "hello again", nil, nil)
	require.NoError(t, err)
	waitForCompletedTurn(t, changes)
	second := f.sessions.SessionID()
	require.NotEmpty(t, second)
	assert.NotEqual(t, first, second)
}
