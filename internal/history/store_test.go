// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth-home/hearth/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Driver:   "sqlite",
		Database: filepath.Join(t.TempDir(), "history.db"),
	}
	s, err := NewStore(cfg, zerolog.New(io.Discard))
	require.NoError(t, err)
	return s
}

func TestStore_RecordAndListTurns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordTurn(ctx, "sess-1", "turn off lights", "done", true))
	require.NoError(t, s.RecordTurn(ctx, "sess-1", "and the heating", "heating off", true))
	require.NoError(t, s.RecordTurn(ctx, "sess-2", "hello", "hi", true))

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	turns, err := s.Turns(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "turn off lights", turns[0].Question)
	assert.Equal(t, "and the heating", turns[1].Question)

	count, err := s.TurnCount(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestStore_SessionTitleFromFirstQuestion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordTurn(ctx, "sess-1", "first question", "a", true))
	require.NoError(t, s.RecordTurn(ctx, "sess-1", "second question", "b", false))

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "first question", sessions[0].Title)
}

func TestStore_LongTitleTruncatesOnRuneBoundary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	question := strings.Repeat("ü", 100)
	require.NoError(t, s.RecordTurn(ctx, "sess-1", question, "a", true))

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, strings.Repeat("ü", 80), sessions[0].Title)
	assert.True(t, utf8.ValidString(sessions[0].Title))
}

func TestStore_DeleteSessionRemovesTurns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordTurn(ctx, "sess-1", "q", "a", true))
	require.NoError(t, s.DeleteSession(ctx, "sess-1"))

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	turns, err := s.Turns(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}
