// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth-home/hearth/internal/protocol"
	"github.com/hearth-home/hearth/internal/transcript"
	"github.com/hearth-home/hearth/test/testutil"
)

func buildStore(t *testing.T) *transcript.Store {
	t.Helper()
	store := transcript.NewStore(zerolog.New(io.Discard))
	store.BeginQuestion("is anyone at the front door", []string{"cam-front"}, nil)
	store.Dispatch(testutil.StreamEnvelope("<reflect>checking the front"))
	store.Dispatch(testutil.StreamEnvelope(" camera</reflect>"))
	store.Dispatch(testutil.CallToolEnvelope("tool-1", "snapshot"))
	store.Dispatch(testutil.CallToolResultEnvelope("tool-1", "nobody visible", false))
	store.Dispatch(testutil.StreamEnvelope("<final_answer>No one is at the door.</final_answer>"))
	store.Dispatch(testutil.FinishEnvelope(true))
	return store
}

func TestRenderTranscript(t *testing.T) {
	t.Run("completed turn shows question, segments, and tool activity", func(t *testing.T) {
		store := buildStore(t)
		out := RenderTranscript(store.Turns(), 80)

		assert.Contains(t, out, "is anyone at the front door")
		assert.Contains(t, out, "cam-front")
		assert.Contains(t, out, "checking the front camera")
		assert.Contains(t, out, "No one is at the door.")
		assert.Contains(t, out, "snapshot")
		assert.Contains(t, out, "nobody visible")
		// Raw section tags never leak into the rendering.
		assert.NotContains(t, out, "<reflect>")
		assert.NotContains(t, out, "<final_answer>")
	})

	t.Run("building answer marks open sections", func(t *testing.T) {
		store := transcript.NewStore(zerolog.New(io.Discard))
		store.BeginQuestion("dim the lights", nil, nil)
		store.Dispatch(testutil.StreamEnvelope("<reflect>still thinking"))

		out := RenderTranscript(store.Turns(), 80)
		assert.Contains(t, out, "still thinking")
		assert.Contains(t, out, "…")
	})

	t.Run("failed turn renders a notice", func(t *testing.T) {
		store := transcript.NewStore(zerolog.New(io.Discard))
		store.BeginQuestion("open the garage", nil, nil)
		store.Dispatch(testutil.StreamEnvelope("working on it"))
		store.Dispatch(testutil.FinishEnvelope(false))

		out := RenderTranscript(store.Turns(), 80)
		assert.Contains(t, out, "failed")
	})

	t.Run("parse errors render inline", func(t *testing.T) {
		store := transcript.NewStore(zerolog.New(io.Discard))
		store.BeginQuestion("what is this", nil, nil)
		store.Dispatch(testutil.MalformedEnvelope(protocol.TypeEvent, protocol.NamespaceNlp, protocol.NameException))

		turns := store.Turns()
		require.NotEmpty(t, turns)
		out := RenderTranscript(turns, 80)
		assert.Contains(t, out, "⚠")
	})
}
