// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package sim

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth-home/hearth/internal/api"
	"github.com/hearth-home/hearth/internal/config"
	"github.com/hearth-home/hearth/internal/history"
	"github.com/hearth-home/hearth/internal/protocol"
	"github.com/hearth-home/hearth/internal/stream"
)

func newTestServer(t *testing.T, scenarioFile string) (*httptest.Server, *history.Store) {
	t.Helper()
	hist, err := history.NewStore(&config.DatabaseConfig{
		Driver:   "sqlite",
		Database: filepath.Join(t.TempDir(), "history.db"),
	}, zerolog.New(io.Discard))
	require.NoError(t, err)

	srv, err := New(
		&config.ServerConfig{Host: "127.0.0.1", Port: 0},
		&config.SimConfig{ScenarioFile: scenarioFile, FragmentDelay: 0},
		hist,
	)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, hist
}

func TestBook_PickMatchesSubstringCaseInsensitive(t *testing.T) {
	yes := true
	book := &Book{Scenarios: []Scenario{
		{Match: "Camera", Success: &yes, Steps: []Step{{Stream: "<final_answer>front door</final_answer>"}}},
	}}

	sc := book.Pick("show me the CAMERA feed")
	require.Len(t, sc.Steps, 1)
	assert.Contains(t, sc.Steps[0].Stream, "front door")

	// No match falls back to the echo scenario.
	echo := book.Pick("unrelated")
	require.Len(t, echo.Steps, 2)
	assert.Contains(t, echo.Steps[1].Stream, "unrelated")
}

func TestLoadBook(t *testing.T) {
	t.Run("empty path yields empty book", func(t *testing.T) {
		book, err := LoadBook("")
		require.NoError(t, err)
		assert.Empty(t, book.Scenarios)
	})

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "scenarios.yaml")
		content := `scenarios:
  - match: weather
    steps:
      - stream: "<final_answer>sunny</final_answer>"
      - tool:
          name: get_weather
          result: "22C"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		book, err := LoadBook(path)
		require.NoError(t, err)
		require.Len(t, book.Scenarios, 1)
		assert.Equal(t, "weather", book.Scenarios[0].Match)
		require.Len(t, book.Scenarios[0].Steps, 2)
		assert.Equal(t, "get_weather", book.Scenarios[0].Steps[1].Tool.Name)
	})

	t.Run("scenario without match rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "scenarios.yaml")
		require.NoError(t, os.WriteFile(path, []byte("scenarios:\n  - steps: []\n"), 0o600))

		_, err := LoadBook(path)
		assert.Error(t, err)
	})
}

func TestRESTCollaborators(t *testing.T) {
	ts, _ := newTestServer(t, "")
	ctx := context.Background()
	client, err := api.NewClient(ts.URL, zerolog.New(io.Discard))
	require.NoError(t, err)

	t.Run("login succeeds with any non-empty credentials", func(t *testing.T) {
		require.NoError(t, client.Login(ctx, "dev", "dev"))
	})

	t.Run("cameras filters device types", func(t *testing.T) {
		cameras, err := client.Cameras(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, cameras)
		for _, c := range cameras {
			assert.Equal(t, "camera", c.Type)
		}
	})

	t.Run("rule lifecycle", func(t *testing.T) {
		created, err := client.CreateRule(ctx, api.Rule{Name: "night lights", Enabled: true})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)

		rules, err := client.Rules(ctx)
		require.NoError(t, err)
		assert.Len(t, rules, 1)

		require.NoError(t, client.DeleteRule(ctx, created.ID))
		err = client.DeleteRule(ctx, created.ID)
		var apiErr *api.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 1404, apiErr.Code)
	})

	t.Run("settings roundtrip", func(t *testing.T) {
		require.NoError(t, client.UpdateSettings(ctx, api.Settings{Language: "de", Theme: "light"}))
		got, err := client.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, "de", got.Language)
	})
}

// readUntilFinish collects frames from the chat channel until FinishChat.
func readUntilFinish(t *testing.T, conn *websocket.Conn) []protocol.Envelope {
	t.Helper()
	var envs []protocol.Envelope
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		env, err := protocol.DecodeEnvelope(data)
		require.NoError(t, err)
		envs = append(envs, env)
		if env.Kind() == protocol.KindFinishChat {
			return envs
		}
	}
}

func TestChatChannel_EchoTurn(t *testing.T) {
	ts, hist := newTestServer(t, "")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/chat?request_id=req-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	req, err := protocol.NewRequestEnvelope("req-1", "", "turn off the lights", nil, nil)
	require.NoError(t, err)
	data, err := req.Encode()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

	envs := readUntilFinish(t, conn)
	require.GreaterOrEqual(t, len(envs), 2)

	// Every frame echoes the request id and carries the assigned session id.
	sessionID := envs[0].Header.SessionID
	require.NotEmpty(t, sessionID)
	var buffer string
	for _, env := range envs {
		assert.Equal(t, "req-1", env.Header.RequestID)
		assert.Equal(t, sessionID, env.Header.SessionID)
		if env.Kind() == protocol.KindToastStream {
			frag, err := env.StreamFragment()
			require.NoError(t, err)
			buffer = stream.Accumulate(buffer, frag)
		}
	}

	parsed := stream.Parse(buffer)
	require.True(t, parsed.HasStructure)
	assert.Contains(t, parsed.FinalAnswer(), "turn off the lights")

	var finish protocol.FinishPayload
	require.NoError(t, envs[len(envs)-1].DecodePayload(&finish))
	assert.True(t, finish.Success)

	// The turn lands in history under the assigned session.
	var turns []history.Turn
	require.Eventually(t, func() bool {
		var err error
		turns, err = hist.Turns(context.Background(), sessionID)
		return err == nil && len(turns) == 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, "turn off the lights", turns[0].Question)
	assert.Contains(t, turns[0].Answer, "turn off the lights")
}

func TestChatChannel_ScriptedScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	content := `scenarios:
  - match: garden
    steps:
      - stream: "<reflect>checking the garden camera</reflect>"
      - tool:
          id: tool-1
          name: snapshot
          result: ok
      - cameras:
          - camera_id: cam-garden
            url: http://example.test/garden.jpg
      - stream: "<final_answer>all quiet outside</final_answer>"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	ts, _ := newTestServer(t, path)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/chat?request_id=req-2&session_id=sess-keep"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	req, err := protocol.NewRequestEnvelope("req-2", "sess-keep", "what is happening in the garden", nil, nil)
	require.NoError(t, err)
	data, err := req.Encode()
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

	envs := readUntilFinish(t, conn)

	kinds := make(map[protocol.Kind]int)
	for _, env := range envs {
		assert.Equal(t, "sess-keep", env.Header.SessionID)
		kinds[env.Kind()]++
	}
	assert.Equal(t, 1, kinds[protocol.KindCallTool])
	assert.Equal(t, 1, kinds[protocol.KindCallToolResult])
	assert.Equal(t, 1, kinds[protocol.KindCameraImages])
	assert.Equal(t, 1, kinds[protocol.KindFinishChat])
	assert.Greater(t, kinds[protocol.KindToastStream], 1, "stream text should arrive in multiple fragments")
}
