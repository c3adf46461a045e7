// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sim is a standalone gateway simulator for local development. It
// serves the chat WebSocket and the REST collaborator endpoints so the
// dashboard can be exercised without real smart-home hardware.
package sim

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/hearth-home/hearth/internal/logger"
	"github.com/hearth-home/hearth/internal/protocol"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetSimLogger()
		log = &l
	})
	return log
}

// ToolStep scripts a CallTool/CallToolResult pair emitted mid-answer.
type ToolStep struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Arguments string `yaml:"arguments"`
	Result    string `yaml:"result"`
	IsError   bool   `yaml:"is_error"`
}

// ExceptionStep scripts an in-band application error.
type ExceptionStep struct {
	Code    int    `yaml:"code"`
	Message string `yaml:"message"`
}

// RuleStep scripts a rule confirmation, optionally followed by a saved result.
type RuleStep struct {
	Rule          string                `yaml:"rule"` // raw JSON rule document
	CameraOptions []protocol.RuleOption `yaml:"camera_options"`
	ActionOptions []protocol.RuleOption `yaml:"action_options"`
	// SendResult emits a SaveRuleConfirmResult after the confirm, simulating
	// the gateway persisting the rule.
	SendResult       bool `yaml:"send_result"`
	ResultHasOptions bool `yaml:"result_has_options"`
}

// Step is one scripted frame (or frame pair) of a scenario. Exactly one
// field should be set per step; Stream text is split into small fragments so
// clients see tag boundaries crossing frame boundaries.
type Step struct {
	Stream    string                     `yaml:"stream,omitempty"`
	Tool      *ToolStep                  `yaml:"tool,omitempty"`
	Cameras   []protocol.CameraImage     `yaml:"cameras,omitempty"`
	Rule      *RuleStep                  `yaml:"rule,omitempty"`
	Exception *ExceptionStep             `yaml:"exception,omitempty"`
	Actions   []protocol.GeneratedAction `yaml:"actions,omitempty"`
}

// Scenario is one scripted reply, selected by substring match on the query.
type Scenario struct {
	Match   string `yaml:"match"`
	Success *bool  `yaml:"success,omitempty"` // nil = true
	Steps   []Step `yaml:"steps"`
}

// Book holds every loaded scenario plus the built-in fallback.
type Book struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadBook reads a scenario file. An empty path yields an empty book, which
// makes every query fall through to the echo scenario.
func LoadBook(path string) (*Book, error) {
	if path == "" {
		return &Book{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	var book Book
	if err := yaml.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("parse scenario file %s: %w", path, err)
	}
	for i, sc := range book.Scenarios {
		if sc.Match == "" {
			return nil, fmt.Errorf("scenario %d has no match string", i)
		}
	}
	getLog().Info().Int("scenarios", len(book.Scenarios)).Str("file", path).Msg("Loaded scenario book")
	return &book, nil
}

// Pick returns the first scenario whose match string appears in the query
// (case-insensitive), or the echo scenario when nothing matches.
func (b *Book) Pick(query string) Scenario {
	q := strings.ToLower(query)
	for _, sc := range b.Scenarios {
		if strings.Contains(q, strings.ToLower(sc.Match)) {
			return sc
		}
	}
	return echoScenario(query)
}

// echoScenario is the default reply: a short reflection followed by a final
// answer repeating the query.
func echoScenario(query string) Scenario {
	return Scenario{
		Match: "",
		Steps: []Step{
			{Stream: "<reflect>considering the request: " + query + "</reflect>"},
			{Stream: "<final_answer>You asked: " + query + "</final_answer>"},
		},
	}
}

func (s Scenario) success() bool {
	return s.Success == nil || *s.Success
}
