// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the thin typed client for the gateway's REST collaborators.
// These endpoints are external services with a fixed contract: every response
// is a {code, message, data} envelope where a non-zero code is an
// application-level failure, distinct from a transport failure.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// APIError is an application-level failure reported by a collaborator
// (code != 0). Transport failures are returned as plain wrapped errors.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// Client calls the gateway's REST endpoints under the base API prefix.
type Client struct {
	base  *url.URL
	http  *http.Client
	token string
	log   zerolog.Logger
}

// NewClient creates a REST client for the given base URL.
func NewClient(baseURL string, log zerolog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api base URL: %w", err)
	}
	return &Client{
		base: u,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log,
	}, nil
}

// SetToken installs the bearer token obtained from Login.
func (c *Client) SetToken(token string) {
	c.token = token
}

// do performs one request and decodes the response envelope's data into out
// (out may be nil for calls with no interesting data).
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	if env.Code != 0 {
		c.log.Warn().Int("code", env.Code).Str("path", path).Str("message", env.Message).Msg("API call failed")
		return &APIError{Code: env.Code, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode %s data: %w", path, err)
		}
	}
	return nil
}

// Login authenticates and installs the returned token on the client.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/login", LoginRequest{Username: username, Password: password}, &resp); err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

// Devices lists the gateway's known devices.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var out []Device
	err := c.do(ctx, http.MethodGet, "/api/v1/devices", nil, &out)
	return out, err
}

// Cameras lists camera devices only; their ids populate a request's
// camera_ids capability list.
func (c *Client) Cameras(ctx context.Context) ([]Device, error) {
	devices, err := c.Devices(ctx)
	if err != nil {
		return nil, err
	}
	cameras := devices[:0:0]
	for _, d := range devices {
		if d.Type == "camera" {
			cameras = append(cameras, d)
		}
	}
	return cameras, nil
}

// Actions lists scene/automation actions.
func (c *Client) Actions(ctx context.Context) ([]Action, error) {
	var out []Action
	err := c.do(ctx, http.MethodGet, "/api/v1/actions", nil, &out)
	return out, err
}

// Rules lists automation rules.
func (c *Client) Rules(ctx context.Context) ([]Rule, error) {
	var out []Rule
	err := c.do(ctx, http.MethodGet, "/api/v1/rules", nil, &out)
	return out, err
}

// CreateRule creates a rule and returns it with its assigned id.
func (c *Client) CreateRule(ctx context.Context, rule Rule) (Rule, error) {
	var out Rule
	err := c.do(ctx, http.MethodPost, "/api/v1/rules", rule, &out)
	return out, err
}

// UpdateRule replaces a rule.
func (c *Client) UpdateRule(ctx context.Context, rule Rule) error {
	return c.do(ctx, http.MethodPut, "/api/v1/rules/"+url.PathEscape(rule.ID), rule, nil)
}

// DeleteRule removes a rule.
func (c *Client) DeleteRule(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/rules/"+url.PathEscape(id), nil, nil)
}

// Models lists configured model backends.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	var out []Model
	err := c.do(ctx, http.MethodGet, "/api/v1/models", nil, &out)
	return out, err
}

// CreateModel adds a model backend.
func (c *Client) CreateModel(ctx context.Context, model Model) (Model, error) {
	var out Model
	err := c.do(ctx, http.MethodPost, "/api/v1/models", model, &out)
	return out, err
}

// DeleteModel removes a model backend.
func (c *Client) DeleteModel(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/models/"+url.PathEscape(id), nil, nil)
}

// McpServices lists configured MCP services.
func (c *Client) McpServices(ctx context.Context) ([]McpService, error) {
	var out []McpService
	err := c.do(ctx, http.MethodGet, "/api/v1/mcp-services", nil, &out)
	return out, err
}

// CreateMcpService adds an MCP service.
func (c *Client) CreateMcpService(ctx context.Context, svc McpService) (McpService, error) {
	var out McpService
	err := c.do(ctx, http.MethodPost, "/api/v1/mcp-services", svc, &out)
	return out, err
}

// DeleteMcpService removes an MCP service.
func (c *Client) DeleteMcpService(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/mcp-services/"+url.PathEscape(id), nil, nil)
}

// HistorySessions lists persisted conversation sessions.
func (c *Client) HistorySessions(ctx context.Context) ([]HistorySession, error) {
	var out []HistorySession
	err := c.do(ctx, http.MethodGet, "/api/v1/history", nil, &out)
	return out, err
}

// HistoryTurns loads the persisted turns of one session.
func (c *Client) HistoryTurns(ctx context.Context, sessionID string) ([]HistoryTurn, error) {
	var out []HistoryTurn
	err := c.do(ctx, http.MethodGet, "/api/v1/history/"+url.PathEscape(sessionID), nil, &out)
	return out, err
}

// DeleteHistory removes a persisted session.
func (c *Client) DeleteHistory(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/history/"+url.PathEscape(sessionID), nil, nil)
}

// GetSettings fetches the gateway settings document.
func (c *Client) GetSettings(ctx context.Context) (Settings, error) {
	var out Settings
	err := c.do(ctx, http.MethodGet, "/api/v1/settings", nil, &out)
	return out, err
}

// UpdateSettings replaces the gateway settings document.
func (c *Client) UpdateSettings(ctx context.Context, s Settings) error {
	return c.do(ctx, http.MethodPut, "/api/v1/settings", s, nil)
}
