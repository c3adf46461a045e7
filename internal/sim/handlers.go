// Copyright (C) 2026 Hearth
// SPDX-License-Identifier: AGPL-3.0-or-later

package sim

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/hearth-home/hearth/internal/api"
	"github.com/hearth-home/hearth/internal/history"
)

// Handlers serves the REST collaborator endpoints. Devices, actions, rules,
// models, MCP services, and settings live in memory and reset on restart;
// chat history is read from the persistent history store.
type Handlers struct {
	history *history.Store

	mu       sync.RWMutex
	devices  []api.Device
	actions  []api.Action
	rules    []api.Rule
	models   []api.Model
	mcp      []api.McpService
	settings api.Settings
}

// NewHandlers creates the handler set with seed fixtures.
func NewHandlers(hist *history.Store) *Handlers {
	return &Handlers{
		history: hist,
		devices: []api.Device{
			{ID: "cam-front", Name: "Front Door Camera", Type: "camera", Room: "entrance", Online: true},
			{ID: "cam-garden", Name: "Garden Camera", Type: "camera", Room: "garden", Online: true},
			{ID: "light-living", Name: "Living Room Light", Type: "light", Room: "living room", Online: true},
			{ID: "sensor-hall", Name: "Hallway Motion Sensor", Type: "sensor", Room: "hallway", Online: false},
		},
		actions: []api.Action{
			{ID: "scene-evening", Name: "Evening Scene", Kind: "scene"},
			{ID: "auto-away", Name: "Away Mode", Kind: "automation"},
		},
		models: []api.Model{
			{ID: "model-default", Name: "house-llm", Provider: "local", Endpoint: "http://127.0.0.1:9000", Default: true},
		},
		mcp: []api.McpService{
			{ID: "mcp-weather", Name: "weather", URL: "http://127.0.0.1:9100", Enabled: true},
		},
		settings: api.Settings{Language: "en", Theme: "dark", ModelID: "model-default"},
	}
}

// respEnvelope mirrors the wire contract the dashboard client decodes.
type respEnvelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(respEnvelope{Code: code, Message: message, Data: data}); err != nil {
		getLog().Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeOK(w http.ResponseWriter, data interface{}) {
	writeEnvelope(w, http.StatusOK, 0, "ok", data)
}

func writeError(w http.ResponseWriter, status, code int, message string) {
	writeEnvelope(w, status, code, message, nil)
}

// Login handles POST /api/v1/login. Any non-empty credentials are accepted.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		writeError(w, http.StatusOK, 1001, "invalid credentials")
		return
	}
	writeOK(w, api.LoginResponse{Token: uuid.New().String()})
}

// GetDevices handles GET /api/v1/devices
func (h *Handlers) GetDevices(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	writeOK(w, h.devices)
}

// GetActions handles GET /api/v1/actions
func (h *Handlers) GetActions(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	writeOK(w, h.actions)
}

// GetRules handles GET /api/v1/rules
func (h *Handlers) GetRules(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	writeOK(w, h.rules)
}

// CreateRule handles POST /api/v1/rules
func (h *Handlers) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rule api.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusOK, 1002, "malformed rule")
		return
	}
	rule.ID = uuid.New().String()
	rule.CreatedAt = time.Now().Unix()

	h.mu.Lock()
	h.rules = append(h.rules, rule)
	h.mu.Unlock()

	writeOK(w, rule)
}

// UpdateRule handles PUT /api/v1/rules/{id}
func (h *Handlers) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var rule api.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusOK, 1002, "malformed rule")
		return
	}
	rule.ID = id

	h.mu.Lock()
	defer h.mu.Unlock()
	_, idx, found := lo.FindIndexOf(h.rules, func(r api.Rule) bool { return r.ID == id })
	if !found {
		writeError(w, http.StatusOK, 1404, "rule not found")
		return
	}
	rule.CreatedAt = h.rules[idx].CreatedAt
	h.rules[idx] = rule
	writeOK(w, rule)
}

// DeleteRule handles DELETE /api/v1/rules/{id}
func (h *Handlers) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	before := len(h.rules)
	h.rules = lo.Filter(h.rules, func(r api.Rule, _ int) bool { return r.ID != id })
	removed := len(h.rules) < before
	h.mu.Unlock()

	if !removed {
		writeError(w, http.StatusOK, 1404, "rule not found")
		return
	}
	writeOK(w, nil)
}

// GetModels handles GET /api/v1/models
func (h *Handlers) GetModels(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	writeOK(w, h.models)
}

// CreateModel handles POST /api/v1/models
func (h *Handlers) CreateModel(w http.ResponseWriter, r *http.Request) {
	var model api.Model
	if err := json.NewDecoder(r.Body).Decode(&model); err != nil {
		writeError(w, http.StatusOK, 1002, "malformed model")
		return
	}
	model.ID = uuid.New().String()

	h.mu.Lock()
	h.models = append(h.models, model)
	h.mu.Unlock()

	writeOK(w, model)
}

// DeleteModel handles DELETE /api/v1/models/{id}
func (h *Handlers) DeleteModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	h.models = lo.Filter(h.models, func(m api.Model, _ int) bool { return m.ID != id })
	h.mu.Unlock()

	writeOK(w, nil)
}

// GetMcpServices handles GET /api/v1/mcp-services
func (h *Handlers) GetMcpServices(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	writeOK(w, h.mcp)
}

// CreateMcpService handles POST /api/v1/mcp-services
func (h *Handlers) CreateMcpService(w http.ResponseWriter, r *http.Request) {
	var svc api.McpService
	if err := json.NewDecoder(r.Body).Decode(&svc); err != nil {
		writeError(w, http.StatusOK, 1002, "malformed mcp service")
		return
	}
	svc.ID = uuid.New().String()

	h.mu.Lock()
	h.mcp = append(h.mcp, svc)
	h.mu.Unlock()

	writeOK(w, svc)
}

// DeleteMcpService handles DELETE /api/v1/mcp-services/{id}
func (h *Handlers) DeleteMcpService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	h.mcp = lo.Filter(h.mcp, func(s api.McpService, _ int) bool { return s.ID != id })
	h.mu.Unlock()

	writeOK(w, nil)
}

// GetSettings handles GET /api/v1/settings
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	writeOK(w, h.settings)
}

// UpdateSettings handles PUT /api/v1/settings
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var s api.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusOK, 1002, "malformed settings")
		return
	}

	h.mu.Lock()
	h.settings = s
	h.mu.Unlock()

	writeOK(w, s)
}

// GetHistorySessions handles GET /api/v1/history
func (h *Handlers) GetHistorySessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.history.Sessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, 1500, "failed to load history")
		return
	}

	out := make([]api.HistorySession, 0, len(sessions))
	for _, s := range sessions {
		count, err := h.history.TurnCount(r.Context(), s.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, 1500, "failed to load history")
			return
		}
		out = append(out, api.HistorySession{
			SessionID: s.ID,
			Title:     s.Title,
			UpdatedAt: s.UpdatedAt.Unix(),
			TurnCount: int(count),
		})
	}
	writeOK(w, out)
}

// GetHistoryTurns handles GET /api/v1/history/{sessionId}
func (h *Handlers) GetHistoryTurns(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	turns, err := h.history.Turns(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, 1500, "failed to load history")
		return
	}

	out := lo.Map(turns, func(t history.Turn, _ int) api.HistoryTurn {
		return api.HistoryTurn{
			Question: t.Question,
			Answer:   t.Answer,
			Success:  t.Success,
			AskedAt:  t.AskedAt.Unix(),
		}
	})
	writeOK(w, out)
}

// DeleteHistorySession handles DELETE /api/v1/history/{sessionId}
func (h *Handlers) DeleteHistorySession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	if err := h.history.DeleteSession(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, 1500, "failed to delete session")
		return
	}
	writeOK(w, nil)
}
