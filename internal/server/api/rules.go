package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/lookout/internal/store"
)

// RuleHandler handles HTTP requests for alert-rule resources.
type RuleHandler struct {
	store *store.Store
}

// NewRuleHandler creates a new RuleHandler with the given store.
func NewRuleHandler(s *store.Store) *RuleHandler {
	return &RuleHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *RuleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/rules or /api/rules/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/rules")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		// Collection endpoint: /api/rules
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	// Item endpoint: /api/rules/{id}
	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type createRuleRequest struct {
	ClassName       string          `json:"class_name"`
	MinConfidence   float64         `json:"min_confidence"`
	PluginName      string          `json:"plugin_name"`
	ActionName      string          `json:"action_name"`
	Config          json.RawMessage `json:"config"`
	CooldownSeconds int             `json:"cooldown_seconds"`
}

type updateRuleRequest struct {
	ClassName       string          `json:"class_name"`
	MinConfidence   *float64        `json:"min_confidence"`
	PluginName      string          `json:"plugin_name"`
	ActionName      string          `json:"action_name"`
	Config          json.RawMessage `json:"config"`
	CooldownSeconds *int            `json:"cooldown_seconds"`
	Enabled         *bool           `json:"enabled"`
}

type ruleResponse struct {
	ID              string          `json:"id"`
	ClassName       string          `json:"class_name"`
	MinConfidence   float64         `json:"min_confidence"`
	PluginName      string          `json:"plugin_name"`
	ActionName      string          `json:"action_name"`
	Config          json.RawMessage `json:"config"`
	CooldownSeconds int             `json:"cooldown_seconds"`
	Enabled         bool            `json:"enabled"`
	CreatedAt       string          `json:"created_at"`
}

type listRulesResponse struct {
	Rules []ruleResponse `json:"rules"`
}

// toRuleResponse converts a store.Rule to a ruleResponse.
func toRuleResponse(rule *store.Rule) ruleResponse {
	config := rule.Config
	if config == nil {
		config = json.RawMessage("{}")
	}
	return ruleResponse{
		ID:              rule.ID,
		ClassName:       rule.ClassName,
		MinConfidence:   rule.MinConfidence,
		PluginName:      rule.PluginName,
		ActionName:      rule.ActionName,
		Config:          config,
		CooldownSeconds: rule.CooldownSeconds,
		Enabled:         rule.Enabled,
		CreatedAt:       rule.CreatedAt.Format(timeFormat),
	}
}

// list handles GET /api/rules and returns all rules.
func (h *RuleHandler) list(w http.ResponseWriter, r *http.Request) {
	rules, err := h.store.Rules().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rules")
		return
	}

	response := listRulesResponse{
		Rules: make([]ruleResponse, 0, len(rules)),
	}
	for _, rule := range rules {
		response.Rules = append(response.Rules, toRuleResponse(rule))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/rules/{id} and returns a single rule.
func (h *RuleHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rule, err := h.store.Rules().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get rule")
		return
	}

	writeJSON(w, http.StatusOK, toRuleResponse(rule))
}

// create handles POST /api/rules and creates a new rule.
func (h *RuleHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate required fields
	if req.ClassName == "" {
		writeError(w, http.StatusBadRequest, "class_name is required")
		return
	}
	if req.PluginName == "" {
		writeError(w, http.StatusBadRequest, "plugin_name is required")
		return
	}
	if req.ActionName == "" {
		writeError(w, http.StatusBadRequest, "action_name is required")
		return
	}
	if req.MinConfidence < 0 || req.MinConfidence > 1 {
		writeError(w, http.StatusBadRequest, "min_confidence must be between 0 and 1")
		return
	}
	if req.CooldownSeconds < 0 {
		writeError(w, http.StatusBadRequest, "cooldown_seconds must not be negative")
		return
	}

	config := req.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	rule := &store.Rule{
		ID:              uuid.New().String(),
		ClassName:       req.ClassName,
		MinConfidence:   req.MinConfidence,
		PluginName:      req.PluginName,
		ActionName:      req.ActionName,
		Config:          config,
		CooldownSeconds: req.CooldownSeconds,
		Enabled:         true,
	}

	if err := h.store.Rules().Create(rule); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create rule")
		return
	}

	writeJSON(w, http.StatusCreated, toRuleResponse(rule))
}

// update handles PUT /api/rules/{id} and updates an existing rule.
func (h *RuleHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	// First, get the existing rule
	rule, err := h.store.Rules().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get rule")
		return
	}

	var req updateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Update fields if provided
	if req.ClassName != "" {
		rule.ClassName = req.ClassName
	}
	if req.MinConfidence != nil {
		if *req.MinConfidence < 0 || *req.MinConfidence > 1 {
			writeError(w, http.StatusBadRequest, "min_confidence must be between 0 and 1")
			return
		}
		rule.MinConfidence = *req.MinConfidence
	}
	if req.PluginName != "" {
		rule.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		rule.ActionName = req.ActionName
	}
	if req.Config != nil {
		rule.Config = req.Config
	}
	if req.CooldownSeconds != nil {
		if *req.CooldownSeconds < 0 {
			writeError(w, http.StatusBadRequest, "cooldown_seconds must not be negative")
			return
		}
		rule.CooldownSeconds = *req.CooldownSeconds
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := h.store.Rules().Update(rule); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update rule")
		return
	}

	writeJSON(w, http.StatusOK, toRuleResponse(rule))
}

// delete handles DELETE /api/rules/{id} and removes a rule.
func (h *RuleHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Rules().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete rule")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
