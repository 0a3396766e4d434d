package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openav/stormbridge/internal/bridge"
	"github.com/openav/stormbridge/internal/infrastructure/mqtt"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// maxQueryParamLen bounds user-supplied path and query values.
	maxQueryParamLen = 64
)

// topics provides MQTT topic construction for command publication.
var topics mqtt.Topics

// validEntities is the set of entity names the bridge publishes.
var validEntities = map[string]struct{}{
	mqtt.EntityPlayer:      {},
	mqtt.EntityVolume:      {},
	mqtt.EntitySource:      {},
	mqtt.EntitySourceZone2: {},
	mqtt.EntityPreset:      {},
	mqtt.EntityMute:        {},
}

// commandRequest is the request body for POST /entities/{entity}/command.
type commandRequest struct {
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// handleStatus returns the current published state of every entity plus
// bridge connectivity.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	metrics := s.bridge.GetMetrics()

	writeJSON(w, http.StatusOK, map[string]any{
		"connected": metrics.Connected,
		"ready":     metrics.Ready,
		"status":    metrics.Status,
		"entities":  s.bridge.CurrentState(),
	})
}

// handleGetEntity returns the current published state for a single entity.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	if _, ok := validEntities[entity]; !ok {
		writeNotFound(w, "unknown entity")
		return
	}

	state, ok := s.bridge.CurrentState()[entity]
	if !ok {
		// Entity is valid but the bridge has not published it yet
		// (processor never connected).
		state = map[string]any{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entity": entity,
		"state":  state,
	})
}

// handleGetEntityHistory returns recent state history entries for an entity.
func (s *Server) handleGetEntityHistory(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	if _, ok := validEntities[entity]; !ok {
		writeNotFound(w, "unknown entity")
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if s.history == nil {
		writeUnavailable(w, "state history unavailable")
		return
	}

	entries, err := s.history.Recent(r.Context(), entity, limit)
	if err != nil {
		writeInternalError(w, "failed to load entity history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entity":  entity,
		"history": entries,
		"count":   len(entries),
	})
}

// handleEntityCommand publishes a command to the entity's command topic.
//
// The command is delivered to the bridge over MQTT like any other
// controller command; the acknowledgment arrives asynchronously on the
// ack topic, so this endpoint returns 202 Accepted with the command ID.
func (s *Server) handleEntityCommand(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	if _, ok := validEntities[entity]; !ok {
		writeNotFound(w, "unknown entity")
		return
	}

	if s.mqtt == nil {
		writeUnavailable(w, "command publication unavailable")
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" || len(req.Command) > maxQueryParamLen {
		writeBadRequest(w, "command is required")
		return
	}

	cmd := bridge.CommandMessage{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Command:    req.Command,
		Parameters: req.Parameters,
		Source:     "api",
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		writeInternalError(w, "failed to encode command")
		return
	}

	topic := topics.EntityCommand(entity)
	if err := s.mqtt.Publish(topic, payload, 1, false); err != nil {
		s.logger.Error("command publish failed", "entity", entity, "error", err)
		writeUnavailable(w, "command publication failed")
		return
	}

	s.logger.Info("command published", "entity", entity, "command", req.Command, "command_id", cmd.ID)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"command_id": cmd.ID,
		"entity":     entity,
		"ack_topic":  topics.EntityAck(entity),
	})
}

// parseHistoryLimit parses the limit query parameter with bounds enforcement.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}

	return limit, nil
}
