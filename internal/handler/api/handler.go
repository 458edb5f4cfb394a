// Package api exposes the one-shot request/response surface: hazard
// reports and safety timer control.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lifeline-dev/lifeline/internal/model/geo"
	"github.com/lifeline-dev/lifeline/internal/model/track"
	"github.com/lifeline-dev/lifeline/internal/service/safety"
	"github.com/lifeline-dev/lifeline/internal/service/session"
	"github.com/lifeline-dev/lifeline/pkg/utils"
)

// Handler binds the REST routes to the session coordinator.
type Handler struct {
	coordinator *session.Coordinator
}

// New creates the REST handler.
func New(coordinator *session.Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// RegisterRoutes registers the stateless action endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/report-danger", h.handleReportDanger)
	r.Post("/start-timer", h.handleStartTimer)
	r.Post("/stop-timer", h.handleStopTimer)
}

func (h *Handler) handleReportDanger(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Lat  *float64 `json:"lat"`
		Lng  *float64 `json:"lng"`
		Type string   `json:"type"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Lat == nil || payload.Lng == nil {
		utils.RespondError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}
	if payload.Type == "" {
		utils.RespondError(w, http.StatusBadRequest, "type is required")
		return
	}

	count, err := h.coordinator.ReportHazard(track.HazardZone{
		Lat:  *payload.Lat,
		Lng:  *payload.Lng,
		Type: payload.Type,
	})
	if err != nil {
		if errors.Is(err, geo.ErrInvalidCoordinates) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"status": "reported", "count": count})
}

func (h *Handler) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string  `json:"sessionId"`
		Minutes   float64 `json:"minutes"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	if err := h.coordinator.StartTimer(payload.SessionID, payload.Minutes); err != nil {
		if errors.Is(err, safety.ErrInvalidDuration) {
			utils.RespondError(w, http.StatusBadRequest, "minutes must be positive")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (h *Handler) handleStopTimer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	// "no_timer" is a result, not an error: stopping nothing is fine.
	result := h.coordinator.StopTimer(payload.SessionID)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": string(result)})
}
