/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/eir_schedule/internal/cache"
	"github.com/friendsincode/eir_schedule/internal/logbuffer"
	"github.com/friendsincode/eir_schedule/internal/models"
	"github.com/friendsincode/eir_schedule/internal/predictor"
	"github.com/friendsincode/eir_schedule/internal/schedule"
	"github.com/friendsincode/eir_schedule/internal/scheduling"
	"github.com/friendsincode/eir_schedule/internal/version"
)

// API exposes HTTP handlers.
type API struct {
	schedule  *schedule.Service
	predictor predictor.Gateway
	ws        http.Handler
	cache     *cache.Cache
	logBuffer *logbuffer.Buffer
	updates   *version.Checker
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(scheduleSvc *schedule.Service, gateway predictor.Gateway, ws http.Handler, c *cache.Cache, logBuf *logbuffer.Buffer, updates *version.Checker, logger zerolog.Logger) *API {
	return &API{
		schedule:  scheduleSvc,
		predictor: gateway,
		ws:        ws,
		cache:     c,
		logBuffer: logBuf,
		updates:   updates,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts all endpoints on the router.
func (a *API) Routes(r chi.Router) {
	// Schedule surface, root level for the board clients
	r.Get("/surgeries", a.handleScheduleGet)
	r.Post("/surgeries", a.handleScheduleUpdate)
	r.Get("/delay_prediction", a.handleDelayPrediction)
	r.Get("/complication_risk", a.handleComplicationRisk)
	if a.ws != nil {
		r.Get("/ws", a.ws.ServeHTTP)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Get("/admin/logs", a.handleAdminLogs)
	})
}

// surgeryUpdateRequest is the POST /surgeries body. Pointer fields
// distinguish "absent" from zero values.
type surgeryUpdateRequest struct {
	ID            *string `json:"id"`
	Title         *string `json:"title"`
	StartTime     *string `json:"startTime"`
	EndTime       *string `json:"endTime"`
	OriginalStart *string `json:"originalStart"`
	OriginalEnd   *string `json:"originalEnd"`
	DelayDuration *int    `json:"delayDuration"`
	DelayReason   *string `json:"delayReason"`
	Status        *string `json:"status"`
}

func (req *surgeryUpdateRequest) toBlock() models.SurgeryBlock {
	b := models.SurgeryBlock{}
	if req.ID != nil {
		b.ID = *req.ID
	}
	if req.Title != nil {
		b.Title = *req.Title
	}
	if req.StartTime != nil {
		b.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		b.EndTime = *req.EndTime
	}
	if req.OriginalStart != nil {
		b.OriginalStart = *req.OriginalStart
	}
	if req.OriginalEnd != nil {
		b.OriginalEnd = *req.OriginalEnd
	}
	if req.DelayDuration != nil {
		b.DelayDuration = *req.DelayDuration
	}
	if req.DelayReason != nil {
		b.DelayReason = *req.DelayReason
	}
	if req.Status != nil {
		b.Status = models.BlockStatus(*req.Status)
	}
	return b
}

func (a *API) handleScheduleGet(w http.ResponseWriter, r *http.Request) {
	blocks, err := a.schedule.Schedule(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("schedule read failed")
		writeError(w, http.StatusInternalServerError, "schedule_read_failed")
		return
	}
	writeJSON(w, http.StatusOK, blocks)
}

func (a *API) handleScheduleUpdate(w http.ResponseWriter, r *http.Request) {
	var req surgeryUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_body")
		return
	}
	if req.ID == nil || *req.ID == "" {
		writeError(w, http.StatusBadRequest, "missing_id")
		return
	}

	blocks, warnings, err := a.schedule.ApplyUpdate(r.Context(), req.toBlock())
	if err != nil {
		switch {
		case errors.Is(err, scheduling.ErrMissingID):
			writeError(w, http.StatusBadRequest, "missing_id")
		case errors.Is(err, scheduling.ErrInvalidUpdate):
			a.logger.Warn().Err(err).Str("block_id", *req.ID).Msg("update rejected")
			writeError(w, http.StatusBadRequest, "invalid_update")
		default:
			// read or persist failure, not the client's fault
			a.logger.Error().Err(err).Str("block_id", *req.ID).Msg("schedule update failed")
			writeError(w, http.StatusInternalServerError, "schedule_write_failed")
		}
		return
	}

	for _, v := range warnings {
		a.logger.Warn().Str("block_id", v.BlockID).Msg(v.Message)
	}
	writeJSON(w, http.StatusOK, blocks)
}

func (a *API) handleDelayPrediction(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.predictor.PredictDelay(r.Context()))
}

func (a *API) handleComplicationRisk(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.predictor.PredictComplicationRisk(r.Context()))
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":  "ok",
		"version": version.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}
	if a.cache != nil {
		status["cache"] = a.cache.IsAvailable()
	}
	if a.updates != nil {
		if info := a.updates.Info(); info.UpdateAvailable {
			status["latest_version"] = info.LatestVersion
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) handleAdminLogs(w http.ResponseWriter, r *http.Request) {
	if a.logBuffer == nil {
		writeJSON(w, http.StatusOK, []logbuffer.LogEntry{})
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries := a.logBuffer.Query(logbuffer.QueryParams{
		Level:      r.URL.Query().Get("level"),
		Component:  r.URL.Query().Get("component"),
		Search:     r.URL.Query().Get("q"),
		Limit:      limit,
		Descending: true,
	})
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
