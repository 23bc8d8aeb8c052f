package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/user/headline-scraper/internal/delivery/http/request"
	"github.com/user/headline-scraper/internal/delivery/http/response"
	"github.com/user/headline-scraper/internal/entity"
	"github.com/user/headline-scraper/internal/repository"
	"github.com/user/headline-scraper/internal/usecase"
	"go.uber.org/zap"
)

const (
	defaultHeadlineLimit = 50
	maxHeadlineLimit     = 1000
)

// RunController starts runs and reports the latest one.
type RunController interface {
	Start(ctx context.Context, opts usecase.RunOptions) error
	Latest() *entity.RunResult
}

type Handler struct {
	runs      RunController
	headlines repository.HeadlineRepository // nil when PostgreSQL is not configured
	runCtx    context.Context
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewHandler creates a Handler. Background runs are started with runCtx so that they
// outlive the triggering request but stop on server shutdown.
func NewHandler(runCtx context.Context, runs RunController, headlines repository.HeadlineRepository, logger *zap.Logger) *Handler {
	return &Handler{
		runs:      runs,
		headlines: headlines,
		runCtx:    runCtx,
		validate:  validator.New(),
		logger:    logger,
	}
}

func (h *Handler) HandleTriggerRun(w http.ResponseWriter, r *http.Request) {
	var req request.TriggerRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeJSONError(w, "Invalid run parameters: "+err.Error(), http.StatusBadRequest)
		return
	}

	err := h.runs.Start(h.runCtx, usecase.RunOptions{
		Pages:            req.Pages,
		HeadlinesPerPage: req.HeadlinesPerPage,
		Recipient:        req.Recipient,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrRunInProgress) {
			h.writeJSONError(w, err.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("Failed to start run", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, response.TriggerRunResponse{
		Status:  "accepted",
		Message: "Scrape run started",
	})
}

func (h *Handler) HandleLatestRun(w http.ResponseWriter, r *http.Request) {
	run := h.runs.Latest()
	if run == nil {
		h.writeJSONError(w, "No run has completed yet", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewRunResponse(run))
}

func (h *Handler) HandleRecentHeadlines(w http.ResponseWriter, r *http.Request) {
	if h.headlines == nil {
		h.writeJSONError(w, "Headline storage is not configured", http.StatusServiceUnavailable)
		return
	}

	limit := defaultHeadlineLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHeadlineLimit {
			h.writeJSONError(w, "limit must be between 1 and 1000", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := h.headlines.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to load headlines", zap.Int("limit", limit), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.HeadlinesResponse{Count: len(records), Headlines: records})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
