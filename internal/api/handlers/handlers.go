// Package handlers implements the HTTP handlers for the MediGuard analysis
// plane. All handlers go through the Store interface and the analyzer; no
// handler talks to the completion provider directly.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/mediguard/driftai/internal/analyzer"
	"github.com/mediguard/driftai/internal/pipeline"
	"github.com/mediguard/driftai/internal/search"
	"github.com/mediguard/driftai/internal/store"
	"github.com/mediguard/driftai/pkg/models"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Store    store.Store
	Analyzer *analyzer.Analyzer
	Pipeline *pipeline.Orchestrator
	Search   *search.Service
}

// New creates a Handlers instance with all dependencies.
func New(s store.Store, a *analyzer.Analyzer, p *pipeline.Orchestrator, srch *search.Service) *Handlers {
	return &Handlers{Store: s, Analyzer: a, Pipeline: p, Search: srch}
}

// ── Analysis handlers ────────────────────────────────────────

type analyzeRequest struct {
	UserID     string   `json:"user_id"`
	MetricName string   `json:"metric_name,omitempty"`
	Days       int      `json:"days,omitempty"`
	Symptoms   []string `json:"symptoms,omitempty"`
}

// Analyze runs the full five-stage pipeline over the user's stored checks.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	result := h.Analyzer.Analyze(r.Context(), req.UserID, req.MetricName, req.Days, req.Symptoms)
	if !result.Success && !result.HasData {
		respondError(w, http.StatusInternalServerError, result.Error)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type analyzeQuickRequest struct {
	UserID     string              `json:"user_id,omitempty"`
	MetricName string              `json:"metric_name"`
	Baseline   float64             `json:"baseline,omitempty"`
	Recent     float64             `json:"recent,omitempty"`
	Profile    *models.UserProfile `json:"profile,omitempty"`
}

// AnalyzeQuick runs drift detection plus care guidance only. Callers either
// pass an explicit baseline/recent pair or a user_id to derive them from
// stored checks.
func (h *Handlers) AnalyzeQuick(w http.ResponseWriter, r *http.Request) {
	var req analyzeQuickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Baseline != 0 || req.Recent != 0 {
		out := h.Pipeline.Quick(r.Context(), pipeline.Request{
			UserID:     req.UserID,
			MetricName: req.MetricName,
			Baseline:   req.Baseline,
			Recent:     req.Recent,
			Profile:    req.Profile,
		})
		respondJSON(w, http.StatusOK, out)
		return
	}

	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "either baseline/recent or user_id is required")
		return
	}
	respondJSON(w, http.StatusOK, h.Analyzer.AnalyzeQuick(r.Context(), req.UserID, req.MetricName))
}

type analyzeMetricsRequest struct {
	UserID  string               `json:"user_id"`
	Metrics []models.MetricDrift `json:"metrics"`
}

// AnalyzeMetrics runs multi-metric drift analysis over explicit
// baseline/recent pairs.
func (h *Handlers) AnalyzeMetrics(w http.ResponseWriter, r *http.Request) {
	var req analyzeMetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Metrics) == 0 {
		respondError(w, http.StatusBadRequest, "metrics is required")
		return
	}

	out, err := h.Analyzer.AnalyzeMetrics(r.Context(), req.UserID, req.Metrics)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, out)
}

type chatRequest struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
}

// Chat answers a free-form question grounded in a fresh analysis.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" || req.Question == "" {
		respondError(w, http.StatusBadRequest, "user_id and question are required")
		return
	}
	respondJSON(w, http.StatusOK, h.Analyzer.Chat(r.Context(), req.UserID, req.Question))
}

// PipelineStatus reports agent readiness.
func (h *Handlers) PipelineStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Pipeline.Status())
}

type searchRequest struct {
	Query  string `json:"query"`
	Region string `json:"region,omitempty"`
}

// SearchHealth answers a general health information query.
func (h *Handlers) SearchHealth(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	query := req.Query
	if req.Region != "" {
		query = query + " (region: " + req.Region + ")"
	}

	res, err := h.Search.Search(r.Context(), query)
	if err != nil {
		log.Warn().Err(err).Msg("health search failed")
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// ── Health check record handlers ─────────────────────────────

// ListChecks returns a user's stored checks, newest-limited via ?days=N.
func (h *Handlers) ListChecks(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	limit := 0
	if ls := r.URL.Query().Get("days"); ls != "" {
		if n, err := strconv.Atoi(ls); err == nil && n > 0 {
			limit = n
		}
	}

	checks, err := h.Store.ListHealthChecks(r.Context(), userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if checks == nil {
		checks = []models.HealthCheck{}
	}
	respondJSON(w, http.StatusOK, checks)
}

type createCheckRequest struct {
	CheckDate string             `json:"check_date,omitempty"` // YYYY-MM-DD, default today
	Metrics   map[string]float64 `json:"metrics"`
}

// CreateCheck stores one day of metrics for a user.
func (h *Handlers) CreateCheck(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	var req createCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Metrics) == 0 {
		respondError(w, http.StatusBadRequest, "metrics is required")
		return
	}

	checkDate := time.Now().UTC()
	if req.CheckDate != "" {
		parsed, err := time.Parse("2006-01-02", req.CheckDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "check_date must be YYYY-MM-DD")
			return
		}
		checkDate = parsed
	}

	check := &models.HealthCheck{
		UserID:    userID,
		CheckDate: checkDate,
		Metrics:   req.Metrics,
	}
	if err := h.Store.CreateHealthCheck(r.Context(), check); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, check)
}

// ── User context handlers ────────────────────────────────────

func (h *Handlers) GetUserContext(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	userCtx, err := h.Store.GetUserContext(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, userCtx)
}

func (h *Handlers) PutUserContext(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	var userCtx models.UserContext
	if err := json.NewDecoder(r.Body).Decode(&userCtx); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	userCtx.UserID = userID

	if err := h.Store.PutUserContext(r.Context(), &userCtx); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, userCtx)
}

// ── User profile handlers ────────────────────────────────────

func (h *Handlers) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	profile, err := h.Store.GetUserProfile(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (h *Handlers) PutUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	var profile models.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	profile.UserID = userID

	if err := h.Store.PutUserProfile(r.Context(), &profile); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// ── Response helpers ─────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondStoreError(w http.ResponseWriter, err error) {
	var nf *store.ErrNotFound
	if errors.As(err, &nf) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}
