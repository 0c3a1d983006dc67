package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"climbing-stats/internal/models"
	"climbing-stats/internal/repository"
	"climbing-stats/pkg/logging"
	"climbing-stats/pkg/metrics"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
	minYear      = 1900
	maxYear      = 2100
)

// StatisticsReader is the read side of the statistics store
type StatisticsReader interface {
	GetStatistics(ctx context.Context, filter repository.StatisticsFilter) ([]*models.ClimbStatistics, int, error)
	GetStatistic(ctx context.Context, activityType string, year int, branch string) (*models.ClimbStatistics, error)
	ListActivityTypes(ctx context.Context) ([]string, error)
	HealthCheck(ctx context.Context) error
}

// StatsHandler handles climbing statistics API endpoints
type StatsHandler struct {
	stats   StatisticsReader
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewStatsHandler creates a new statistics handler
func NewStatsHandler(stats StatisticsReader, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StatsHandler {
	return &StatsHandler{
		stats:   stats,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Code      int    `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// GetStatistics handles GET /api/climbs/stats
func (h *StatsHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/climbs/stats"
	ctx := r.Context()
	defer h.observe(endpoint, time.Now())

	query := r.URL.Query()

	page, err := parsePositive(query.Get("page"), 1, 0)
	if err != nil {
		h.sendError(w, r, endpoint, "invalid page: "+err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := parsePositive(query.Get("limit"), defaultLimit, maxLimit)
	if err != nil {
		h.sendError(w, r, endpoint, "invalid limit: "+err.Error(), http.StatusBadRequest)
		return
	}

	filter := repository.StatisticsFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if v := query.Get("type"); v != "" {
		filter.ActivityType = &v
	}
	if v := query.Get("branch"); v != "" {
		filter.Branch = &v
	}
	if v := query.Get("year"); v != "" {
		year, err := parseYear(v)
		if err != nil {
			h.sendError(w, r, endpoint, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Year = &year
	}

	statistics, total, err := h.stats.GetStatistics(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_STATISTICS_ERROR] Failed to get statistics", logging.Fields{
			"page":  page,
			"limit": limit,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, endpoint, "failed to retrieve statistics", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, PaginatedResponse{
		Data:       statistics,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, http.StatusOK)
}

// GetStatistic handles GET /api/climbs/stats/{type}/{year}/{branch}
func (h *StatsHandler) GetStatistic(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/climbs/stats/{type}/{year}/{branch}"
	ctx := r.Context()
	defer h.observe(endpoint, time.Now())

	vars := mux.Vars(r)
	year, err := parseYear(vars["year"])
	if err != nil {
		h.sendError(w, r, endpoint, err.Error(), http.StatusBadRequest)
		return
	}

	stat, err := h.stats.GetStatistic(ctx, vars["type"], year, vars["branch"])
	var notFound *repository.NotFoundError
	switch {
	case errors.As(err, &notFound):
		h.sendError(w, r, endpoint, notFound.Error(), http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error(ctx, "[API_GET_STATISTIC_ERROR] Failed to get statistic", logging.Fields{
			"type":   vars["type"],
			"year":   year,
			"branch": vars["branch"],
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, endpoint, "failed to retrieve statistic", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, stat, http.StatusOK)
}

// ListActivityTypes handles GET /api/climbs/types
func (h *StatsHandler) ListActivityTypes(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/climbs/types"
	ctx := r.Context()
	defer h.observe(endpoint, time.Now())

	types, err := h.stats.ListActivityTypes(ctx)
	if err != nil {
		h.logger.Error(ctx, "[API_LIST_TYPES_ERROR] Failed to list activity types", nil, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, endpoint, "failed to list activity types", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, map[string]interface{}{"types": types}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *StatsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if err := h.stats.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK_FAILED] Statistics store unavailable", logging.Fields{
			"error": err.Error(),
		})
		status["status"] = "unhealthy"
		status["error"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	h.sendJSON(w, status, code)
}

// RegisterRoutes registers all statistics API routes
func (h *StatsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/climbs/stats", h.GetStatistics).Methods("GET")
	router.HandleFunc("/api/climbs/stats/{type}/{year}/{branch}", h.GetStatistic).Methods("GET")
	router.HandleFunc("/api/climbs/types", h.ListActivityTypes).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}

func (h *StatsHandler) observe(endpoint string, start time.Time) {
	h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// sendJSON sends a JSON response
func (h *StatsHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *StatsHandler) sendError(w http.ResponseWriter, r *http.Request, endpoint, message string, statusCode int) {
	h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(statusCode))

	h.sendJSON(w, ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Code:      statusCode,
		RequestID: logging.RequestIDFrom(r.Context()),
	}, statusCode)
}

// parsePositive parses an optional positive integer; max of 0 means unbounded
func parsePositive(s string, def, max int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("expected a positive integer, got %q", s)
	}
	if max > 0 && n > max {
		return 0, fmt.Errorf("must be at most %d", max)
	}
	return n, nil
}

func parseYear(s string) (int, error) {
	year, err := strconv.Atoi(s)
	if err != nil || year < minYear || year > maxYear {
		return 0, fmt.Errorf("invalid year, expected integer between %d and %d", minYear, maxYear)
	}
	return year, nil
}
