package handlers

import (
	"context"
	"net/http"

	"github.com/legalqa/assistant/internal/api/response"
	"github.com/legalqa/assistant/internal/api/validation"
	"github.com/legalqa/assistant/internal/models"
)

// QueryLogsService defines the read side of query logging.
type QueryLogsService interface {
	List(ctx context.Context, filters *models.ListQueryLogsFilters) (*models.ListQueryLogsResponse, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// QueryLogsHandler serves usage statistics and recent queries.
type QueryLogsHandler struct {
	service QueryLogsService
}

// NewQueryLogsHandler creates a QueryLogsHandler.
func NewQueryLogsHandler(service QueryLogsService) *QueryLogsHandler {
	return &QueryLogsHandler{service: service}
}

// Stats handles GET /api/stats
func (h *QueryLogsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusOK, stats)
}

// List handles GET /api/logs
func (h *QueryLogsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := &models.ListQueryLogsFilters{}
	if err := validation.ValidateAndDecodeQueryParams(r, filters); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	result, err := h.service.List(r.Context(), filters)
	if err != nil {
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}
