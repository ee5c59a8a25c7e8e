package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/legalqa/assistant/internal/api/response"
	"github.com/legalqa/assistant/internal/api/validation"
	"github.com/legalqa/assistant/internal/apperrors"
	"github.com/legalqa/assistant/internal/models"
	"github.com/legalqa/assistant/internal/service"
)

// FAQsService defines the interface for FAQ administration.
type FAQsService interface {
	CreateFAQ(ctx context.Context, req *models.CreateFAQRequest) (*models.FAQ, error)
	GetFAQ(ctx context.Context, id int64) (*models.FAQ, error)
	ListFAQs(ctx context.Context, filters *models.ListFAQsFilters) (*models.ListFAQsResponse, error)
	DeleteFAQ(ctx context.Context, id int64) error
	ReindexAll(ctx context.Context) (*models.ReindexResponse, error)
}

// FAQsHandler handles the FAQ admin endpoints.
type FAQsHandler struct {
	service FAQsService
	logger  *slog.Logger
}

// NewFAQsHandler creates a FAQsHandler.
func NewFAQsHandler(service FAQsService, logger *slog.Logger) *FAQsHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &FAQsHandler{service: service, logger: logger}
}

// Create handles POST /api/faqs
func (h *FAQsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFAQRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		if errors.Is(err, validation.ErrInvalidBody) {
			response.RespondBadRequest(w, "Invalid request body")

			return
		}

		validation.RespondValidationError(w, err)

		return
	}

	faq, err := h.service.CreateFAQ(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrValidation):
			response.RespondBadRequest(w, err.Error())
		case errors.Is(err, service.ErrIndexingFailed) && faq != nil:
			response.RespondInternalServerError(w,
				"FAQ "+strconv.FormatInt(faq.ID, 10)+" was stored but could not be indexed; run reindex")
		default:
			response.RespondInternalServerError(w, "An unexpected error occurred")
		}

		return
	}

	response.RespondJSON(w, http.StatusCreated, faq)
}

// Get handles GET /api/faqs/{id}
func (h *FAQsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseFAQID(w, r)
	if !ok {
		return
	}

	faq, err := h.service.GetFAQ(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			response.RespondNotFound(w, "FAQ not found")

			return
		}

		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusOK, faq)
}

// List handles GET /api/faqs
func (h *FAQsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := &models.ListFAQsFilters{}
	if err := validation.ValidateAndDecodeQueryParams(r, filters); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	result, err := h.service.ListFAQs(r.Context(), filters)
	if err != nil {
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// Delete handles DELETE /api/faqs/{id}
func (h *FAQsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseFAQID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteFAQ(r.Context(), id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			response.RespondNotFound(w, "FAQ not found")

			return
		}

		h.logger.ErrorContext(r.Context(), "faqs: delete failed", "faq_id", id, "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reindex handles POST /api/faqs/reindex
func (h *FAQsHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ReindexAll(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "faqs: reindex failed", "error", err)
		response.RespondInternalServerError(w, "Reindex failed")

		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

func parseFAQID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.RespondBadRequest(w, "Invalid FAQ ID")

		return 0, false
	}

	return id, true
}
