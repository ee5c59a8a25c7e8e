package handlers

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/legalqa/assistant/internal/api/response"
	"github.com/legalqa/assistant/internal/api/validation"
	"github.com/legalqa/assistant/internal/models"
	"github.com/legalqa/assistant/internal/service"
)

// QuestionAnswerer runs the question answering pipeline.
type QuestionAnswerer interface {
	AnswerQuestion(ctx context.Context, question string) models.PipelineResult
}

// QueryLogRecorder persists answered questions.
type QueryLogRecorder interface {
	Record(ctx context.Context, entry service.RecordEntry) (*models.QueryLog, error)
}

// AskHandler handles POST /api/ask.
type AskHandler struct {
	pipeline QuestionAnswerer
	logs     QueryLogRecorder
	logger   *slog.Logger
}

// NewAskHandler creates an AskHandler. logs may be nil to skip query logging.
func NewAskHandler(pipeline QuestionAnswerer, logs QueryLogRecorder, logger *slog.Logger) *AskHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AskHandler{pipeline: pipeline, logs: logs, logger: logger}
}

// Ask handles POST /api/ask
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		if errors.Is(err, validation.ErrInvalidBody) {
			response.RespondBadRequest(w, "Invalid request body")

			return
		}

		validation.RespondValidationError(w, err)

		return
	}

	question := strings.TrimSpace(req.Question)

	start := time.Now()
	result := h.pipeline.AnswerQuestion(r.Context(), question)
	processingTime := math.Round(time.Since(start).Seconds()*100) / 100

	if h.logs != nil {
		_, err := h.logs.Record(r.Context(), service.RecordEntry{
			Question:       question,
			Result:         result,
			ProcessingTime: processingTime,
			IPAddress:      ClientIP(r),
			UserAgent:      r.UserAgent(),
		})
		if err != nil {
			h.logger.ErrorContext(r.Context(), "ask: failed to record query log", "error", err)
		}
	}

	response.RespondJSON(w, http.StatusOK, models.AskResponse{
		Answer:         result.Answer,
		Sources:        result.Sources,
		ProcessingTime: processingTime,
	})
}

// ClientIP returns the first X-Forwarded-For entry, or the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
