package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/ricirt/pulse/internal/api/middleware"
	"github.com/ricirt/pulse/internal/domain"
	"github.com/ricirt/pulse/internal/service"
)

// QueueHandler handles the analysis queue endpoints.
type QueueHandler struct {
	svc    *service.AnalysisService
	logger *zap.Logger
}

func NewQueueHandler(svc *service.AnalysisService, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{svc: svc, logger: logger}
}

// Enqueue handles POST /api/queue
//
// @Summary     Queue an analysis request
// @Description Returns immediately; the result is pushed as a request-result event.
// @Tags        queue
// @Accept      json
// @Produce     json
// @Param       body  body      domain.EnqueueRequest  false  "Analysis request"
// @Success     200   {object}  domain.EnqueueReceipt
// @Failure     400   {object}  map[string]string
// @Failure     404   {object}  map[string]string
// @Failure     422   {object}  map[string]string
// @Failure     429   {object}  map[string]string
// @Failure     503   {object}  map[string]string
// @Router      /api/queue [post]
func (h *QueueHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req domain.EnqueueRequest
	// An empty body is a request with every field defaulted.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	receipt, err := h.svc.Enqueue(r.Context(), req)
	if err != nil {
		h.logger.Warn("enqueue analysis failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, receipt)
}

// Cancel handles DELETE /api/queue/{requestId}
//
// @Summary  Withdraw a pending analysis request
// @Tags     queue
// @Param    requestId  path  string  true  "Request ID"
// @Success  204
// @Failure  404  {object}  map[string]string
// @Router   /api/queue/{requestId} [delete]
func (h *QueueHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "requestId")
	if err := h.svc.Cancel(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/queue/stats
//
// @Summary  Real-time queue snapshot
// @Tags     queue
// @Produce  json
// @Success  200  {object}  domain.QueueStats
// @Router   /api/queue/stats [get]
func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Stats())
}
