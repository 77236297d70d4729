package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/ricirt/pulse/internal/api/middleware"
	"github.com/ricirt/pulse/internal/domain"
	"github.com/ricirt/pulse/internal/service"
	"github.com/ricirt/pulse/internal/stream"
)

// StreamHandler serves the chunked activity text.
type StreamHandler struct {
	svc    *service.AnalysisService
	logger *zap.Logger
}

func NewStreamHandler(svc *service.AnalysisService, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{svc: svc, logger: logger}
}

// Stream handles GET /api/stream
//
// @Summary  Stream activity text for a subject
// @Tags     stream
// @Produce  plain
// @Param    subjectId  query     string  false  "Subject ID (userId is accepted as an alias)"
// @Success  200        {string}  string
// @Failure  500        {object}  map[string]string
// @Router   /api/stream [get]
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.With(zap.String("correlation_id", apimw.GetCorrelationID(ctx)))

	flusher, ok := w.(http.Flusher)
	if !ok {
		err := &domain.TransportError{Op: "open", Err: domain.ErrStreamUnsupported}
		log.Error("cannot stream", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	subjectID := r.URL.Query().Get("subjectId")
	if subjectID == "" {
		subjectID = r.URL.Query().Get("userId")
	}

	s, err := h.svc.OpenStream(ctx, subjectID)
	if err != nil {
		log.Error("open stream failed", zap.String("subject_id", subjectID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "stream unavailable")
		return
	}
	defer s.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sent := 0
	for {
		chunk, err := s.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				log.Debug("stream finished", zap.String("subject_id", subjectID), zap.Int("chunks", sent))
			case errors.Is(err, context.Canceled), errors.Is(err, stream.ErrClosed):
				log.Debug("client left stream", zap.String("subject_id", subjectID), zap.Int("chunks", sent))
			default:
				log.Warn("stream aborted", zap.String("subject_id", subjectID), zap.Error(err))
			}
			return
		}

		if _, err := io.WriteString(w, chunk); err != nil {
			log.Debug("stream write failed", zap.Error(&domain.TransportError{Op: "write", Err: err}))
			return
		}
		flusher.Flush()
		sent++
	}
}
