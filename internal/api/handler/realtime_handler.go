package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	apimw "github.com/ricirt/pulse/internal/api/middleware"
	"github.com/ricirt/pulse/internal/broadcast"
	"github.com/ricirt/pulse/internal/domain"
)

// maxClientMessage bounds frames read from a socket client. Clients only
// send control frames; anything else is read and discarded.
const maxClientMessage = 512

// RealtimeHandler pushes every published result to connected clients over
// WebSocket or Server-Sent Events. Each connection is one hub subscriber.
type RealtimeHandler struct {
	hub          *broadcast.Hub
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration
	logger       *zap.Logger
}

func NewRealtimeHandler(
	hub *broadcast.Hub,
	allowedOrigins []string,
	pingInterval time.Duration,
	writeTimeout time.Duration,
	logger *zap.Logger,
) *RealtimeHandler {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	h := &RealtimeHandler{
		hub:          hub,
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// WebSocket handles GET /ws
//
// @Summary  Real-time request-result events over WebSocket
// @Tags     realtime
// @Success  101
// @Router   /ws [get]
func (h *RealtimeHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe()
	defer sub.Close()

	log := h.logger.With(
		zap.String("subscriber_id", sub.ID),
		zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
	)
	log.Info("websocket client connected")

	done := make(chan struct{})
	go h.readPump(conn, done)

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case res, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				log.Info("websocket closed by server")
				return
			}
			if err := conn.WriteJSON(domain.NewResultEvent(res)); err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout)); err != nil {
				log.Debug("websocket ping failed", zap.Error(err))
				return
			}
		case <-done:
			log.Info("websocket client disconnected", zap.Uint64("dropped", sub.Dropped()))
			return
		}
	}
}

// readPump consumes client frames so pongs and close frames are processed,
// and closes done when the connection ends or a pong is overdue.
func (h *RealtimeHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	pongWait := 2 * h.pingInterval
	conn.SetReadLimit(maxClientMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Events handles GET /api/events
//
// @Summary  Real-time request-result events over Server-Sent Events
// @Tags     realtime
// @Produce  text/event-stream
// @Success  200
// @Router   /api/events [get]
func (h *RealtimeHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, domain.ErrStreamUnsupported.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.hub.Subscribe()
	defer sub.Close()

	log := h.logger.With(
		zap.String("subscriber_id", sub.ID),
		zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
	)
	log.Info("sse client connected")

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Info("sse client disconnected", zap.Uint64("dropped", sub.Dropped()))
			return
		case res, ok := <-sub.C():
			if !ok {
				return
			}
			if err := writeSSE(w, domain.NewResultEvent(res)); err != nil {
				log.Debug("sse write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			// Comment line; keeps idle proxies from closing the connection.
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}

func writeSSE(w http.ResponseWriter, ev domain.ResultEvent) error {
	b, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Event, b)
	return err
}

// originChecker accepts requests without an Origin header, same-host
// requests, and the configured origins. "*" allows any origin.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
			return true
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}
