package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/pkg/types"
)

const (
	sseKeepaliveInterval = 15 * time.Second
	wsWriteTimeout       = 10 * time.Second
	wsPingInterval       = 30 * time.Second
)

// StreamHandler serves a run's event stream over SSE and WebSocket. Both
// transports replay history first, then follow the live stream until the run
// ends or the client detaches. A client that cannot keep up is disconnected
// upstream by the broker; the closed channel ends the response.
type StreamHandler struct {
	runs     RunService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a stream handler.
func NewStreamHandler(runs RunService, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		runs:   runs,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleSSE streams a run's events as server-sent events.
func (h *StreamHandler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	replay, live, unsubscribe, ok := h.runs.Subscribe(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "run not found: "+runID)
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ActiveStreamClients.WithLabelValues("sse").Inc()
	defer ActiveStreamClients.WithLabelValues("sse").Dec()

	h.logger.Debug("sse-client-attached", zap.String("run-id", runID))

	for _, event := range replay {
		if !writeSSEEvent(w, event) {
			return
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case event, open := <-live:
			if !open {
				// Run ended or the broker dropped us.
				return
			}

			if !writeSSEEvent(w, event) {
				return
			}
			flusher.Flush()

		case <-keepalive.C:
			_, err := fmt.Fprint(w, ": keepalive\n\n")
			if err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, event types.Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		return false
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind(), data)

	return err == nil
}

// HandleWebSocket streams a run's events over a WebSocket connection.
func (h *StreamHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	replay, live, unsubscribe, ok := h.runs.Subscribe(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "run not found: "+runID)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		unsubscribe()
		h.logger.Warn("ws-upgrade-failed", zap.String("run-id", runID), zap.Error(err))
		return
	}

	ActiveStreamClients.WithLabelValues("ws").Inc()

	h.logger.Debug("ws-client-attached", zap.String("run-id", runID))

	go h.pumpWebSocket(conn, runID, replay, live, unsubscribe)
}

func (h *StreamHandler) pumpWebSocket(
	conn *websocket.Conn,
	runID string,
	replay []types.Event,
	live <-chan types.Event,
	unsubscribe func(),
) {
	defer func() {
		unsubscribe()
		_ = conn.Close()
		ActiveStreamClients.WithLabelValues("ws").Dec()
	}()

	// Reader goroutine: we never expect client messages, but reading is what
	// surfaces close frames and pong responses.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}()

	for _, event := range replay {
		if !h.writeWSEvent(conn, runID, event) {
			return
		}
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case event, open := <-live:
			if !open {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run ended"),
					time.Now().Add(wsWriteTimeout))
				return
			}

			if !h.writeWSEvent(conn, runID, event) {
				return
			}

		case <-ping.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
			if err != nil {
				return
			}

		case <-clientGone:
			return
		}
	}
}

func (h *StreamHandler) writeWSEvent(conn *websocket.Conn, runID string, event types.Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		return false
	}

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))

	err = conn.WriteMessage(websocket.TextMessage, data)
	if err != nil {
		h.logger.Debug("ws-write-failed", zap.String("run-id", runID), zap.Error(err))
		return false
	}

	return true
}
