package host

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/brightline-health/intake-voice-agent/internal/intake"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The voice transport connects server-to-server; origin checks belong
	// to the edge proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Stream bridges one session over a websocket: the current node is pushed on
// connect, each inbound frame is one function call, and each outbound frame
// is the resulting state. The socket closes after the terminal node is sent.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	s, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "session_id", s.ID, "error", err)
		return
	}
	defer conn.Close()

	log := h.logger.WithSession(s.ID)

	node, err := h.engine.Start(r.Context(), s)
	if err != nil {
		log.Error("websocket initial render failed", "error", err)
		return
	}
	if err := conn.WriteJSON(stateOf(s, node, nil)); err != nil {
		return
	}

	for {
		var call intake.FunctionCall
		if err := conn.ReadJSON(&call); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("websocket read failed", "error", err)
			}
			return
		}
		if call.Name == "" {
			if err := conn.WriteJSON(stateResponse{
				SessionID: s.ID,
				Error:     &errorResponse{Kind: "bad_request", Message: "function_name is required"},
			}); err != nil {
				return
			}
			continue
		}

		mu := h.turnLock(s.ID)
		mu.Lock()
		node, applyErr := h.engine.Apply(r.Context(), s, call)
		if applyErr != nil && !intake.Recoverable(applyErr) {
			mu.Unlock()
			log.Error("websocket apply failed", "function", call.Name, "error", applyErr)
			_ = conn.WriteJSON(stateResponse{
				SessionID: s.ID,
				Error:     &errorResponse{Kind: "internal", Message: "internal error"},
			})
			return
		}
		if err := h.store.Save(r.Context(), s); err != nil {
			mu.Unlock()
			log.Error("websocket save failed", "error", err)
			return
		}
		mu.Unlock()

		if err := conn.WriteJSON(stateOf(s, node, applyErr)); err != nil {
			return
		}
		if s.Completed {
			h.metrics.ObserveSessionCompleted(sessionOutcome(s))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "intake complete"))
			return
		}
	}
}
