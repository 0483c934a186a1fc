// Package host exposes the dialogue engine to voice transports: a JSON API
// for request/response hosts and a websocket bridge for streaming ones.
package host

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	openai "github.com/sashabaranov/go-openai"

	"github.com/brightline-health/intake-voice-agent/internal/intake"
	"github.com/brightline-health/intake-voice-agent/internal/llmbridge"
	"github.com/brightline-health/intake-voice-agent/internal/observability/metrics"
	"github.com/brightline-health/intake-voice-agent/internal/session"
	"github.com/brightline-health/intake-voice-agent/pkg/logging"
)

// Handler serves the session lifecycle endpoints.
type Handler struct {
	engine  *intake.Engine
	store   session.Store
	metrics *metrics.FlowMetrics
	logger  *logging.Logger
	turns   sync.Map // session id -> *sync.Mutex
}

// NewHandler wires the engine and store to HTTP. metrics may be nil.
func NewHandler(engine *intake.Engine, store session.Store, m *metrics.FlowMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, store: store, metrics: m, logger: logger}
}

// Routes mounts the session endpoints on a chi subrouter.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateSession)
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Get("/node", h.GetNode)
		r.Post("/calls", h.ApplyCall)
		r.Delete("/", h.DeleteSession)
		r.Get("/ws", h.Stream)
	})
	return r
}

// stateResponse is the wire form of one engine step: the active node plus
// its functions rendered as OpenAI tool definitions. A recoverable flow
// error rides alongside the re-rendered node instead of replacing it.
type stateResponse struct {
	SessionID string         `json:"session_id"`
	NodeID    string         `json:"node_id"`
	Prompt    string         `json:"prompt"`
	Tools     []openai.Tool  `json:"tools,omitempty"`
	Terminal  bool           `json:"terminal"`
	Completed bool           `json:"completed"`
	Error     *errorResponse `json:"error,omitempty"`
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func stateOf(s *intake.Session, node intake.Node, flowErr error) stateResponse {
	resp := stateResponse{
		SessionID: s.ID,
		NodeID:    node.ID,
		Prompt:    node.Prompt,
		Tools:     llmbridge.Tools(node),
		Terminal:  node.Terminal(),
		Completed: s.Completed,
	}
	if flowErr != nil {
		resp.Error = &errorResponse{
			Kind:    string(intake.KindOf(flowErr)),
			Message: flowErr.Error(),
		}
	}
	return resp
}

// CreateSession starts a new intake conversation.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := intake.NewSession()
	node, err := h.engine.Start(r.Context(), s)
	if err != nil {
		h.serverError(w, r, "start session", err)
		return
	}
	if err := h.store.Save(r.Context(), s); err != nil {
		h.serverError(w, r, "save session", err)
		return
	}
	h.metrics.ObserveSessionStarted()
	h.logger.Info("session created", "session_id", s.ID)
	writeJSON(w, http.StatusCreated, stateOf(s, node, nil))
}

// GetSession returns the full session snapshot, including the committed
// patient record.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GetNode re-renders the active node without advancing the conversation.
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	s, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	node, err := h.engine.Start(r.Context(), s)
	if err != nil {
		h.serverError(w, r, "render node", err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(s, node, nil))
}

// ApplyCall routes one model function call through the engine and persists
// the outcome. Recoverable flow errors return 200 with the re-rendered node
// so the transport can speak a retry prompt.
func (h *Handler) ApplyCall(w http.ResponseWriter, r *http.Request) {
	var call intake.FunctionCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "bad_request", Message: "malformed function call"})
		return
	}
	if call.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "bad_request", Message: "function_name is required"})
		return
	}

	// One call in flight per session: the engine serializes Apply bodies,
	// but two requests racing the same stored snapshot would still let the
	// last Save discard the other's commit. The turn lock spans the whole
	// load, apply, save sequence.
	mu := h.turnLock(chi.URLParam(r, "sessionID"))
	mu.Lock()
	defer mu.Unlock()

	s, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	node, applyErr := h.engine.Apply(r.Context(), s, call)
	if applyErr != nil && !intake.Recoverable(applyErr) {
		h.serverError(w, r, "apply call", applyErr)
		return
	}

	if err := h.store.Save(r.Context(), s); err != nil {
		h.serverError(w, r, "save session", err)
		return
	}
	if s.Completed {
		h.metrics.ObserveSessionCompleted(sessionOutcome(s))
	}
	writeJSON(w, http.StatusOK, stateOf(s, node, applyErr))
}

// DeleteSession abandons a call. The patient record is discarded with it.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.serverError(w, r, "delete session", err)
		return
	}
	h.engine.Forget(id)
	h.turns.Delete(id)
	h.logger.Info("session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) turnLock(id string) *sync.Mutex {
	mu, _ := h.turns.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func sessionOutcome(s *intake.Session) string {
	if s.Patient.Appointment != nil {
		return "booked"
	}
	if s.Flag(intake.FlagNoSlotFound) {
		return "no_slot"
	}
	return "abandoned"
}

func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request) (*intake.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	s, err := h.store.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Kind: "not_found", Message: "unknown session"})
			return nil, false
		}
		h.serverError(w, r, "load session", err)
		return nil, false
	}
	return s, true
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, action string, err error) {
	h.logger.Error("host request failed", "action", action, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Kind: "internal", Message: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
