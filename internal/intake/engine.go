package intake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brightline-health/intake-voice-agent/pkg/logging"
)

// Registry holds the node templates that make up a dialogue graph.
type Registry struct {
	initial   string
	templates map[string]NodeTemplate
}

// NewRegistry creates an empty registry whose Start call renders initialID.
func NewRegistry(initialID string) *Registry {
	return &Registry{
		initial:   initialID,
		templates: make(map[string]NodeTemplate),
	}
}

// Register adds a node template. Duplicate IDs are a wiring bug and are
// rejected outright rather than silently shadowed.
func (r *Registry) Register(id string, tmpl NodeTemplate) error {
	if _, exists := r.templates[id]; exists {
		return fmt.Errorf("intake: duplicate node id %q", id)
	}
	r.templates[id] = tmpl
	return nil
}

// Render instantiates the node for the given session's current state.
func (r *Registry) Render(id string, s *Session) (Node, error) {
	tmpl, ok := r.templates[id]
	if !ok {
		return Node{}, internalInconsistency(fmt.Sprintf("unknown node %q", id))
	}
	return tmpl(s), nil
}

// InitialID returns the graph's entry node.
func (r *Registry) InitialID() string { return r.initial }

// Has reports whether a node id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.templates[id]
	return ok
}

// Metrics is the engine's observability hook, fed by the prometheus
// collector in internal/observability. Nil-safe callers keep the engine
// usable in tests without a collector.
type Metrics interface {
	ObserveTransition(from, to string)
	ObserveFlowError(kind string)
}

// Engine drives sessions through a registry. Concurrent calls for the same
// session serialize on a per-session mutex so each session observes a single
// totally ordered stream of function calls.
type Engine struct {
	registry *Registry
	logger   *logging.Logger
	metrics  Metrics

	locks sync.Map // session id -> *sync.Mutex
}

// NewEngine wires a registry to an engine. logger must be non-nil; metrics
// may be nil.
func NewEngine(registry *Registry, logger *logging.Logger, metrics Metrics) *Engine {
	return &Engine{registry: registry, logger: logger, metrics: metrics}
}

func (e *Engine) sessionLock(id string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Start activates the session's entry node and returns its rendering.
func (e *Engine) Start(ctx context.Context, s *Session) (Node, error) {
	mu := e.sessionLock(s.ID)
	mu.Lock()
	defer mu.Unlock()

	if s.ActiveNodeID == "" {
		s.ActiveNodeID = e.registry.InitialID()
	}
	node, err := e.registry.Render(s.ActiveNodeID, s)
	if err != nil {
		return Node{}, err
	}
	s.UpdatedAt = time.Now().UTC()
	return node, nil
}

// Apply routes one function call through the active node's handler and
// transition, atomically: the session's active node only changes after both
// succeed. On a recoverable flow error the current node is re-rendered and
// returned alongside the error so the host can retry the turn.
func (e *Engine) Apply(ctx context.Context, s *Session, call FunctionCall) (Node, error) {
	mu := e.sessionLock(s.ID)
	mu.Lock()
	defer mu.Unlock()

	log := e.logger.WithSession(s.ID)

	current, err := e.registry.Render(s.ActiveNodeID, s)
	if err != nil {
		return Node{}, err
	}
	if current.Terminal() {
		return current, internalInconsistency("session already completed")
	}

	fn, ok := current.Function(call.Name)
	if !ok {
		ferr := internalInconsistency(fmt.Sprintf("function %q not available on node %q", call.Name, s.ActiveNodeID))
		return e.recover(s, ferr, log)
	}

	if err := fn.ValidateArgs(call.Arguments); err != nil {
		return e.recover(s, err, log)
	}

	res, err := fn.Handler(ctx, call.Arguments)
	if err != nil {
		return e.recover(s, err, log)
	}

	nextID, err := fn.Transition(ctx, res, s)
	if err != nil {
		return e.recover(s, err, log)
	}

	next, err := e.registry.Render(nextID, s)
	if err != nil {
		return Node{}, err
	}

	from := s.ActiveNodeID
	s.ActiveNodeID = nextID
	s.UpdatedAt = time.Now().UTC()
	if next.Terminal() {
		s.Completed = true
	}

	if e.metrics != nil {
		e.metrics.ObserveTransition(from, nextID)
	}
	log.Debug("node transition", "function", call.Name, "from", from, "to", nextID)
	return next, nil
}

// recover handles a flow error mid-turn: recoverable kinds keep the session
// on its current node (re-rendered, since the transition may have touched
// scratch before failing) and surface the error for the host to speak a
// retry prompt. Unrecoverable kinds propagate as-is.
func (e *Engine) recover(s *Session, ferr error, log *logging.Logger) (Node, error) {
	kind := KindOf(ferr)
	if e.metrics != nil {
		e.metrics.ObserveFlowError(string(kind))
	}
	if !Recoverable(ferr) {
		log.Error("unrecoverable flow error", "node", s.ActiveNodeID, "error", ferr)
		return Node{}, ferr
	}
	log.Warn("recoverable flow error", "node", s.ActiveNodeID, "kind", string(kind), "error", ferr)
	s.UpdatedAt = time.Now().UTC()
	rerendered, rerr := e.registry.Render(s.ActiveNodeID, s)
	if rerr != nil {
		return Node{}, rerr
	}
	return rerendered, ferr
}

// Forget drops the per-session lock after a session ends.
func (e *Engine) Forget(sessionID string) {
	e.locks.Delete(sessionID)
}
