// Package engine drives the phased task execution loop: research,
// plan, execute, verify, iterate. One engine instance owns one memory
// store and executes one task at a time.
package engine

import (
	"context"
	"sync"

	"github.com/vinayprograms/agentkit/logging"

	"github.com/openclaw/instant-agent/internal/actions"
	"github.com/openclaw/instant-agent/internal/gateway"
	"github.com/openclaw/instant-agent/internal/memory"
	"github.com/openclaw/instant-agent/internal/session"
)

// maxStepAttempts is the retry budget per step, counting the first run.
const maxStepAttempts = 3

// EventKind classifies a progress event.
type EventKind string

const (
	EventPhase      EventKind = "phase"       // a phase began
	EventInfo       EventKind = "info"        // progress text
	EventStep       EventKind = "step"        // a plan step began
	EventStepResult EventKind = "step_result" // a plan step finalized
	EventFinal      EventKind = "final"       // terminal: task result
	EventClarify    EventKind = "clarify"     // terminal: clarification needed
	EventConfirm    EventKind = "confirm"     // terminal: plan confirmation needed
)

// Event is one ordered progress message from the engine to its caller.
// Exactly one terminal event ends every stream, after which the channel
// closes. No raw error ever crosses this surface.
type Event struct {
	Kind     EventKind
	Text     string
	Step     int
	Retry    int // attempts beyond the first, on step_result events
	Terminal bool
	Success  bool // meaningful on terminal and step_result events
}

// Engine orchestrates the task execution state machine.
type Engine struct {
	memory   *memory.Store
	gateway  *gateway.Gateway
	actions  *actions.Executor
	sessions *session.Manager
	logger   *logging.Logger

	mu   sync.Mutex
	busy bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithSessionManager enables session recording of progress events.
func WithSessionManager(m *session.Manager) Option {
	return func(e *Engine) { e.sessions = m }
}

// New creates an engine. The engine is an explicit instance: it owns no
// global state, so multiple engines with separate stores can coexist.
func New(mem *memory.Store, gw *gateway.Gateway, act *actions.Executor, opts ...Option) *Engine {
	e := &Engine{
		memory:  mem,
		gateway: gw,
		actions: act,
		logger:  logging.New().WithComponent("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit starts executing a goal and returns the ordered progress
// stream. The stream always terminates with exactly one terminal event
// (final result, clarification request, or plan confirmation request)
// and is then closed. Cancelling ctx abandons emission; the in-flight
// shell or network call still runs to its own timeout.
func (e *Engine) Submit(ctx context.Context, goal string) <-chan Event {
	ch := make(chan Event)
	go e.run(ctx, goal, ch)
	return ch
}

// tryBegin marks the engine busy, failing if a task is in flight.
func (e *Engine) tryBegin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return false
	}
	e.busy = true
	return true
}

func (e *Engine) end() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}
