// Package session provides per-task session recording and persistence.
// A session is the forensic record of one engine run: every progress
// event the engine emitted, in order, replayable after the fact.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Status constants for sessions.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Event types for the session log.
const (
	EventPhase      = "phase"       // engine entered a phase
	EventInfo       = "info"        // informational progress text
	EventStepStart  = "step_start"  // a plan step began executing
	EventStepResult = "step_result" // a plan step finalized
	EventClarify    = "clarify"     // task ended needing clarification
	EventConfirm    = "confirm"     // task ended awaiting plan confirmation
	EventFinal      = "final"       // terminal result
)

// Session represents one task execution run.
type Session struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id,omitempty"`
	Goal      string    `json:"goal"`
	Status    string    `json:"status"`
	Result    string    `json:"result,omitempty"`
	Events    []Event   `json:"events"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	seqCounter uint64
	mu         sync.Mutex
}

// Event is a single entry in the session log.
type Event struct {
	SeqID      uint64    `json:"seq"`
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	Step       int       `json:"step,omitempty"`
	Content    string    `json:"content,omitempty"`
	Success    *bool     `json:"success,omitempty"`
	RetryCount int       `json:"retry_count,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
}

// AddEvent appends an event with automatic sequencing.
func (s *Session) AddEvent(event Event) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.SeqID = atomic.AddUint64(&s.seqCounter, 1)
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.Events = append(s.Events, event)
	s.UpdatedAt = time.Now()
	return event.SeqID
}

// Store is the interface for session persistence.
type Store interface {
	Save(sess *Session) error
	Load(id string) (*Session, error)
}

// Manager manages session lifecycle against a store.
type Manager struct {
	store Store
	mu    sync.Mutex
}

// NewManager creates a session manager.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Create opens a new running session for a goal.
func (m *Manager) Create(goal string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	sess := &Session{
		ID:        uuid.New().String(),
		Goal:      goal,
		Status:    StatusRunning,
		Events:    []Event{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Update saves changes to a session.
func (m *Manager) Update(sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess.UpdatedAt = time.Now()
	return m.store.Save(sess)
}

// Get retrieves a session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	return m.store.Load(id)
}
