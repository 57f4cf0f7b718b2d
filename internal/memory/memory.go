// Package memory provides the execution memory store: the active task
// record plus persistent pattern tables and task history that survive
// process restarts.
package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vinayprograms/agentkit/logging"

	"github.com/openclaw/instant-agent/internal/task"
)

// StateError indicates a store contract violation: a sequencing bug in
// the caller, not a recoverable runtime condition.
type StateError string

func (e StateError) Error() string { return string(e) }

const (
	// ErrTaskActive is returned by StartTask while another task is active.
	ErrTaskActive = StateError("a task is already active")

	// ErrNoActiveTask is returned by mutations that require an active task.
	ErrNoActiveTask = StateError("no active task")

	// ErrPlanAlreadySet is returned when SetPlan is called twice for one task.
	ErrPlanAlreadySet = StateError("plan already set for active task")
)

const (
	// keywordLimit is how many description words a successful pattern keeps.
	keywordLimit = 5

	// errorContextLimit bounds the stored error excerpt of a failed pattern.
	errorContextLimit = 200

	// contextResearchLimit bounds the research excerpt in RenderContext.
	contextResearchLimit = 200

	// contextRecentSteps is how many recent steps RenderContext includes.
	contextRecentSteps = 3
)

// SuccessPattern generalizes executed steps that succeeded for a given
// (action kind, command) pair.
type SuccessPattern struct {
	Kind         task.ActionKind `json:"action_kind"`
	Command      string          `json:"command"`
	Keywords     []string        `json:"description_keywords"`
	SuccessCount int             `json:"success_count"`
}

// FailurePattern generalizes executed steps that failed for a given
// (action kind, command) pair.
type FailurePattern struct {
	Kind         task.ActionKind `json:"action_kind"`
	Command      string          `json:"command"`
	ErrorContext string          `json:"error_context"`
	FailureCount int             `json:"failure_count"`
}

// HistoryEntry is the immutable summary of a completed task.
type HistoryEntry struct {
	TaskID      string    `json:"task_id"`
	Goal        string    `json:"goal"`
	Success     bool      `json:"success"`
	StepCount   int       `json:"step_count"`
	CompletedAt time.Time `json:"completed_at"`
}

// Relevant holds the advisory lookup result for a pending step.
type Relevant struct {
	SuccessfulCommands []string
	FailedCommands     []string
}

// Store owns the persistent pattern tables and history, and the single
// active task record. Single-writer: one engine instance per store.
type Store struct {
	mu     sync.Mutex
	path   string
	active *task.Task
	data   persisted
	logger *logging.Logger
}

// persisted is the durable store layout, rewritten in full on every flush.
type persisted struct {
	SuccessfulPatterns []SuccessPattern `json:"successful_patterns"`
	FailedPatterns     []FailurePattern `json:"failed_patterns"`
	TaskHistory        []HistoryEntry   `json:"task_history"`
}

// Open loads (or initializes) a store backed by the given file.
// A missing or corrupt file starts the store empty rather than failing;
// learned patterns are best-effort, not load-bearing.
func Open(path string) *Store {
	s := &Store{
		path:   path,
		logger: logging.New().WithComponent("memory"),
	}
	s.load()
	return s
}

// StartTask creates and activates a new task for the goal.
func (s *Store) StartTask(goal string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return "", ErrTaskActive
	}
	s.active = task.New(goal)
	return s.active.ID, nil
}

// ActiveTask returns the in-flight task, or nil.
func (s *Store) ActiveTask() *task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// RecordResearch attaches the research phase summary to the active task.
func (s *Store) RecordResearch(summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ErrNoActiveTask
	}
	s.active.Research = summary
	return nil
}

// SetPlan sets the active task's plan and moves it to executing.
// A plan is set at most once per task.
func (s *Store) SetPlan(steps []task.StepSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ErrNoActiveTask
	}
	if s.active.Plan != nil {
		return ErrPlanAlreadySet
	}
	if !s.active.Status.CanTransition(task.StatusExecuting) {
		return StateError(fmt.Sprintf("cannot start executing from status %s", s.active.Status))
	}
	s.active.Plan = steps
	s.active.Status = task.StatusExecuting
	return nil
}

// RecordStepOutcome appends a finalized executed step to the active task
// and folds it into the pattern tables, then flushes.
func (s *Store) RecordStepOutcome(step task.ExecutedStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ErrNoActiveTask
	}
	if step.CompletedAt.IsZero() {
		step.CompletedAt = time.Now()
	}
	s.active.Steps = append(s.active.Steps, step)

	if step.Success {
		s.learnSuccess(step)
	} else {
		s.learnFailure(step)
	}
	s.flush()
	return nil
}

// learnSuccess updates the success table: one record per (kind, command),
// repeats increment the count.
func (s *Store) learnSuccess(step task.ExecutedStep) {
	for i := range s.data.SuccessfulPatterns {
		p := &s.data.SuccessfulPatterns[i]
		if p.Kind == step.Kind && p.Command == step.Command {
			p.SuccessCount++
			return
		}
	}
	s.data.SuccessfulPatterns = append(s.data.SuccessfulPatterns, SuccessPattern{
		Kind:         step.Kind,
		Command:      step.Command,
		Keywords:     keywords(step.Description),
		SuccessCount: 1,
	})
}

// learnFailure updates the failure table with the same dedupe rule.
func (s *Store) learnFailure(step task.ExecutedStep) {
	for i := range s.data.FailedPatterns {
		p := &s.data.FailedPatterns[i]
		if p.Kind == step.Kind && p.Command == step.Command {
			p.FailureCount++
			return
		}
	}
	s.data.FailedPatterns = append(s.data.FailedPatterns, FailurePattern{
		Kind:         step.Kind,
		Command:      step.Command,
		ErrorContext: truncate(step.Result, errorContextLimit),
		FailureCount: 1,
	})
}

// QueryRelevant returns known commands for an action kind. Successful
// commands are filtered by keyword overlap with the step description;
// failed commands are returned for the kind unconditionally. The result
// is advisory: the engine is never forced to skip a command.
func (s *Store) QueryRelevant(kind task.ActionKind, description string) Relevant {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rel Relevant
	words := keywords(description)
	for _, p := range s.data.SuccessfulPatterns {
		if p.Kind != kind {
			continue
		}
		if overlaps(p.Keywords, words) {
			rel.SuccessfulCommands = append(rel.SuccessfulCommands, p.Command)
		}
	}
	for _, p := range s.data.FailedPatterns {
		if p.Kind == kind {
			rel.FailedCommands = append(rel.FailedCommands, p.Command)
		}
	}
	return rel
}

// CompleteTask sets the terminal status, appends a history entry,
// deactivates the task and flushes. The task record becomes immutable.
func (s *Store) CompleteTask(finalResult string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ErrNoActiveTask
	}

	s.active.FinalResult = finalResult
	if success {
		s.active.Status = task.StatusCompleted
	} else {
		s.active.Status = task.StatusFailed
	}

	s.data.TaskHistory = append(s.data.TaskHistory, HistoryEntry{
		TaskID:      s.active.ID,
		Goal:        s.active.Goal,
		Success:     success,
		StepCount:   len(s.active.Steps),
		CompletedAt: time.Now(),
	})
	s.active = nil
	s.flush()
	return nil
}

// RenderContext produces a bounded natural-language digest of the active
// task for inclusion in reasoning prompts. Calling it twice without an
// intervening mutation yields identical text.
func (s *Store) RenderContext() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return "No current task execution."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current Task: %s\n", s.active.Goal)
	fmt.Fprintf(&b, "Status: %s", s.active.Status)

	if s.active.Research != "" {
		fmt.Fprintf(&b, "\nResearch: %s", truncate(s.active.Research, contextResearchLimit))
	}

	if n := len(s.active.Steps); n > 0 {
		b.WriteString("\nCompleted Steps:")
		start := n - contextRecentSteps
		if start < 0 {
			start = 0
		}
		for _, step := range s.active.Steps[start:] {
			marker := "ok"
			if !step.Success {
				marker = "FAILED"
			}
			fmt.Fprintf(&b, "\n  [%s] %s", marker, step.Description)
		}
	}
	return b.String()
}

// Patterns returns copies of both pattern tables, for inspection.
func (s *Store) Patterns() ([]SuccessPattern, []FailurePattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	succ := make([]SuccessPattern, len(s.data.SuccessfulPatterns))
	copy(succ, s.data.SuccessfulPatterns)
	fail := make([]FailurePattern, len(s.data.FailedPatterns))
	copy(fail, s.data.FailedPatterns)
	return succ, fail
}

// History returns a copy of the task history.
func (s *Store) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := make([]HistoryEntry, len(s.data.TaskHistory))
	copy(hist, s.data.TaskHistory)
	return hist
}

// Reset clears all learned patterns and history and flushes the empty
// tables. It does not touch an in-flight task.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = persisted{}
	s.flush()
}

// keywords extracts up to keywordLimit lowercase words.
func keywords(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) > keywordLimit {
		fields = fields[:keywordLimit]
	}
	return fields
}

// overlaps reports whether any word appears in the stored keyword set.
func overlaps(stored, query []string) bool {
	for _, q := range query {
		for _, kw := range stored {
			if q == kw {
				return true
			}
		}
	}
	return false
}

// truncate bounds s to max bytes, marking the cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
