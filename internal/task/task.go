// Package task defines the task execution data model.
package task

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPlanning  Status = "planning"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a transition to next is allowed.
// Transitions only move forward: planning -> executing -> completed|failed.
// A planning task may also fail directly (research or planning faults).
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPlanning:
		return next == StatusExecuting || next == StatusFailed
	case StatusExecuting:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// ActionKind identifies the capability a step invokes.
type ActionKind string

const (
	ActionSearch   ActionKind = "search"
	ActionShell    ActionKind = "shell"
	ActionClarify  ActionKind = "clarify"
	ActionAnalysis ActionKind = "analysis"
)

// ParseActionKind validates a kind string from an untrusted source
// (LLM output, persisted records).
func ParseActionKind(s string) (ActionKind, error) {
	switch ActionKind(s) {
	case ActionSearch, ActionShell, ActionClarify, ActionAnalysis:
		return ActionKind(s), nil
	}
	return "", fmt.Errorf("unknown action kind %q", s)
}

// StepSpec is one planned, not-yet-executed unit of work.
// Produced once by the planning phase and read-only afterward.
type StepSpec struct {
	Number      int        `json:"number"`
	Description string     `json:"description"`
	Kind        ActionKind `json:"kind"`
	Command     string     `json:"command,omitempty"`
}

// ExecutedStep is the realized outcome of a StepSpec, including retries.
// RetryCount increments in place on the same record; the record is
// appended to the task exactly once, when finalized.
type ExecutedStep struct {
	Number      int        `json:"number"`
	Description string     `json:"description"`
	Kind        ActionKind `json:"kind"`
	Command     string     `json:"command,omitempty"`
	Result      string     `json:"result,omitempty"`
	Success     bool       `json:"success"`
	RetryCount  int        `json:"retry_count"`
	CompletedAt time.Time  `json:"completed_at"`
}

// Task is one end-to-end execution attempt of a single user goal.
type Task struct {
	ID          string         `json:"id"`
	Goal        string         `json:"goal"`
	Research    string         `json:"research,omitempty"`
	Plan        []StepSpec     `json:"plan,omitempty"`
	Steps       []ExecutedStep `json:"steps"`
	Status      Status         `json:"status"`
	FinalResult string         `json:"final_result,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// New creates a task in the planning state with a time-derived ID.
func New(goal string) *Task {
	now := time.Now()
	return &Task{
		ID:        newID(now),
		Goal:      goal,
		Status:    StatusPlanning,
		CreatedAt: now,
	}
}

// newID builds a time-derived identifier with a random suffix so two
// tasks created in the same second remain distinct.
func newID(t time.Time) string {
	b := make([]byte, 3)
	rand.Read(b)
	return fmt.Sprintf("task_%s_%s", t.Format("20060102_150405"), hex.EncodeToString(b))
}
