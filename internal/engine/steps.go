// Step execution: execute, verify, retry, advance.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/openclaw/instant-agent/internal/task"
)

// executeSteps walks the plan. Every executor result, success or
// failure, passes through verification; a failed-but-exhausted step is
// recorded and execution advances to the next step.
func (r *run) executeSteps(plan *planOutcome) {
	for _, spec := range plan.steps {
		if spec.Kind == task.ActionClarify {
			// Clarify steps are terminal short-circuits: remaining
			// steps never run.
			r.terminal(EventClarify,
				fmt.Sprintf("I need clarification for step %d: %s", spec.Number, spec.Description),
				false)
			return
		}

		if stop := r.executeStep(spec); stop {
			return
		}
	}

	final := fmt.Sprintf("Task %q executed with %d steps", r.goal, len(plan.steps))
	r.emit(Event{Kind: EventPhase, Text: "Execution completed"})
	r.terminal(EventFinal, final, true)
}

// executeStep runs one step through its retry budget. Returns true if
// the task has ended (terminal event already emitted).
func (r *run) executeStep(spec task.StepSpec) bool {
	ctx, span := r.engine.startStepSpan(r.ctx, spec)
	defer span.End()

	r.emit(Event{Kind: EventStep, Step: spec.Number, Text: fmt.Sprintf("Step %d: %s", spec.Number, spec.Description)})

	relevant := r.engine.memory.QueryRelevant(spec.Kind, spec.Description)
	if len(relevant.FailedCommands) > 0 {
		r.emit(Event{Kind: EventInfo, Step: spec.Number, Text: "Memory: avoiding known failing commands"})
	}

	// One record per step; the retry count increments in place until
	// the record is finalized and appended.
	executed := task.ExecutedStep{
		Number:      spec.Number,
		Description: spec.Description,
		Kind:        spec.Kind,
		Command:     spec.Command,
	}

	for attempt := 0; attempt < maxStepAttempts; attempt++ {
		executed.RetryCount = attempt

		r.emit(Event{Kind: EventInfo, Step: spec.Number, Text: actionText(spec)})
		result := r.engine.actions.Run(ctx, spec.Kind, spec.Command)
		executed.Result = result.Text

		verification, err := r.engine.gateway.Verify(ctx, verifyPrompt(spec, result.Text))
		if err != nil {
			// Infrastructure fault, not a "no" answer: fatal to the task.
			executed.Success = false
			r.recordStep(executed)
			r.terminal(EventFinal, fmt.Sprintf("Execution failed: %v", err), false)
			return true
		}
		executed.Success = verification.Success

		if verification.Success {
			r.recordStep(executed)
			r.emit(Event{Kind: EventStepResult, Step: spec.Number, Retry: attempt, Text: "Step completed successfully", Success: true})
			return false
		}

		issues := strings.Join(verification.Issues, ", ")
		r.emit(Event{Kind: EventInfo, Step: spec.Number, Text: fmt.Sprintf("Step failed: %s", issues)})

		if verification.ShouldReplan {
			// Replanning is signalled but not performed; the task ends
			// here rather than mutating the plan.
			r.recordStep(executed)
			r.terminal(EventFinal,
				fmt.Sprintf("Task failed at step %d: replanning needed, current approach not working.", spec.Number),
				false)
			return true
		}

		if verification.ShouldRetry && attempt < maxStepAttempts-1 {
			r.emit(Event{Kind: EventInfo, Step: spec.Number, Text: fmt.Sprintf("Retrying step %d (attempt %d)", spec.Number, attempt+2)})
			continue
		}

		// Retry budget exhausted or no retry requested: record the
		// failure and advance unless the verifier said stop.
		r.recordStep(executed)
		if verification.NextAction == "stop" {
			r.terminal(EventFinal,
				fmt.Sprintf("Execution stopped at step %d: %s", spec.Number, issues),
				false)
			return true
		}
		r.emit(Event{Kind: EventStepResult, Step: spec.Number, Retry: attempt, Text: "Moving to next step despite failure"})
		return false
	}
	return false
}

// recordStep finalizes one executed step into memory.
func (r *run) recordStep(step task.ExecutedStep) {
	step.CompletedAt = time.Now()
	if err := r.engine.memory.RecordStepOutcome(step); err != nil {
		r.engine.logger.Error("could not record step outcome", map[string]interface{}{
			"task":  r.taskID,
			"step":  step.Number,
			"error": err.Error(),
		})
	}
}

// actionText describes the capability invocation for the progress stream.
func actionText(spec task.StepSpec) string {
	switch spec.Kind {
	case task.ActionSearch:
		return fmt.Sprintf("Searching: %s", spec.Command)
	case task.ActionShell:
		return fmt.Sprintf("Executing: %s", spec.Command)
	default:
		return fmt.Sprintf("Running %s step", spec.Kind)
	}
}
