// Task orchestration: the phase state machine for one submitted goal.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/openclaw/instant-agent/internal/session"
	"github.com/openclaw/instant-agent/internal/task"
)

// run executes one goal end to end. It guarantees the memory task is
// closed and exactly one terminal event is emitted on every exit path,
// including panics.
func (e *Engine) run(ctx context.Context, goal string, ch chan<- Event) {
	defer close(ch)

	if !e.tryBegin() {
		e.send(ctx, ch, Event{Kind: EventFinal, Text: "Another task is already executing.", Terminal: true})
		return
	}
	defer e.end()

	r := &run{engine: e, ctx: ctx, ch: ch, goal: goal}
	if e.sessions != nil {
		if sess, err := e.sessions.Create(goal); err == nil {
			r.sess = sess
		} else {
			e.logger.Warn("could not create session", map[string]interface{}{"error": err.Error()})
		}
	}

	taskID, err := e.memory.StartTask(goal)
	if err != nil {
		// StateError: a sequencing bug, surfaced with diagnostic detail.
		r.terminal(EventFinal, fmt.Sprintf("Cannot start task: %v", err), false)
		return
	}
	r.taskID = taskID
	if r.sess != nil {
		r.sess.TaskID = taskID
	}

	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("panic during task execution", map[string]interface{}{
				"task":  taskID,
				"panic": fmt.Sprint(p),
			})
			r.terminal(EventFinal, fmt.Sprintf("Execution failed: %v", p), false)
		}
		// Never leave a task permanently active.
		r.closeTask("Execution aborted.", false)
	}()

	r.execute()
}

// run holds the per-task state threaded through the phases.
type run struct {
	engine *Engine
	ctx    context.Context
	ch     chan<- Event
	goal   string
	taskID string
	sess   *session.Session

	taskClosed   bool
	terminalSent bool
	success      bool
}

// execute walks the phases in order. Every return path has already
// produced a terminal event via terminal().
func (r *run) execute() {
	ctx, span := r.engine.startTaskSpan(r.ctx, r.taskID, r.goal)
	r.ctx = ctx

	// Route the request: simple goals get a direct answer, complex
	// goals the full phased loop. A classifier failure falls through
	// to the complex path rather than failing the task.
	if done := r.classify(); done {
		r.engine.endTaskSpan(span, r.outcome())
		return
	}

	research, done := r.research()
	if done {
		r.engine.endTaskSpan(span, r.outcome())
		return
	}

	plan, done := r.plan(research)
	if done {
		r.engine.endTaskSpan(span, r.outcome())
		return
	}

	r.executeSteps(plan)
	r.engine.endTaskSpan(span, r.outcome())
}

// classify routes simple requests to a direct answer. Returns true if
// the task is finished (answered, clarification requested, or failed).
func (r *run) classify() bool {
	c, err := r.engine.gateway.Classify(r.ctx, r.goal)
	if err != nil {
		r.engine.logger.Warn("classification failed, treating request as complex", map[string]interface{}{
			"task":  r.taskID,
			"error": err.Error(),
		})
		return false
	}

	if c.NeedsClarification {
		question := c.ClarificationQuestion
		if question == "" {
			question = "Could you clarify what you need?"
		}
		r.terminal(EventClarify, fmt.Sprintf("I need clarification: %s", question), false)
		return true
	}

	if !c.Simple() {
		return false
	}

	r.emit(Event{Kind: EventPhase, Text: "Answering directly."})
	answer, err := r.engine.gateway.Answer(r.ctx, r.goal)
	if err != nil {
		r.terminal(EventFinal, fmt.Sprintf("Execution failed: %v", err), false)
		return true
	}
	r.terminal(EventFinal, answer, true)
	return true
}

// research runs the research phase. A reasoning failure here is fatal
// to the task. Returns the accumulated research context for planning.
func (r *run) research() (string, bool) {
	r.emit(Event{Kind: EventPhase, Text: fmt.Sprintf("Starting research for: %s", r.goal)})

	result, err := r.engine.gateway.Research(r.ctx, researchPrompt(r.goal, r.engine.memory.RenderContext()))
	if err != nil {
		r.terminal(EventFinal, fmt.Sprintf("Execution failed: %v", err), false)
		return "", true
	}

	if err := r.engine.memory.RecordResearch(result.Summary); err != nil {
		r.terminal(EventFinal, fmt.Sprintf("Execution failed: %v", err), false)
		return "", true
	}

	r.emit(Event{Kind: EventInfo, Text: fmt.Sprintf("Research complete. Confidence: %.0f%%", result.Confidence*100)})
	if len(result.KeyFindings) > 0 {
		n := len(result.KeyFindings)
		if n > 3 {
			n = 3
		}
		r.emit(Event{Kind: EventInfo, Text: "Key findings: " + strings.Join(result.KeyFindings[:n], ", ")})
	}

	context := result.Summary
	if result.NeedsMoreResearch {
		// One supplementary raw search to enrich context; no loop here.
		r.emit(Event{Kind: EventInfo, Text: "Research indicates more information needed. Searching..."})
		extra := r.engine.actions.Run(r.ctx, task.ActionSearch, r.goal)
		if extra.OK {
			context += "\n\nAdditional research:\n" + extra.Text
		}
	}
	return context, false
}

// plan runs the planning phase and the whole-plan confirmation gate.
func (r *run) plan(research string) (*planOutcome, bool) {
	r.emit(Event{Kind: EventPhase, Text: "Creating execution plan..."})

	plan, err := r.engine.gateway.Plan(r.ctx, planPrompt(r.goal, research, r.engine.memory.RenderContext()))
	if err != nil {
		r.terminal(EventFinal, fmt.Sprintf("Execution failed: %v", err), false)
		return nil, true
	}

	// Whole-plan gate: a plan flagged for verification that contains a
	// destructive-looking shell step is surfaced to the caller for
	// explicit confirmation instead of executed.
	if plan.RequiresVerification && hasDestructiveStep(plan.Steps) {
		summary := planSummary(plan.Steps)
		r.terminal(EventConfirm,
			fmt.Sprintf("This plan contains potentially destructive steps:\n\n%s\n\nConfirm before executing.", summary),
			false)
		return nil, true
	}

	if err := r.engine.memory.SetPlan(plan.Steps); err != nil {
		r.terminal(EventFinal, fmt.Sprintf("Execution failed: %v", err), false)
		return nil, true
	}

	r.emit(Event{Kind: EventInfo, Text: fmt.Sprintf("Plan created with %d steps. Estimated difficulty: %s", len(plan.Steps), plan.Difficulty)})
	return &planOutcome{steps: plan.Steps}, false
}

// planOutcome carries the accepted plan into step execution.
type planOutcome struct {
	steps []task.StepSpec
}

// destructiveMarkers flags plan steps that warrant a confirmation stop.
// Broader than the executor's deny-list: the gate asks, the deny-list
// refuses.
var destructiveMarkers = []string{
	"rm ", "rmdir", "sudo", "chmod", "chown", "dd ", "mkfs", "fdisk", "> /dev/",
}

func hasDestructiveStep(steps []task.StepSpec) bool {
	for _, s := range steps {
		if s.Kind != task.ActionShell {
			continue
		}
		lower := strings.ToLower(s.Command)
		for _, marker := range destructiveMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

func planSummary(steps []task.StepSpec) string {
	var b strings.Builder
	for _, s := range steps {
		fmt.Fprintf(&b, "%d. %s", s.Number, s.Description)
		if s.Command != "" {
			fmt.Fprintf(&b, " (%s: %s)", s.Kind, s.Command)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
