// Event emission, session mirroring, and task closing.
package engine

import (
	"context"

	"github.com/openclaw/instant-agent/internal/session"
)

// send delivers one event, abandoning delivery if the caller's context
// is gone. Emission is immediate and strictly ordered; there is no
// buffering between the state machine and the channel.
func (e *Engine) send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// emit delivers a non-terminal progress event and mirrors it into the
// session log.
func (r *run) emit(ev Event) {
	r.engine.send(r.ctx, r.ch, ev)
	r.record(ev)
}

// terminal closes the memory task, emits the single terminal event and
// finalizes the session. Safe to call once per run; later calls are
// ignored so the one-terminal-event guarantee holds.
func (r *run) terminal(kind EventKind, text string, success bool) {
	if r.terminalSent {
		return
	}
	r.terminalSent = true
	r.success = success

	r.closeTask(text, success)

	ev := Event{Kind: kind, Text: text, Terminal: true, Success: success}
	r.engine.send(r.ctx, r.ch, ev)
	r.record(ev)

	if r.sess != nil {
		if success {
			r.sess.Status = session.StatusComplete
		} else {
			r.sess.Status = session.StatusFailed
		}
		r.sess.Result = text
		if err := r.engine.sessions.Update(r.sess); err != nil {
			r.engine.logger.Warn("could not finalize session", map[string]interface{}{
				"session": r.sess.ID,
				"error":   err.Error(),
			})
		}
	}
}

// closeTask completes the memory task exactly once.
func (r *run) closeTask(result string, success bool) {
	if r.taskClosed || r.taskID == "" {
		return
	}
	r.taskClosed = true
	if err := r.engine.memory.CompleteTask(result, success); err != nil {
		r.engine.logger.Error("could not close task", map[string]interface{}{
			"task":  r.taskID,
			"error": err.Error(),
		})
	}
}

// outcome reports the terminal status for tracing.
func (r *run) outcome() string {
	if r.success {
		return "completed"
	}
	return "failed"
}

// record mirrors an engine event into the session log.
func (r *run) record(ev Event) {
	if r.sess == nil {
		return
	}

	sev := session.Event{Content: ev.Text, Step: ev.Step, RetryCount: ev.Retry}
	if ev.Terminal || ev.Kind == EventStepResult {
		success := ev.Success
		sev.Success = &success
	}
	switch ev.Kind {
	case EventPhase:
		sev.Type = session.EventPhase
	case EventStep:
		sev.Type = session.EventStepStart
	case EventStepResult:
		sev.Type = session.EventStepResult
	case EventClarify:
		sev.Type = session.EventClarify
	case EventConfirm:
		sev.Type = session.EventConfirm
	case EventFinal:
		sev.Type = session.EventFinal
	default:
		sev.Type = session.EventInfo
	}
	r.sess.AddEvent(sev)

	if err := r.engine.sessions.Update(r.sess); err != nil {
		r.engine.logger.Debug("session update failed", map[string]interface{}{
			"session": r.sess.ID,
			"error":   err.Error(),
		})
	}
}
