// Package replay provides session replay and visualization.
package replay

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/openclaw/instant-agent/internal/session"
)

// Replayer reads and formats session events for forensic analysis.
type Replayer struct {
	output         io.Writer
	verbosity      int // 0=normal, 1=verbose (-v), 2=very verbose (-vv)
	maxContentSize int // Maximum size for Content fields (0 = unlimited)
}

// ReplayerOption configures a Replayer.
type ReplayerOption func(*Replayer)

// WithMaxContentSize limits Content field size to avoid OOM on large sessions.
func WithMaxContentSize(size int) ReplayerOption {
	return func(r *Replayer) {
		r.maxContentSize = size
	}
}

// New creates a new Replayer.
func New(output io.Writer, verbosity int, opts ...ReplayerOption) *Replayer {
	r := &Replayer{
		output:         output,
		verbosity:      verbosity,
		maxContentSize: 50 * 1024, // Default: 50KB per content field
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReplayFile loads and replays a session from a JSONL file.
func (r *Replayer) ReplayFile(path string) error {
	sess, err := session.LoadFile(path)
	if err != nil {
		return err
	}
	return r.Replay(sess)
}

// ReplayFileInteractive loads and replays with an interactive pager.
func (r *Replayer) ReplayFileInteractive(path string) error {
	sess, err := session.LoadFile(path)
	if err != nil {
		return err
	}
	return r.ReplayInteractive(sess)
}

// ReplayInteractive outputs a formatted timeline using an interactive pager.
func (r *Replayer) ReplayInteractive(sess *session.Session) error {
	var buf strings.Builder
	oldOutput := r.output
	r.output = &buf

	if err := r.Replay(sess); err != nil {
		r.output = oldOutput
		return err
	}
	r.output = oldOutput

	title := fmt.Sprintf("Session: %s", sess.ID)
	p := NewPager(title)
	return p.Run(buf.String())
}

// Replay outputs a formatted timeline of session events.
func (r *Replayer) Replay(sess *session.Session) error {
	r.printHeader(sess)
	r.printTimeline(sess)
	r.printSummary(sess)
	return nil
}

func (r *Replayer) printHeader(sess *session.Session) {
	fmt.Fprintln(r.output)
	fmt.Fprintf(r.output, "%s %s\n", titleStyle.Render("SESSION"), valueStyle.Render(sess.ID))
	fmt.Fprintln(r.output, divider)
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Goal:   "), valueStyle.Render(sess.Goal))
	if sess.TaskID != "" {
		fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Task:   "), valueStyle.Render(sess.TaskID))
	}
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Status: "), r.statusStyle(sess.Status).Render(sess.Status))
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Created:"), valueStyle.Render(sess.CreatedAt.Format(time.RFC3339)))
	fmt.Fprintln(r.output)
}

func (r *Replayer) printTimeline(sess *session.Session) {
	fmt.Fprintf(r.output, "%s %s\n", titleStyle.Render("TIMELINE"), dimStyle.Render(fmt.Sprintf("(%d events)", len(sess.Events))))
	fmt.Fprintln(r.output, divider)

	for i := range sess.Events {
		r.formatEvent(&sess.Events[i])
	}
}

func (r *Replayer) printSummary(sess *session.Session) {
	fmt.Fprintln(r.output)
	fmt.Fprintln(r.output, divider)

	switch sess.Status {
	case session.StatusComplete:
		fmt.Fprintln(r.output, successStyle.Render("COMPLETED"))
	case session.StatusFailed:
		fmt.Fprintln(r.output, errorStyle.Render("FAILED"))
	default:
		fmt.Fprintln(r.output, warnStyle.Render("RUNNING"))
	}

	if sess.Result != "" {
		fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Result:"), valueStyle.Render(r.truncate(sess.Result)))
	}

	stats := ComputeStats(sess)
	PrintStats(r.output, stats)
}

// formatEvent renders one timeline row: "  seq │ HH:MM:SS │ content".
func (r *Replayer) formatEvent(event *session.Event) {
	seq := seqStyle.Render(fmt.Sprintf("%d", event.SeqID))
	ts := dimStyle.Render(event.Timestamp.Format("15:04:05"))
	sep := dimStyle.Render("│")

	content := r.truncate(event.Content)
	switch event.Type {
	case session.EventPhase:
		content = phaseStyle.Render(content)
	case session.EventStepStart:
		content = stepStyle.Render(content)
	case session.EventStepResult:
		if event.Success != nil && !*event.Success {
			content = errorStyle.Render(content)
		} else {
			content = successStyle.Render(content)
		}
		if event.RetryCount > 0 {
			content += dimStyle.Render(fmt.Sprintf(" (retries: %d)", event.RetryCount))
		}
	case session.EventClarify, session.EventConfirm:
		content = promptStyle.Render(content)
	case session.EventFinal:
		if event.Success != nil && !*event.Success {
			content = errorStyle.Render(content)
		} else {
			content = successStyle.Render(content)
		}
	default:
		content = valueStyle.Render(content)
	}

	fmt.Fprintf(r.output, "%s %s %s %s %s\n", seq, sep, ts, sep, content)

	if r.verbosity >= 1 && event.Step > 0 {
		fmt.Fprintf(r.output, "%s %s %s\n", seqStyle.Render(""), sep, dimStyle.Render(fmt.Sprintf("step=%d type=%s", event.Step, event.Type)))
	}
}

func (r *Replayer) statusStyle(status string) interface{ Render(...string) string } {
	switch status {
	case session.StatusComplete:
		return successStyle
	case session.StatusFailed:
		return errorStyle
	default:
		return warnStyle
	}
}

// truncate bounds content to maxContentSize for display.
func (r *Replayer) truncate(s string) string {
	// Timeline rows are single-line; fold embedded newlines.
	s = strings.ReplaceAll(s, "\n", " ")
	if r.maxContentSize > 0 && len(s) > r.maxContentSize {
		return s[:r.maxContentSize] + dimStyle.Render(" …[truncated]")
	}
	return s
}
