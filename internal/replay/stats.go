package replay

import (
	"fmt"
	"io"
	"time"

	"github.com/openclaw/instant-agent/internal/session"
)

// Stats holds aggregate statistics for a session.
type Stats struct {
	// Wall-clock span from first to last event
	TotalDurationMs int64

	// Plan step outcomes
	StepCount    int
	StepsOK      int
	StepsFailed  int
	TotalRetries int

	// Phase transitions observed
	PhaseCount int
}

// ComputeStats calculates aggregate statistics from session events.
func ComputeStats(sess *session.Session) *Stats {
	stats := &Stats{}

	var firstEvent, lastEvent time.Time
	for _, event := range sess.Events {
		if firstEvent.IsZero() || event.Timestamp.Before(firstEvent) {
			firstEvent = event.Timestamp
		}
		if lastEvent.IsZero() || event.Timestamp.After(lastEvent) {
			lastEvent = event.Timestamp
		}

		switch event.Type {
		case session.EventPhase:
			stats.PhaseCount++
		case session.EventStepResult:
			stats.StepCount++
			if event.Success != nil && !*event.Success {
				stats.StepsFailed++
			} else {
				stats.StepsOK++
			}
			stats.TotalRetries += event.RetryCount
		}
	}

	if !firstEvent.IsZero() && !lastEvent.IsZero() {
		stats.TotalDurationMs = lastEvent.Sub(firstEvent).Milliseconds()
	}
	return stats
}

// PrintStats prints aggregate statistics.
func PrintStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n",
		labelStyle.Render("Duration:"),
		valueStyle.Render(formatDuration(stats.TotalDurationMs)))
	if stats.StepCount > 0 {
		fmt.Fprintf(w, "%s %s\n",
			labelStyle.Render("Steps:   "),
			valueStyle.Render(fmt.Sprintf("%d (%d ok, %d failed, %d retries)",
				stats.StepCount, stats.StepsOK, stats.StepsFailed, stats.TotalRetries)))
	}
}

// formatDuration renders a millisecond count as a human-readable duration.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	d := time.Duration(ms) * time.Millisecond
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
