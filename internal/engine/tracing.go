// Tracing instrumentation for task execution.
package engine

import (
	"context"
	"fmt"

	"github.com/vinayprograms/agentkit/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openclaw/instant-agent/internal/task"
)

// startTaskSpan starts a span covering one submitted goal.
func (e *Engine) startTaskSpan(ctx context.Context, taskID, goal string) (context.Context, trace.Span) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartSpan(ctx, "task.run")
	span.SetAttributes(
		attribute.String("task.id", taskID),
	)
	if tracer.Debug() {
		span.SetAttributes(attribute.String("task.goal", truncateForTrace(goal, 500)))
	}
	return ctx, span
}

// endTaskSpan ends the task span with the outcome.
func (e *Engine) endTaskSpan(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String("task.outcome", outcome))
	span.End()
}

// startStepSpan starts a span for one plan step.
func (e *Engine) startStepSpan(ctx context.Context, spec task.StepSpec) (context.Context, trace.Span) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartSpan(ctx, fmt.Sprintf("step.%d", spec.Number))
	span.SetAttributes(
		attribute.Int("step.number", spec.Number),
		attribute.String("step.kind", string(spec.Kind)),
	)
	if tracer.Debug() && spec.Command != "" {
		span.SetAttributes(attribute.String("step.command", truncateForTrace(spec.Command, 500)))
	}
	return ctx, span
}

func truncateForTrace(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
