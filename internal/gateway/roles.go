// Role-scoped reasoning calls and their output schemas.
package gateway

import (
	"context"
	"fmt"

	"github.com/openclaw/instant-agent/internal/task"
)

// Classification is the router role's judgment of a user request.
type Classification struct {
	Type                  string `json:"type"` // "simple" or "complex"
	Reasoning             string `json:"reasoning"`
	NeedsClarification    bool   `json:"needs_clarification"`
	ClarificationQuestion string `json:"clarification_question,omitempty"`
}

// Simple reports whether the request should be answered directly.
func (c *Classification) Simple() bool { return c.Type == "simple" }

// ResearchResult is the researcher role's output.
type ResearchResult struct {
	Summary           string   `json:"summary"`
	KeyFindings       []string `json:"key_findings"`
	NeedsMoreResearch bool     `json:"needs_more_research"`
	Confidence        float64  `json:"confidence"`
}

// ExecutionPlan is the planner role's output after validation. Steps
// carry parsed action kinds; an invalid kind fails the whole plan.
type ExecutionPlan struct {
	Steps                []task.StepSpec
	Difficulty           string
	RequiresVerification bool
}

// Verification is the verifier role's judgment of one executed step.
type Verification struct {
	Success      bool     `json:"success"`
	Confidence   float64  `json:"confidence"`
	Issues       []string `json:"issues"`
	ShouldRetry  bool     `json:"should_retry"`
	ShouldReplan bool     `json:"should_replan"`
	NextAction   string   `json:"next_action"` // continue, retry, replan, stop
}

// Classify judges whether a request is simple or complex.
func (g *Gateway) Classify(ctx context.Context, prompt string) (*Classification, error) {
	const role = "classifier"
	text, err := g.chat(ctx, g.small, role, classifierPrompt, prompt)
	if err != nil {
		return nil, err
	}
	var c Classification
	if err := decodeJSON(text, &c); err != nil {
		return nil, failure(role, err)
	}
	if c.Type != "simple" && c.Type != "complex" {
		return nil, failure(role, fmt.Errorf("unknown classification type %q", c.Type))
	}
	return &c, nil
}

// Research gathers context before planning.
func (g *Gateway) Research(ctx context.Context, prompt string) (*ResearchResult, error) {
	const role = "researcher"
	text, err := g.chat(ctx, g.provider, role, researcherPrompt, prompt)
	if err != nil {
		return nil, err
	}
	var r ResearchResult
	if err := decodeJSON(text, &r); err != nil {
		return nil, failure(role, err)
	}
	if r.Summary == "" {
		return nil, failure(role, fmt.Errorf("research result missing summary"))
	}
	r.Confidence = clamp01(r.Confidence)
	return &r, nil
}

// planPayload is the wire shape of the planner response.
type planPayload struct {
	Steps []struct {
		Description string `json:"description"`
		Action      string `json:"action"`
		Command     string `json:"command,omitempty"`
	} `json:"steps"`
	Difficulty           string `json:"difficulty"`
	RequiresVerification bool   `json:"requires_verification"`
}

// Plan produces an execution plan. A plan with no steps or an unknown
// action kind is a schema violation, not an empty answer.
func (g *Gateway) Plan(ctx context.Context, prompt string) (*ExecutionPlan, error) {
	const role = "planner"
	text, err := g.chat(ctx, g.provider, role, plannerPrompt, prompt)
	if err != nil {
		return nil, err
	}
	var p planPayload
	if err := decodeJSON(text, &p); err != nil {
		return nil, failure(role, err)
	}
	if len(p.Steps) == 0 {
		return nil, failure(role, fmt.Errorf("plan has no steps"))
	}

	plan := &ExecutionPlan{
		Difficulty:           p.Difficulty,
		RequiresVerification: p.RequiresVerification,
	}
	for i, raw := range p.Steps {
		kind, err := task.ParseActionKind(raw.Action)
		if err != nil {
			return nil, failure(role, fmt.Errorf("step %d: %w", i+1, err))
		}
		plan.Steps = append(plan.Steps, task.StepSpec{
			Number:      i + 1,
			Description: raw.Description,
			Kind:        kind,
			Command:     raw.Command,
		})
	}
	return plan, nil
}

// Verify judges one executed step's raw output.
func (g *Gateway) Verify(ctx context.Context, prompt string) (*Verification, error) {
	const role = "verifier"
	text, err := g.chat(ctx, g.small, role, verifierPrompt, prompt)
	if err != nil {
		return nil, err
	}
	var v Verification
	if err := decodeJSON(text, &v); err != nil {
		return nil, failure(role, err)
	}
	if v.NextAction == "" {
		v.NextAction = "continue"
	}
	v.Confidence = clamp01(v.Confidence)
	return &v, nil
}

// clamp01 bounds a confidence value to [0, 1].
func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
