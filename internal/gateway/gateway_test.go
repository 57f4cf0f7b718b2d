package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/vinayprograms/agentkit/llm"
)

func TestClassifySimple(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetResponse(`{"type": "simple", "reasoning": "greeting"}`)
	gw := New(provider, nil)

	c, err := gw.Classify(context.Background(), "hello")
	if err != nil {
		t.Fatalf("classify error: %v", err)
	}
	if !c.Simple() {
		t.Error("expected simple classification")
	}
	if c.NeedsClarification {
		t.Error("unexpected clarification request")
	}
}

func TestClassifyFencedJSON(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetResponse("```json\n{\"type\": \"complex\", \"reasoning\": \"multi-step\"}\n```")
	gw := New(provider, nil)

	c, err := gw.Classify(context.Background(), "set up a cron job")
	if err != nil {
		t.Fatalf("classify error: %v", err)
	}
	if c.Simple() {
		t.Error("expected complex classification")
	}
}

func TestClassifyUnknownType(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetResponse(`{"type": "medium"}`)
	gw := New(provider, nil)

	_, err := gw.Classify(context.Background(), "hello")
	var rf *ReasoningFailure
	if !errors.As(err, &rf) {
		t.Fatalf("error = %v, want ReasoningFailure", err)
	}
	if rf.Role != "classifier" {
		t.Errorf("failure role = %q", rf.Role)
	}
}

func TestClassifyUsesSmallProvider(t *testing.T) {
	main := llm.NewMockProvider()
	main.SetResponse(`{"type": "simple"}`)
	small := llm.NewMockProvider()
	small.SetResponse(`{"type": "complex"}`)
	gw := New(main, small)

	c, err := gw.Classify(context.Background(), "hello")
	if err != nil {
		t.Fatalf("classify error: %v", err)
	}
	if c.Simple() {
		t.Error("classification should come from the small provider")
	}
}

func TestResearchMissingSummary(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetResponse(`{"summary": "", "key_findings": []}`)
	gw := New(provider, nil)

	if _, err := gw.Research(context.Background(), "query"); err == nil {
		t.Fatal("expected error for missing summary")
	}
}

func TestResearchClampsConfidence(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetResponse(`{"summary": "found it", "confidence": 1.7}`)
	gw := New(provider, nil)

	r, err := gw.Research(context.Background(), "query")
	if err != nil {
		t.Fatalf("research error: %v", err)
	}
	if r.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", r.Confidence)
	}
}

func TestPlanNumbersSteps(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetResponse(`{
		"steps": [
			{"description": "find docs", "action": "search", "command": "golang exec docs"},
			{"description": "list files", "action": "shell", "command": "ls -la"}
		],
		"difficulty": "easy",
		"requires_verification": false
	}`)
	gw := New(provider, nil)

	plan, err := gw.Plan(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("plan error: %v", err)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("got %d steps", len(plan.Steps))
	}
	for i, step := range plan.Steps {
		if step.Number != i+1 {
			t.Errorf("step %d numbered %d", i, step.Number)
		}
	}
	if plan.Difficulty != "easy" {
		t.Errorf("difficulty = %q", plan.Difficulty)
	}
}

func TestPlanRejectsEmptyAndUnknownKind(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetResponse(`{"steps": []}`)
	gw := New(provider, nil)
	if _, err := gw.Plan(context.Background(), "prompt"); err == nil {
		t.Error("expected error for empty plan")
	}

	provider.SetResponse(`{"steps": [{"description": "x", "action": "teleport"}]}`)
	if _, err := gw.Plan(context.Background(), "prompt"); err == nil {
		t.Error("expected error for unknown action kind")
	}
}

func TestVerifyDefaults(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetResponse(`{"success": true, "confidence": 0.9}`)
	gw := New(provider, nil)

	v, err := gw.Verify(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("verify error: %v", err)
	}
	if !v.Success {
		t.Error("expected success")
	}
	if v.NextAction != "continue" {
		t.Errorf("next action = %q, want continue", v.NextAction)
	}
}

func TestTransportErrorIsReasoningFailure(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.ChatFunc = func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		return nil, errors.New("connection refused")
	}
	gw := New(provider, nil)

	_, err := gw.Research(context.Background(), "query")
	var rf *ReasoningFailure
	if !errors.As(err, &rf) {
		t.Fatalf("error = %v, want ReasoningFailure", err)
	}
	if rf.Role != "researcher" {
		t.Errorf("failure role = %q", rf.Role)
	}
}

func TestAnswerTrimsResponse(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetResponse("  The answer is 42.  \n")
	gw := New(provider, nil)

	text, err := gw.Answer(context.Background(), "what is the answer?")
	if err != nil {
		t.Fatalf("answer error: %v", err)
	}
	if text != "The answer is 42." {
		t.Errorf("answer = %q", text)
	}
}
