// Package gateway adapts the external reasoning service for the task
// engine. Each role (classifier, researcher, planner, verifier) is a
// stateless call: a self-contained prompt in, a typed result out. A
// malformed or unreachable response surfaces as a ReasoningFailure,
// never as a semantic answer.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/agentkit/logging"
)

// ReasoningFailure marks a reasoning call that failed at the
// infrastructure level: transport error, timeout, or a response that
// does not satisfy the role's schema. It is fatal to the current task
// but not to the engine.
type ReasoningFailure struct {
	Role string
	Err  error
}

func (f *ReasoningFailure) Error() string {
	return fmt.Sprintf("reasoning failure in %s: %v", f.Role, f.Err)
}

func (f *ReasoningFailure) Unwrap() error { return f.Err }

// failure wraps err for a role.
func failure(role string, err error) *ReasoningFailure {
	return &ReasoningFailure{Role: role, Err: err}
}

// Gateway routes role-scoped calls to LLM providers. The small provider
// serves the cheap roles (classification, verification); it falls back
// to the main provider when absent.
type Gateway struct {
	provider llm.Provider
	small    llm.Provider
	timeout  time.Duration
	logger   *logging.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout bounds each reasoning call. Zero means no bound beyond
// the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

// New creates a gateway. small may be nil.
func New(provider, small llm.Provider, opts ...Option) *Gateway {
	if small == nil {
		small = provider
	}
	g := &Gateway{
		provider: provider,
		small:    small,
		logger:   logging.New().WithComponent("gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// chat performs one request against the given provider and returns the
// raw response text.
func (g *Gateway) chat(ctx context.Context, provider llm.Provider, role, system, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	resp, err := provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", failure(role, err)
	}
	g.logger.Debug("reasoning call complete", map[string]interface{}{
		"role":  role,
		"bytes": len(resp.Content),
	})
	return resp.Content, nil
}

// Answer handles a simple request directly, with no schema.
func (g *Gateway) Answer(ctx context.Context, prompt string) (string, error) {
	text, err := g.chat(ctx, g.provider, "assistant", assistantPrompt, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
