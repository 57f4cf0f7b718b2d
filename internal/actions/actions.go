// Package actions invokes the two external capabilities (web search,
// shell execution) on behalf of the engine. The executor's contract is
// to always return a result: failures, timeouts and blocked commands
// come back as descriptive text with OK=false, never as panics or
// errors past this boundary.
package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/vinayprograms/agentkit/logging"

	"github.com/openclaw/instant-agent/internal/task"
)

// Result is the outcome of one action invocation.
type Result struct {
	Text string
	OK   bool
}

// Searcher is the web search capability.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// ShellRunner is the command execution capability.
type ShellRunner interface {
	Run(ctx context.Context, command string) Result
}

// denyList blocks dangerous command substrings before the shell is ever
// invoked. Matched case-insensitively.
var denyList = []string{
	"rm -rf",
	"sudo",
	"chmod 777",
	"dd if=",
	"mkfs",
	"fdisk",
}

// blockedText is the result for a deny-list match.
const blockedText = "Command blocked for safety reasons."

// Executor routes typed action requests to the capabilities.
type Executor struct {
	searcher  Searcher
	shell     ShellRunner
	extraDeny []string
	logger    *logging.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithSearcher overrides the search capability.
func WithSearcher(s Searcher) Option {
	return func(e *Executor) { e.searcher = s }
}

// WithShellRunner overrides the shell capability.
func WithShellRunner(r ShellRunner) Option {
	return func(e *Executor) { e.shell = r }
}

// WithExtraDeny appends operator-configured deny substrings.
func WithExtraDeny(patterns []string) Option {
	return func(e *Executor) { e.extraDeny = patterns }
}

// New creates an executor with the real capabilities unless overridden.
func New(opts ...Option) *Executor {
	e := &Executor{
		shell:  NewShell(DefaultShellTimeout),
		logger: logging.New().WithComponent("actions"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one action and always returns. Unsupported kinds come
// back as OK=false with an explanation rather than a fault.
func (e *Executor) Run(ctx context.Context, kind task.ActionKind, command string) Result {
	switch kind {
	case task.ActionSearch:
		return e.runSearch(ctx, command)
	case task.ActionShell:
		return e.runShell(ctx, command)
	default:
		return Result{
			Text: fmt.Sprintf("Unsupported action type: %s", kind),
			OK:   false,
		}
	}
}

// runSearch delegates to the search capability, flattening errors into
// descriptive text so the channel always yields a string.
func (e *Executor) runSearch(ctx context.Context, query string) Result {
	if e.searcher == nil {
		return Result{Text: "Search error: no search capability configured", OK: false}
	}
	text, err := e.searcher.Search(ctx, query)
	if err != nil {
		e.logger.Warn("search failed", map[string]interface{}{
			"query": query,
			"error": err.Error(),
		})
		return Result{Text: fmt.Sprintf("Search error: %v", err), OK: false}
	}
	return Result{Text: text, OK: true}
}

// runShell checks the deny-list and delegates to the shell capability.
// A deny-list match short-circuits without spawning anything.
func (e *Executor) runShell(ctx context.Context, command string) Result {
	if blocked, pattern := e.denied(command); blocked {
		e.logger.Warn("command blocked", map[string]interface{}{
			"command": command,
			"pattern": pattern,
		})
		return Result{Text: blockedText, OK: false}
	}
	return e.shell.Run(ctx, command)
}

// denied reports whether the command matches the deny-list and which
// pattern matched.
func (e *Executor) denied(command string) (bool, string) {
	lower := strings.ToLower(command)
	for _, pattern := range denyList {
		if strings.Contains(lower, pattern) {
			return true, pattern
		}
	}
	for _, pattern := range e.extraDeny {
		if pattern == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true, pattern
		}
	}
	return false, ""
}
