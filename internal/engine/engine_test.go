package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/vinayprograms/agentkit/llm"

	"github.com/openclaw/instant-agent/internal/actions"
	"github.com/openclaw/instant-agent/internal/gateway"
	"github.com/openclaw/instant-agent/internal/memory"
	"github.com/openclaw/instant-agent/internal/session"
)

// Canned role responses. The scripted provider routes on the system
// prompt of each call.
const (
	respSimple   = `{"type": "simple", "reasoning": "direct question"}`
	respComplex  = `{"type": "complex", "reasoning": "needs steps"}`
	respResearch = `{"summary": "environment looks standard", "key_findings": ["sh available"], "needs_more_research": false, "confidence": 0.9}`
	respVerifyOK = `{"success": true, "confidence": 0.9, "issues": [], "should_retry": false, "should_replan": false, "next_action": "continue"}`
)

func planResponse(steps ...string) string {
	return fmt.Sprintf(`{"steps": [%s], "difficulty": "easy", "requires_verification": false}`, strings.Join(steps, ","))
}

func shellStep(desc, cmd string) string {
	return fmt.Sprintf(`{"description": %q, "action": "shell", "command": %q}`, desc, cmd)
}

// roleHandlers maps a distinctive system-prompt substring to the
// handler producing that role's response.
type roleHandlers map[string]func(prompt string) string

// scripted builds a mock provider that answers each reasoning call by
// role. Unexpected calls fail the test.
func scripted(t *testing.T, handlers roleHandlers) llm.Provider {
	t.Helper()
	p := llm.NewMockProvider()
	p.ChatFunc = func(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
		if len(req.Messages) < 2 {
			t.Errorf("reasoning call without system+user messages: %+v", req.Messages)
			return nil, fmt.Errorf("malformed request")
		}
		system := req.Messages[0].Content
		for marker, h := range handlers {
			if strings.Contains(system, marker) {
				return &llm.ChatResponse{Content: h(req.Messages[1].Content)}, nil
			}
		}
		t.Errorf("unexpected reasoning call, system prompt: %.60s", system)
		return nil, fmt.Errorf("unexpected call")
	}
	return p
}

const (
	markClassifier = "request classifier"
	markResearcher = "research agent"
	markPlanner    = "planning agent"
	markVerifier   = "verification agent"
	markAssistant  = "helpful assistant"
)

// fakeShell records commands and returns scripted results.
type fakeShell struct {
	mu       sync.Mutex
	commands []string
	results  []actions.Result // consumed in order; last one repeats
}

func (f *fakeShell) Run(ctx context.Context, command string) actions.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)
	if len(f.results) == 0 {
		return actions.Result{Text: "STDOUT:\nok\nReturn code: 0", OK: true}
	}
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return res
}

func (f *fakeShell) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.commands))
	copy(out, f.commands)
	return out
}

type fakeSearch struct {
	mu      sync.Mutex
	queries []string
	text    string
}

func (f *fakeSearch) Search(ctx context.Context, query string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.text, nil
}

func newTestEngine(t *testing.T, main, small llm.Provider, shell *fakeShell, search *fakeSearch) (*Engine, *memory.Store) {
	t.Helper()
	store := memory.Open(filepath.Join(t.TempDir(), "memory.json"))
	opts := []actions.Option{actions.WithShellRunner(shell)}
	if search != nil {
		opts = append(opts, actions.WithSearcher(search))
	}
	eng := New(store, gateway.New(main, small), actions.New(opts...))
	return eng, store
}

func collect(ch <-chan Event) []Event {
	var evs []Event
	for ev := range ch {
		evs = append(evs, ev)
	}
	return evs
}

// assertSingleTerminal checks the stream invariant: at least one event,
// exactly one terminal, and it is the last.
func assertSingleTerminal(t *testing.T, evs []Event) Event {
	t.Helper()
	if len(evs) == 0 {
		t.Fatal("no events emitted")
	}
	terminals := 0
	for _, ev := range evs {
		if ev.Terminal {
			terminals++
		}
	}
	if terminals != 1 {
		t.Fatalf("got %d terminal events, want 1: %+v", terminals, evs)
	}
	last := evs[len(evs)-1]
	if !last.Terminal {
		t.Fatalf("terminal event is not last: %+v", evs)
	}
	return last
}

func TestSimpleRequestAnsweredDirectly(t *testing.T) {
	main := scripted(t, roleHandlers{
		markAssistant: func(string) string { return "Paris is the capital of France." },
	})
	small := scripted(t, roleHandlers{
		markClassifier: func(string) string { return respSimple },
	})
	shell := &fakeShell{}
	eng, store := newTestEngine(t, main, small, shell, nil)

	evs := collect(eng.Submit(context.Background(), "what is the capital of France?"))
	last := assertSingleTerminal(t, evs)

	if last.Kind != EventFinal || !last.Success {
		t.Errorf("terminal = %+v", last)
	}
	if last.Text != "Paris is the capital of France." {
		t.Errorf("answer = %q", last.Text)
	}
	if len(shell.calls()) != 0 {
		t.Errorf("shell invoked for simple request: %v", shell.calls())
	}

	hist := store.History()
	if len(hist) != 1 || !hist[0].Success {
		t.Errorf("history = %+v", hist)
	}
	if store.ActiveTask() != nil {
		t.Error("task left active")
	}
}

func TestClarificationShortCircuit(t *testing.T) {
	main := scripted(t, roleHandlers{}) // any main-provider call is a test failure
	small := scripted(t, roleHandlers{
		markClassifier: func(string) string {
			return `{"type": "complex", "needs_clarification": true, "clarification_question": "Which server?"}`
		},
	})
	eng, store := newTestEngine(t, main, small, &fakeShell{}, nil)

	evs := collect(eng.Submit(context.Background(), "restart the server"))
	last := assertSingleTerminal(t, evs)

	if last.Kind != EventClarify {
		t.Errorf("terminal kind = %s", last.Kind)
	}
	if !strings.Contains(last.Text, "Which server?") {
		t.Errorf("clarification text = %q", last.Text)
	}
	if last.Success {
		t.Error("clarification terminal marked successful")
	}

	hist := store.History()
	if len(hist) != 1 || hist[0].Success {
		t.Errorf("history = %+v", hist)
	}
}

func TestComplexHappyPath(t *testing.T) {
	main := scripted(t, roleHandlers{
		markResearcher: func(string) string { return respResearch },
		markPlanner: func(string) string {
			return planResponse(
				shellStep("check hostname", "hostname"),
				shellStep("check uptime", "uptime"),
			)
		},
	})
	small := scripted(t, roleHandlers{
		markClassifier: func(string) string { return respComplex },
		markVerifier:   func(string) string { return respVerifyOK },
	})
	shell := &fakeShell{}
	eng, store := newTestEngine(t, main, small, shell, nil)

	evs := collect(eng.Submit(context.Background(), "report system status"))
	last := assertSingleTerminal(t, evs)

	if last.Kind != EventFinal || !last.Success {
		t.Errorf("terminal = %+v", last)
	}
	if !strings.Contains(last.Text, "2 steps") {
		t.Errorf("final text = %q", last.Text)
	}

	if got := shell.calls(); len(got) != 2 || got[0] != "hostname" || got[1] != "uptime" {
		t.Errorf("shell calls = %v", got)
	}

	// Phases appear in order before the steps.
	var kinds []EventKind
	for _, ev := range evs {
		kinds = append(kinds, ev.Kind)
	}
	wantPrefix := []EventKind{EventPhase} // research phase first
	for i, k := range wantPrefix {
		if kinds[i] != k {
			t.Errorf("event %d kind = %s, want %s", i, kinds[i], k)
		}
	}

	successes, _ := store.Patterns()
	if len(successes) != 2 {
		t.Errorf("learned %d success patterns, want 2", len(successes))
	}
	hist := store.History()
	if len(hist) != 1 || !hist[0].Success || hist[0].StepCount != 2 {
		t.Errorf("history = %+v", hist)
	}
}

func TestStepRetryExhaustionAdvances(t *testing.T) {
	verifyCalls := 0
	main := scripted(t, roleHandlers{
		markResearcher: func(string) string { return respResearch },
		markPlanner: func(string) string {
			return planResponse(
				shellStep("flaky step", "false"),
				shellStep("solid step", "true"),
			)
		},
	})
	small := scripted(t, roleHandlers{
		markClassifier: func(string) string { return respComplex },
		markVerifier: func(prompt string) string {
			if strings.Contains(prompt, "false") {
				verifyCalls++
				return `{"success": false, "issues": ["exit 1"], "should_retry": true, "should_replan": false, "next_action": "retry"}`
			}
			return respVerifyOK
		},
	})
	shell := &fakeShell{}
	eng, store := newTestEngine(t, main, small, shell, nil)

	evs := collect(eng.Submit(context.Background(), "run the thing"))
	last := assertSingleTerminal(t, evs)

	// The flaky step burns its whole retry budget, then execution
	// advances to the next step and the task still completes.
	if last.Kind != EventFinal || !last.Success {
		t.Errorf("terminal = %+v", last)
	}
	if verifyCalls != 3 {
		t.Errorf("flaky step verified %d times, want 3", verifyCalls)
	}

	calls := shell.calls()
	failed := 0
	for _, c := range calls {
		if c == "false" {
			failed++
		}
	}
	if failed != 3 {
		t.Errorf("flaky command ran %d times, want 3: %v", failed, calls)
	}
	if calls[len(calls)-1] != "true" {
		t.Errorf("later step did not run: %v", calls)
	}

	_, failures := store.Patterns()
	if len(failures) != 1 || failures[0].FailureCount != 1 {
		t.Errorf("failure patterns = %+v", failures)
	}
}

func TestReplanSignalFailsTask(t *testing.T) {
	main := scripted(t, roleHandlers{
		markResearcher: func(string) string { return respResearch },
		markPlanner: func(string) string {
			return planResponse(
				shellStep("doomed step", "exit 7"),
				shellStep("never runs", "echo later"),
			)
		},
	})
	small := scripted(t, roleHandlers{
		markClassifier: func(string) string { return respComplex },
		markVerifier: func(string) string {
			return `{"success": false, "issues": ["wrong approach"], "should_retry": false, "should_replan": true, "next_action": "replan"}`
		},
	})
	shell := &fakeShell{}
	eng, store := newTestEngine(t, main, small, shell, nil)

	evs := collect(eng.Submit(context.Background(), "do the migration"))
	last := assertSingleTerminal(t, evs)

	if last.Kind != EventFinal || last.Success {
		t.Errorf("terminal = %+v", last)
	}
	if !strings.Contains(last.Text, "replanning needed") {
		t.Errorf("final text = %q", last.Text)
	}
	if calls := shell.calls(); len(calls) != 1 {
		t.Errorf("shell calls after replan signal = %v", calls)
	}
	hist := store.History()
	if len(hist) != 1 || hist[0].Success {
		t.Errorf("history = %+v", hist)
	}
}

func TestVerifierStopEndsTask(t *testing.T) {
	main := scripted(t, roleHandlers{
		markResearcher: func(string) string { return respResearch },
		markPlanner: func(string) string {
			return planResponse(
				shellStep("blocked step", "curl unreachable"),
				shellStep("never runs", "echo later"),
			)
		},
	})
	small := scripted(t, roleHandlers{
		markClassifier: func(string) string { return respComplex },
		markVerifier: func(string) string {
			return `{"success": false, "issues": ["host unreachable"], "should_retry": false, "should_replan": false, "next_action": "stop"}`
		},
	})
	shell := &fakeShell{}
	eng, _ := newTestEngine(t, main, small, shell, nil)

	evs := collect(eng.Submit(context.Background(), "fetch the report"))
	last := assertSingleTerminal(t, evs)

	if last.Kind != EventFinal || last.Success {
		t.Errorf("terminal = %+v", last)
	}
	if !strings.Contains(last.Text, "stopped at step 1") {
		t.Errorf("final text = %q", last.Text)
	}
	if calls := shell.calls(); len(calls) != 1 {
		t.Errorf("shell ran %d commands, want 1: %v", len(calls), calls)
	}
}

func TestPlanConfirmationGate(t *testing.T) {
	main := scripted(t, roleHandlers{
		markResearcher: func(string) string { return respResearch },
		markPlanner: func(string) string {
			return `{"steps": [{"description": "clean old logs", "action": "shell", "command": "rm /var/log/old.log"}], "difficulty": "easy", "requires_verification": true}`
		},
	})
	small := scripted(t, roleHandlers{
		markClassifier: func(string) string { return respComplex },
	})
	shell := &fakeShell{}
	eng, store := newTestEngine(t, main, small, shell, nil)

	evs := collect(eng.Submit(context.Background(), "clean up logs"))
	last := assertSingleTerminal(t, evs)

	if last.Kind != EventConfirm {
		t.Errorf("terminal kind = %s", last.Kind)
	}
	if !strings.Contains(last.Text, "clean old logs") {
		t.Errorf("confirmation text = %q", last.Text)
	}
	if len(shell.calls()) != 0 {
		t.Errorf("destructive plan executed: %v", shell.calls())
	}
	if store.ActiveTask() != nil {
		t.Error("task left active after confirmation stop")
	}
}

func TestResearchFailureIsFatal(t *testing.T) {
	main := scripted(t, roleHandlers{
		markResearcher: func(string) string { return "I could not research that, sorry." },
	})
	small := scripted(t, roleHandlers{
		markClassifier: func(string) string { return respComplex },
	})
	eng, store := newTestEngine(t, main, small, &fakeShell{}, nil)

	evs := collect(eng.Submit(context.Background(), "investigate the outage"))
	last := assertSingleTerminal(t, evs)

	if last.Kind != EventFinal || last.Success {
		t.Errorf("terminal = %+v", last)
	}
	if !strings.HasPrefix(last.Text, "Execution failed:") {
		t.Errorf("final text = %q", last.Text)
	}
	hist := store.History()
	if len(hist) != 1 || hist[0].Success {
		t.Errorf("history = %+v", hist)
	}
}

func TestClassifierFailureFallsThroughToComplex(t *testing.T) {
	main := scripted(t, roleHandlers{
		markResearcher: func(string) string { return respResearch },
		markPlanner: func(string) string {
			return planResponse(shellStep("say hi", "echo hi"))
		},
	})
	small := scripted(t, roleHandlers{
		markClassifier: func(string) string { return "not json at all" },
		markVerifier:   func(string) string { return respVerifyOK },
	})
	shell := &fakeShell{}
	eng, _ := newTestEngine(t, main, small, shell, nil)

	evs := collect(eng.Submit(context.Background(), "say hi"))
	last := assertSingleTerminal(t, evs)

	if last.Kind != EventFinal || !last.Success {
		t.Errorf("terminal = %+v", last)
	}
	if got := shell.calls(); len(got) != 1 || got[0] != "echo hi" {
		t.Errorf("shell calls = %v", got)
	}
}

func TestSupplementarySearchEnrichesPlanning(t *testing.T) {
	var planPromptSeen string
	main := scripted(t, roleHandlers{
		markResearcher: func(string) string {
			return `{"summary": "need current version info", "key_findings": [], "needs_more_research": true, "confidence": 0.4}`
		},
		markPlanner: func(prompt string) string {
			planPromptSeen = prompt
			return planResponse(shellStep("print version", "go version"))
		},
	})
	small := scripted(t, roleHandlers{
		markClassifier: func(string) string { return respComplex },
		markVerifier:   func(string) string { return respVerifyOK },
	})
	search := &fakeSearch{text: "**Go 1.25 released**\nport details\nURL: https://go.dev"}
	eng, _ := newTestEngine(t, main, small, &fakeShell{}, search)

	evs := collect(eng.Submit(context.Background(), "what go version is current"))
	last := assertSingleTerminal(t, evs)

	if last.Kind != EventFinal || !last.Success {
		t.Errorf("terminal = %+v", last)
	}
	if len(search.queries) != 1 || search.queries[0] != "what go version is current" {
		t.Errorf("search queries = %v", search.queries)
	}
	if !strings.Contains(planPromptSeen, "Additional research:") {
		t.Error("supplementary search results not threaded into planning")
	}
	if !strings.Contains(planPromptSeen, "Go 1.25 released") {
		t.Errorf("plan prompt missing search content: %.200s", planPromptSeen)
	}
}

func TestSecondSubmitWhileBusy(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	main := scripted(t, roleHandlers{
		markResearcher: func(string) string { return respResearch },
		markPlanner: func(string) string {
			return planResponse(shellStep("wait", "slow-command"))
		},
	})
	small := scripted(t, roleHandlers{
		markClassifier: func(string) string { return respComplex },
		markVerifier:   func(string) string { return respVerifyOK },
	})

	gate := &gateShell{started: started, release: release}
	store := memory.Open(filepath.Join(t.TempDir(), "memory.json"))
	eng := New(store, gateway.New(main, small), actions.New(actions.WithShellRunner(gate)))

	first := eng.Submit(context.Background(), "long task")
	firstDone := make(chan []Event, 1)
	go func() { firstDone <- collect(first) }()

	<-started
	evs := collect(eng.Submit(context.Background(), "second task"))
	last := assertSingleTerminal(t, evs)
	if last.Text != "Another task is already executing." {
		t.Errorf("busy terminal = %q", last.Text)
	}

	close(release)
	firstEvs := <-firstDone
	if last := assertSingleTerminal(t, firstEvs); !last.Success {
		t.Errorf("first task terminal = %+v", last)
	}
}

func TestSessionRecording(t *testing.T) {
	main := scripted(t, roleHandlers{
		markResearcher: func(string) string { return respResearch },
		markPlanner: func(string) string {
			return planResponse(shellStep("say hi", "echo hi"))
		},
	})
	small := scripted(t, roleHandlers{
		markClassifier: func(string) string { return respComplex },
		markVerifier:   func(string) string { return respVerifyOK },
	})

	dir := t.TempDir()
	fileStore, err := session.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	mgr := session.NewManager(fileStore)

	store := memory.Open(filepath.Join(dir, "memory.json"))
	eng := New(store, gateway.New(main, small),
		actions.New(actions.WithShellRunner(&fakeShell{})),
		WithSessionManager(mgr))

	evs := collect(eng.Submit(context.Background(), "say hi"))
	assertSingleTerminal(t, evs)

	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil || len(files) != 1 {
		t.Fatalf("session files = %v (err %v)", files, err)
	}

	sess, err := session.LoadFile(files[0])
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if sess.Goal != "say hi" {
		t.Errorf("session goal = %q", sess.Goal)
	}
	if sess.Status != session.StatusComplete {
		t.Errorf("session status = %q", sess.Status)
	}
	if sess.TaskID == "" {
		t.Error("session missing task ID")
	}
	if len(sess.Events) != len(evs) {
		t.Errorf("session has %d events, engine emitted %d", len(sess.Events), len(evs))
	}
	lastEv := sess.Events[len(sess.Events)-1]
	if lastEv.Type != session.EventFinal {
		t.Errorf("last session event type = %q", lastEv.Type)
	}
}

// gateShell signals when invoked and blocks until released.
type gateShell struct {
	started   chan struct{}
	release   chan struct{}
	startOnce sync.Once
}

func (g *gateShell) Run(ctx context.Context, command string) actions.Result {
	g.startOnce.Do(func() { close(g.started) })
	<-g.release
	return actions.Result{Text: "STDOUT:\nok\nReturn code: 0", OK: true}
}
