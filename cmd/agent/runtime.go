// Package main provides runtime wiring for the agent commands.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/agentkit/telemetry"

	"github.com/openclaw/instant-agent/internal/actions"
	"github.com/openclaw/instant-agent/internal/config"
	"github.com/openclaw/instant-agent/internal/engine"
	"github.com/openclaw/instant-agent/internal/gateway"
	"github.com/openclaw/instant-agent/internal/memory"
	"github.com/openclaw/instant-agent/internal/session"
)

// runtime holds the wired components behind one agent command.
type runtime struct {
	cfg *config.Config

	provider llm.Provider
	smallLLM llm.Provider
	telem    telemetry.Exporter
	store    *memory.Store
	sessions *session.Manager
	eng      *engine.Engine

	storagePath string

	// Cleanup
	closers []func()
}

// newRuntime loads configuration and wires all components.
func newRuntime(configPath string) (*runtime, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg}
	rt.storagePath = config.ExpandPath(cfg.Storage.Path)
	if err := rt.setup(); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// setup initializes all runtime components. Returns error on failure.
func (rt *runtime) setup() error {
	if err := os.MkdirAll(rt.storagePath, 0755); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}

	if err := rt.createProvider(); err != nil {
		return err
	}
	rt.createSmallLLM()
	if err := rt.setupTelemetry(); err != nil {
		return err
	}
	if err := rt.setupMemory(); err != nil {
		return err
	}
	if err := rt.setupSessions(); err != nil {
		return err
	}
	rt.createEngine()
	return nil
}

// apiKey resolves the key for a provider: credentials file first, then
// the configured environment variable.
func apiKey(llmCfg config.LLMConfig, provider string) string {
	if globalCreds != nil {
		if key := globalCreds.GetAPIKey(provider); key != "" {
			return key
		}
	}
	return llmCfg.APIKey()
}

// createProvider creates the main LLM provider.
func (rt *runtime) createProvider() error {
	llmProvider := rt.cfg.LLM.Provider
	if llmProvider == "" {
		llmProvider = llm.InferProviderFromModel(rt.cfg.LLM.Model)
	}
	if llmProvider == "" && rt.cfg.LLM.Model == "" {
		return fmt.Errorf("LLM model not configured")
	}

	var err error
	rt.provider, err = llm.NewProvider(llm.ProviderConfig{
		Provider:    llmProvider,
		Model:       rt.cfg.LLM.Model,
		APIKey:      apiKey(rt.cfg.LLM, llmProvider),
		MaxTokens:   rt.cfg.LLM.MaxTokens,
		BaseURL:     rt.cfg.LLM.BaseURL,
		Thinking:    llm.ThinkingConfig{Level: llm.ThinkingLevel(rt.cfg.LLM.Thinking)},
		RetryConfig: parseRetryConfig(rt.cfg.LLM.MaxRetries, rt.cfg.LLM.RetryBackoff),
	})
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}
	return nil
}

// createSmallLLM creates the small LLM for classification and verification.
func (rt *runtime) createSmallLLM() {
	if rt.cfg.SmallLLM.Model == "" {
		return
	}
	smallCfg := rt.cfg.SmallOrDefault()
	smallProvider := smallCfg.Provider
	if smallProvider == "" {
		smallProvider = llm.InferProviderFromModel(smallCfg.Model)
	}
	var err error
	rt.smallLLM, err = llm.NewProvider(llm.ProviderConfig{
		Provider:  smallProvider,
		Model:     smallCfg.Model,
		APIKey:    apiKey(smallCfg, smallProvider),
		MaxTokens: smallCfg.MaxTokens,
		BaseURL:   smallCfg.BaseURL,
	})
	if err != nil {
		rt.smallLLM = nil
	}
}

// setupTelemetry creates the telemetry exporter.
func (rt *runtime) setupTelemetry() error {
	var err error
	if rt.cfg.Telemetry.Enabled {
		rt.telem, err = telemetry.NewExporter(rt.cfg.Telemetry.Protocol, rt.cfg.Telemetry.Endpoint)
		if err != nil {
			return fmt.Errorf("creating telemetry exporter: %w", err)
		}
	} else {
		rt.telem = telemetry.NewNoopExporter()
	}
	rt.addCloser(func() { rt.telem.Close() })
	return nil
}

// setupMemory opens the execution memory store. With persistence
// disabled the store lives in a throwaway directory removed on close.
func (rt *runtime) setupMemory() error {
	if rt.cfg.Storage.PersistMemory {
		rt.store = memory.Open(filepath.Join(rt.storagePath, "memory.json"))
		return nil
	}

	tmpDir, err := os.MkdirTemp("", "instant-agent-mem-")
	if err != nil {
		return fmt.Errorf("creating ephemeral memory directory: %w", err)
	}
	rt.store = memory.Open(filepath.Join(tmpDir, "memory.json"))
	rt.addCloser(func() { os.RemoveAll(tmpDir) })
	return nil
}

// setupSessions creates the JSONL session store and manager.
func (rt *runtime) setupSessions() error {
	store, err := session.NewFileStore(filepath.Join(rt.storagePath, "sessions"))
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}
	rt.sessions = session.NewManager(store)
	return nil
}

// createEngine wires the gateway, action executor, and engine.
func (rt *runtime) createEngine() {
	gw := gateway.New(rt.provider, rt.smallLLM,
		gateway.WithTimeout(time.Duration(rt.cfg.Timeouts.Reasoning)*time.Second))

	actOpts := []actions.Option{
		actions.WithShellRunner(actions.NewShell(time.Duration(rt.cfg.Timeouts.Shell) * time.Second)),
		actions.WithExtraDeny(rt.cfg.Safety.ExtraDeny),
	}
	if key := rt.cfg.SearchAPIKey(); key != "" {
		actOpts = append(actOpts, actions.WithSearcher(actions.NewTavilyClient(
			key,
			rt.cfg.Search.BaseURL,
			rt.cfg.Search.MaxResults,
			time.Duration(rt.cfg.Timeouts.WebSearch)*time.Second,
		)))
	}

	rt.eng = engine.New(rt.store, gw, actions.New(actOpts...),
		engine.WithSessionManager(rt.sessions))
}

// addCloser registers a cleanup function.
func (rt *runtime) addCloser(f func()) {
	rt.closers = append(rt.closers, f)
}

// Close releases runtime resources in reverse registration order.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
