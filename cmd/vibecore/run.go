package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/serialx/vibecore/internal/agent"
	"github.com/serialx/vibecore/internal/authstore"
	"github.com/serialx/vibecore/internal/config"
	"github.com/serialx/vibecore/internal/core"
	"github.com/serialx/vibecore/internal/modeladapter"
	"github.com/serialx/vibecore/internal/oauth"
	"github.com/serialx/vibecore/internal/orchestrator"
	"github.com/serialx/vibecore/internal/pathvalidator"
	"github.com/serialx/vibecore/internal/sessionstore"
	"github.com/serialx/vibecore/internal/subagent"
	"github.com/serialx/vibecore/internal/toolkit"
)

// rootAgentInstructions is the system prompt given to the top-level Agent.
// It must open with oauth.ClaudeCodeIdentity verbatim: the Max-plan OAuth
// beta only accepts requests whose system prompt begins with that exact
// sentence (original_source/auth/interceptor.py). A real deployment would
// load the remainder from a prompt file alongside Config; this build keeps
// it inline since SPEC_FULL.md does not define a prompt authoring surface.
const rootAgentInstructions = oauth.ClaudeCodeIdentity + "\n\n" +
	"You help with software engineering tasks in the current working directory, " +
	"using the available tools to read, search, and edit files, run commands, and delegate " +
	"self-contained sub-tasks to the task tool."

const taskAgentInstructions = "You are a focused sub-agent completing a single delegated task. " +
	"Report your result and stop; you cannot delegate further."

func buildRunCmd() *cobra.Command {
	var (
		continueSession bool
		sessionID       string
		configPath      string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start or resume an interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, continueSession, sessionID, configPath)
		},
	}
	cmd.Flags().BoolVarP(&continueSession, "continue", "c", false, "resume the most recently used session for this project")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "resume a specific session id")
	cmd.Flags().StringVar(&configPath, "config", "", "path to config.yaml (defaults to ~/.vibecore/config.yaml)")
	return cmd
}

func runRun(cmd *cobra.Command, continueSession bool, sessionID, configPath string) error {
	ctx := cmd.Context()

	if configPath == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return core.WrapError(core.KindInvalidInput, err, "resolving default config path")
		}
		configPath = p
	}

	projectPath, err := os.Getwd()
	if err != nil {
		return core.WrapError(core.KindInvalidInput, err, "resolving project directory")
	}

	cfg, err := config.Load(configPath, config.ProjectOverridePath(projectPath))
	if err != nil {
		return err
	}

	store, err := resolveStore(sessionID, continueSession, projectPath, cfg.Session.BaseDir)
	if err != nil {
		return err
	}
	resuming := sessionID != "" || continueSession

	dataDir := cfg.Auth.CredentialsDir
	if dataDir == "" {
		dataDir, err = authstore.DefaultDataDir()
		if err != nil {
			return core.WrapError(core.KindInvalidInput, err, "resolving credentials directory")
		}
	}
	authStore, err := authstore.New(dataDir)
	if err != nil {
		return core.WrapError(core.KindInvalidInput, err, "opening credentials store")
	}
	if !authStore.Exists() {
		return core.NewError(core.KindNotAuthenticated, "no credentials found, run `vibecore auth login` first")
	}

	tokens := oauth.NewTokenManager(providerAnthropic, authStore)
	transport := oauth.NewRequestInterceptor(tokens, http.DefaultTransport)
	adapter := modeladapter.NewAnthropicAdapter(transport, oauth.APIBaseURL)

	allowed := make([]core.AllowedDirectory, len(cfg.Tools.AllowedDirs))
	for i, d := range cfg.Tools.AllowedDirs {
		allowed[i] = core.AllowedDirectory(d)
	}
	validator, err := pathvalidator.New(allowed)
	if err != nil {
		return core.WrapError(core.KindInvalidInput, err, "building path validator")
	}

	todos := toolkit.NewTodoList()

	taskRegistry := toolkit.NewRegistry()
	registerFileAndSearchTools(taskRegistry)
	taskRegistry.Register(toolkit.TodoWriteTool(todos))
	taskRegistry.Register(toolkit.TodoReadTool(todos))

	taskAgent := &agent.Agent{
		Name:         "task",
		Instructions: taskAgentInstructions,
		Tools:        taskRegistry,
		Model:        cfg.Model.Default,
		MaxTokens:    cfg.Model.MaxTokens,
	}
	supervisor := subagent.NewSupervisor(adapter, taskAgent, validator)

	rootRegistry := toolkit.NewRegistry()
	registerFileAndSearchTools(rootRegistry)
	rootRegistry.Register(toolkit.TodoWriteTool(todos))
	rootRegistry.Register(toolkit.TodoReadTool(todos))
	rootRegistry.Register(toolkit.TaskTool())

	rootAgent := &agent.Agent{
		Name:                 "root",
		Instructions:         rootAgentInstructions,
		Tools:                rootRegistry,
		Model:                cfg.Model.Default,
		MaxTokens:            cfg.Model.MaxTokens,
		EnableThinking:       cfg.Model.EnableThinking,
		ThinkingBudgetTokens: cfg.Model.ThinkingBudgetTokens,
	}

	sink := newTurnSink(newConsoleSink(os.Stdout))

	opts := []agent.Option{
		agent.WithMaxModelCalls(cfg.Model.MaxModelCalls),
		agent.WithConcurrency(cfg.Model.Concurrency),
		agent.WithPathValidator(validator),
		agent.WithSubAgentSupervisor(supervisor),
	}

	orch := orchestrator.New(adapter, rootAgent, sink, todos, store, projectPath, cfg.Session.BaseDir, opts...)

	if resuming {
		if err := orch.Replay(ctx); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "session %s\n", orch.CurrentSessionID())

	reader := bufio.NewScanner(cmd.InOrStdin())
	for reader.Scan() {
		line := reader.Text()
		if line == "" {
			continue
		}
		sink.reset()
		orch.Submit(ctx, line)
		if strings.TrimSpace(line) != "/clear" {
			sink.wait()
		}
	}
	return reader.Err()
}

// registerFileAndSearchTools registers the tool set every Agent in this
// build shares (file I/O, search, shell), grounded on SPEC_FULL.md §4.6's
// built-in tool list minus the task tool, which only the root agent gets
// (a sub-agent cannot itself delegate, per §4.9).
func registerFileAndSearchTools(r *toolkit.Registry) {
	r.Register(toolkit.BashTool())
	r.Register(toolkit.ReadTool())
	r.Register(toolkit.WriteTool())
	r.Register(toolkit.EditTool())
	r.Register(toolkit.GlobTool())
	r.Register(toolkit.GrepTool())
	r.Register(toolkit.WebFetchTool())
}

// resolveStore picks the Store a run invocation should append to: a brand
// new session, the most recently modified one for this project, or a named
// one, per SPEC_FULL.md §6.3's run/--continue/--session contract.
func resolveStore(sessionID string, continueSession bool, projectPath, baseDir string) (*sessionstore.Store, error) {
	switch {
	case sessionID != "":
		ok, err := sessionstore.Exists(sessionID, projectPath, baseDir)
		if err != nil {
			return nil, core.WrapError(core.KindInvalidInput, err, "checking session %s", sessionID)
		}
		if !ok {
			return nil, core.NewError(core.KindInvalidInput, "no session %s found for this project", sessionID)
		}
		return sessionstore.New(sessionID, projectPath, baseDir)

	case continueSession:
		id, err := sessionstore.MostRecentSessionID(projectPath, baseDir)
		if err != nil {
			return nil, err
		}
		return sessionstore.New(id, projectPath, baseDir)

	default:
		return sessionstore.New(uuid.NewString(), projectPath, baseDir)
	}
}

// turnSink wraps a consoleSink and lets runRun block until the in-flight
// turn (started asynchronously by Orchestrator.Submit) has actually
// finished, since a REPL must not print its next prompt mid-turn.
type turnSink struct {
	inner *consoleSink
	done  chan struct{}
}

func newTurnSink(inner *consoleSink) *turnSink {
	return &turnSink{inner: inner, done: make(chan struct{}, 1)}
}

// reset prepares the sink for the next line read from stdin.
func (s *turnSink) reset() {
	select {
	case <-s.done:
	default:
	}
}

// wait blocks until the current turn reaches a terminal event.
func (s *turnSink) wait() {
	<-s.done
}

// Emit implements core.ToolEventSink.
func (s *turnSink) Emit(e core.Event) {
	s.inner.Emit(e)
	if e.Kind == core.EventTurnFinished || e.Kind == core.EventError {
		select {
		case s.done <- struct{}{}:
		default:
		}
	}
}
