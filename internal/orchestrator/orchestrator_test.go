package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/serialx/vibecore/internal/agent"
	"github.com/serialx/vibecore/internal/core"
	"github.com/serialx/vibecore/internal/modeladapter"
	"github.com/serialx/vibecore/internal/sessionstore"
	"github.com/serialx/vibecore/internal/toolkit"
)

// blockingAdapter replays one []core.Event slice per Send call. The first
// call blocks until gate is closed, simulating an in-flight turn so a test
// can deterministically submit a second line while the orchestrator is
// still busy.
type blockingAdapter struct {
	gate chan struct{}

	mu    sync.Mutex
	turns [][]core.Event
	idx   int

	requests []modeladapter.Request
}

func (a *blockingAdapter) Send(_ context.Context, req modeladapter.Request) (<-chan core.Event, error) {
	<-a.gate

	a.mu.Lock()
	events := a.turns[a.idx]
	a.idx++
	a.requests = append(a.requests, req)
	a.mu.Unlock()

	ch := make(chan core.Event, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

func textTurn(text string) []core.Event {
	return []core.Event{core.TextDeltaEvent(text), core.MessageCompletedEvent()}
}

func newTestOrchestrator(t *testing.T, adapter modeladapter.ModelAdapter) (*Orchestrator, chan core.Event) {
	t.Helper()
	dir := t.TempDir()
	store, err := sessionstore.New("sess-1", dir, dir)
	if err != nil {
		t.Fatalf("sessionstore.New: %v", err)
	}

	rootAgent := &agent.Agent{
		Name:      "main",
		Tools:     toolkit.NewRegistry(),
		Model:     "test-model",
		MaxTokens: 1024,
	}

	events := make(chan core.Event, 64)
	sink := core.ToolEventSinkFunc(func(e core.Event) { events <- e })

	orch := New(adapter, rootAgent, sink, toolkit.NewTodoList(), store, dir, dir)
	return orch, events
}

func waitForEvent(t *testing.T, events chan core.Event, kind core.EventKind, timeout time.Duration) core.Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case e := <-events:
			if e.Kind == kind {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %v", kind)
		}
	}
}

func TestSubmitQueuesWhileBusyThenDrainsFIFO(t *testing.T) {
	adapter := &blockingAdapter{
		gate:  make(chan struct{}),
		turns: [][]core.Event{textTurn("first reply"), textTurn("second reply")},
	}
	orch, events := newTestOrchestrator(t, adapter)
	ctx := context.Background()

	orch.Submit(ctx, "first")
	if got := orch.Status(); got != StatusBusy {
		t.Fatalf("expected Busy immediately after first submit, got %v", got)
	}

	orch.Submit(ctx, "second")
	if n := orch.PendingCount(); n != 1 {
		t.Fatalf("expected 1 pending message while first turn is in flight, got %d", n)
	}

	close(adapter.gate)

	waitForEvent(t, events, core.EventTurnFinished, 2*time.Second)
	waitForEvent(t, events, core.EventTurnFinished, 2*time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for orch.Status() != StatusIdle {
		if time.Now().After(deadline) {
			t.Fatalf("orchestrator never returned to idle")
		}
		time.Sleep(time.Millisecond)
	}

	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	if len(adapter.requests) != 2 {
		t.Fatalf("expected 2 model calls (one per queued line), got %d", len(adapter.requests))
	}
}

func TestSubmitClearResetsSessionAndTodos(t *testing.T) {
	adapter := &blockingAdapter{gate: make(chan struct{})}
	close(adapter.gate)
	orch, events := newTestOrchestrator(t, adapter)

	orch.Todos.Items() // sanity: starts empty
	firstSessionID := orch.CurrentSessionID()

	orch.Submit(context.Background(), "/clear")

	ev := waitForEvent(t, events, core.EventSystem, time.Second)
	if ev.SystemMessage != "session cleared" {
		t.Errorf("expected a 'session cleared' system message, got %q", ev.SystemMessage)
	}
	if orch.CurrentSessionID() == firstSessionID {
		t.Error("expected /clear to mint a new session id")
	}
	if orch.Status() != StatusIdle {
		t.Error("expected /clear to leave the orchestrator idle (no model call)")
	}
}

func TestReplayEmitsEventsForPersistedItems(t *testing.T) {
	adapter := &blockingAdapter{gate: make(chan struct{})}
	close(adapter.gate)
	orch, events := newTestOrchestrator(t, adapter)

	orch.mu.Lock()
	store := orch.store
	orch.mu.Unlock()

	if err := store.AddItems(context.Background(), []core.Item{
		core.NewUserTextItem("what files are here?"),
		core.NewAssistantItem(""),
		core.NewToolCallItem("call-1", "ls", `{}`),
		core.NewToolOutputItem("call-1", "a.go", false),
		core.NewAssistantItem("there is one file: a.go"),
	}); err != nil {
		t.Fatalf("AddItems: %v", err)
	}

	if err := orch.Replay(context.Background()); err != nil {
		t.Fatalf("Replay: %v", err)
	}

	var kinds []core.EventKind
	drain:
	for {
		select {
		case e := <-events:
			kinds = append(kinds, e.Kind)
		default:
			break drain
		}
	}

	want := []core.EventKind{
		core.EventUserMessage,
		core.EventMessageCompleted,
		core.EventToolCallStarted,
		core.EventToolCallCompleted,
		core.EventTextDelta,
		core.EventMessageCompleted,
	}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d replayed events, got %d: %v", len(want), len(kinds), kinds)
	}
	for i, k := range want {
		if kinds[i] != k {
			t.Errorf("event %d: expected kind %v, got %v", i, k, kinds[i])
		}
	}
}

func TestReplayFailsOnUnpairedToolCall(t *testing.T) {
	adapter := &blockingAdapter{gate: make(chan struct{})}
	close(adapter.gate)
	orch, _ := newTestOrchestrator(t, adapter)

	orch.mu.Lock()
	store := orch.store
	orch.mu.Unlock()

	if err := store.AddItems(context.Background(), []core.Item{
		core.NewUserTextItem("run it"),
		core.NewToolCallItem("call-1", "bash", `{}`),
	}); err != nil {
		t.Fatalf("AddItems: %v", err)
	}

	err := orch.Replay(context.Background())
	if err == nil {
		t.Fatal("expected an UnpairedToolCall error")
	}
	var ee *core.EngineError
	if ee2, ok := err.(*core.EngineError); ok {
		ee = ee2
	}
	if ee == nil || ee.Kind != core.KindUnpairedTool {
		t.Fatalf("expected KindUnpairedTool, got %v", err)
	}
}
