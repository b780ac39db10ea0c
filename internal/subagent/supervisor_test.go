package subagent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/serialx/vibecore/internal/agent"
	"github.com/serialx/vibecore/internal/core"
	"github.com/serialx/vibecore/internal/modeladapter"
	"github.com/serialx/vibecore/internal/toolkit"
)

// scriptedAdapter replays one []core.Event slice per call to Send, in order,
// mirroring internal/agent's test fake.
type scriptedAdapter struct {
	mu      sync.Mutex
	turns   [][]core.Event
	called  int
	sendErr error
}

func (a *scriptedAdapter) Send(_ context.Context, _ modeladapter.Request) (<-chan core.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sendErr != nil {
		return nil, a.sendErr
	}
	if a.called >= len(a.turns) {
		panic("scriptedAdapter: ran out of scripted turns")
	}
	events := a.turns[a.called]
	a.called++
	ch := make(chan core.Event, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

func newTaskAgent(events []core.Event) (*agent.Agent, *scriptedAdapter) {
	adapter := &scriptedAdapter{turns: [][]core.Event{events}}
	return &agent.Agent{
		Name:         "researcher",
		Instructions: "answer the delegated task",
		Tools:        toolkit.NewRegistry(),
		Model:        "test-model",
		MaxTokens:    1024,
	}, adapter
}

func TestDispatchReturnsChildFinalText(t *testing.T) {
	events := []core.Event{
		core.TextDeltaEvent("the answer is 42"),
		core.MessageCompletedEvent(),
	}
	taskAgent, adapter := newTaskAgent(events)
	sup := NewSupervisor(adapter, taskAgent, nil)

	out, err := sup.Dispatch(context.Background(), "what is the answer?", "call-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "the answer is 42" {
		t.Errorf("expected child's final text, got %q", out)
	}
}

func TestDispatchForwardsEventsTaggedWithParentCallID(t *testing.T) {
	events := []core.Event{
		core.TextDeltaEvent("partial"),
		core.MessageCompletedEvent(),
	}
	taskAgent, adapter := newTaskAgent(events)
	sup := NewSupervisor(adapter, taskAgent, nil)

	var mu sync.Mutex
	var seen []core.Event
	sink := core.ToolEventSinkFunc(func(e core.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e)
	})

	if _, err := sup.Dispatch(context.Background(), "do it", "parent-call-7", sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) == 0 {
		t.Fatal("expected forwarded events, got none")
	}
	for _, e := range seen {
		if e.Kind != core.EventSubAgent {
			t.Fatalf("expected every forwarded event to be wrapped as a sub-agent event, got kind %v", e.Kind)
		}
		if e.ParentCallID != "parent-call-7" {
			t.Errorf("expected ParentCallID parent-call-7, got %q", e.ParentCallID)
		}
	}
}

func TestDispatchPropagatesChildError(t *testing.T) {
	events := []core.Event{
		core.ErrorEvent(core.KindModelFatal, "the model rejected the request"),
	}
	taskAgent, adapter := newTaskAgent(events)
	sup := NewSupervisor(adapter, taskAgent, nil)

	_, err := sup.Dispatch(context.Background(), "do it", "call-1", nil)
	if err == nil {
		t.Fatal("expected an error from a failed child turn")
	}
	var ee *core.EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *core.EngineError, got %T: %v", err, err)
	}
	if ee.Kind != core.KindModelFatal {
		t.Errorf("expected KindModelFatal, got %v", ee.Kind)
	}
}

func TestDispatchPropagatesCancellation(t *testing.T) {
	adapter := &scriptedAdapter{turns: [][]core.Event{{}}}
	taskAgent := &agent.Agent{
		Name:      "researcher",
		Tools:     toolkit.NewRegistry(),
		Model:     "test-model",
		MaxTokens: 1024,
	}
	sup := NewSupervisor(adapter, taskAgent, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sup.Dispatch(ctx, "do it", "call-1", nil)
	if err == nil {
		t.Fatal("expected an error from an already-cancelled context")
	}
	var ee *core.EngineError
	if !errors.As(err, &ee) || ee.Kind != core.KindCancelled {
		t.Fatalf("expected KindCancelled, got %v", err)
	}
}

func TestDispatchNeverTouchesAParentSessionStore(t *testing.T) {
	events := []core.Event{
		core.TextDeltaEvent("done"),
		core.MessageCompletedEvent(),
	}
	taskAgent, adapter := newTaskAgent(events)
	sup := NewSupervisor(adapter, taskAgent, nil)

	parent := &recordingStore{}
	_ = parent // the parent store is never passed to Dispatch at all

	if _, err := sup.Dispatch(context.Background(), "do it", "call-1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parent.items) != 0 {
		t.Errorf("expected the parent store to see no writes from a child dispatch, got %+v", parent.items)
	}
}

// recordingStore is an agent.SessionStore fake used only to assert that a
// parent handle, if one existed in scope, is never written to by Dispatch —
// Dispatch constructs its own ephemeral store instead.
type recordingStore struct {
	mu    sync.Mutex
	items []core.Item
}

func (s *recordingStore) GetItems(context.Context, int) ([]core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Item, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *recordingStore) AddItems(_ context.Context, items []core.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
	return nil
}
