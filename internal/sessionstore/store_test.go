package sessionstore

import (
	"context"
	"os"
	"testing"

	"github.com/serialx/vibecore/internal/core"
)

func openForAppend(t *testing.T, path string) (*os.File, error) {
	t.Helper()
	return os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	base := t.TempDir()
	proj := t.TempDir()
	s, err := New("sess-1", proj, base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestGetItemsEmptyFile(t *testing.T) {
	s := newTestStore(t)
	items, err := s.GetItems(context.Background(), 0)
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	if items != nil {
		t.Fatalf("expected nil/empty items, got %v", items)
	}
}

func TestAddThenGetItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := []core.Item{
		core.NewUserTextItem("hi"),
		core.NewAssistantItem("hello"),
	}
	if err := s.AddItems(ctx, in); err != nil {
		t.Fatalf("AddItems: %v", err)
	}

	out, err := s.GetItems(ctx, 0)
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 items, got %d", len(out))
	}
	if out[0].Kind != core.ItemUserText || out[0].UserText.Content != "hi" {
		t.Errorf("unexpected first item: %+v", out[0])
	}
	if out[1].Kind != core.ItemAssistantMsg || out[1].Assistant.Text() != "hello" {
		t.Errorf("unexpected second item: %+v", out[1])
	}
}

func TestGetItemsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := s.AddItems(ctx, []core.Item{core.NewUserTextItem("x")}); err != nil {
			t.Fatalf("AddItems: %v", err)
		}
	}
	out, err := s.GetItems(ctx, 2)
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 items with limit, got %d", len(out))
	}
}

func TestPopItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := []core.Item{
		core.NewUserTextItem("first"),
		core.NewUserTextItem("second"),
	}
	if err := s.AddItems(ctx, in); err != nil {
		t.Fatalf("AddItems: %v", err)
	}

	popped, err := s.PopItem(ctx)
	if err != nil {
		t.Fatalf("PopItem: %v", err)
	}
	if popped == nil || popped.UserText.Content != "second" {
		t.Fatalf("unexpected popped item: %+v", popped)
	}

	remaining, err := s.GetItems(ctx, 0)
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	if len(remaining) != 1 || remaining[0].UserText.Content != "first" {
		t.Fatalf("unexpected remaining items: %+v", remaining)
	}
}

func TestPopItemOnEmpty(t *testing.T) {
	s := newTestStore(t)
	popped, err := s.PopItem(context.Background())
	if err != nil {
		t.Fatalf("PopItem: %v", err)
	}
	if popped != nil {
		t.Fatalf("expected nil pop on empty session, got %+v", popped)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.AddItems(ctx, []core.Item{core.NewUserTextItem("hi")}); err != nil {
		t.Fatalf("AddItems: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	items, err := s.GetItems(ctx, 0)
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty session after clear, got %d items", len(items))
	}
	// Clearing again is a no-op, not an error.
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestSkipsInvalidJSONLines(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.AddItems(ctx, []core.Item{core.NewUserTextItem("ok")}); err != nil {
		t.Fatalf("AddItems: %v", err)
	}
	// Corrupt the file by appending a malformed line directly.
	f, err := openForAppend(t, s.FilePath())
	if err != nil {
		t.Fatalf("openForAppend: %v", err)
	}
	if _, err := f.WriteString("{not valid json\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	items, err := s.GetItems(ctx, 0)
	if err != nil {
		t.Fatalf("GetItems should not fail on corrupt line: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected corrupt line to be skipped, got %d items", len(items))
	}
}

func TestInvalidSessionIDRejectedAtConstruction(t *testing.T) {
	base := t.TempDir()
	proj := t.TempDir()
	if _, err := New("../escape", proj, base); err == nil {
		t.Fatal("expected error for traversal session id")
	}
}
