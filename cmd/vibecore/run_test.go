package main

import (
	"context"
	"testing"
	"time"

	"github.com/serialx/vibecore/internal/core"
)

func TestResolveStoreCreatesFreshSessionByDefault(t *testing.T) {
	baseDir := t.TempDir()
	store, err := resolveStore("", false, "/tmp/project", baseDir)
	if err != nil {
		t.Fatalf("resolveStore: %v", err)
	}
	if store.SessionID() == "" {
		t.Error("expected a generated session id")
	}
}

func TestResolveStoreRejectsUnknownSessionID(t *testing.T) {
	baseDir := t.TempDir()
	_, err := resolveStore("00000000-0000-0000-0000-000000000000", false, "/tmp/project", baseDir)
	if err == nil {
		t.Fatal("expected an error for a nonexistent session id")
	}
}

func TestResolveStoreRejectsContinueWithNoSessions(t *testing.T) {
	baseDir := t.TempDir()
	_, err := resolveStore("", true, "/tmp/project-with-no-history", baseDir)
	if err == nil {
		t.Fatal("expected an error when no session exists to continue")
	}
}

func TestResolveStoreContinuesMostRecentSession(t *testing.T) {
	baseDir := t.TempDir()
	projectPath := "/tmp/project"

	first, err := resolveStore("", false, projectPath, baseDir)
	if err != nil {
		t.Fatalf("creating first session: %v", err)
	}
	// A session's file exists only once something has been appended to it.
	if err := first.AddItems(context.Background(), []core.Item{core.NewUserTextItem("hello")}); err != nil {
		t.Fatalf("writing to first session: %v", err)
	}

	resumed, err := resolveStore("", true, projectPath, baseDir)
	if err != nil {
		t.Fatalf("resolveStore --continue: %v", err)
	}
	if resumed.SessionID() != first.SessionID() {
		t.Errorf("expected to resume %s, got %s", first.SessionID(), resumed.SessionID())
	}
}

func TestTurnSinkWaitUnblocksOnTurnFinished(t *testing.T) {
	sink := newTurnSink(&consoleSink{out: discardWriter{}})

	done := make(chan struct{})
	go func() {
		sink.wait()
		close(done)
	}()

	sink.Emit(core.TurnFinishedEvent("ok"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected wait() to unblock after a TurnFinished event")
	}
}

func TestTurnSinkWaitUnblocksOnError(t *testing.T) {
	sink := newTurnSink(&consoleSink{out: discardWriter{}})

	done := make(chan struct{})
	go func() {
		sink.wait()
		close(done)
	}()

	sink.Emit(core.ErrorEvent(core.KindToolFailure, "boom"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected wait() to unblock after an Error event")
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
