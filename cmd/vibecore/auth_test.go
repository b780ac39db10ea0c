package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/serialx/vibecore/internal/authstore"
	"github.com/serialx/vibecore/internal/core"
)

func TestRunAuthStatusReportsNoCredentials(t *testing.T) {
	// runAuthStatus resolves DefaultDataDir internally; point HOME at an
	// empty temp dir so it reports no credentials rather than touching the
	// real user's vault.
	t.Setenv("HOME", t.TempDir())

	cmd := buildAuthStatusCmd()
	cmd.SetContext(context.Background())
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := runAuthStatus(cmd); err != nil {
		t.Fatalf("runAuthStatus: %v", err)
	}
	if got := out.String(); got != "No credentials found.\n" {
		t.Errorf("expected no-credentials message, got %q", got)
	}
}

func TestRunAuthStatusReportsAPIKey(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dataDir, err := authstore.DefaultDataDir()
	if err != nil {
		t.Fatalf("DefaultDataDir: %v", err)
	}
	store, err := authstore.New(dataDir)
	if err != nil {
		t.Fatalf("authstore.New: %v", err)
	}
	if err := store.Save(providerAnthropic, core.Credentials{Type: core.CredentialAPIKey, Key: "sk-test"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cmd := buildAuthStatusCmd()
	cmd.SetContext(context.Background())
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := runAuthStatus(cmd); err != nil {
		t.Fatalf("runAuthStatus: %v", err)
	}
	if got := out.String(); got != "Using an API key. No expiry to check.\n" {
		t.Errorf("unexpected status output: %q", got)
	}
}

func TestRunAuthLoginRejectsUnknownMode(t *testing.T) {
	cmd := buildAuthLoginCmd()
	cmd.SetContext(context.Background())
	if err := runAuthLogin(cmd, "bogus"); err == nil {
		t.Fatal("expected an error for an unrecognized auth mode")
	}
}

func TestAuthLogoutRemovesCredentials(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dataDir, err := authstore.DefaultDataDir()
	if err != nil {
		t.Fatalf("DefaultDataDir: %v", err)
	}
	store, err := authstore.New(dataDir)
	if err != nil {
		t.Fatalf("authstore.New: %v", err)
	}
	if err := store.Save(providerAnthropic, core.Credentials{Type: core.CredentialAPIKey, Key: "sk-test"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	logout := buildAuthLogoutCmd()
	logout.SetContext(context.Background())
	var out bytes.Buffer
	logout.SetOut(&out)
	if err := logout.RunE(logout, nil); err != nil {
		t.Fatalf("logout RunE: %v", err)
	}

	creds, err := store.Load(providerAnthropic)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if creds != nil {
		t.Error("expected credentials to be removed")
	}
}
