package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/serialx/vibecore/internal/authstore"
	"github.com/serialx/vibecore/internal/core"
	"github.com/serialx/vibecore/internal/oauth"
)

// providerAnthropic is the sole AuthStore key this build uses; named here
// rather than in internal/oauth since it is a CLI-level choice, not part of
// the OAuth client's own vocabulary.
const providerAnthropic = "anthropic"

func buildAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Anthropic credentials",
	}
	cmd.AddCommand(buildAuthLoginCmd(), buildAuthStatusCmd(), buildAuthLogoutCmd())
	return cmd
}

func buildAuthLoginCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Run the OAuth PKCE login flow and save credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(cmd, oauth.Mode(mode))
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(oauth.ModeMax), "authorize endpoint: max or console")
	return cmd
}

func runAuthLogin(cmd *cobra.Command, mode oauth.Mode) error {
	if mode != oauth.ModeMax && mode != oauth.ModeConsole {
		return core.NewError(core.KindInvalidInput, "unknown auth mode %q, expected max or console", mode)
	}

	dataDir, err := authstore.DefaultDataDir()
	if err != nil {
		return core.WrapError(core.KindInvalidInput, err, "resolving credentials directory")
	}
	store, err := authstore.New(dataDir)
	if err != nil {
		return core.WrapError(core.KindInvalidInput, err, "opening credentials store")
	}

	flow := oauth.NewFlow(store)
	req, err := flow.Initiate(mode)
	if err != nil {
		return core.WrapError(core.KindInvalidInput, err, "starting OAuth flow")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Open this URL to authorize vibecore:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  "+req.URL)
	fmt.Fprintln(out)
	fmt.Fprint(out, "Paste the code#state value shown after authorizing: ")

	reader := bufio.NewReader(cmd.InOrStdin())
	pasted, err := reader.ReadString('\n')
	if err != nil {
		return core.WrapError(core.KindInvalidInput, err, "reading pasted authorization code")
	}
	pasted = strings.TrimSpace(pasted)

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	creds, err := flow.Exchange(ctx, providerAnthropic, pasted, req.Verifier)
	if err != nil {
		return err
	}
	if err := store.Save(providerAnthropic, creds); err != nil {
		return core.WrapError(core.KindInvalidInput, err, "saving credentials")
	}

	fmt.Fprintln(out, "Logged in.")
	return nil
}

func buildAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether credentials are present and valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(cmd)
		},
	}
}

func runAuthStatus(cmd *cobra.Command) error {
	dataDir, err := authstore.DefaultDataDir()
	if err != nil {
		return core.WrapError(core.KindInvalidInput, err, "resolving credentials directory")
	}
	store, err := authstore.New(dataDir)
	if err != nil {
		return core.WrapError(core.KindInvalidInput, err, "opening credentials store")
	}

	out := cmd.OutOrStdout()
	if !store.Exists() {
		fmt.Fprintln(out, "No credentials found.")
		return nil
	}

	creds, err := store.Load(providerAnthropic)
	if err != nil {
		return core.WrapError(core.KindInvalidInput, err, "loading credentials")
	}
	if creds == nil {
		fmt.Fprintln(out, "No credentials found.")
		return nil
	}

	switch creds.Type {
	case core.CredentialAPIKey:
		fmt.Fprintln(out, "Using an API key. No expiry to check.")
	case core.CredentialOAuth:
		tokens := oauth.NewTokenManager(providerAnthropic, store)
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if _, err := tokens.GetValidToken(ctx); err != nil {
			fmt.Fprintf(out, "OAuth credentials present but invalid: %v\n", err)
			return nil
		}
		fmt.Fprintln(out, "OAuth credentials present and valid.")
	default:
		fmt.Fprintf(out, "Unrecognized credential type %q.\n", creds.Type)
	}
	return nil
}

func buildAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, err := authstore.DefaultDataDir()
			if err != nil {
				return core.WrapError(core.KindInvalidInput, err, "resolving credentials directory")
			}
			store, err := authstore.New(dataDir)
			if err != nil {
				return core.WrapError(core.KindInvalidInput, err, "opening credentials store")
			}
			if err := store.Remove(providerAnthropic); err != nil {
				return core.WrapError(core.KindInvalidInput, err, "removing credentials")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}
