// Package oauth implements the Anthropic OAuth PKCE flow, token refresh,
// and outbound request interception described in SPEC_FULL.md §4.3-§4.4
// and §6.2, grounded on original_source/src/vibecore/auth/*.py.
package oauth

import "time"

// Fixed, non-secret OAuth client identity constants, copied verbatim from
// original_source/src/vibecore/auth/config.py.
const (
	ClientID            = "9d1c250a-e61b-44d9-88ed-5944d1962f5e"
	Scopes               = "org:create_api_key user:profile user:inference"
	RedirectURI          = "https://console.anthropic.com/oauth/code/callback"
	ResponseType         = "code"
	CodeChallengeMethod  = "S256"
	ClaudeAIAuthorizeURL = "https://claude.ai/oauth/authorize"
	ConsoleAuthorizeURL  = "https://console.anthropic.com/oauth/authorize"
	TokenExchangeURL     = "https://console.anthropic.com/v1/oauth/token"
	APIBaseURL           = "https://api.anthropic.com"
	MessagesURL          = "https://api.anthropic.com/v1/messages"

	BetaOAuth               = "oauth-2025-04-20"
	BetaClaudeCode          = "claude-code-20250219"
	BetaInterleavedThinking = "interleaved-thinking-2025-05-14"

	ClaudeCodeIdentity = "You are Claude Code, Anthropic's official CLI for Claude."

	RefreshBuffer      = 300 * time.Second
	MaxRetryAttempts   = 3
	RetryDelayMS       = 1000
)

// Mode selects which authorize endpoint to use.
type Mode string

const (
	ModeMax     Mode = "max"
	ModeConsole Mode = "console"
)

func authorizeURLFor(mode Mode) string {
	if mode == ModeConsole {
		return ConsoleAuthorizeURL
	}
	return ClaudeAIAuthorizeURL
}
