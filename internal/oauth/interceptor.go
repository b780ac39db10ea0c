package oauth

import (
	"net/http"
	"strings"

	"github.com/serialx/vibecore/internal/core"
)

// RequestInterceptor is an http.RoundTripper that attaches Anthropic
// authentication and the identity headers used by the reference client,
// grounded on original_source/auth/interceptor.py's AnthropicRequestInterceptor.
// Unlike the original's GlobalAnthropicInterceptor, this never patches a
// package-level default transport: callers compose it explicitly into the
// http.Client they construct.
type RequestInterceptor struct {
	Tokens *TokenManager
	Next   http.RoundTripper
}

// NewRequestInterceptor wraps next (http.DefaultTransport if nil).
func NewRequestInterceptor(tokens *TokenManager, next http.RoundTripper) *RequestInterceptor {
	if next == nil {
		next = http.DefaultTransport
	}
	return &RequestInterceptor{Tokens: tokens, Next: next}
}

// RoundTrip implements http.RoundTripper. Requests not addressed to
// api.anthropic.com pass through untouched.
func (r *RequestInterceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Hostname() != "api.anthropic.com" {
		return r.Next.RoundTrip(req)
	}

	clone := req.Clone(req.Context())

	token, err := r.Tokens.GetValidToken(req.Context())
	if err != nil {
		return nil, err
	}

	creds, err := r.Tokens.auth.Load(r.Tokens.provider)
	if err != nil {
		return nil, err
	}

	if creds != nil && creds.Type == core.CredentialOAuth {
		clone.Header.Del("x-api-key")
		clone.Header.Del("X-Api-Key")
		clone.Header.Del("anthropic-api-key")
		clone.Header.Set("Authorization", "Bearer "+token)
	} else {
		clone.Header.Del("Authorization")
		clone.Header.Set("x-api-key", token)
	}

	applyIdentityHeaders(clone.Header)

	return r.Next.RoundTrip(clone)
}

func applyIdentityHeaders(h http.Header) {
	h.Set("anthropic-beta", strings.Join([]string{BetaOAuth, BetaClaudeCode, BetaInterleavedThinking}, ","))
	h.Set("anthropic-version", "2023-06-01")
	if h.Get("accept") == "" {
		h.Set("accept", "application/json")
	}
	h.Set("user-agent", "Claude-Code/1.0")
	h.Set("x-client-id", ClientID)
	if h.Get("content-type") == "" {
		h.Set("content-type", "application/json")
	}
}
