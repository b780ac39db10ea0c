package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/serialx/vibecore/internal/authstore"
	"github.com/serialx/vibecore/internal/core"
)

// AuthorizationRequest is what the operator needs to complete the PKCE
// dance: the URL to open and the verifier/state to remember for exchange.
type AuthorizationRequest struct {
	URL      string
	Verifier string
	State    string
}

// Flow drives the Anthropic OAuth authorization-code + PKCE flow described
// in SPEC_FULL.md §6.2, grounded on original_source/auth/oauth_flow.py.
type Flow struct {
	auth   *authstore.Store
	client *http.Client
}

// NewFlow builds a Flow that persists resulting credentials into auth.
func NewFlow(auth *authstore.Store) *Flow {
	return &Flow{auth: auth, client: &http.Client{Timeout: 30 * time.Second}}
}

// Initiate generates a PKCE challenge and builds the authorization URL.
func (f *Flow) Initiate(mode Mode) (AuthorizationRequest, error) {
	ch, err := GenerateChallenge()
	if err != nil {
		return AuthorizationRequest{}, err
	}

	q := url.Values{}
	q.Set("code", "true")
	q.Set("client_id", ClientID)
	q.Set("response_type", ResponseType)
	q.Set("redirect_uri", RedirectURI)
	q.Set("scope", Scopes)
	q.Set("code_challenge", ch.Challenge)
	q.Set("code_challenge_method", CodeChallengeMethod)
	q.Set("state", ch.Verifier)

	u := authorizeURLFor(mode) + "?" + q.Encode()
	return AuthorizationRequest{URL: u, Verifier: ch.Verifier, State: ch.Verifier}, nil
}

type tokenExchangeResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// Exchange accepts the operator-pasted "code#state" token and completes the
// flow, persisting resulting OAuth credentials under providerName.
func (f *Flow) Exchange(ctx context.Context, providerName, pasted, verifier string) (core.Credentials, error) {
	parts := strings.Split(pasted, "#")
	if len(parts) != 2 {
		return core.Credentials{}, core.NewError(core.KindInvalidInput, "expected code#state, got %q", pasted)
	}
	code, state := parts[0], parts[1]

	body := map[string]string{
		"code":          code,
		"state":         state,
		"grant_type":    "authorization_code",
		"client_id":     ClientID,
		"redirect_uri":  RedirectURI,
		"code_verifier": verifier,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return core.Credentials{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, TokenExchangeURL, strings.NewReader(string(payload)))
	if err != nil {
		return core.Credentials{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return core.Credentials{}, core.WrapError(core.KindAuthTransient, err, "token exchange request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.Credentials{}, core.NewError(core.KindAuthExpired, "token exchange returned status %d", resp.StatusCode)
	}

	var tok tokenExchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return core.Credentials{}, fmt.Errorf("decoding token exchange response: %w", err)
	}

	creds := core.Credentials{
		Type:      core.CredentialOAuth,
		Refresh:   tok.RefreshToken,
		Access:    tok.AccessToken,
		ExpiresMS: time.Now().UnixMilli() + tok.ExpiresIn*1000,
	}
	if err := f.auth.Save(providerName, creds); err != nil {
		return core.Credentials{}, err
	}
	return creds, nil
}
