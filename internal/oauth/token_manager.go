package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/serialx/vibecore/internal/authstore"
	"github.com/serialx/vibecore/internal/backoff"
	"github.com/serialx/vibecore/internal/core"
)

// TokenManager refreshes OAuth access tokens with backoff and guarantees at
// most one concurrent refresh per credential (the process-wide TokenRefreshGate
// of SPEC_FULL.md §3), grounded on original_source/auth/token_manager.py.
type TokenManager struct {
	provider string
	auth     *authstore.Store
	client   *http.Client

	gate sync.Mutex
}

// NewTokenManager builds a TokenManager for the given credential provider
// name (e.g. "anthropic").
func NewTokenManager(provider string, auth *authstore.Store) *TokenManager {
	return &TokenManager{provider: provider, auth: auth, client: &http.Client{Timeout: 30 * time.Second}}
}

// GetValidToken implements §4.3's algorithm.
func (m *TokenManager) GetValidToken(ctx context.Context) (string, error) {
	creds, err := m.auth.Load(m.provider)
	if err != nil {
		return "", err
	}
	if creds == nil {
		return "", core.NewError(core.KindNotAuthenticated, "no credentials stored for %s", m.provider)
	}
	if creds.Type == core.CredentialAPIKey {
		return creds.Key, nil
	}
	if !creds.NeedsRefresh(time.Now(), RefreshBuffer) {
		return creds.Access, nil
	}

	// Single-flight: only one goroutine performs the refresh; others block
	// on the mutex and then re-check under it (double-checked locking).
	m.gate.Lock()
	defer m.gate.Unlock()

	creds, err = m.auth.Load(m.provider)
	if err != nil {
		return "", err
	}
	if creds == nil {
		return "", core.NewError(core.KindNotAuthenticated, "no credentials stored for %s", m.provider)
	}
	if creds.Type == core.CredentialAPIKey {
		return creds.Key, nil
	}
	if !creds.NeedsRefresh(time.Now(), RefreshBuffer) {
		return creds.Access, nil
	}

	return m.refresh(ctx, *creds)
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (m *TokenManager) refresh(ctx context.Context, creds core.Credentials) (string, error) {
	// Mirrors original_source/auth/token_manager.py: a rejected refresh token
	// (AuthExpired) is non-retryable per §4.3 and returns immediately, while
	// transient failures (network errors, 5xx) get up to MaxRetryAttempts
	// tries with backoff between them.
	policy := backoff.BackoffPolicy{InitialMs: RetryDelayMS, MaxMs: RetryDelayMS * 8, Factor: 2, Jitter: 0}

	var resp refreshResponse
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= MaxRetryAttempts; attempt++ {
		attempts = attempt
		if err := ctx.Err(); err != nil {
			return "", err
		}

		r, err := m.exchangeRefreshToken(ctx, creds.Refresh)
		if err == nil {
			resp = r
			lastErr = nil
			break
		}
		lastErr = err
		if ee, ok := err.(*core.EngineError); ok && ee.Kind == core.KindAuthExpired {
			return "", ee
		}

		if attempt < MaxRetryAttempts {
			if sleepErr := backoff.SleepWithBackoff(ctx, policy, attempt); sleepErr != nil {
				return "", sleepErr
			}
		}
	}
	if lastErr != nil {
		return "", core.WrapError(core.KindAuthTransient, lastErr, "refreshing oauth token after %d attempts", attempts)
	}

	newRefresh := creds.Refresh
	if resp.RefreshToken != "" {
		newRefresh = resp.RefreshToken // rotation only if supplied, per §9 Open Question 3
	}
	updated := core.Credentials{
		Type:      core.CredentialOAuth,
		Refresh:   newRefresh,
		Access:    resp.AccessToken,
		ExpiresMS: time.Now().UnixMilli() + resp.ExpiresIn*1000,
	}
	if err := m.auth.Save(m.provider, updated); err != nil {
		return "", err
	}
	return updated.Access, nil
}

func (m *TokenManager) exchangeRefreshToken(ctx context.Context, refreshToken string) (refreshResponse, error) {
	body := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"client_id":     ClientID,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return refreshResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, TokenExchangeURL, strings.NewReader(string(payload)))
	if err != nil {
		return refreshResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return refreshResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return refreshResponse{}, core.NewError(core.KindAuthExpired, "refresh token rejected with status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return refreshResponse{}, core.NewError(core.KindModelTransient, "token refresh returned status %d", resp.StatusCode)
	}

	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return refreshResponse{}, err
	}
	return out, nil
}
