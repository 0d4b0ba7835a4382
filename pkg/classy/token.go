/**
 * @description
 * This file implements the cached OAuth2 client-credentials token source for
 * the Classy API. A token is fetched lazily on first use, cached together
 * with its expiry instant, and refreshed only once the cached value has
 * expired. The stored expiry subtracts a safety buffer from the lifetime the
 * upstream reports so a token is never handed out moments before it dies
 * mid-request.
 *
 * Concurrent callers share one cache: reads happen under a mutex and
 * refreshes are collapsed through singleflight, so a stampede of expired
 * callers results in a single exchange against the token endpoint.
 *
 * @dependencies
 * - net/http, net/url, encoding/json: Standard Go libraries.
 * - golang.org/x/sync/singleflight: Refresh deduplication.
 */

package classy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTokenURL is the Classy OAuth2 token endpoint.
const DefaultTokenURL = "https://api.classy.org/oauth2/auth"

// DefaultExpiryBuffer matches the margin the service has always used when
// computing a cached token's effective lifetime.
const DefaultExpiryBuffer = 5 * time.Second

// TokenSource exchanges client credentials for bearer tokens and caches the
// result until shortly before expiry.
type TokenSource struct {
	clientID     string
	clientSecret string
	tokenURL     string
	buffer       time.Duration
	httpClient   *http.Client
	now          func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// TokenOptions configures a TokenSource. Zero values fall back to defaults;
// ClientID and ClientSecret have no defaults and are validated at call time
// rather than construction time, so a misconfigured process can still boot.
type TokenOptions struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	ExpiryBuffer time.Duration
	HTTPClient   *http.Client
	Now          func() time.Time
}

// NewTokenSource creates a token source for the given credential pair.
func NewTokenSource(opts TokenOptions) *TokenSource {
	tokenURL := strings.TrimSpace(opts.TokenURL)
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	buffer := opts.ExpiryBuffer
	if buffer <= 0 {
		buffer = DefaultExpiryBuffer
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &TokenSource{
		clientID:     strings.TrimSpace(opts.ClientID),
		clientSecret: strings.TrimSpace(opts.ClientSecret),
		tokenURL:     tokenURL,
		buffer:       buffer,
		httpClient:   httpClient,
		now:          now,
	}
}

// Token returns a bearer token, reusing the cached value while it remains
// valid and performing a single exchange otherwise.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	if t.clientID == "" || t.clientSecret == "" {
		return "", &ConfigError{Reason: "Classy client id or client secret is not set"}
	}

	if token, ok := t.cached(); ok {
		return token, nil
	}

	value, err, _ := t.group.Do("token", func() (any, error) {
		// Another caller may have refreshed while this one waited.
		if token, ok := t.cached(); ok {
			return token, nil
		}
		return t.exchange(ctx)
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

// Invalidate evicts the cached token so the next call performs a fresh
// exchange. Used when a resource call reports the token as already expired.
func (t *TokenSource) Invalidate() {
	t.mu.Lock()
	t.token = ""
	t.expiresAt = time.Time{}
	t.mu.Unlock()
}

func (t *TokenSource) cached() (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.token == "" || !t.now().Before(t.expiresAt) {
		return "", false
	}
	return t.token, true
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (t *TokenSource) exchange(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", t.clientID)
	form.Set("client_secret", t.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &TransportError{Op: "token request build", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Op: "token exchange", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Op: "token response read", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &AuthError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &AuthError{StatusCode: resp.StatusCode, Detail: "malformed token response body"}
	}
	if parsed.AccessToken == "" || parsed.ExpiresIn <= 0 {
		return "", &AuthError{StatusCode: resp.StatusCode, Detail: "token response missing access_token or expires_in"}
	}

	expiresAt := t.now().Add(time.Duration(parsed.ExpiresIn)*time.Second - t.buffer)

	t.mu.Lock()
	t.token = parsed.AccessToken
	t.expiresAt = expiresAt
	t.mu.Unlock()

	return parsed.AccessToken, nil
}
