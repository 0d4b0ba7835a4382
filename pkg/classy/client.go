/**
 * @description
 * This package provides a client for the Classy fundraising platform API. It
 * encapsulates bearer authentication via the cached token source, generic
 * request execution with JSON-versus-raw body handling, and classification
 * of upstream failures into the typed errors defined in errors.go.
 *
 * The client performs no retries; retry policy belongs to the aggregation
 * layer, which knows which failures are worth a second attempt.
 *
 * @dependencies
 * - bytes, context, encoding/json, io, net/http, net/url: Standard Go libraries.
 * - github.com/google/uuid: Per-request correlation ids forwarded upstream.
 * - github.com/rs/zerolog: Structured request logging.
 */

package classy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the versioned Classy API root. Resource paths passed to
// Request already include the version segment (e.g. /2.0/campaigns/123).
const DefaultBaseURL = "https://api.classy.org"

// Client issues authenticated requests against the Classy API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenSource
	logger     zerolog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	ExpiryBuffer time.Duration
	HTTPClient   *http.Client
	Logger       zerolog.Logger
}

// NewClient creates a Classy API client with its own token source.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		tokens: NewTokenSource(TokenOptions{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			ExpiryBuffer: opts.ExpiryBuffer,
			HTTPClient:   httpClient,
		}),
		logger: opts.Logger,
	}
}

// InvalidateToken evicts the cached bearer token. The aggregation layer calls
// this before its single transparent retry after an upstream 401.
func (c *Client) InvalidateToken() {
	c.tokens.Invalidate()
}

// Body is the classified payload of a successful (2xx) upstream response.
type Body struct {
	raw    []byte
	isJSON bool
	path   string
}

// IsJSON reports whether the upstream declared the body as application/json.
func (b *Body) IsJSON() bool { return b.isJSON }

// Raw returns the unparsed response bytes (possibly empty).
func (b *Body) Raw() []byte { return b.raw }

// Decode unmarshals a JSON body into v.
func (b *Body) Decode(v any) error {
	if !b.isJSON {
		return &ParseError{Path: b.path, Err: errNotJSON}
	}
	if err := json.Unmarshal(b.raw, v); err != nil {
		return &ParseError{Path: b.path, Err: err}
	}
	return nil
}

var errNotJSON = &jsonTypeError{}

type jsonTypeError struct{}

func (*jsonTypeError) Error() string { return "response body is not application/json" }

// Request executes an authenticated call against the Classy API. A bearer
// token is always obtained first, so token-source errors surface here. The
// body payload is JSON-encoded for POST/PUT/PATCH requests.
func (c *Client) Request(ctx context.Context, method, path string, query url.Values, payload any) (*Body, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var bodyReader io.Reader
	hasBody := payload != nil && (method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch)
	if hasBody {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &TransportError{Op: "request encode", Err: err}
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, &TransportError{Op: "request build", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "response read", Err: err}
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("classy request")

	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "application/json")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var details any
		if isJSON && len(raw) > 0 {
			var parsed any
			if err := json.Unmarshal(raw, &parsed); err == nil {
				details = parsed
			}
		}
		if details == nil && len(raw) > 0 {
			details = strings.TrimSpace(string(raw))
		}
		c.logger.Warn().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("classy request rejected")
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    "Classy API error on path " + path,
			Details:    details,
		}
	}

	if isJSON && len(raw) > 0 && !json.Valid(raw) {
		return nil, &ParseError{Path: path, Err: errInvalidJSON}
	}

	return &Body{raw: raw, isJSON: isJSON, path: path}, nil
}

var errInvalidJSON = &invalidJSONError{}

type invalidJSONError struct{}

func (*invalidJSONError) Error() string { return "declared-JSON body is not valid JSON" }

// GetJSON issues a GET request and decodes the JSON response into v.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, v any) error {
	body, err := c.Request(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return body.Decode(v)
}
