package classy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
)

// newTestClient wires a Client against a single httptest server that answers
// both the token endpoint and the resource handler under test.
func newTestClient(t *testing.T, resource http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/auth", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"test-token","expires_in":3600}`)
	})
	mux.HandleFunc("/", resource)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClient(Options{
		BaseURL:      server.URL,
		TokenURL:     server.URL + "/oauth2/auth",
		ClientID:     "client",
		ClientSecret: "secret",
		Logger:       zerolog.Nop(),
	})
	return client, server
}

func TestRequest_AttachesBearerToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected Authorization header 'Bearer test-token', got %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header to be set")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":42}`)
	})

	body, err := client.Request(context.Background(), http.MethodGet, "/2.0/campaigns/42", nil, nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if !body.IsJSON() {
		t.Fatal("expected body to be classified as JSON")
	}

	var campaign struct {
		ID int `json:"id"`
	}
	if err := body.Decode(&campaign); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if campaign.ID != 42 {
		t.Fatalf("expected campaign id 42, got %d", campaign.ID)
	}
}

func TestRequest_NonJSONSuccessKeptRaw(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "pong")
	})

	body, err := client.Request(context.Background(), http.MethodGet, "/ping", nil, nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if body.IsJSON() {
		t.Fatal("expected non-JSON classification for text/plain response")
	}
	if string(body.Raw()) != "pong" {
		t.Fatalf("expected raw body 'pong', got %q", body.Raw())
	}

	var v any
	err = body.Decode(&v)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError when decoding a non-JSON body, got %v", err)
	}
}

func TestRequest_UpstreamErrorCarriesDetails(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"Campaign not found"}`)
	})

	_, err := client.Request(context.Background(), http.MethodGet, "/2.0/campaigns/999", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", apiErr.StatusCode)
	}
	details, ok := apiErr.Details.(map[string]any)
	if !ok {
		t.Fatalf("expected JSON details map, got %T", apiErr.Details)
	}
	if details["error"] != "Campaign not found" {
		t.Fatalf("unexpected details: %v", details)
	}
}

func TestRequest_NonJSONErrorBodyKeptAsText(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "<html>bad gateway</html>")
	})

	_, err := client.Request(context.Background(), http.MethodGet, "/2.0/campaigns/1", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if _, ok := apiErr.Details.(string); !ok {
		t.Fatalf("expected text details for non-JSON error body, got %T", apiErr.Details)
	}
}

func TestRequest_MalformedDeclaredJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data": [truncated`)
	})

	_, err := client.Request(context.Background(), http.MethodGet, "/2.0/campaigns/1", nil, nil)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError for malformed declared-JSON body, got %v", err)
	}
}

func TestRequest_TransportFailure(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	// Prime the token cache before killing the server so the resource call
	// itself is what fails.
	if _, err := client.tokens.Token(context.Background()); err != nil {
		t.Fatalf("token priming failed: %v", err)
	}
	server.Close()

	_, err := client.Request(context.Background(), http.MethodGet, "/2.0/campaigns/1", nil, nil)
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestRequest_QueryParamsForwarded(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("with"); got != "overview" {
			t.Errorf("expected with=overview, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{}`)
	})

	query := url.Values{}
	query.Set("with", "overview")
	if _, err := client.Request(context.Background(), http.MethodGet, "/2.0/campaigns/1", query, nil); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
}

func TestGetJSON_DecodesResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"name":"Spring Gala"}`)
	})

	var out map[string]any
	if err := client.GetJSON(context.Background(), "/2.0/organizations/7", nil, &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out["name"] != "Spring Gala" {
		t.Fatalf("unexpected decoded payload: %v", out)
	}
}
