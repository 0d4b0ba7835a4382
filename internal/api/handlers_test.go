package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/givehub/campaign-service/internal/app"
	"github.com/givehub/campaign-service/internal/domain"
	"github.com/givehub/campaign-service/pkg/classy"
)

// stubService implements CampaignService with per-test function hooks.
type stubService struct {
	campaignDetail          func(campaignID string) (domain.RawRecord, error)
	organizationName        func(organizationID string) (string, error)
	campaignsByOrganization func(organizationID string, opts app.CampaignListOptions) (domain.RawRecord, error)
	transactionSummary      func(campaignID string, limit int) (*app.TransactionSummaryResult, error)
	topFundraisers          func(campaignID string, topN int) ([]domain.FundraiserSummary, error)
	fundraisingPageOverview func(pageID string) (domain.RawRecord, error)
	summary                 func(campaignID string) (*app.CampaignAggregate, error)
}

func (s *stubService) CampaignDetail(ctx context.Context, campaignID string) (domain.RawRecord, error) {
	return s.campaignDetail(campaignID)
}

func (s *stubService) OrganizationName(ctx context.Context, organizationID string) (string, error) {
	return s.organizationName(organizationID)
}

func (s *stubService) CampaignsByOrganization(ctx context.Context, organizationID string, opts app.CampaignListOptions) (domain.RawRecord, error) {
	return s.campaignsByOrganization(organizationID, opts)
}

func (s *stubService) TransactionSummary(ctx context.Context, campaignID string, limit int) (*app.TransactionSummaryResult, error) {
	return s.transactionSummary(campaignID, limit)
}

func (s *stubService) TopFundraisers(ctx context.Context, campaignID string, topN int) ([]domain.FundraiserSummary, error) {
	return s.topFundraisers(campaignID, topN)
}

func (s *stubService) FundraisingPageOverview(ctx context.Context, pageID string) (domain.RawRecord, error) {
	return s.fundraisingPageOverview(pageID)
}

func (s *stubService) Summary(ctx context.Context, campaignID string) (*app.CampaignAggregate, error) {
	return s.summary(campaignID)
}

func newTestRouter(service CampaignService, defaultOrgID string) http.Handler {
	h := NewCampaignHandlers(service, defaultOrgID, zerolog.Nop())
	return CampaignRoutes(h, zerolog.Nop(), RouterOptions{})
}

func doRequest(t *testing.T, router http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&stubService{}, "")

	rec := doRequest(t, router, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "healthy" {
		t.Fatalf("unexpected health body %q", rec.Body.String())
	}
}

func TestCampaignTransactionsEndpoint(t *testing.T) {
	stub := &stubService{
		transactionSummary: func(campaignID string, limit int) (*app.TransactionSummaryResult, error) {
			if campaignID != "42" {
				t.Errorf("campaignID = %q, want 42", campaignID)
			}
			if limit != 5 {
				t.Errorf("limit = %d, want 5", limit)
			}
			return &app.TransactionSummaryResult{
				TotalRaised: 150,
				Activity: []domain.ActivityEntry{
					{ID: "1", Type: "donation", DonorName: "Jane D.", Amount: 150, OccurredAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
				},
				Pagination: app.PaginationInfo{Pages: 1, Total: 1},
			}, nil
		},
	}
	router := newTestRouter(stub, "")

	rec := doRequest(t, router, http.MethodGet, "/api/classy/campaigns/42/transactions?limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["totalRaisedAmount"] != 150.0 {
		t.Errorf("totalRaisedAmount = %v, want 150", body["totalRaisedAmount"])
	}
	items, ok := body["activityItems"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 activity item, got %v", body["activityItems"])
	}
	item := items[0].(map[string]any)
	if item["userName"] != "Jane D." {
		t.Errorf("userName = %v", item["userName"])
	}
	if _, ok := body["pagination"]; !ok {
		t.Error("expected pagination object in response")
	}
}

func TestTransactionsInvalidLimit(t *testing.T) {
	router := newTestRouter(&stubService{}, "")

	rec := doRequest(t, router, http.MethodGet, "/api/classy/campaigns/42/transactions?limit=abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an invalid limit, got %d", rec.Code)
	}
}

func TestTopFundraisersEndpoint(t *testing.T) {
	stub := &stubService{
		topFundraisers: func(campaignID string, topN int) ([]domain.FundraiserSummary, error) {
			return []domain.FundraiserSummary{
				{ID: "77", Name: "Jane Doe", RaisedAmount: 1500, GoalAmount: 5000, PagePath: "/fundraiser/77"},
			}, nil
		},
	}
	router := newTestRouter(stub, "")

	rec := doRequest(t, router, http.MethodGet, "/api/classy/campaigns/42/top-fundraisers")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := decodeBody(t, rec)
	data, ok := body["data"].([]any)
	if !ok || len(data) != 1 {
		t.Fatalf("expected data array with 1 entry, got %v", body)
	}
	row := data[0].(map[string]any)
	if row["raisedAmount"] != 1500.0 {
		t.Errorf("raisedAmount = %v, want 1500", row["raisedAmount"])
	}
}

func TestCampaignDetailEndpoint(t *testing.T) {
	stub := &stubService{
		campaignDetail: func(campaignID string) (domain.RawRecord, error) {
			return domain.RawRecord{"id": 42.0, "name": "Spring Gala"}, nil
		},
	}
	router := newTestRouter(stub, "")

	rec := doRequest(t, router, http.MethodGet, "/api/classy/campaigns/42")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	data, ok := body["data"].(map[string]any)
	if !ok || data["name"] != "Spring Gala" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestOrganizationEndpoint(t *testing.T) {
	stub := &stubService{
		organizationName: func(organizationID string) (string, error) {
			return "GiveHub Org", nil
		},
	}
	router := newTestRouter(stub, "")

	rec := doRequest(t, router, http.MethodGet, "/api/classy/organizations/7")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["organizationName"] != "GiveHub Org" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestListCampaigns_DefaultOrganization(t *testing.T) {
	stub := &stubService{
		campaignsByOrganization: func(organizationID string, opts app.CampaignListOptions) (domain.RawRecord, error) {
			if organizationID != "7" {
				t.Errorf("organizationID = %q, want default 7", organizationID)
			}
			return domain.RawRecord{"data": []any{}, "current_page": 1.0}, nil
		},
	}
	router := newTestRouter(stub, "7")

	rec := doRequest(t, router, http.MethodGet, "/api/classy/campaigns")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestListCampaigns_MissingOrganization(t *testing.T) {
	router := newTestRouter(&stubService{}, "")

	rec := doRequest(t, router, http.MethodGet, "/api/classy/campaigns")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without an organization id, got %d", rec.Code)
	}
}

func TestListCampaigns_QueryPassthrough(t *testing.T) {
	stub := &stubService{
		campaignsByOrganization: func(organizationID string, opts app.CampaignListOptions) (domain.RawRecord, error) {
			if organizationID != "9" {
				t.Errorf("organizationID = %q, want query override 9", organizationID)
			}
			if opts.Page != 2 || opts.PerPage != 10 || opts.Status != "active" {
				t.Errorf("unexpected list options: %+v", opts)
			}
			return domain.RawRecord{"data": []any{}}, nil
		},
	}
	router := newTestRouter(stub, "7")

	rec := doRequest(t, router, http.MethodGet, "/api/classy/campaigns?orgId=9&page=2&per_page=10&status=active")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestFundraisingPageOverviewEndpoint(t *testing.T) {
	stub := &stubService{
		fundraisingPageOverview: func(pageID string) (domain.RawRecord, error) {
			return domain.RawRecord{"total_raised": 1500.0}, nil
		},
	}
	router := newTestRouter(stub, "")

	rec := doRequest(t, router, http.MethodGet, "/api/classy/fundraising-pages/88/overview")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if _, ok := body["data"]; !ok {
		t.Fatalf("expected data envelope, got %v", body)
	}
}

func TestCampaignSummaryEndpoint(t *testing.T) {
	stub := &stubService{
		summary: func(campaignID string) (*app.CampaignAggregate, error) {
			return &app.CampaignAggregate{
				Campaign:         domain.RawRecord{"id": 42.0},
				OrganizationName: "GiveHub Org",
				TotalRaised:      900,
				Activity:         []domain.ActivityEntry{},
				TopFundraisers:   []domain.FundraiserSummary{},
			}, nil
		},
	}
	router := newTestRouter(stub, "")

	rec := doRequest(t, router, http.MethodGet, "/api/classy/campaigns/42/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["organizationName"] != "GiveHub Org" {
		t.Errorf("organizationName = %v", body["organizationName"])
	}
	if body["totalRaisedAmount"] != 900.0 {
		t.Errorf("totalRaisedAmount = %v, want 900", body["totalRaisedAmount"])
	}
}

func TestErrorTranslation(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantDetails bool
	}{
		{
			name:        "upstream rejection keeps status and details",
			err:         &classy.APIError{StatusCode: http.StatusNotFound, Message: "not found", Details: map[string]any{"error": "Campaign not found"}},
			wantStatus:  http.StatusNotFound,
			wantDetails: true,
		},
		{
			name:       "out-of-range upstream status clamps to bad gateway",
			err:        &classy.APIError{StatusCode: 302, Message: "redirect"},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "missing credentials map to internal error",
			err:        &classy.ConfigError{Reason: "missing client id"},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "token exchange failure maps to bad gateway",
			err:        &classy.AuthError{StatusCode: 401, Detail: "invalid_client"},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "transport failure maps to bad gateway",
			err:        &classy.TransportError{Op: "GET /2.0/campaigns/42"},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "parse failure maps to bad gateway",
			err:        &classy.ParseError{Path: "/2.0/campaigns/42"},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubService{
				campaignDetail: func(campaignID string) (domain.RawRecord, error) {
					return nil, tt.err
				},
			}
			router := newTestRouter(stub, "")

			rec := doRequest(t, router, http.MethodGet, "/api/classy/campaigns/42")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			body := decodeBody(t, rec)
			if body["message"] == "" {
				t.Error("expected an error message in the body")
			}
			if _, ok := body["details"]; ok != tt.wantDetails {
				t.Errorf("details present = %v, want %v", ok, tt.wantDetails)
			}
		})
	}
}
