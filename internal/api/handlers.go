/**
 * @description
 * This file contains the HTTP handlers for the campaign-service's API
 * endpoints. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the aggregation service, and writing the HTTP
 * response. They act as the bridge between the web layer and the
 * aggregation layer.
 *
 * Upstream failures are translated here: a rejection from the donation
 * platform keeps its status code and diagnostic payload, everything else
 * collapses to a generic status with the detail logged rather than leaked.
 *
 * @dependencies
 * - encoding/json, errors, net/http, strconv: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - github.com/rs/zerolog: Structured logging.
 * - internal/app, internal/domain, pkg/classy: Service logic, models, and
 *   typed upstream errors.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/givehub/campaign-service/internal/app"
	"github.com/givehub/campaign-service/internal/domain"
	"github.com/givehub/campaign-service/pkg/classy"
)

// CampaignService is the aggregation surface the handlers depend on.
type CampaignService interface {
	CampaignDetail(ctx context.Context, campaignID string) (domain.RawRecord, error)
	OrganizationName(ctx context.Context, organizationID string) (string, error)
	CampaignsByOrganization(ctx context.Context, organizationID string, opts app.CampaignListOptions) (domain.RawRecord, error)
	TransactionSummary(ctx context.Context, campaignID string, limit int) (*app.TransactionSummaryResult, error)
	TopFundraisers(ctx context.Context, campaignID string, topN int) ([]domain.FundraiserSummary, error)
	FundraisingPageOverview(ctx context.Context, pageID string) (domain.RawRecord, error)
	Summary(ctx context.Context, campaignID string) (*app.CampaignAggregate, error)
}

// CampaignHandlers holds the aggregation service that handlers will use.
type CampaignHandlers struct {
	service      CampaignService
	defaultOrgID string
	logger       zerolog.Logger
}

// NewCampaignHandlers creates a new instance of CampaignHandlers.
func NewCampaignHandlers(service CampaignService, defaultOrgID string, logger zerolog.Logger) *CampaignHandlers {
	return &CampaignHandlers{service: service, defaultOrgID: defaultOrgID, logger: logger}
}

// errorResponse is the JSON error body the frontend reads.
type errorResponse struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// CampaignDetailHandler serves a single campaign, overview included, with
// the goal normalized to major units.
func (h *CampaignHandlers) CampaignDetailHandler(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	campaign, err := h.service.CampaignDetail(r.Context(), campaignID)
	if err != nil {
		h.writeUpstreamError(w, r, err, "Failed to fetch campaign")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"data": campaign})
}

// CampaignTransactionsHandler serves the reconciled total and the
// anonymized activity feed for a campaign.
func (h *CampaignHandlers) CampaignTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	limit, err := parseOptionalPositiveInt(r.URL.Query().Get("limit"), 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid limit", nil)
		return
	}

	summary, err := h.service.TransactionSummary(r.Context(), campaignID, limit)
	if err != nil {
		h.writeUpstreamError(w, r, err, "Failed to fetch campaign transactions")
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// TopFundraisersHandler serves the ranked fundraiser leaderboard.
func (h *CampaignHandlers) TopFundraisersHandler(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	topN, err := parseOptionalPositiveInt(r.URL.Query().Get("limit"), 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid limit", nil)
		return
	}

	fundraisers, err := h.service.TopFundraisers(r.Context(), campaignID, topN)
	if err != nil {
		h.writeUpstreamError(w, r, err, "Failed to fetch top fundraisers")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"data": fundraisers})
}

// CampaignSummaryHandler serves the combined campaign page aggregate.
func (h *CampaignHandlers) CampaignSummaryHandler(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	aggregate, err := h.service.Summary(r.Context(), campaignID)
	if err != nil {
		h.writeUpstreamError(w, r, err, "Failed to build campaign summary")
		return
	}

	h.writeJSON(w, http.StatusOK, aggregate)
}

// ListCampaignsHandler serves one page of an organization's campaigns as
// the upstream page envelope. The organization defaults to the configured
// one and can be overridden with ?orgId=.
func (h *CampaignHandlers) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	orgID := strings.TrimSpace(r.URL.Query().Get("orgId"))
	if orgID == "" {
		orgID = h.defaultOrgID
	}
	if orgID == "" {
		h.writeError(w, http.StatusBadRequest, "Organization id is required", nil)
		return
	}

	page, err := parseOptionalPositiveInt(r.URL.Query().Get("page"), 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid page", nil)
		return
	}
	perPage, err := parseOptionalPositiveInt(r.URL.Query().Get("per_page"), 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid per_page", nil)
		return
	}

	envelope, err := h.service.CampaignsByOrganization(r.Context(), orgID, app.CampaignListOptions{
		Page:    page,
		PerPage: perPage,
		Status:  strings.TrimSpace(r.URL.Query().Get("status")),
		Sort:    strings.TrimSpace(r.URL.Query().Get("sort")),
		With:    strings.TrimSpace(r.URL.Query().Get("with")),
	})
	if err != nil {
		h.writeUpstreamError(w, r, err, "Failed to fetch campaigns")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope)
}

// OrganizationHandler serves an organization's display name.
func (h *CampaignHandlers) OrganizationHandler(w http.ResponseWriter, r *http.Request) {
	organizationID := chi.URLParam(r, "organizationID")

	name, err := h.service.OrganizationName(r.Context(), organizationID)
	if err != nil {
		h.writeUpstreamError(w, r, err, "Failed to fetch organization")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"organizationName": name})
}

// FundraisingPageOverviewHandler serves a fundraising page's aggregate
// overview object.
func (h *CampaignHandlers) FundraisingPageOverviewHandler(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")

	overview, err := h.service.FundraisingPageOverview(r.Context(), pageID)
	if err != nil {
		h.writeUpstreamError(w, r, err, "Failed to fetch fundraising page overview")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"data": overview})
}

// writeUpstreamError maps a typed upstream failure to an HTTP response.
// Upstream rejections keep their status code and diagnostic payload; every
// other category maps to a fixed status with detail logged, not returned.
func (h *CampaignHandlers) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error, message string) {
	reqID := middleware.GetReqID(r.Context())

	var apiErr *classy.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		h.logger.Warn().Str("request_id", reqID).Int("upstream_status", apiErr.StatusCode).Err(err).Msg(message)
		h.writeError(w, status, message, apiErr.Details)
		return
	}

	var cfgErr *classy.ConfigError
	if errors.As(err, &cfgErr) {
		h.logger.Error().Str("request_id", reqID).Err(err).Msg("donation platform credentials missing")
		h.writeError(w, http.StatusInternalServerError, "Service is not configured for the donation platform", nil)
		return
	}

	var authErr *classy.AuthError
	if errors.As(err, &authErr) {
		h.logger.Error().Str("request_id", reqID).Err(err).Msg("donation platform authentication failed")
		h.writeError(w, http.StatusBadGateway, "Could not authenticate with the donation platform", nil)
		return
	}

	var transportErr *classy.TransportError
	var parseErr *classy.ParseError
	if errors.As(err, &transportErr) || errors.As(err, &parseErr) {
		h.logger.Error().Str("request_id", reqID).Err(err).Msg(message)
		h.writeError(w, http.StatusBadGateway, message, nil)
		return
	}

	h.logger.Error().Str("request_id", reqID).Err(err).Msg(message)
	h.writeError(w, http.StatusInternalServerError, message, nil)
}

// writeJSON is a helper for writing JSON responses.
func (h *CampaignHandlers) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *CampaignHandlers) writeError(w http.ResponseWriter, status int, message string, details any) {
	h.writeJSON(w, status, errorResponse{Message: message, Details: details})
}

func parseOptionalPositiveInt(raw string, fallback int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errors.New("value must be a non-negative integer")
	}
	return value, nil
}
