/**
 * @description
 * This file contains the core aggregation logic for the campaign-service.
 * The `Service` struct composes the Classy API client with the amount
 * reconciliation rules to produce the read models the web frontend needs:
 * campaign totals, a donor-anonymized activity feed, and the top-fundraiser
 * leaderboard.
 *
 * Key behaviors:
 * - Every aggregate is rebuilt per request from the upstream; nothing is
 *   persisted and upstream failures always surface as typed errors.
 * - A resource call rejected with 401 is retried exactly once after
 *   evicting the cached token (an expired-but-still-cached token is a
 *   recoverable race). No other failure is retried.
 * - The combined summary runs its sections concurrently and degrades
 *   partially: a failed section is logged and returned empty rather than
 *   failing the page.
 *
 * @dependencies
 * - context, errors, net/http, net/url, sort, strings: Standard Go libraries.
 * - github.com/rs/zerolog: Structured logging.
 * - golang.org/x/sync/errgroup: Section fan-out in the summary.
 * - internal/domain, pkg/classy: Domain models and upstream access.
 */

package app

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/givehub/campaign-service/internal/domain"
	"github.com/givehub/campaign-service/pkg/classy"
)

const (
	// DefaultActivityLimit bounds the activity feed returned to the page.
	DefaultActivityLimit = 50
	// DefaultTopFundraisersLimit matches the leaderboard grid size.
	DefaultTopFundraisersLimit = 9
)

// ClassyAPI is the slice of the Classy client the service depends on,
// kept narrow so tests can substitute a stub.
type ClassyAPI interface {
	GetJSON(ctx context.Context, path string, query url.Values, v any) error
	FetchAllPages(ctx context.Context, path string, query url.Values, perPage, maxPages int) (classy.PageResult, error)
	InvalidateToken()
}

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	PerPage             int
	MaxPages            int
	ActivityLimit       int
	TopFundraisersLimit int
	TransactionRules    domain.AmountRules
	RaisedRules         domain.AmountRules
	GoalRules           domain.AmountRules
}

// Service provides the campaign aggregation operations.
type Service struct {
	classy  ClassyAPI
	logger  zerolog.Logger
	perPage int
	// maxPages is the fan-out cap: the hard bound on pages fetched per
	// list endpoint within one request.
	maxPages      int
	activityLimit int
	topLimit      int
	txRules       domain.AmountRules
	raisedRules   domain.AmountRules
	goalRules     domain.AmountRules
}

// NewService creates the aggregation service.
func NewService(api ClassyAPI, logger zerolog.Logger, opts Options) *Service {
	s := &Service{
		classy:        api,
		logger:        logger,
		perPage:       opts.PerPage,
		maxPages:      opts.MaxPages,
		activityLimit: opts.ActivityLimit,
		topLimit:      opts.TopFundraisersLimit,
		txRules:       opts.TransactionRules,
		raisedRules:   opts.RaisedRules,
		goalRules:     opts.GoalRules,
	}
	if s.perPage <= 0 {
		s.perPage = classy.DefaultPerPage
	}
	if s.maxPages <= 0 {
		s.maxPages = classy.DefaultMaxPages
	}
	if s.activityLimit <= 0 {
		s.activityLimit = DefaultActivityLimit
	}
	if s.topLimit <= 0 {
		s.topLimit = DefaultTopFundraisersLimit
	}
	if len(s.txRules.Priority) == 0 {
		s.txRules = domain.DefaultTransactionRules()
	}
	if len(s.raisedRules.Priority) == 0 {
		s.raisedRules = domain.DefaultRaisedRules()
	}
	if len(s.goalRules.Priority) == 0 {
		s.goalRules = domain.DefaultGoalRules()
	}
	return s
}

// PaginationInfo reports how a paginated aggregation was assembled, making
// cap truncation visible to callers instead of silent.
type PaginationInfo struct {
	Pages     int  `json:"pages"`
	Total     int  `json:"total"`
	Truncated bool `json:"truncated"`
}

// TransactionSummaryResult is the reshaped transaction collection for one
// campaign: the reconciled total plus the anonymized activity feed.
type TransactionSummaryResult struct {
	TotalRaised float64                `json:"totalRaisedAmount"`
	Activity    []domain.ActivityEntry `json:"activityItems"`
	Pagination  PaginationInfo         `json:"pagination"`
}

// TransactionSummary paginates a campaign's transactions once and derives
// both the raised total and the activity feed from that single pass. A
// campaign with no transactions yields a zero total and an empty feed.
func (s *Service) TransactionSummary(ctx context.Context, campaignID string, limit int) (*TransactionSummaryResult, error) {
	if limit <= 0 {
		limit = s.activityLimit
	}

	query := url.Values{}
	query.Set("sort", "purchased_at:desc")

	pages, err := s.fetchAllPages(ctx, "/2.0/campaigns/"+campaignID+"/transactions", query)
	if err != nil {
		return nil, err
	}

	result := &TransactionSummaryResult{
		Activity: make([]domain.ActivityEntry, 0, len(pages.Records)),
		Pagination: PaginationInfo{
			Pages:     pages.Pages,
			Total:     pages.Total,
			Truncated: pages.Truncated,
		},
	}

	for _, rec := range pages.Records {
		entry := domain.ActivityFromRecord(rec, s.txRules)
		result.TotalRaised += entry.Amount
		result.Activity = append(result.Activity, entry)
	}

	sort.SliceStable(result.Activity, func(i, j int) bool {
		return result.Activity[i].OccurredAt.After(result.Activity[j].OccurredAt)
	})
	if len(result.Activity) > limit {
		result.Activity = result.Activity[:limit]
	}

	return result, nil
}

// TotalRaised computes a campaign's raised total, preferring the overview
// total the campaign object exposes directly and falling back to summing
// the paginated transactions.
func (s *Service) TotalRaised(ctx context.Context, campaignID string) (float64, error) {
	campaign, err := s.CampaignDetail(ctx, campaignID)
	if err == nil {
		if overview, ok := campaign["overview"].(map[string]any); ok {
			if total := domain.ResolveAmount(overview, domain.AmountRules{
				Priority: []string{"total_gross_amount", "donations_amount"},
			}); total > 0 {
				return total, nil
			}
		}
	} else {
		return 0, err
	}

	summary, err := s.TransactionSummary(ctx, campaignID, 1)
	if err != nil {
		return 0, err
	}
	return summary.TotalRaised, nil
}

// TopFundraisers paginates a campaign's fundraising pages and returns the
// topN ranked by raised amount (descending), goal amount breaking ties.
// Pages with no resolvable raised amount are dropped.
func (s *Service) TopFundraisers(ctx context.Context, campaignID string, topN int) ([]domain.FundraiserSummary, error) {
	if topN <= 0 {
		topN = s.topLimit
	}

	query := url.Values{}
	query.Set("with", "member")

	pages, err := s.fetchAllPages(ctx, "/2.0/campaigns/"+campaignID+"/fundraising-pages", query)
	if err != nil {
		return nil, err
	}

	fundraisers := make([]domain.FundraiserSummary, 0, len(pages.Records))
	for _, rec := range pages.Records {
		summary := domain.FundraiserFromRecord(rec, s.raisedRules, s.goalRules)
		if summary.RaisedAmount <= 0 {
			continue
		}
		fundraisers = append(fundraisers, summary)
	}

	sort.SliceStable(fundraisers, func(i, j int) bool {
		if fundraisers[i].RaisedAmount != fundraisers[j].RaisedAmount {
			return fundraisers[i].RaisedAmount > fundraisers[j].RaisedAmount
		}
		return fundraisers[i].GoalAmount > fundraisers[j].GoalAmount
	})
	if len(fundraisers) > topN {
		fundraisers = fundraisers[:topN]
	}

	return fundraisers, nil
}

// CampaignDetail fetches a campaign with its overview eager-loaded and
// normalizes the goal to major units.
func (s *Service) CampaignDetail(ctx context.Context, campaignID string) (domain.RawRecord, error) {
	query := url.Values{}
	query.Set("with", "overview")

	var campaign map[string]any
	if err := s.getJSON(ctx, "/2.0/campaigns/"+campaignID, query, &campaign); err != nil {
		return nil, err
	}

	s.normalizeGoal(campaign)
	return campaign, nil
}

// OrganizationName resolves an organization's display name.
func (s *Service) OrganizationName(ctx context.Context, organizationID string) (string, error) {
	var organization map[string]any
	if err := s.getJSON(ctx, "/2.0/organizations/"+organizationID, nil, &organization); err != nil {
		return "", err
	}
	if name, ok := organization["name"].(string); ok && strings.TrimSpace(name) != "" {
		return strings.TrimSpace(name), nil
	}
	return "Organization " + organizationID, nil
}

// CampaignListOptions carries the passthrough query parameters for the
// organization campaign listing.
type CampaignListOptions struct {
	Page    int
	PerPage int
	Status  string
	Sort    string
	With    string
}

// CampaignsByOrganization returns one page of an organization's campaigns
// as the upstream page envelope, with the overview eager-load ensured and
// each campaign's goal normalized to major units.
func (s *Service) CampaignsByOrganization(ctx context.Context, organizationID string, opts CampaignListOptions) (domain.RawRecord, error) {
	query := url.Values{}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}
	if opts.Sort != "" {
		query.Set("sort", opts.Sort)
	}
	with := opts.With
	if with == "" {
		with = "overview"
	} else if !strings.Contains(with, "overview") {
		with += ",overview"
	}
	query.Set("with", with)

	var envelope map[string]any
	if err := s.getJSON(ctx, "/2.0/organizations/"+organizationID+"/campaigns", query, &envelope); err != nil {
		return nil, err
	}

	if data, ok := envelope["data"].([]any); ok {
		for _, item := range data {
			if campaign, ok := item.(map[string]any); ok {
				s.normalizeGoal(campaign)
			}
		}
	}
	return envelope, nil
}

// FundraisingPageOverview fetches the aggregate overview of a single
// fundraising page.
func (s *Service) FundraisingPageOverview(ctx context.Context, pageID string) (domain.RawRecord, error) {
	var overview map[string]any
	if err := s.getJSON(ctx, "/2.0/fundraising-pages/"+pageID+"/overview", nil, &overview); err != nil {
		return nil, err
	}
	return overview, nil
}

// CampaignAggregate is the combined read model for a campaign page.
type CampaignAggregate struct {
	Campaign         domain.RawRecord           `json:"campaign"`
	OrganizationName string                     `json:"organizationName"`
	TotalRaised      float64                    `json:"totalRaisedAmount"`
	Activity         []domain.ActivityEntry     `json:"activityItems"`
	TopFundraisers   []domain.FundraiserSummary `json:"topFundraisers"`
	Pagination       PaginationInfo             `json:"pagination"`
}

// Summary assembles the full campaign page in one call. The campaign object
// is required; the organization name, transaction summary, and leaderboard
// are fetched concurrently and degrade independently: a failed section is
// logged and served empty so the page still renders.
func (s *Service) Summary(ctx context.Context, campaignID string) (*CampaignAggregate, error) {
	campaign, err := s.CampaignDetail(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	aggregate := &CampaignAggregate{
		Campaign:       campaign,
		Activity:       []domain.ActivityEntry{},
		TopFundraisers: []domain.FundraiserSummary{},
	}

	orgID := ""
	if v, ok := campaign["organization_id"]; ok {
		orgID = numericString(v)
	}
	aggregate.OrganizationName = "Organization " + orgID

	g := new(errgroup.Group)

	if orgID != "" {
		g.Go(func() error {
			name, err := s.OrganizationName(ctx, orgID)
			if err != nil {
				s.logger.Warn().Err(err).Str("organization_id", orgID).Msg("organization lookup failed; using fallback name")
				return nil
			}
			aggregate.OrganizationName = name
			return nil
		})
	}

	g.Go(func() error {
		summary, err := s.TransactionSummary(ctx, campaignID, 0)
		if err != nil {
			s.logger.Warn().Err(err).Str("campaign_id", campaignID).Msg("transaction summary failed; serving empty activity")
			return nil
		}
		aggregate.TotalRaised = summary.TotalRaised
		aggregate.Activity = summary.Activity
		aggregate.Pagination = summary.Pagination
		return nil
	})

	g.Go(func() error {
		fundraisers, err := s.TopFundraisers(ctx, campaignID, 0)
		if err != nil {
			s.logger.Warn().Err(err).Str("campaign_id", campaignID).Msg("top fundraisers failed; serving empty leaderboard")
			return nil
		}
		aggregate.TopFundraisers = fundraisers
		return nil
	})

	// Section goroutines swallow their own errors, so Wait cannot fail.
	_ = g.Wait()

	// Prefer the overview total over the transaction sum when present.
	if overview, ok := campaign["overview"].(map[string]any); ok {
		if total := domain.ResolveAmount(overview, domain.AmountRules{
			Priority: []string{"total_gross_amount", "donations_amount"},
		}); total > 0 {
			aggregate.TotalRaised = total
		}
	}

	return aggregate, nil
}

// normalizeGoal rewrites a campaign's goal to major units in place.
func (s *Service) normalizeGoal(campaign map[string]any) {
	if campaign == nil {
		return
	}
	if goal := domain.ResolveAmount(campaign, s.goalRules); goal > 0 {
		campaign["goal"] = goal
	}
}

// getJSON wraps the client call with the single transparent 401 retry.
func (s *Service) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	err := s.classy.GetJSON(ctx, path, query, v)
	if !isUnauthorized(err) {
		return err
	}
	s.logger.Info().Str("path", path).Msg("token rejected upstream; refreshing and retrying once")
	s.classy.InvalidateToken()
	return s.classy.GetJSON(ctx, path, query, v)
}

// fetchAllPages wraps pagination with the single transparent 401 retry.
func (s *Service) fetchAllPages(ctx context.Context, path string, query url.Values) (classy.PageResult, error) {
	result, err := s.classy.FetchAllPages(ctx, path, query, s.perPage, s.maxPages)
	if !isUnauthorized(err) {
		return result, err
	}
	s.logger.Info().Str("path", path).Msg("token rejected upstream; refreshing and retrying once")
	s.classy.InvalidateToken()
	return s.classy.FetchAllPages(ctx, path, query, s.perPage, s.maxPages)
}

func isUnauthorized(err error) bool {
	var apiErr *classy.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

func numericString(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	default:
		if n, ok := numeric(v); ok {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
	}
	return ""
}

func numeric(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	}
	return 0, false
}
