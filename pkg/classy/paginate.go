/**
 * @description
 * This file implements bounded pagination over Classy list endpoints. List
 * responses use a page envelope ({data, current_page, last_page, total,
 * next_page_url}); FetchAllPages walks it sequentially, accumulating records
 * until the upstream stops advertising a next page or a hard page cap is
 * reached.
 *
 * The cap is a cost bound for interactive requests, not an error: hitting it
 * returns whatever was accumulated with Truncated set, so callers can make
 * truncation observable instead of silently serving partial totals.
 *
 * @dependencies
 * - context, net/http, net/url, strconv: Standard Go libraries.
 */

package classy

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const (
	// DefaultPerPage is the page size requested from list endpoints.
	DefaultPerPage = 100
	// DefaultMaxPages bounds how many pages a single aggregation request
	// will traverse regardless of what the upstream reports.
	DefaultMaxPages = 20
)

// PageResult holds the accumulated records of a paginated fetch.
type PageResult struct {
	Records []map[string]any
	// Pages is the number of pages actually fetched.
	Pages int
	// Total is the upstream-reported total record count, when provided.
	Total int
	// Truncated is set when the page cap fired while the upstream still
	// advertised a next page.
	Truncated bool
}

type pageEnvelope struct {
	Data        []map[string]any `json:"data"`
	CurrentPage int              `json:"current_page"`
	LastPage    int              `json:"last_page"`
	Total       int              `json:"total"`
	NextPageURL *string          `json:"next_page_url"`
}

// FetchAllPages retrieves every page of a list endpoint up to maxPages.
// Pages are fetched strictly sequentially: each page's next-page indicator
// depends on the prior response, and sequential fetching keeps the request
// shape predictable for upstream rate limits. An empty page, a missing data
// array, or an absent next-page indicator terminates the walk without error.
func (c *Client) FetchAllPages(ctx context.Context, path string, query url.Values, perPage, maxPages int) (PageResult, error) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var result PageResult
	for page := 1; ; page++ {
		q := url.Values{}
		for key, values := range query {
			q[key] = values
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(perPage))

		body, err := c.Request(ctx, http.MethodGet, path, q, nil)
		if err != nil {
			return PageResult{}, err
		}

		var envelope pageEnvelope
		if err := body.Decode(&envelope); err != nil {
			return PageResult{}, err
		}

		if len(envelope.Data) == 0 {
			break
		}

		result.Records = append(result.Records, envelope.Data...)
		result.Pages = page
		if envelope.Total > 0 {
			result.Total = envelope.Total
		}

		if envelope.NextPageURL == nil || *envelope.NextPageURL == "" {
			break
		}
		if page >= maxPages {
			result.Truncated = true
			c.logger.Warn().
				Str("path", path).
				Int("max_pages", maxPages).
				Int("records", len(result.Records)).
				Msg("pagination stopped at page cap with more pages available")
			break
		}
	}

	return result, nil
}
