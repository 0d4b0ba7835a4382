/**
 * @description
 * This file defines the presentation-facing domain models derived from raw
 * upstream records: activity feed entries built from transactions and
 * fundraiser summaries built from fundraising pages. JSON field names match
 * the contract the web frontend consumes.
 *
 * Donor anonymity is enforced at mapping time: once a transaction is marked
 * anonymous, no identity field on the record can leak into the entry.
 *
 * @dependencies
 * - fmt, net/url, strings, time: Standard Go libraries.
 * - github.com/google/uuid: Fallback ids for records the upstream sent
 *   without one.
 */

package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnonymousDonorName is shown whenever a donor's identity is suppressed.
const AnonymousDonorName = "Anonymous"

// ActivityEntry is one row of a campaign's activity feed, derived 1:1 from
// an upstream transaction record.
type ActivityEntry struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	DonorName   string    `json:"userName"`
	AvatarURL   string    `json:"userAvatarUrl,omitempty"`
	Amount      float64   `json:"amount"`
	Message     string    `json:"message,omitempty"`
	OccurredAt  time.Time `json:"timestamp"`
	IsAnonymous bool      `json:"isAnonymous"`
}

// FundraiserSummary is one leaderboard row, derived 1:1 from an upstream
// fundraising-page record.
type FundraiserSummary struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	RaisedAmount float64 `json:"raisedAmount"`
	GoalAmount   float64 `json:"goalAmount"`
	PagePath     string  `json:"pagePath"`
	AvatarURL    string  `json:"avatarUrl,omitempty"`
}

// ActivityFromRecord maps a transaction record to an activity entry using
// the given amount rules.
func ActivityFromRecord(rec RawRecord, rules AmountRules) ActivityEntry {
	entry := ActivityEntry{
		ID:          recordID(rec),
		Type:        "donation",
		Amount:      ResolveAmount(rec, rules),
		Message:     stringField(rec, "comment"),
		OccurredAt:  timeField(rec, "purchased_at", "created_at"),
		IsAnonymous: boolField(rec, "is_anonymous"),
	}
	if entry.IsAnonymous {
		entry.DonorName = AnonymousDonorName
		return entry
	}

	entry.DonorName = donorDisplayName(rec)
	if entry.DonorName == AnonymousDonorName {
		entry.IsAnonymous = true
		return entry
	}
	entry.AvatarURL = memberField(rec, "thumbnail_small")
	return entry
}

// FundraiserFromRecord maps a fundraising-page record to a leaderboard row.
func FundraiserFromRecord(rec RawRecord, raised, goal AmountRules) FundraiserSummary {
	summary := FundraiserSummary{
		ID:           recordID(rec),
		RaisedAmount: ResolveAmount(rec, raised),
		GoalAmount:   ResolveAmount(rec, goal),
		AvatarURL:    firstNonEmpty(memberField(rec, "thumbnail_large"), stringField(rec, "logo_url")),
	}

	summary.Name = firstNonEmpty(memberField(rec, "name"), stringField(rec, "title"), stringField(rec, "alias"))
	if summary.Name == "" {
		summary.Name = "Unnamed Fundraiser"
	}

	summary.PagePath = pagePath(rec, summary.ID)
	return summary
}

// donorDisplayName picks the donor name for a non-anonymous transaction.
// A record without any usable identity field is treated as anonymous.
func donorDisplayName(rec RawRecord) string {
	if name := stringField(rec, "member_name"); name != "" {
		return name
	}
	first := stringField(rec, "billing_first_name")
	last := stringField(rec, "billing_last_name")
	if first != "" {
		if last != "" {
			// Last name reduced to an initial: the feed is public.
			return first + " " + strings.ToUpper(last[:1]) + "."
		}
		return first
	}
	if company := stringField(rec, "company_name"); company != "" {
		return company
	}
	return AnonymousDonorName
}

// pagePath derives a site-relative link for a fundraising page, preferring
// the upstream canonical URL's path.
func pagePath(rec RawRecord, id string) string {
	if canonical := stringField(rec, "canonical_url"); canonical != "" {
		if parsed, err := url.Parse(canonical); err == nil && parsed.Path != "" {
			return parsed.Path
		}
	}
	return "/fundraiser/" + id
}

func recordID(rec RawRecord) string {
	switch v := rec["id"].(type) {
	case string:
		if v != "" {
			return v
		}
	case nil:
	default:
		if n, ok := numericValue(v); ok {
			return strconv64(n)
		}
	}
	return uuid.NewString()
}

// strconv64 renders an upstream numeric id without a float exponent.
func strconv64(n float64) string {
	return fmt.Sprintf("%.0f", n)
}

func stringField(rec RawRecord, keys ...string) string {
	for _, key := range keys {
		if v, ok := rec[key].(string); ok {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// memberField reads a key from the nested member object that appears when
// list endpoints are called with a member eager-load hint.
func memberField(rec RawRecord, key string) string {
	member, ok := rec["member"].(map[string]any)
	if !ok {
		return ""
	}
	return stringField(member, key)
}

func boolField(rec RawRecord, key string) bool {
	switch v := rec[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	default:
		if n, ok := numericValue(v); ok {
			return n != 0
		}
	}
	return false
}

// timeField parses the first present timestamp field. The upstream mixes
// RFC3339, RFC3339 without a zone colon, and a bare datetime format.
func timeField(rec RawRecord, keys ...string) time.Time {
	for _, key := range keys {
		raw := stringField(rec, key)
		if raw == "" {
			continue
		}
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02T15:04:05-0700",
			"2006-01-02 15:04:05",
		} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
