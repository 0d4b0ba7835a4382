/**
 * @description
 * This file implements canonical amount reconciliation for upstream records.
 * Classy objects carry several overlapping amount fields whose presence and
 * unit convention (cents versus dollars) shifted across API revisions, so
 * every call site used to grow its own fallback chain. ResolveAmount
 * collapses those chains into one place: an ordered field priority plus a
 * per-field scale table, both externally configurable so a schema shift is
 * a configuration change rather than a code hunt.
 *
 * ResolveAmount is a pure function of its inputs, which keeps amount
 * behavior testable without any network state.
 *
 * @dependencies
 * - encoding/json, strconv: Standard Go libraries.
 */

package domain

import (
	"encoding/json"
	"strconv"
)

// RawRecord is an untrusted upstream object (transaction, fundraising page,
// campaign). The schema is whatever the upstream sent; never assume a field
// is present or consistently typed.
type RawRecord = map[string]any

// Scale describes the currency unit convention of a single amount field.
type Scale int

const (
	// Major means the field is already in major units (dollars).
	Major Scale = iota
	// Minor means the field is in minor units (cents) and needs /100.
	Minor
)

// ScaleTable maps field names to their unit convention. Fields absent from
// the table are treated as major units.
type ScaleTable map[string]Scale

// AmountRules bundles a field priority order with its scale table.
type AmountRules struct {
	Priority []string
	Scales   ScaleTable
}

// DefaultTransactionRules reconciles a transaction's donated amount. Gross
// amount fields are dollars in every observed revision; the bare legacy
// "amount" field is cents.
func DefaultTransactionRules() AmountRules {
	return AmountRules{
		Priority: []string{
			"donation_gross_amount",
			"total_gross_amount",
			"raw_donation_gross_amount",
			"purchased_amount",
			"amount",
		},
		Scales: ScaleTable{"amount": Minor},
	}
}

// DefaultRaisedRules reconciles a fundraising page's raised total.
func DefaultRaisedRules() AmountRules {
	return AmountRules{
		Priority: []string{"total_raised", "amount_raised", "total_gross_amount"},
		Scales:   ScaleTable{"total_raised": Minor, "amount_raised": Minor},
	}
}

// DefaultGoalRules reconciles goal amounts on campaigns and fundraising
// pages. "goal" has been observed as dollars and "raw_goal" as cents.
func DefaultGoalRules() AmountRules {
	return AmountRules{
		Priority: []string{"goal", "raw_goal"},
		Scales:   ScaleTable{"raw_goal": Minor},
	}
}

// ResolveAmount selects the canonical monetary amount from a raw record. It
// returns the first field in the priority order that is present with a
// positive numeric value, converted to major units per the scale table, and
// 0 when no field qualifies. The result is always >= 0.
func ResolveAmount(rec RawRecord, rules AmountRules) float64 {
	if rec == nil {
		return 0
	}
	for _, field := range rules.Priority {
		value, ok := rec[field]
		if !ok {
			continue
		}
		n, ok := numericValue(value)
		if !ok || n <= 0 {
			continue
		}
		if rules.Scales[field] == Minor {
			n /= 100
		}
		return n
	}
	return 0
}

// numericValue extracts a float64 from the value shapes the upstream emits:
// JSON numbers decode as float64, but ids and legacy fields also arrive as
// json.Number, integers, or numeric strings.
func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	case string:
		if v == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(v, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
