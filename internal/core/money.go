// Package core holds the dashboard's domain records and the parsing and
// formatting helpers shared by every layer above it.
//
// This file contains currency formatting for display and free-text search.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUSD renders an amount as a dollar string with comma grouping,
// e.g. "$1,234.56" or "-$12.00". The free-text filter matches against
// this exact rendering, so it must stay stable.
func FormatUSD(d decimal.Decimal) string {
	neg := d.Sign() < 0
	fixed := d.Abs().StringFixed(2)

	intPart, fracPart, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(fracPart)
	return b.String()
}

// MatchesQuery implements the free-text stage contract for transactions.
// A token ending in "x" (like "2x") matches the point multiple exactly,
// and only among charges: payments carry no meaningful multiple.
func (t TransactionRecord) MatchesQuery(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	if prefix, ok := strings.CutSuffix(q, "x"); ok && prefix != "" {
		if mult, err := decimal.NewFromString(prefix); err == nil {
			return t.IsCharge() && t.PointMultiple.Equal(mult)
		}
	}
	if strings.Contains(strings.ToLower(t.Description), q) {
		return true
	}
	if strings.Contains(strings.ToLower(FormatUSD(t.Amount)), q) {
		return true
	}
	return strings.Contains(t.Amount.String(), q)
}

// MatchesQuery implements the free-text stage contract for rewards.
func (r RewardRecord) MatchesQuery(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, field := range []string{r.Description, r.Card, r.AwardCode} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
