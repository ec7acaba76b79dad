// Package filter narrows record sets through an ordered chain of
// stages. Every dashboard metric, chart, and table consumes the output
// of this pipeline, so stage order and precedence are part of the
// contract: explicit date beats time range, then card identity, then
// free text. Each stage is independently inert when its criterion is
// unset, and the whole chain is a pure narrowing (idempotent).
package filter

import (
	"time"

	"cardledger/internal/core"
)

// Record is the contract both transaction and reward records satisfy.
type Record interface {
	RecordDate() core.Date
	CardIdentity() (name, lastFive string)
	MatchesQuery(q string) bool
}

// Apply runs the full stage chain over records. now anchors the
// relative time ranges; callers pass time.Now() outside of tests.
func Apply[T Record](records []T, c core.FilterCriteria, now time.Time) []T {
	records = byDate(records, c, now)
	records = byCard(records, c)
	records = byCategory(records, c)
	return byQuery(records, c)
}

// byDate applies the explicit-date stage or, only when no explicit
// date is set, the time-range stage. A user drilling into one calendar
// day must not have that intent widened by a stale range selector.
func byDate[T Record](records []T, c core.FilterCriteria, now time.Time) []T {
	if !c.SelectedDate.IsZero() {
		return keep(records, func(r T) bool {
			return r.RecordDate().Equal(c.SelectedDate)
		})
	}

	lower := c.SelectedTimeRange.LowerBound(now)
	return keep(records, func(r T) bool {
		d := r.RecordDate()
		return d.Equal(lower) || d.After(lower)
	})
}

func byCard[T Record](records []T, c core.FilterCriteria) []T {
	sel := core.ParseCardSelection(c.SelectedCard)
	if sel.IsAll() {
		return records
	}
	return keep(records, func(r T) bool {
		name, lastFive := r.CardIdentity()
		return sel.Matches(name, lastFive)
	})
}

// byCategory only applies to records that carry a category; rewards
// pass through untouched.
func byCategory[T Record](records []T, c core.FilterCriteria) []T {
	if c.SelectedCategory == "" {
		return records
	}
	return keep(records, func(r T) bool {
		tx, ok := any(r).(core.TransactionRecord)
		if !ok {
			return true
		}
		return core.NormalizeLabel(tx.Category) == core.NormalizeLabel(c.SelectedCategory)
	})
}

func byQuery[T Record](records []T, c core.FilterCriteria) []T {
	if c.GlobalFilter == "" {
		return records
	}
	return keep(records, func(r T) bool {
		return r.MatchesQuery(c.GlobalFilter)
	})
}

func keep[T Record](records []T, pred func(T) bool) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}
