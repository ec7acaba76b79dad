package core

import (
	"strings"
	"time"
)

const (
	RangeYTD TimeRange = "ytd"
	Range90D TimeRange = "90d"
	Range30D TimeRange = "30d"
	Range7D  TimeRange = "7d"

	// AllCards is the card selector that disables card-identity filtering.
	AllCards = "all"
)

type (
	// TimeRange is a relative window bounding record selection by date.
	TimeRange string

	// FilterCriteria is the full set of filters a consumer may apply.
	// SelectedDate, when set, supersedes SelectedTimeRange entirely: both
	// may be stored but only one is applied.
	FilterCriteria struct {
		SelectedCard      string
		SelectedCategory  string
		SelectedTimeRange TimeRange
		SelectedDate      Date
		GlobalFilter      string
	}

	// CardSelection is the typed form of the composite card selector.
	// Internal code never re-parses the "<Name> (<lastFive>)" string.
	CardSelection struct {
		Name     string
		LastFive string
	}
)

// ParseTimeRange maps a raw range string to a TimeRange; unrecognized
// or absent values fall back to year-to-date.
func ParseTimeRange(s string) TimeRange {
	switch TimeRange(strings.ToLower(strings.TrimSpace(s))) {
	case Range90D:
		return Range90D
	case Range30D:
		return Range30D
	case Range7D:
		return Range7D
	default:
		return RangeYTD
	}
}

// LowerBound resolves the range to its inclusive lower-bound date
// relative to now. The upper bound is implicitly "now".
func (tr TimeRange) LowerBound(now time.Time) Date {
	switch tr {
	case Range90D:
		return DateOf(now.AddDate(0, 0, -90))
	case Range30D:
		return DateOf(now.AddDate(0, 0, -30))
	case Range7D:
		return DateOf(now.AddDate(0, 0, -7))
	default:
		return NewDate(now.UTC().Year(), 1, 1)
	}
}

// ParseCardSelection splits a composite selector into its name and
// optional trailing "(<lastFive>)" qualifier. Selectors without a valid
// trailing parenthetical are treated as a bare name.
func ParseCardSelection(s string) CardSelection {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ")") {
		if open := strings.LastIndex(s, " ("); open > 0 {
			suffix := s[open+2 : len(s)-1]
			if isDigits(suffix, 5) {
				return CardSelection{
					Name:     strings.TrimSpace(s[:open]),
					LastFive: suffix,
				}
			}
		}
	}
	return CardSelection{Name: s}
}

// IsAll reports whether the selector disables card filtering.
func (cs CardSelection) IsAll() bool {
	return cs.Name == "" || NormalizeLabel(cs.Name) == AllCards
}

// Matches reports whether a record identity satisfies the selection.
// Name comparison is on normalized labels; last-five is checked only
// when both sides carry one.
func (cs CardSelection) Matches(name, lastFive string) bool {
	if NormalizeLabel(name) != NormalizeLabel(cs.Name) {
		return false
	}
	if cs.LastFive == "" || lastFive == "" {
		return true
	}
	return cs.LastFive == lastFive
}
