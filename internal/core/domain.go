package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	LimitPreset      LimitType = "preset"
	LimitPayOverTime LimitType = "pay_over_time"
)

type (
	// LimitType describes how a card's credit limit is enforced.
	LimitType string

	// Date is a day-granularity point in time. All ledger and registry
	// dates are normalized to midnight UTC so comparisons never depend
	// on the time-of-day component.
	Date struct {
		time.Time
	}

	// CardRecord is a configured card in the registry. CardType is the
	// canonical name and must be unique within a registry; LastFive is a
	// display qualifier and never participates in matching precedence.
	CardRecord struct {
		CardType          string
		LastFive          string
		IsPrimary         bool
		CreditLimit       decimal.Decimal
		LimitType         LimitType
		PartnerMultiple   decimal.Decimal
		IsBrandPartner    bool
		ClosingDay        int
		DueDay            int
		InterestRate      string
		AnnualFee         decimal.Decimal
		StartingBalance   decimal.Decimal
		StartingDate      Date
		ExternalAccountID string
	}

	// TransactionRecord is one ledger entry. The amount sign convention
	// is load-bearing: negative = charge (increases balance owed),
	// positive = payment or credit (decreases balance owed).
	TransactionRecord struct {
		Date              Date
		Description       string
		Amount            decimal.Decimal
		AccountIdentifier string
		LastFive          string
		Category          string
		PointMultiple     decimal.Decimal
	}

	// RewardRecord is one entry of the rewards ledger.
	RewardRecord struct {
		Date          Date
		AwardCode     string
		Card          string
		LastFive      string
		Description   string
		Points        int64
		RequiredSpend int64
	}

	// CalculatedBalance is derived state: a card's current balance
	// recomputed from the ledger plus the card's starting snapshot.
	// It is never authoritative.
	CalculatedBalance struct {
		CardType          string
		ExternalAccountID string
		CurrentBalance    decimal.Decimal
		LastCalculated    time.Time
	}
)

var (
	ErrEmptyCardType   = errors.New("empty card type")
	ErrInvalidLastFive = errors.New("last five must be 5 digits")
	ErrInvalidDay      = errors.New("day of month out of range")
	ErrDuplicateCard   = errors.New("duplicate card type")
)

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// DateOf truncates an arbitrary timestamp to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), int(u.Month()), u.Day())
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// After reports whether d falls on a later day than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Before reports whether d falls on an earlier day than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// Equal reports whether both dates fall on the same day.
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// ParseLimitType maps the configured limit-type string to a LimitType,
// falling back to preset for unrecognized values.
func ParseLimitType(s string) LimitType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(LimitPayOverTime):
		return LimitPayOverTime
	default:
		return LimitPreset
	}
}

func (c CardRecord) Validate() error {
	if strings.TrimSpace(c.CardType) == "" {
		return ErrEmptyCardType
	}
	if c.LastFive != "" && !isDigits(c.LastFive, 5) {
		return ErrInvalidLastFive
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return ErrInvalidDay
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return ErrInvalidDay
	}
	return nil
}

// IsCharge reports whether the entry increases the balance owed.
func (t TransactionRecord) IsCharge() bool {
	return t.Amount.Sign() < 0
}

// RecordDate implements the filter record contract.
func (t TransactionRecord) RecordDate() Date {
	return t.Date
}

// CardIdentity returns the label and last-five used by card-identity
// filtering. The label is the raw account identifier from the ledger.
func (t TransactionRecord) CardIdentity() (string, string) {
	return t.AccountIdentifier, t.LastFive
}

// RecordDate implements the filter record contract.
func (r RewardRecord) RecordDate() Date {
	return r.Date
}

// CardIdentity returns the card name and last-five for identity filtering.
func (r RewardRecord) CardIdentity() (string, string) {
	return r.Card, r.LastFive
}

// NormalizeLabel lowercases a card label and collapses internal
// whitespace, the canonical form used for all name comparisons.
func NormalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
