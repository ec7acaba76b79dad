package ledger

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"cardledger/internal/core"
)

// Delim is the field delimiter of all source tables.
const Delim = ','

// Default policy, applied once at parse time so no downstream code
// re-guesses fallbacks: amounts and limits default to 0, point
// multiples to 1.0, text fields to "", booleans to false, day-of-month
// fields clamp into 1..31, dates to the zero Date.
var (
	defaultAmount   = decimal.Zero
	defaultMultiple = decimal.NewFromInt(1)
)

// ParseTransactions parses the transaction ledger table. Expected
// columns: date, description, amount, account_type, last_five,
// category, point_multiple. Column order is not assumed and header
// matching is case-insensitive.
func ParseTransactions(raw string) ([]core.TransactionRecord, error) {
	t, err := ParseTable(raw, Delim)
	if err != nil {
		return nil, err
	}
	return TransactionsFromTable(t), nil
}

// TransactionsFromTable builds transaction records from a parsed table.
func TransactionsFromTable(t *Table) []core.TransactionRecord {
	records := make([]core.TransactionRecord, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		records = append(records, core.TransactionRecord{
			Date:              parseDateField(t.Get(i, "date")),
			Description:       t.Get(i, "description"),
			Amount:            parseAmount(t.Get(i, "amount")),
			AccountIdentifier: t.Get(i, "account_type"),
			LastFive:          t.Get(i, "last_five"),
			Category:          t.Get(i, "category"),
			PointMultiple:     parseMultiple(t.Get(i, "point_multiple")),
		})
	}
	return records
}

// ParseRewards parses the reward ledger table. Expected columns: date,
// award_code, card, last_five, reward_description, points,
// required_spend.
func ParseRewards(raw string) ([]core.RewardRecord, error) {
	t, err := ParseTable(raw, Delim)
	if err != nil {
		return nil, err
	}
	return RewardsFromTable(t), nil
}

// RewardsFromTable builds reward records from a parsed table.
func RewardsFromTable(t *Table) []core.RewardRecord {
	records := make([]core.RewardRecord, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		records = append(records, core.RewardRecord{
			Date:          parseDateField(t.Get(i, "date")),
			AwardCode:     t.Get(i, "award_code"),
			Card:          t.Get(i, "card"),
			LastFive:      t.Get(i, "last_five"),
			Description:   t.Get(i, "reward_description"),
			Points:        parseInt(t.Get(i, "points")),
			RequiredSpend: parseInt(t.Get(i, "required_spend")),
		})
	}
	return records
}

// ParseCards parses the card registry table. Expected columns:
// cardType, lastFive, isPrimary, creditLimit, limitType,
// isBrandPartner, partnerMultiple, closingDate, dueDate, interestRate,
// annualFee, startingBalance, startingDate, externalAccountId.
func ParseCards(raw string) ([]core.CardRecord, error) {
	t, err := ParseTable(raw, Delim)
	if err != nil {
		return nil, err
	}
	return CardsFromTable(t), nil
}

// CardsFromTable builds card records from a parsed table. Rows without
// a card type are skipped with a log line rather than failing the load.
func CardsFromTable(t *Table) []core.CardRecord {
	records := make([]core.CardRecord, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		cardType := t.Get(i, "cardType")
		if cardType == "" {
			slog.Warn("Skipping registry row without card type", "row", i+1)
			continue
		}
		records = append(records, core.CardRecord{
			CardType:          cardType,
			LastFive:          t.Get(i, "lastFive"),
			IsPrimary:         parseBool(t.Get(i, "isPrimary")),
			CreditLimit:       parseAmount(t.Get(i, "creditLimit")),
			LimitType:         core.ParseLimitType(t.Get(i, "limitType")),
			PartnerMultiple:   parseMultiple(t.Get(i, "partnerMultiple")),
			IsBrandPartner:    parseBool(t.Get(i, "isBrandPartner")),
			ClosingDay:        parseDayOfMonth(t.Get(i, "closingDate")),
			DueDay:            parseDayOfMonth(t.Get(i, "dueDate")),
			InterestRate:      t.Get(i, "interestRate"),
			AnnualFee:         parseAmount(t.Get(i, "annualFee")),
			StartingBalance:   parseAmount(t.Get(i, "startingBalance")),
			StartingDate:      parseDateField(t.Get(i, "startingDate")),
			ExternalAccountID: t.Get(i, "externalAccountId"),
		})
	}
	return records
}

// parseAmount strips currency decoration ($ and ,) before parsing.
// Unparseable amounts default to zero.
func parseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, "$", ""), ",", ""))
	if s == "" {
		return defaultAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return defaultAmount
	}
	return d
}

// parseMultiple defaults to 1.0; a zero or negative multiple is treated
// as unparseable since every charge earns at least the base rate.
func parseMultiple(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultMultiple
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.Sign() <= 0 {
		return defaultMultiple
	}
	return d
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

func parseDayOfMonth(s string) int {
	n := int(parseInt(s))
	if n < 1 {
		return 1
	}
	if n > 31 {
		return 31
	}
	return n
}

func parseDateField(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}
	}
	return d
}
