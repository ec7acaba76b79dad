// Package metrics derives the dashboard's named figures from filtered
// record sets and computed balances. Every function here is pure: the
// same inputs always yield the same output, and no function reaches
// outside its arguments.
package metrics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"cardledger/internal/core"
)

// upcomingWindowDays is the look-ahead horizon for closing and due
// alerts.
const upcomingWindowDays = 7

type (
	// BalanceEntry is one card in a highest/lowest balance result. Ties
	// produce multiple entries, never an arbitrary single winner.
	BalanceEntry struct {
		CardType          string          `json:"cardType"`
		ExternalAccountID string          `json:"externalAccountId,omitempty"`
		Balance           decimal.Decimal `json:"balance"`
	}

	// UpcomingCard is a card whose closing or due day falls inside the
	// alert window.
	UpcomingCard struct {
		CardType  string `json:"cardType"`
		Day       int    `json:"day"`
		DaysUntil int    `json:"daysUntil"`
	}

	// CategorySpendEntry is the net spend of one category plus its share
	// of the period's total.
	CategorySpendEntry struct {
		Category   string          `json:"category"`
		Amount     decimal.Decimal `json:"amount"`
		Percentage decimal.Decimal `json:"percentage"`
	}

	// CardPointsEntry is the reward-point total of one card.
	CardPointsEntry struct {
		Card     string `json:"card"`
		LastFive string `json:"lastFive,omitempty"`
		Points   int64  `json:"points"`
	}

	// MultipleSpend reports how much charge volume was earned at a
	// card's best point rate.
	MultipleSpend struct {
		Multiple     decimal.Decimal `json:"multiple"`
		Spend        decimal.Decimal `json:"spend"`
		Transactions int             `json:"transactions"`
	}
)

// TotalBalance sums all current balances.
func TotalBalance(balances []core.CalculatedBalance) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b.CurrentBalance)
	}
	return total
}

// HighestBalances returns every card carrying the maximum balance.
func HighestBalances(balances []core.CalculatedBalance) []BalanceEntry {
	return extremeBalances(balances, false)
}

// LowestBalances returns every card carrying the minimum nonzero
// balance. Zero balances are excluded: a paid-off card is not "the
// lowest balance" for alerting purposes.
func LowestBalances(balances []core.CalculatedBalance) []BalanceEntry {
	return extremeBalances(balances, true)
}

func extremeBalances(balances []core.CalculatedBalance, lowest bool) []BalanceEntry {
	var (
		extreme decimal.Decimal
		found   bool
	)
	for _, b := range balances {
		if lowest && b.CurrentBalance.IsZero() {
			continue
		}
		if !found {
			extreme = b.CurrentBalance
			found = true
			continue
		}
		if lowest && b.CurrentBalance.LessThan(extreme) {
			extreme = b.CurrentBalance
		}
		if !lowest && b.CurrentBalance.GreaterThan(extreme) {
			extreme = b.CurrentBalance
		}
	}
	if !found {
		return nil
	}

	var out []BalanceEntry
	for _, b := range balances {
		if lowest && b.CurrentBalance.IsZero() {
			continue
		}
		if b.CurrentBalance.Equal(extreme) {
			out = append(out, BalanceEntry{
				CardType:          b.CardType,
				ExternalAccountID: b.ExternalAccountID,
				Balance:           b.CurrentBalance,
			})
		}
	}
	return out
}

// ClosingSoon returns cards whose statement closes within the alert
// window, nearest first.
func ClosingSoon(cards []core.CardRecord, today time.Time) []UpcomingCard {
	return upcoming(cards, today, func(c core.CardRecord) int { return c.ClosingDay })
}

// DueSoon returns cards whose payment is due within the alert window,
// nearest first.
func DueSoon(cards []core.CardRecord, today time.Time) []UpcomingCard {
	return upcoming(cards, today, func(c core.CardRecord) int { return c.DueDay })
}

// upcoming uses (day - today + 30) mod 30 distance. This treats every
// month as 30 days, which is off by a day or two near the boundaries
// of 28/29/31-day months; the behavior is pinned by tests and must not
// be silently corrected to calendar math.
func upcoming(cards []core.CardRecord, today time.Time, day func(core.CardRecord) int) []UpcomingCard {
	var out []UpcomingCard
	for _, c := range cards {
		d := day(c)
		until := (d - today.Day() + 30) % 30
		if until > upcomingWindowDays {
			continue
		}
		out = append(out, UpcomingCard{CardType: c.CardType, Day: d, DaysUntil: until})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DaysUntil != out[j].DaysUntil {
			return out[i].DaysUntil < out[j].DaysUntil
		}
		return out[i].CardType < out[j].CardType
	})
	return out
}

// CategorySpend groups transactions by category and nets each group's
// spend: charges add their magnitude, payments and credits subtract
// theirs, and a group refunded below zero is clamped to zero. Empty
// categories land in "Other". Results are sorted by amount descending,
// name ascending on ties; percentages are shares of the clamped total.
func CategorySpend(transactions []core.TransactionRecord) []CategorySpendEntry {
	groups := make(map[string]decimal.Decimal)
	for _, tx := range transactions {
		cat := tx.Category
		if cat == "" {
			cat = "Other"
		}
		if tx.IsCharge() {
			groups[cat] = groups[cat].Add(tx.Amount.Abs())
		} else {
			groups[cat] = groups[cat].Sub(tx.Amount)
		}
	}

	total := decimal.Zero
	out := make([]CategorySpendEntry, 0, len(groups))
	for cat, amount := range groups {
		if amount.Sign() < 0 {
			amount = decimal.Zero
		}
		total = total.Add(amount)
		out = append(out, CategorySpendEntry{Category: cat, Amount: amount})
	}
	for i := range out {
		if total.Sign() > 0 {
			out[i].Percentage = out[i].Amount.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// CardBreakdown groups reward records by card plus last-five, summing
// points. Records without a last-five fall back to the card name alone,
// so two physical cards of the same type stay distinct while legacy
// rows without the qualifier still aggregate.
func CardBreakdown(rewards []core.RewardRecord) []CardPointsEntry {
	type key struct{ card, lastFive string }
	groups := make(map[key]int64)
	for _, r := range rewards {
		groups[key{card: r.Card, lastFive: r.LastFive}] += r.Points
	}

	out := make([]CardPointsEntry, 0, len(groups))
	for k, points := range groups {
		out = append(out, CardPointsEntry{Card: k.card, LastFive: k.lastFive, Points: points})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		if out[i].Card != out[j].Card {
			return out[i].Card < out[j].Card
		}
		return out[i].LastFive < out[j].LastFive
	})
	return out
}

// MaxMultipleSpend finds the highest point multiple among charge
// transactions and sums the charge volume earned at exactly that rate.
// The bool result is false when there are no charges at all.
func MaxMultipleSpend(transactions []core.TransactionRecord) (MultipleSpend, bool) {
	var (
		max   decimal.Decimal
		found bool
	)
	for _, tx := range transactions {
		if !tx.IsCharge() {
			continue
		}
		if !found || tx.PointMultiple.GreaterThan(max) {
			max = tx.PointMultiple
			found = true
		}
	}
	if !found {
		return MultipleSpend{}, false
	}

	result := MultipleSpend{Multiple: max, Spend: decimal.Zero}
	for _, tx := range transactions {
		if tx.IsCharge() && tx.PointMultiple.Equal(max) {
			result.Spend = result.Spend.Add(tx.Amount.Abs())
			result.Transactions++
		}
	}
	return result, true
}
