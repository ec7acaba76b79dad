package balance

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"cardledger/internal/core"
	"cardledger/internal/registry"
)

func newAccumulator(t *testing.T, cards ...core.CardRecord) *Accumulator {
	t.Helper()
	reg, err := registry.New(cards)
	if err != nil {
		t.Fatalf("registry.New() error = %v", err)
	}
	return NewAccumulator(reg)
}

func goldCard() core.CardRecord {
	return core.CardRecord{
		CardType:          "Gold",
		ClosingDay:        12,
		DueDay:            27,
		StartingBalance:   decimal.NewFromInt(100),
		StartingDate:      core.NewDate(2025, 1, 1),
		ExternalAccountID: "acct-gold",
	}
}

func tx(date core.Date, amount string, account string) core.TransactionRecord {
	return core.TransactionRecord{
		Date:              date,
		Amount:            decimal.RequireFromString(amount),
		AccountIdentifier: account,
	}
}

func TestComputeEndToEndScenario(t *testing.T) {
	a := newAccumulator(t, goldCard())

	ledger := []core.TransactionRecord{
		tx(core.NewDate(2025, 1, 5), "-50", "Gold"),
		tx(core.NewDate(2025, 1, 10), "30", "Gold"),
	}

	got := a.Compute(goldCard(), ledger)
	if !got.CurrentBalance.Equal(decimal.NewFromInt(120)) {
		t.Errorf("balance = %s, want 120 (100 + 50 - 30)", got.CurrentBalance)
	}
	if got.CardType != "Gold" || got.ExternalAccountID != "acct-gold" {
		t.Errorf("identity fields wrong: %+v", got)
	}
}

func TestComputeStartingDateExclusive(t *testing.T) {
	a := newAccumulator(t, goldCard())

	// The starting-date entry is already baked into the starting
	// balance; only the strictly-later charge counts.
	ledger := []core.TransactionRecord{
		tx(core.NewDate(2025, 1, 1), "-999", "Gold"),
		tx(core.NewDate(2025, 1, 2), "-10", "Gold"),
	}

	got := a.Compute(goldCard(), ledger)
	if !got.CurrentBalance.Equal(decimal.NewFromInt(110)) {
		t.Errorf("balance = %s, want 110", got.CurrentBalance)
	}
}

func TestComputeClampsAtZero(t *testing.T) {
	a := newAccumulator(t, goldCard())

	ledger := []core.TransactionRecord{
		tx(core.NewDate(2025, 1, 5), "500", "Gold"),
	}

	got := a.Compute(goldCard(), ledger)
	if !got.CurrentBalance.Equal(decimal.Zero) {
		t.Errorf("balance = %s, want 0 (overpayment floored)", got.CurrentBalance)
	}
}

func TestComputeNoEntriesKeepsStartingBalance(t *testing.T) {
	a := newAccumulator(t, goldCard())

	got := a.Compute(goldCard(), nil)
	if !got.CurrentBalance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance = %s, want starting balance 100", got.CurrentBalance)
	}
}

func TestComputeSkipsUnresolvableAndForeignEntries(t *testing.T) {
	other := core.CardRecord{
		CardType:     "Platinum Card",
		ClosingDay:   3,
		DueDay:       18,
		StartingDate: core.NewDate(2025, 1, 1),
	}
	a := newAccumulator(t, goldCard(), other)

	ledger := []core.TransactionRecord{
		tx(core.NewDate(2025, 1, 5), "-50", "Gold"),
		tx(core.NewDate(2025, 1, 6), "-25", "Platinum Card"),
		tx(core.NewDate(2025, 1, 7), "-75", "Mystery Account"),
	}

	got := a.Compute(goldCard(), ledger)
	if !got.CurrentBalance.Equal(decimal.NewFromInt(150)) {
		t.Errorf("balance = %s, want 150", got.CurrentBalance)
	}
}

func TestComputeResolvesLooseLabels(t *testing.T) {
	card := core.CardRecord{
		CardType:     "Business Blue Plus I",
		ClosingDay:   1,
		DueDay:       15,
		StartingDate: core.NewDate(2025, 1, 1),
	}
	sibling := core.CardRecord{
		CardType:     "Business Blue Plus II",
		ClosingDay:   1,
		DueDay:       15,
		StartingDate: core.NewDate(2025, 1, 1),
	}
	a := newAccumulator(t, card, sibling)

	ledger := []core.TransactionRecord{
		tx(core.NewDate(2025, 1, 5), "-40", "business blue plus i card"),
		tx(core.NewDate(2025, 1, 6), "-60", "business blue plus ii card"),
	}

	got := a.Compute(card, ledger)
	if !got.CurrentBalance.Equal(decimal.NewFromInt(40)) {
		t.Errorf("balance = %s, want 40 (sibling's charge excluded)", got.CurrentBalance)
	}
}

func TestComputeOrderStableOnDateTies(t *testing.T) {
	// Same-day entries fold in original ledger order; the clamp is
	// applied once at the end, not per entry.
	a := newAccumulator(t, goldCard())

	ledger := []core.TransactionRecord{
		tx(core.NewDate(2025, 1, 5), "300", "Gold"),
		tx(core.NewDate(2025, 1, 5), "-50", "Gold"),
	}

	got := a.Compute(goldCard(), ledger)
	if !got.CurrentBalance.Equal(decimal.Zero) {
		t.Errorf("balance = %s, want 0", got.CurrentBalance)
	}
}

func TestComputeAll(t *testing.T) {
	plat := core.CardRecord{
		CardType:        "Platinum Card",
		ClosingDay:      3,
		DueDay:          18,
		StartingBalance: decimal.NewFromInt(10),
		StartingDate:    core.NewDate(2025, 1, 1),
	}
	a := newAccumulator(t, goldCard(), plat)

	ledger := []core.TransactionRecord{
		tx(core.NewDate(2025, 1, 5), "-50", "Gold"),
		tx(core.NewDate(2025, 1, 6), "-5", "Platinum Card"),
	}

	balances, err := a.ComputeAll(context.Background(), ledger)
	if err != nil {
		t.Fatalf("ComputeAll() error = %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("len = %d, want 2", len(balances))
	}
	// Output order is registry order.
	if balances[0].CardType != "Gold" || balances[1].CardType != "Platinum Card" {
		t.Errorf("order = %s, %s", balances[0].CardType, balances[1].CardType)
	}
	if !balances[0].CurrentBalance.Equal(decimal.NewFromInt(150)) {
		t.Errorf("gold = %s, want 150", balances[0].CurrentBalance)
	}
	if !balances[1].CurrentBalance.Equal(decimal.NewFromInt(15)) {
		t.Errorf("platinum = %s, want 15", balances[1].CurrentBalance)
	}
}

func TestComputeNonNegativeProperty(t *testing.T) {
	a := newAccumulator(t, goldCard())

	sequences := [][]string{
		{"-10", "50", "-5", "200"},
		{"1000"},
		{"-1", "-2", "-3", "10000"},
		{},
	}
	for _, amounts := range sequences {
		var ledger []core.TransactionRecord
		for i, amt := range amounts {
			ledger = append(ledger, tx(core.NewDate(2025, 2, i+1), amt, "Gold"))
		}
		got := a.Compute(goldCard(), ledger)
		if got.CurrentBalance.Sign() < 0 {
			t.Errorf("balance = %s for %v, want >= 0", got.CurrentBalance, amounts)
		}
	}
}
