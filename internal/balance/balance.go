// Package balance folds the transaction ledger into per-card current
// balances. The system models debt: charges increase the balance owed,
// payments reduce it, and accumulated overpayment is floored at zero
// rather than represented as negative debt.
package balance

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"cardledger/internal/core"
	"cardledger/internal/registry"
)

// Accumulator computes balances for cards of a registry.
type Accumulator struct {
	reg *registry.Registry
}

func NewAccumulator(reg *registry.Registry) *Accumulator {
	return &Accumulator{reg: reg}
}

// Compute folds all ledger entries belonging to card into a current
// balance, starting from the card's configured starting snapshot.
//
// Only entries dated strictly after the starting date participate: an
// entry on the starting date itself is already baked into the starting
// balance and must not be double-counted. Entries are processed in
// ascending date order with ties broken by original ledger order. A
// card with no matching entries keeps its starting balance; that is a
// valid result, not an error.
func (a *Accumulator) Compute(card core.CardRecord, ledger []core.TransactionRecord) core.CalculatedBalance {
	type indexed struct {
		pos   int
		entry core.TransactionRecord
	}

	var selected []indexed
	for i, entry := range ledger {
		match, ok := a.reg.Resolve(entry.AccountIdentifier)
		if !ok {
			// Soft failure: the entry is skipped for every card, and
			// the consistency report surfaces it to the operator.
			continue
		}
		if core.NormalizeLabel(match.CardType) != core.NormalizeLabel(card.CardType) {
			continue
		}
		if !entry.Date.After(card.StartingDate) {
			continue
		}
		selected = append(selected, indexed{pos: i, entry: entry})
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].entry.Date.Before(selected[j].entry.Date)
	})

	bal := card.StartingBalance
	for _, s := range selected {
		if s.entry.IsCharge() {
			bal = bal.Add(s.entry.Amount.Abs())
		} else {
			bal = bal.Sub(s.entry.Amount)
		}
	}
	if bal.Sign() < 0 {
		bal = decimal.Zero
	}

	return core.CalculatedBalance{
		CardType:          card.CardType,
		ExternalAccountID: card.ExternalAccountID,
		CurrentBalance:    bal,
		LastCalculated:    time.Now().UTC(),
	}
}

// ComputeAll computes every registered card's balance. Each card's
// computation is independent, so they run concurrently; output order is
// registry order regardless of completion order.
func (a *Accumulator) ComputeAll(ctx context.Context, ledger []core.TransactionRecord) ([]core.CalculatedBalance, error) {
	cards := a.reg.Cards()
	balances := make([]core.CalculatedBalance, len(cards))

	g, ctx := errgroup.WithContext(ctx)
	for i, card := range cards {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			balances[i] = a.Compute(card, ledger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "Computed card balances", "cards", len(balances), "ledger_entries", len(ledger))
	return balances, nil
}
