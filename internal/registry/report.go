package registry

import (
	"sort"

	"cardledger/internal/core"
)

// Report is the result of a registry/ledger consistency pass. It is
// operator information only: inconsistencies never block metric
// computation for the cards that do resolve.
type Report struct {
	// UnresolvedLabels are ledger account labels that resolve to no
	// registered card, with occurrence counts.
	UnresolvedLabels map[string]int

	// InactiveCards are registered card types with no ledger activity.
	InactiveCards []string
}

// Clean reports whether the pass found nothing to surface.
func (rep Report) Clean() bool {
	return len(rep.UnresolvedLabels) == 0 && len(rep.InactiveCards) == 0
}

// Validate cross-checks the ledger against the registry: labels that
// resolve nowhere and cards the ledger never references.
func (r *Registry) Validate(ledger []core.TransactionRecord) Report {
	rep := Report{UnresolvedLabels: make(map[string]int)}

	active := make(map[string]bool, len(r.cards))
	for _, entry := range ledger {
		card, ok := r.Resolve(entry.AccountIdentifier)
		if !ok {
			rep.UnresolvedLabels[entry.AccountIdentifier]++
			continue
		}
		active[core.NormalizeLabel(card.CardType)] = true
	}

	for _, c := range r.cards {
		if !active[core.NormalizeLabel(c.CardType)] {
			rep.InactiveCards = append(rep.InactiveCards, c.CardType)
		}
	}
	sort.Strings(rep.InactiveCards)

	return rep
}
