// Package registry holds the card catalog and the identifier resolver
// that maps raw ledger account labels onto catalog entries.
package registry

import (
	"fmt"
	"strings"

	"cardledger/internal/core"
)

// Registry is the catalog of configured cards. It is built once at
// startup and read-only afterwards; callers hold a reference instead of
// reaching into a package-level singleton.
type Registry struct {
	cards  []core.CardRecord
	byName map[string]int
}

// New builds a registry from card records, enforcing card-type
// uniqueness on the normalized name.
func New(cards []core.CardRecord) (*Registry, error) {
	r := &Registry{
		cards:  make([]core.CardRecord, 0, len(cards)),
		byName: make(map[string]int, len(cards)),
	}
	for _, c := range cards {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("card %q: %w", c.CardType, err)
		}
		key := core.NormalizeLabel(c.CardType)
		if _, dup := r.byName[key]; dup {
			return nil, fmt.Errorf("card %q: %w", c.CardType, core.ErrDuplicateCard)
		}
		r.byName[key] = len(r.cards)
		r.cards = append(r.cards, c)
	}
	return r, nil
}

// Cards returns the catalog in registration order.
func (r *Registry) Cards() []core.CardRecord {
	out := make([]core.CardRecord, len(r.cards))
	copy(out, r.cards)
	return out
}

// Len returns the number of registered cards.
func (r *Registry) Len() int {
	return len(r.cards)
}

// Lookup returns the card whose type exactly matches the normalized
// label.
func (r *Registry) Lookup(cardType string) (core.CardRecord, bool) {
	i, ok := r.byName[core.NormalizeLabel(cardType)]
	if !ok {
		return core.CardRecord{}, false
	}
	return r.cards[i], true
}

// A disambiguation rule pins a known-conflicting name family to a single
// catalog entry. Rules are evaluated in order before fuzzy containment;
// once a label triggers a family, the outcome is that family's card or
// nothing, never a fuzzy cross-match.
type disambiguation struct {
	applies func(label string) bool
	target  func(card string) bool
}

var disambiguations = []disambiguation{
	{
		// "charles schwab platinum card" anywhere in the label must
		// never fall through to the plain Platinum card.
		applies: func(l string) bool { return strings.Contains(l, "charles schwab platinum card") },
		target:  func(c string) bool { return strings.Contains(c, "charles schwab platinum card") },
	},
	{
		applies: func(l string) bool {
			return strings.Contains(l, "platinum card") && !strings.Contains(l, "charles schwab")
		},
		target: func(c string) bool { return c == "platinum card" },
	},
	{
		// Checked before the "plus i" rule: "business blue plus i" is a
		// substring of "business blue plus ii".
		applies: func(l string) bool { return strings.Contains(l, "business blue plus ii") },
		target:  func(c string) bool { return strings.Contains(c, "business blue plus ii") },
	},
	{
		applies: func(l string) bool {
			return strings.Contains(l, "business blue plus i") && !strings.Contains(l, "business blue plus ii")
		},
		target: func(c string) bool {
			return strings.Contains(c, "business blue plus i") && !strings.Contains(c, "business blue plus ii")
		},
	},
}

// conflictNames are catalog names excluded from fuzzy containment: any
// label involving them is decided by the disambiguation rules alone.
var conflictNames = map[string]struct{}{
	"platinum card":                {},
	"charles schwab platinum card": {},
	"business blue plus i":         {},
	"business blue plus ii":        {},
}

// Resolve maps a raw transaction label to a catalog entry. Precedence,
// first hit wins:
//
//  1. exact match on the normalized label
//  2. disambiguation rules for known-conflicting name families
//  3. fuzzy containment: one normalized label contains the other and
//     every word of the shorter appears in the longer (word-set subset,
//     so "Gold" never matches "Rose Gold")
//
// A miss is a soft failure: callers log and skip, never abort.
func (r *Registry) Resolve(rawLabel string) (core.CardRecord, bool) {
	label := core.NormalizeLabel(rawLabel)
	if label == "" {
		return core.CardRecord{}, false
	}

	if i, ok := r.byName[label]; ok {
		return r.cards[i], true
	}

	for _, rule := range disambiguations {
		if !rule.applies(label) {
			continue
		}
		for i, c := range r.cards {
			if rule.target(core.NormalizeLabel(c.CardType)) {
				return r.cards[i], true
			}
		}
		// The family's card is not registered; fuzzy matching must not
		// get a chance to cross-match a sibling.
		return core.CardRecord{}, false
	}

	for i, c := range r.cards {
		name := core.NormalizeLabel(c.CardType)
		if _, conflicted := conflictNames[name]; conflicted {
			continue
		}
		if fuzzyContains(label, name) {
			return r.cards[i], true
		}
	}

	return core.CardRecord{}, false
}

// fuzzyContains reports whether one label fully contains the other AND
// the shorter label's words are a subset of the longer label's words.
// The word-set test prevents raw-substring false positives, and
// single-word labels never fuzzy-match at all ("Gold" must not claim
// "Rose Gold"); they resolve on the exact stage only.
func fuzzyContains(a, b string) bool {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	shorterWords := strings.Fields(shorter)
	if len(shorterWords) < 2 {
		return false
	}
	if !strings.Contains(longer, shorter) {
		return false
	}
	longerWords := make(map[string]struct{})
	for _, w := range strings.Fields(longer) {
		longerWords[w] = struct{}{}
	}
	for _, w := range shorterWords {
		if _, ok := longerWords[w]; !ok {
			return false
		}
	}
	return true
}
