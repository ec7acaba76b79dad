// Package source defines the inbound data ports: where card, transaction,
// and reward records come from. Backends live in subpackages.
package source

import (
	"context"

	"cardledger/internal/core"
)

// Ports for inbound adapters.
type (
	CardReader interface {
		ReadCards(ctx context.Context) ([]core.CardRecord, error)
	}

	TransactionReader interface {
		ReadTransactions(ctx context.Context) ([]core.TransactionRecord, error)
	}

	RewardReader interface {
		ReadRewards(ctx context.Context) ([]core.RewardRecord, error)
	}

	// Reader is the full data source a dashboard session loads from.
	Reader interface {
		CardReader
		TransactionReader
		RewardReader
	}
)
