// Package memory is an in-memory source backend used by tests and local
// development.
package memory

import (
	"context"
	"sync"

	"cardledger/internal/core"
	"cardledger/internal/source"
)

type Store struct {
	mu           sync.Mutex
	cards        []core.CardRecord
	transactions []core.TransactionRecord
	rewards      []core.RewardRecord
}

var _ source.Reader = (*Store)(nil)

func New(cards []core.CardRecord, transactions []core.TransactionRecord, rewards []core.RewardRecord) *Store {
	return &Store{cards: cards, transactions: transactions, rewards: rewards}
}

func (s *Store) ReadCards(_ context.Context) ([]core.CardRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.CardRecord(nil), s.cards...), nil
}

func (s *Store) ReadTransactions(_ context.Context) ([]core.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.TransactionRecord(nil), s.transactions...), nil
}

func (s *Store) ReadRewards(_ context.Context) ([]core.RewardRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RewardRecord(nil), s.rewards...), nil
}

// SetTransactions replaces the transaction ledger, simulating upstream
// data arriving between refreshes.
func (s *Store) SetTransactions(transactions []core.TransactionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = transactions
}
