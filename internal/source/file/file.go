// Package file reads the card registry and ledgers from delimited text
// files in a local data directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cardledger/internal/core"
	"cardledger/internal/ledger"
	"cardledger/internal/source"
)

const (
	cardsFile        = "cards.csv"
	transactionsFile = "transactions.csv"
	rewardsFile      = "rewards.csv"
)

type Reader struct {
	dir string
}

var _ source.Reader = (*Reader)(nil)

// New creates a reader rooted at dir. The directory must exist; the
// individual files are checked lazily at read time.
func New(dir string) (*Reader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data dir %s: not a directory", dir)
	}
	return &Reader{dir: dir}, nil
}

func (r *Reader) ReadCards(ctx context.Context) ([]core.CardRecord, error) {
	raw, err := r.readFile(ctx, cardsFile)
	if err != nil {
		return nil, err
	}
	return ledger.ParseCards(raw)
}

func (r *Reader) ReadTransactions(ctx context.Context) ([]core.TransactionRecord, error) {
	raw, err := r.readFile(ctx, transactionsFile)
	if err != nil {
		return nil, err
	}
	return ledger.ParseTransactions(raw)
}

// ReadRewards reads the reward ledger. A missing rewards file is not an
// error; a portfolio without a rewards program yields an empty ledger.
func (r *Reader) ReadRewards(ctx context.Context) ([]core.RewardRecord, error) {
	raw, err := r.readFile(ctx, rewardsFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ledger.ParseRewards(raw)
}

func (r *Reader) readFile(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(b), nil
}
