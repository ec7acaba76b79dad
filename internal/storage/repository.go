// Package storage persists refresh runs and their derived balance
// snapshots to SQLite. Snapshots are never authoritative: the ledger is
// the source of truth and every refresh writes a full new set.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"cardledger/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

// ImportRun records one completed refresh: which data was loaded, when,
// and how many ledger labels failed to resolve.
type ImportRun struct {
	ID               string
	RequestedAt      time.Time
	CompletedAt      time.Time
	CardCount        int
	LedgerEntryCount int
	UnresolvedCount  int
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveRun stores a refresh run and its balance snapshots in one
// transaction, so a crashed refresh never leaves orphaned snapshots.
func (r *SQLiteRepository) SaveRun(ctx context.Context, run ImportRun, balances []core.CalculatedBalance) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO import_runs (id, requested_at, completed_at, card_count, ledger_entry_count, unresolved_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.RequestedAt.UTC(), run.CompletedAt.UTC(), run.CardCount, run.LedgerEntryCount, run.UnresolvedCount)
	if err != nil {
		return fmt.Errorf("insert import run: %w", err)
	}

	for _, b := range balances {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO balance_snapshots (run_id, card_type, external_account_id, balance, calculated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			run.ID, b.CardType, b.ExternalAccountID, b.CurrentBalance.String(), b.LastCalculated.UTC())
		if err != nil {
			return fmt.Errorf("insert balance snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Refresh run persisted",
		"run_id", run.ID,
		"cards", run.CardCount,
		"ledger_entries", run.LedgerEntryCount,
		"unresolved", run.UnresolvedCount)
	return nil
}

// LatestSnapshots returns the balances of the most recent run, or nil
// when no run has been persisted yet.
func (r *SQLiteRepository) LatestSnapshots(ctx context.Context) ([]core.CalculatedBalance, error) {
	var runID string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM import_runs ORDER BY completed_at DESC, id DESC LIMIT 1`).Scan(&runID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT card_type, external_account_id, balance, calculated_at
		 FROM balance_snapshots WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	defer rows.Close()

	var out []core.CalculatedBalance
	for rows.Next() {
		var (
			b   core.CalculatedBalance
			raw string
		)
		if err := rows.Scan(&b.CardType, &b.ExternalAccountID, &raw, &b.LastCalculated); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		b.CurrentBalance, err = decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot balance %q: %w", raw, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// History returns a card's snapshots across runs, newest first.
func (r *SQLiteRepository) History(ctx context.Context, cardType string, limit int) ([]core.CalculatedBalance, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT card_type, external_account_id, balance, calculated_at
		 FROM balance_snapshots WHERE card_type = ?
		 ORDER BY calculated_at DESC LIMIT ?`, cardType, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []core.CalculatedBalance
	for rows.Next() {
		var (
			b   core.CalculatedBalance
			raw string
		)
		if err := rows.Scan(&b.CardType, &b.ExternalAccountID, &raw, &b.LastCalculated); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		b.CurrentBalance, err = decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("history balance %q: %w", raw, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
