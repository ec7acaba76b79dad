// Package google reads the card registry and ledgers from a Google
// spreadsheet, one sheet per table with a header row.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cardledger/internal/core"
	"cardledger/internal/ledger"
	"cardledger/internal/source"
)

type Config struct {
	SpreadsheetID string
	APIKey        string
	// Sheet names; each sheet's first row is the column header.
	CardsSheet        string
	TransactionsSheet string
	RewardsSheet      string
}

type Reader struct {
	svc               *gsheet.Service
	spreadsheetID     string
	cardsSheet        string
	transactionsSheet string
	rewardsSheet      string
}

var _ source.Reader = (*Reader)(nil)

// New creates a read-only Sheets client. An API key is enough because
// the system never writes back to the spreadsheet.
func New(ctx context.Context, cfg Config) (*Reader, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing api key")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithAPIKey(cfg.APIKey),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	r := &Reader{
		svc:               svc,
		spreadsheetID:     cfg.SpreadsheetID,
		cardsSheet:        cfg.CardsSheet,
		transactionsSheet: cfg.TransactionsSheet,
		rewardsSheet:      cfg.RewardsSheet,
	}
	if r.cardsSheet == "" {
		r.cardsSheet = "Cards"
	}
	if r.transactionsSheet == "" {
		r.transactionsSheet = "Transactions"
	}
	if r.rewardsSheet == "" {
		r.rewardsSheet = "Rewards"
	}
	return r, nil
}

func (r *Reader) ReadCards(ctx context.Context) ([]core.CardRecord, error) {
	t, err := r.readTable(ctx, r.cardsSheet)
	if err != nil {
		return nil, err
	}
	return ledger.CardsFromTable(t), nil
}

func (r *Reader) ReadTransactions(ctx context.Context) ([]core.TransactionRecord, error) {
	t, err := r.readTable(ctx, r.transactionsSheet)
	if err != nil {
		return nil, err
	}
	return ledger.TransactionsFromTable(t), nil
}

func (r *Reader) ReadRewards(ctx context.Context) ([]core.RewardRecord, error) {
	t, err := r.readTable(ctx, r.rewardsSheet)
	if err != nil {
		return nil, err
	}
	return ledger.RewardsFromTable(t), nil
}

func (r *Reader) readTable(ctx context.Context, sheetName string) (*ledger.Table, error) {
	if r.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:Z", sheetName)
	resp, err := r.svc.Spreadsheets.Values.Get(r.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		rows = append(rows, toStrings(row))
	}
	t, err := ledger.TableFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("sheet %s: %w", sheetName, err)
	}
	return t, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
