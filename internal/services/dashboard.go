// Package services orchestrates the dashboard session: loading sources,
// computing balances, and answering filtered metric queries.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cardledger/internal/balance"
	"cardledger/internal/core"
	"cardledger/internal/filter"
	"cardledger/internal/metrics"
	"cardledger/internal/registry"
	"cardledger/internal/source"
	"cardledger/internal/storage"
)

// ErrNotReady is returned by read methods before the first successful
// load.
var ErrNotReady = errors.New("dashboard not initialized")

// ErrNoSnapshotStore is returned by snapshot reads when no repository is
// configured.
var ErrNoSnapshotStore = errors.New("no snapshot store configured")

type (
	// SnapshotRepository persists refresh runs; optional.
	SnapshotRepository interface {
		SaveRun(ctx context.Context, run storage.ImportRun, balances []core.CalculatedBalance) error
		LatestSnapshots(ctx context.Context) ([]core.CalculatedBalance, error)
		History(ctx context.Context, cardType string, limit int) ([]core.CalculatedBalance, error)
	}

	// RefreshPublisher hands refresh requests to the worker; optional.
	RefreshPublisher interface {
		PublishRefreshRequest(ctx context.Context, reason string) (string, error)
	}

	// Summary is the headline metric set of the dashboard.
	Summary struct {
		TotalBalance    string                 `json:"totalBalance"`
		HighestBalances []metrics.BalanceEntry `json:"highestBalances"`
		LowestBalances  []metrics.BalanceEntry `json:"lowestBalances"`
		ClosingSoon     []metrics.UpcomingCard `json:"closingSoon"`
		DueSoon         []metrics.UpcomingCard `json:"dueSoon"`
		RefreshedAt     time.Time              `json:"refreshedAt"`
	}
)

// Dashboard loads the registry and ledgers once, recomputes on demand,
// and serves every read from the in-memory state of the last refresh.
// State is swapped atomically: readers either see the previous refresh
// or the new one, never a mix.
type Dashboard struct {
	src       source.Reader
	repo      SnapshotRepository
	publisher RefreshPublisher
	now       func() time.Time

	mu           sync.RWMutex
	ready        bool
	reg          *registry.Registry
	transactions []core.TransactionRecord
	rewards      []core.RewardRecord
	balances     []core.CalculatedBalance
	report       registry.Report
	refreshedAt  time.Time
}

// NewDashboard creates a dashboard over src. repo and publisher may be
// nil: without a repo nothing is persisted, and without a publisher a
// refresh request is handled by this process alone.
func NewDashboard(src source.Reader, repo SnapshotRepository, publisher RefreshPublisher) *Dashboard {
	return &Dashboard{
		src:       src,
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
}

// Initialize performs the first load. It is not implicit in NewDashboard
// so callers control when source I/O happens and can fail fast at
// startup.
func (d *Dashboard) Initialize(ctx context.Context) error {
	return d.Refresh(ctx, uuid.NewString())
}

// Refresh reloads all sources, recomputes every balance, and replaces
// the served state. Derived state is fully rebuilt, never patched.
func (d *Dashboard) Refresh(ctx context.Context, runID string) error {
	requestedAt := d.now().UTC()

	cards, err := d.src.ReadCards(ctx)
	if err != nil {
		return fmt.Errorf("read cards: %w", err)
	}
	transactions, err := d.src.ReadTransactions(ctx)
	if err != nil {
		return fmt.Errorf("read transactions: %w", err)
	}
	rewards, err := d.src.ReadRewards(ctx)
	if err != nil {
		return fmt.Errorf("read rewards: %w", err)
	}

	reg, err := registry.New(cards)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	balances, err := balance.NewAccumulator(reg).ComputeAll(ctx, transactions)
	if err != nil {
		return fmt.Errorf("compute balances: %w", err)
	}

	report := reg.Validate(transactions)
	if !report.Clean() {
		slog.WarnContext(ctx, "Ledger and registry are inconsistent",
			"unresolved_labels", len(report.UnresolvedLabels),
			"inactive_cards", len(report.InactiveCards))
	}

	if d.repo != nil {
		run := storage.ImportRun{
			ID:               runID,
			RequestedAt:      requestedAt,
			CompletedAt:      d.now().UTC(),
			CardCount:        reg.Len(),
			LedgerEntryCount: len(transactions),
			UnresolvedCount:  len(report.UnresolvedLabels),
		}
		if err := d.repo.SaveRun(ctx, run, balances); err != nil {
			// Snapshots are an audit trail, not serving state; a failed
			// write must not take down the refresh.
			slog.ErrorContext(ctx, "Failed to persist refresh run", "run_id", runID, "error", err)
		}
	}

	d.mu.Lock()
	d.ready = true
	d.reg = reg
	d.transactions = transactions
	d.rewards = rewards
	d.balances = balances
	d.report = report
	d.refreshedAt = d.now().UTC()
	d.mu.Unlock()

	slog.InfoContext(ctx, "Dashboard refreshed",
		"run_id", runID,
		"cards", reg.Len(),
		"transactions", len(transactions),
		"rewards", len(rewards))
	return nil
}

// RequestRefresh rebuilds this process's served state and returns the
// run ID of that rebuild. With a publisher configured the request is
// also forwarded to the worker, which runs its own refresh and persists
// the snapshot run; forwarding never substitutes for the local rebuild,
// since the worker cannot replace another process's in-memory state. A
// failed publish is logged and does not fail the request.
func (d *Dashboard) RequestRefresh(ctx context.Context, reason string) (string, error) {
	if d.publisher != nil {
		if _, err := d.publisher.PublishRefreshRequest(ctx, reason); err != nil {
			slog.WarnContext(ctx, "Failed to forward refresh request to worker", "reason", reason, "error", err)
		}
	}

	runID := uuid.NewString()
	if err := d.Refresh(ctx, runID); err != nil {
		return "", err
	}
	return runID, nil
}

// Balances returns the current balances of the last refresh.
func (d *Dashboard) Balances() ([]core.CalculatedBalance, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.ready {
		return nil, ErrNotReady
	}
	return append([]core.CalculatedBalance(nil), d.balances...), nil
}

// Cards returns the registry catalog.
func (d *Dashboard) Cards() ([]core.CardRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.ready {
		return nil, ErrNotReady
	}
	return d.reg.Cards(), nil
}

// Transactions returns the filtered transaction ledger.
func (d *Dashboard) Transactions(c core.FilterCriteria) ([]core.TransactionRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.ready {
		return nil, ErrNotReady
	}
	return filter.Apply(d.transactions, c, d.now()), nil
}

// Rewards returns the filtered reward ledger.
func (d *Dashboard) Rewards(c core.FilterCriteria) ([]core.RewardRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.ready {
		return nil, ErrNotReady
	}
	return filter.Apply(d.rewards, c, d.now()), nil
}

// Summarize derives the headline metrics. Balances are portfolio-wide
// and not narrowed by filter criteria; the closing and due alerts come
// from the registry, not the ledger.
func (d *Dashboard) Summarize() (Summary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.ready {
		return Summary{}, ErrNotReady
	}
	today := d.now()
	return Summary{
		TotalBalance:    core.FormatUSD(metrics.TotalBalance(d.balances)),
		HighestBalances: metrics.HighestBalances(d.balances),
		LowestBalances:  metrics.LowestBalances(d.balances),
		ClosingSoon:     metrics.ClosingSoon(d.reg.Cards(), today),
		DueSoon:         metrics.DueSoon(d.reg.Cards(), today),
		RefreshedAt:     d.refreshedAt,
	}, nil
}

// CategorySpend derives spend-by-category over the filtered ledger.
func (d *Dashboard) CategorySpend(c core.FilterCriteria) ([]metrics.CategorySpendEntry, error) {
	transactions, err := d.Transactions(c)
	if err != nil {
		return nil, err
	}
	return metrics.CategorySpend(transactions), nil
}

// CardBreakdown derives reward points per card over the filtered
// reward ledger.
func (d *Dashboard) CardBreakdown(c core.FilterCriteria) ([]metrics.CardPointsEntry, error) {
	rewards, err := d.Rewards(c)
	if err != nil {
		return nil, err
	}
	return metrics.CardBreakdown(rewards), nil
}

// MaxMultipleSpend derives the best-point-rate callout over the
// filtered ledger. ok is false when no charges match.
func (d *Dashboard) MaxMultipleSpend(c core.FilterCriteria) (metrics.MultipleSpend, bool, error) {
	transactions, err := d.Transactions(c)
	if err != nil {
		return metrics.MultipleSpend{}, false, err
	}
	result, ok := metrics.MaxMultipleSpend(transactions)
	return result, ok, nil
}

// LatestSnapshots returns the balances of the last persisted run. This
// is the audit view: what the store recorded, as opposed to the live
// state served by Balances. It does not require a completed load.
func (d *Dashboard) LatestSnapshots(ctx context.Context) ([]core.CalculatedBalance, error) {
	if d.repo == nil {
		return nil, ErrNoSnapshotStore
	}
	return d.repo.LatestSnapshots(ctx)
}

// SnapshotHistory returns a card's persisted balances across runs,
// newest first.
func (d *Dashboard) SnapshotHistory(ctx context.Context, cardType string, limit int) ([]core.CalculatedBalance, error) {
	if d.repo == nil {
		return nil, ErrNoSnapshotStore
	}
	return d.repo.History(ctx, cardType, limit)
}

// ValidationReport returns the consistency report of the last refresh.
func (d *Dashboard) ValidationReport() (registry.Report, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.ready {
		return registry.Report{}, ErrNotReady
	}
	return d.report, nil
}

// RefreshedAt returns when the served state was last rebuilt.
func (d *Dashboard) RefreshedAt() (time.Time, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.ready {
		return time.Time{}, ErrNotReady
	}
	return d.refreshedAt, nil
}
