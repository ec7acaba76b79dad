// Package worker drives dashboard refreshes from AMQP requests and a
// periodic fallback timer.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cardledger/internal/amqp"
)

// Refresher reloads dashboard state for a given run.
type Refresher interface {
	Refresh(ctx context.Context, runID string) error
}

type RefreshWorker struct {
	dashboard Refresher
	interval  time.Duration
}

func NewRefreshWorker(dashboard Refresher, interval time.Duration) *RefreshWorker {
	return &RefreshWorker{
		dashboard: dashboard,
		interval:  interval,
	}
}

// HandleRefreshRequest processes a single refresh request from AMQP.
func (w *RefreshWorker) HandleRefreshRequest(ctx context.Context, msg *amqp.RefreshRequestMessage) error {
	slog.InfoContext(ctx, "Processing refresh request",
		"run_id", msg.RunID,
		"reason", msg.Reason,
		"requested_at", msg.RequestedAt.Format(time.RFC3339))

	if err := w.dashboard.Refresh(ctx, msg.RunID); err != nil {
		return fmt.Errorf("refresh dashboard: %w", err)
	}

	return nil
}

// RunPeriodic refreshes on a fixed interval until ctx is canceled. This
// is a backup mechanism in case AMQP messages are lost, so source edits
// still reach the dashboard without a manual refresh.
func (w *RefreshWorker) RunPeriodic(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Starting periodic refresh", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runID := uuid.NewString()
			if err := w.dashboard.Refresh(ctx, runID); err != nil {
				slog.ErrorContext(ctx, "Periodic refresh failed",
					"run_id", runID,
					"error", err)
				continue
			}
			slog.InfoContext(ctx, "Periodic refresh completed", "run_id", runID)
		}
	}
}
