package worker

import (
	"context"
	"time"

	"fanforge-server/internal/observability"
	"fanforge-server/internal/store"
)

// Store lists pending accounts for the sweeper.
type Store interface {
	ListPendingSocialAccounts(ctx context.Context, limit int) ([]store.SocialAccount, error)
}

// Checker performs one non-blocking verification check for an account.
type Checker interface {
	CheckAccountOnce(ctx context.Context, account store.SocialAccount) (bool, error)
}

// VerificationSweeper periodically re-checks accounts whose scrape jobs have
// not reported back. It backstops clients that stop polling and webhooks
// that never arrive.
type VerificationSweeper struct {
	store     Store
	checker   Checker
	logger    *observability.Logger
	stopChan  chan bool
	interval  time.Duration
	batchSize int
}

// New creates a new VerificationSweeper
func New(st Store, checker Checker, logger *observability.Logger, interval time.Duration) *VerificationSweeper {
	return &VerificationSweeper{
		store:     st,
		checker:   checker,
		logger:    logger,
		stopChan:  make(chan bool),
		interval:  interval,
		batchSize: 100,
	}
}

// Start begins the background worker
func (w *VerificationSweeper) Start(ctx context.Context) {
	w.logger.Info(ctx, "Starting verification sweeper")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Process immediately on start
	w.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-w.stopChan:
			w.logger.Info(ctx, "Stopping verification sweeper")
			return
		case <-ctx.Done():
			w.logger.Info(ctx, "Context cancelled, stopping verification sweeper")
			return
		}
	}
}

// Stop stops the background worker
func (w *VerificationSweeper) Stop() {
	close(w.stopChan)
}

func (w *VerificationSweeper) sweep(ctx context.Context) {
	accounts, err := w.store.ListPendingSocialAccounts(ctx, w.batchSize)
	if err != nil {
		w.logger.Error(ctx, "failed to list pending accounts", err)
		return
	}
	if len(accounts) == 0 {
		return
	}

	checked := 0
	settled := 0
	for _, account := range accounts {
		if account.SnapshotID == nil {
			continue
		}
		checked++
		done, err := w.checker.CheckAccountOnce(ctx, account)
		if err != nil && !done {
			accountCtx := observability.WithFields(ctx,
				observability.Field{Key: "account_id", Value: account.ID.String()})
			w.logger.InfoWithError(accountCtx, "verification check failed, will retry next sweep", err)
			continue
		}
		if done {
			settled++
		}
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "checked", Value: checked},
		observability.Field{Key: "settled", Value: settled},
	)
	w.logger.Info(ctx, "verification sweep finished")
}
