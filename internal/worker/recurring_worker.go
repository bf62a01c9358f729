package worker

import (
	"context"
	"fmt"
	"time"

	"monea/internal/log"
	"monea/internal/services"
	"monea/internal/storage"
)

// RecurringWorker materializes due recurring transactions on a schedule and
// raises upcoming-charge and card-date alerts per user.
type RecurringWorker struct {
	repo      *storage.Repository
	recurring *services.RecurringService
	alerts    *services.AlertService
	logger    *log.Logger
}

func NewRecurringWorker(repo *storage.Repository, recurring *services.RecurringService, alerts *services.AlertService, logger *log.Logger) *RecurringWorker {
	return &RecurringWorker{
		repo:      repo,
		recurring: recurring,
		alerts:    alerts,
		logger:    logger.WithComponent(log.ComponentRecurring),
	}
}

// RunOnce materializes everything due as of now, then sweeps every active
// user for date-based alerts.
func (w *RecurringWorker) RunOnce(ctx context.Context, now time.Time) error {
	created, err := w.recurring.MaterializeDue(ctx, now)
	if err != nil {
		return fmt.Errorf("materialize due: %w", err)
	}
	if created > 0 {
		w.logger.InfoContext(ctx, "Materialized recurring transactions", "count", created)
	}

	userIDs, err := w.repo.ListActiveUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	for _, uid := range userIDs {
		if n, err := w.alerts.CheckRecurringDue(ctx, uid, now); err != nil {
			w.logger.ErrorContext(ctx, "Recurring due check failed", log.FieldUserID, uid, log.FieldError, err)
		} else if n > 0 {
			w.logger.InfoContext(ctx, "Recurring due alerts created", log.FieldUserID, uid, "count", n)
		}
		if n, err := w.alerts.CheckCreditCards(ctx, uid, now); err != nil {
			w.logger.ErrorContext(ctx, "Credit card check failed", log.FieldUserID, uid, log.FieldError, err)
		} else if n > 0 {
			w.logger.InfoContext(ctx, "Credit card alerts created", log.FieldUserID, uid, "count", n)
		}
	}
	return nil
}

// Run executes immediately and then on every tick until ctx is cancelled.
func (w *RecurringWorker) Run(ctx context.Context, interval time.Duration) error {
	if err := w.RunOnce(ctx, time.Now()); err != nil {
		w.logger.ErrorContext(ctx, "Initial run failed", log.FieldError, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.RunOnce(ctx, time.Now()); err != nil {
				w.logger.ErrorContext(ctx, "Scheduled run failed", log.FieldError, err)
			}
		}
	}
}
