// Package worker holds the background consumers that react to transaction
// events and materialize recurring charges.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"monea/internal/amqp"
	"monea/internal/core"
	"monea/internal/log"
	"monea/internal/services"
	"monea/internal/sheets"
	"monea/internal/storage"
)

// AlertWorker consumes transaction events, re-evaluates budget and credit
// card alerts for the affected user, and optionally mirrors the transaction
// to an external ledger.
type AlertWorker struct {
	repo      *storage.Repository
	alerts    *services.AlertService
	ledger    sheets.LedgerWriter // nil when the mirror is disabled
	batchSize int
	logger    *log.Logger
}

func NewAlertWorker(repo *storage.Repository, alerts *services.AlertService, ledger sheets.LedgerWriter, batchSize int, logger *log.Logger) *AlertWorker {
	return &AlertWorker{
		repo:      repo,
		alerts:    alerts,
		ledger:    ledger,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleTransactionEvent processes one queue message. Stale events, where the
// row has been edited since the event was published, are dropped; the edit
// publishes its own event.
func (w *AlertWorker) HandleTransactionEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	t, err := w.repo.GetTransactionByID(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "Transaction gone, dropping event", log.FieldTxID, msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	if msg.Version < t.Version {
		w.logger.DebugContext(ctx, "Stale event dropped",
			log.FieldTxID, msg.ID, "event_version", msg.Version, "row_version", t.Version)
		return nil
	}

	if err := w.mirror(ctx, t); err != nil {
		return err
	}

	if n, err := w.alerts.CheckBudgets(ctx, t.UserID); err != nil {
		w.logger.ErrorContext(ctx, "Budget check failed", log.FieldUserID, t.UserID, log.FieldError, err)
	} else if n > 0 {
		w.logger.InfoContext(ctx, "Budget alerts created", log.FieldUserID, t.UserID, "count", n)
	}
	if n, err := w.alerts.CheckCreditCards(ctx, t.UserID, time.Now()); err != nil {
		w.logger.ErrorContext(ctx, "Credit card check failed", log.FieldUserID, t.UserID, log.FieldError, err)
	} else if n > 0 {
		w.logger.InfoContext(ctx, "Credit card alerts created", log.FieldUserID, t.UserID, "count", n)
	}

	return nil
}

// mirror appends the transaction to the external ledger and flips the sync
// status. With no ledger configured the row is marked synced immediately so
// the pending sweep stays empty.
func (w *AlertWorker) mirror(ctx context.Context, t core.Transaction) error {
	if w.ledger == nil {
		return w.repo.MarkTransactionSynced(ctx, t.ID, t.Version)
	}

	ref, err := w.ledger.AppendTransaction(ctx, t)
	if err != nil {
		if markErr := w.repo.MarkTransactionSyncError(ctx, t.ID); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error", log.FieldTxID, t.ID, log.FieldError, markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.repo.MarkTransactionSynced(ctx, t.ID, t.Version); err != nil {
		// The mirror write landed; only the bookkeeping failed.
		w.logger.ErrorContext(ctx, "Failed to mark synced", log.FieldTxID, t.ID, log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Transaction mirrored",
		log.FieldTxID, t.ID, log.FieldSheetsRef, ref, log.FieldAmountCents, t.Amount.Cents)
	return nil
}

// ProcessPending sweeps rows still marked pending, recovering from lost
// queue messages.
func (w *AlertWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.repo.GetPendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "Processing pending transactions", "count", len(pending))
	for _, p := range pending {
		t, err := w.repo.GetTransactionByID(ctx, p.ID)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to load pending transaction", log.FieldTxID, p.ID, log.FieldError, err)
			continue
		}
		if err := w.mirror(ctx, t); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mirror pending transaction", log.FieldTxID, p.ID, log.FieldError, err)
		}
	}
	return nil
}

// StartupSweep drains a larger pending backlog once, before consumption
// starts, to recover from worker downtime.
func (w *AlertWorker) StartupSweep(ctx context.Context) error {
	pending, err := w.repo.GetPendingSyncTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup sweep: %w", err)
	}
	if len(pending) == 0 {
		w.logger.InfoContext(ctx, "No pending transactions on startup")
		return nil
	}

	w.logger.InfoContext(ctx, "Pending transactions found on startup", "count", len(pending))
	synced, failed := 0, 0
	for _, p := range pending {
		t, err := w.repo.GetTransactionByID(ctx, p.ID)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to load pending transaction", log.FieldTxID, p.ID, log.FieldError, err)
			failed++
			continue
		}
		if err := w.mirror(ctx, t); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mirror pending transaction", log.FieldTxID, p.ID, log.FieldError, err)
			failed++
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Startup sweep completed",
		"total", len(pending), "synced", synced, "errors", failed)
	return nil
}
