package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"monea/internal/amqp"
	"monea/internal/core"
	"monea/internal/log"
	"monea/internal/services"
	"monea/internal/storage"
)

type fixture struct {
	repo         *storage.Repository
	transactions *services.TransactionService
	alerts       *services.AlertService
	recurring    *services.RecurringService
	user         core.User
	account      core.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := storage.NewRepository(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	logger := log.New(log.DefaultConfig())
	transactions := services.NewTransactionService(repo, nil, logger)
	budgets := services.NewBudgetService(repo, logger)
	creditCards := services.NewCreditCardService(repo, transactions, logger)
	alerts := services.NewAlertService(repo, budgets, creditCards, logger)
	recurring := services.NewRecurringService(repo, transactions, logger)

	ctx := context.Background()
	user, err := repo.CreateUser(ctx, core.User{
		Email:                  "worker@example.com",
		Username:               "worker",
		PasswordHash:           "x",
		BaseCurrency:           core.DefaultCurrency,
		FinancialMonthStartDay: 1,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	account, err := repo.CreateAccount(ctx, core.Account{
		UserID:   user.ID,
		Name:     "Efectivo",
		Type:     core.AccountCash,
		Currency: core.DefaultCurrency,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	return &fixture{
		repo:         repo,
		transactions: transactions,
		alerts:       alerts,
		recurring:    recurring,
		user:         user,
		account:      account,
	}
}

func (f *fixture) createTransaction(t *testing.T, amount int64) core.Transaction {
	t.Helper()
	tx, err := f.transactions.Create(context.Background(), core.Transaction{
		UserID:    f.user.ID,
		AccountID: f.account.ID,
		Type:      core.Expense,
		Amount:    core.Money{Cents: amount},
		Date:      time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

type fakeLedger struct {
	appended []int64
	err      error
}

func (f *fakeLedger) AppendTransaction(_ context.Context, t core.Transaction) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.appended = append(f.appended, t.ID)
	return fmt.Sprintf("Ledger!A%d", len(f.appended)), nil
}

func TestHandleTransactionEventMirrors(t *testing.T) {
	f := newFixture(t)
	ledger := &fakeLedger{}
	w := NewAlertWorker(f.repo, f.alerts, ledger, 10, log.New(log.DefaultConfig()))

	tx := f.createTransaction(t, 15000)
	ctx := context.Background()

	err := w.HandleTransactionEvent(ctx, &amqp.TransactionEventMessage{ID: tx.ID, Version: tx.Version})
	if err != nil {
		t.Fatalf("HandleTransactionEvent: %v", err)
	}
	if len(ledger.appended) != 1 || ledger.appended[0] != tx.ID {
		t.Fatalf("appended = %v, want [%d]", ledger.appended, tx.ID)
	}

	pending, err := f.repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending after sync = %d, want 0", len(pending))
	}
}

func TestHandleTransactionEventStaleDropped(t *testing.T) {
	f := newFixture(t)
	ledger := &fakeLedger{}
	w := NewAlertWorker(f.repo, f.alerts, ledger, 10, log.New(log.DefaultConfig()))

	tx := f.createTransaction(t, 15000)
	ctx := context.Background()

	// An event older than the row is a leftover from a superseded write.
	err := w.HandleTransactionEvent(ctx, &amqp.TransactionEventMessage{ID: tx.ID, Version: tx.Version - 1})
	if err != nil {
		t.Fatalf("HandleTransactionEvent: %v", err)
	}
	if len(ledger.appended) != 0 {
		t.Fatalf("stale event reached the ledger: %v", ledger.appended)
	}

	pending, err := f.repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1 (row stays queued for the sweep)", len(pending))
	}
}

func TestHandleTransactionEventMissingRow(t *testing.T) {
	f := newFixture(t)
	w := NewAlertWorker(f.repo, f.alerts, &fakeLedger{}, 10, log.New(log.DefaultConfig()))

	// A deleted transaction is dropped, not retried forever.
	err := w.HandleTransactionEvent(context.Background(), &amqp.TransactionEventMessage{ID: 999, Version: 1})
	if err != nil {
		t.Fatalf("HandleTransactionEvent for missing row: %v", err)
	}
}

func TestHandleTransactionEventLedgerFailure(t *testing.T) {
	f := newFixture(t)
	ledger := &fakeLedger{err: fmt.Errorf("quota exceeded")}
	w := NewAlertWorker(f.repo, f.alerts, ledger, 10, log.New(log.DefaultConfig()))

	tx := f.createTransaction(t, 15000)
	ctx := context.Background()

	err := w.HandleTransactionEvent(ctx, &amqp.TransactionEventMessage{ID: tx.ID, Version: tx.Version})
	if err == nil {
		t.Fatal("expected error from failed ledger write")
	}

	got, err := f.repo.GetTransactionByID(ctx, tx.ID)
	if err != nil {
		t.Fatalf("GetTransactionByID: %v", err)
	}
	if got.SyncStatus != core.SyncError {
		t.Fatalf("sync status = %q, want %q", got.SyncStatus, core.SyncError)
	}
}

func TestProcessPendingWithoutLedger(t *testing.T) {
	f := newFixture(t)
	w := NewAlertWorker(f.repo, f.alerts, nil, 10, log.New(log.DefaultConfig()))

	f.createTransaction(t, 5000)
	f.createTransaction(t, 7000)
	ctx := context.Background()

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	pending, err := f.repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending = %d, want 0 (no ledger marks rows synced)", len(pending))
	}
}

func TestRecurringWorkerRunOnce(t *testing.T) {
	f := newFixture(t)
	w := NewRecurringWorker(f.repo, f.recurring, f.alerts, log.New(log.DefaultConfig()))
	ctx := context.Background()

	_, err := f.repo.CreateRecurring(ctx, core.RecurringTransaction{
		UserID:     f.user.ID,
		AccountID:  f.account.ID,
		Name:       "Renta",
		Type:       core.Expense,
		Amount:     core.Money{Cents: 850000},
		Frequency:  core.Monthly,
		DayOfMonth: 15,
		StartDate:  time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		AutoCreate: true,
		IsActive:   true,
	})
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}

	// Two occurrences due by late February are caught up in one run.
	now := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	if err := w.RunOnce(ctx, now); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	list, err := f.repo.ListTransactions(ctx, f.user.ID, storage.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("materialized = %d transactions, want 2", len(list))
	}

	// A second run at the same instant creates nothing new.
	if err := w.RunOnce(ctx, now); err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	list, err = f.repo.ListTransactions(ctx, f.user.ID, storage.TransactionFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("after second run = %d transactions, want 2", len(list))
	}
}
