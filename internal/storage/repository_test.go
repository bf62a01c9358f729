package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"monea/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *Repository) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{
		Email:                  "ana@example.com",
		Username:               "ana",
		PasswordHash:           "hash",
		BaseCurrency:           core.DefaultCurrency,
		FinancialMonthStartDay: 1,
	})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return u
}

func newTestAccount(t *testing.T, repo *Repository, userID int64, name string, accType core.AccountType) core.Account {
	t.Helper()
	a, err := repo.CreateAccount(context.Background(), core.Account{
		UserID:         userID,
		Name:           name,
		Type:           accType,
		InitialBalance: core.Money{Cents: 100000},
		Currency:       core.DefaultCurrency,
	})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	return a
}

func TestRepository_Health(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func TestRepository_UserUniqueness(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	newTestUser(t, repo)

	_, err := repo.CreateUser(ctx, core.User{Email: "ana@example.com", Username: "other", PasswordHash: "h"})
	if !errors.Is(err, core.ErrEmailTaken) {
		t.Errorf("duplicate email error = %v, want ErrEmailTaken", err)
	}

	_, err = repo.CreateUser(ctx, core.User{Email: "other@example.com", Username: "ana", PasswordHash: "h"})
	if !errors.Is(err, core.ErrUsernameTaken) {
		t.Errorf("duplicate username error = %v, want ErrUsernameTaken", err)
	}
}

func TestRepository_SingleDefaultAccount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)

	first, err := repo.CreateAccount(ctx, core.Account{
		UserID: u.ID, Name: "Cash", Type: core.AccountCash, IsDefault: true,
	})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	second, err := repo.CreateAccount(ctx, core.Account{
		UserID: u.ID, Name: "Debit", Type: core.AccountDebit, IsDefault: true,
	})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if !second.IsDefault {
		t.Error("second account should be the default")
	}

	first, err = repo.GetAccount(ctx, u.ID, first.ID)
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if first.IsDefault {
		t.Error("first account should have lost the default flag")
	}
}

func TestRepository_TransactionWithSplits(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)
	a := newTestAccount(t, repo, u.ID, "Debit", core.AccountDebit)

	created, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:    u.ID,
		AccountID: a.ID,
		Type:      core.Expense,
		Amount:    core.Money{Cents: 5000},
		Currency:  core.DefaultCurrency,
		Date:      time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC),
		Merchant:  "Soriana",
		Splits: []core.TransactionSplit{
			{CategoryID: 1, Amount: core.Money{Cents: 3000}},
			{CategoryID: 2, Amount: core.Money{Cents: 2000}},
		},
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if !created.IsSplit || len(created.Splits) != 2 {
		t.Fatalf("expected 2 splits, got %d (is_split=%v)", len(created.Splits), created.IsSplit)
	}
	if created.SyncStatus != core.SyncPending {
		t.Errorf("sync status = %q, want pending", created.SyncStatus)
	}
	if created.Version != 1 {
		t.Errorf("version = %d, want 1", created.Version)
	}

	// Update bumps version and requeues sync.
	created.Merchant = "Chedraui"
	if err := repo.UpdateTransaction(ctx, created); err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	updated, err := repo.GetTransaction(ctx, u.ID, created.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("version after update = %d, want 2", updated.Version)
	}
}

func TestRepository_ListTransactionsFilter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)
	a := newTestAccount(t, repo, u.ID, "Debit", core.AccountDebit)
	b := newTestAccount(t, repo, u.ID, "Cash", core.AccountCash)

	mk := func(day int, accID int64, txType core.TransactionType, cents int64) {
		t.Helper()
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			UserID: u.ID, AccountID: accID, Type: txType,
			Amount: core.Money{Cents: cents}, Currency: core.DefaultCurrency,
			Date: time.Date(2025, 5, day, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
	}
	mk(1, a.ID, core.Expense, 1000)
	mk(5, a.ID, core.Income, 20000)
	mk(10, b.ID, core.Expense, 3000)

	got, err := repo.ListTransactions(ctx, u.ID, TransactionFilter{AccountID: a.ID})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("account filter returned %d, want 2", len(got))
	}

	got, err = repo.ListTransactions(ctx, u.ID, TransactionFilter{Type: core.Expense})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("type filter returned %d, want 2", len(got))
	}

	got, err = repo.ListTransactions(ctx, u.ID, TransactionFilter{
		From: time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("date filter returned %d, want 1", len(got))
	}
}

func TestRepository_AccountFlows(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)
	a := newTestAccount(t, repo, u.ID, "Debit", core.AccountDebit)
	b := newTestAccount(t, repo, u.ID, "Cash", core.AccountCash)

	txs := []core.Transaction{
		{UserID: u.ID, AccountID: a.ID, Type: core.Income, Amount: core.Money{Cents: 50000}},
		{UserID: u.ID, AccountID: a.ID, Type: core.Expense, Amount: core.Money{Cents: 20000}},
		{UserID: u.ID, AccountID: a.ID, Type: core.Transfer, ToAccountID: b.ID, Amount: core.Money{Cents: 10000}},
	}
	for i := range txs {
		txs[i].Currency = core.DefaultCurrency
		txs[i].Date = time.Date(2025, 5, i+1, 0, 0, 0, 0, time.UTC)
		if _, err := repo.CreateTransaction(ctx, txs[i]); err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
	}

	flows, err := repo.GetAccountFlows(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAccountFlows() error = %v", err)
	}
	balance := core.AccountBalance(a.InitialBalance, flows.Incomes, flows.Expenses, flows.TransfersIn, flows.TransfersOut)
	if balance.Cents != 120000 {
		t.Errorf("balance = %d, want 120000", balance.Cents)
	}

	bFlows, err := repo.GetAccountFlows(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetAccountFlows() error = %v", err)
	}
	if bFlows.TransfersIn.Cents != 10000 {
		t.Errorf("transfers in = %d, want 10000", bFlows.TransfersIn.Cents)
	}
}

func TestRepository_GoalContributionCompletes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)

	g, err := repo.CreateGoal(ctx, core.Goal{
		UserID: u.ID, Name: "Vacaciones", Type: core.GoalSavings,
		TargetAmount:  core.Money{Cents: 10000},
		InitialAmount: core.Money{Cents: 4000},
		Priority:      core.PriorityMedium,
	})
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}
	if g.CurrentAmount.Cents != 4000 {
		t.Fatalf("current = %d, want initial 4000", g.CurrentAmount.Cents)
	}

	g, err = repo.AddGoalContribution(ctx, g, core.GoalContribution{
		GoalID: g.ID, Amount: core.Money{Cents: 6000}, Date: time.Now(),
	})
	if err != nil {
		t.Fatalf("AddGoalContribution() error = %v", err)
	}
	if g.CurrentAmount.Cents != 10000 {
		t.Errorf("current = %d, want 10000", g.CurrentAmount.Cents)
	}
	if !g.IsCompleted {
		t.Error("goal should be completed at target")
	}
}

func TestRepository_AlertDedupe(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)

	_, err := repo.CreateAlert(ctx, core.Alert{
		UserID: u.ID, Type: core.AlertBudgetWarning, Priority: core.PriorityMedium,
		Title: "Presupuesto al 85%", BudgetID: 7,
	})
	if err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}

	dup, err := repo.HasRecentAlert(ctx, u.ID, core.AlertBudgetWarning, 7, 0, 0, 0, 24*time.Hour)
	if err != nil {
		t.Fatalf("HasRecentAlert() error = %v", err)
	}
	if !dup {
		t.Error("expected matching recent alert")
	}

	dup, err = repo.HasRecentAlert(ctx, u.ID, core.AlertBudgetWarning, 8, 0, 0, 0, 24*time.Hour)
	if err != nil {
		t.Fatalf("HasRecentAlert() error = %v", err)
	}
	if dup {
		t.Error("different budget id should not dedupe")
	}
}

func TestRepository_PendingSyncLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)
	a := newTestAccount(t, repo, u.ID, "Debit", core.AccountDebit)

	created, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: u.ID, AccountID: a.ID, Type: core.Expense,
		Amount: core.Money{Cents: 1500}, Currency: core.DefaultCurrency,
		Date: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != created.ID {
		t.Fatalf("pending = %+v, want the created transaction", pending)
	}

	if err := repo.MarkTransactionSynced(ctx, created.ID, created.Version); err != nil {
		t.Fatalf("MarkTransactionSynced() error = %v", err)
	}
	pending, err = repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after sync = %d, want 0", len(pending))
	}
}

func TestRepository_SystemCategoriesSeeded(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)

	cats, err := repo.ListCategories(ctx, u.ID, core.CategoryExpense)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(cats) == 0 {
		t.Fatal("expected seeded system expense categories")
	}
	for _, c := range cats {
		if !c.IsSystem {
			t.Errorf("category %q should be a system category", c.Name)
		}
	}
}

func TestRepository_RecurringDeleteDeactivates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)
	a := newTestAccount(t, repo, u.ID, "Debit", core.AccountDebit)

	rec, err := repo.CreateRecurring(ctx, core.RecurringTransaction{
		UserID: u.ID, AccountID: a.ID, Name: "Renta", Type: core.Expense,
		Amount: core.Money{Cents: 800000}, Frequency: core.Monthly,
		DayOfMonth: 1, StartDate: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateRecurring() error = %v", err)
	}
	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: u.ID, AccountID: a.ID, Type: core.Expense,
		Amount: core.Money{Cents: 800000}, Currency: core.DefaultCurrency,
		Date: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), RecurringID: rec.ID,
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	if err := repo.DeleteRecurring(ctx, u.ID, rec.ID); err != nil {
		t.Fatalf("DeleteRecurring() error = %v", err)
	}

	// The row survives so materialized transactions keep their reference.
	got, err := repo.GetRecurring(ctx, u.ID, rec.ID)
	if err != nil {
		t.Fatalf("GetRecurring() after delete error = %v", err)
	}
	if got.IsActive {
		t.Error("IsActive = true after delete, want false")
	}
	gotTx, err := repo.GetTransaction(ctx, u.ID, tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if gotTx.RecurringID != rec.ID {
		t.Errorf("RecurringID = %d, want %d", gotTx.RecurringID, rec.ID)
	}

	active, err := repo.ListRecurring(ctx, u.ID, true)
	if err != nil {
		t.Fatalf("ListRecurring() error = %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active schedules = %d, want 0", len(active))
	}

	if err := repo.DeleteRecurring(ctx, u.ID, 999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteRecurring(unknown) error = %v, want ErrNotFound", err)
	}
}
