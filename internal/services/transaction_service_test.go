package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"monea/internal/core"
	"monea/internal/log"
	"monea/internal/storage"
)

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testLogger() *log.Logger {
	return log.New(log.DefaultConfig())
}

func newTestUser(t *testing.T, repo *storage.Repository) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{
		Email: "ana@example.com", Username: "ana", PasswordHash: "hash",
		BaseCurrency: core.DefaultCurrency, FinancialMonthStartDay: 1,
	})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return u
}

func newTestAccount(t *testing.T, repo *storage.Repository, userID int64, name string, accType core.AccountType) core.Account {
	t.Helper()
	a, err := repo.CreateAccount(context.Background(), core.Account{
		UserID: userID, Name: name, Type: accType,
		InitialBalance: core.Money{Cents: 500000}, Currency: core.DefaultCurrency,
	})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	return a
}

func TestTransactionService_CreateRejectsArchivedAccount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	svc := NewTransactionService(repo, nil, testLogger())
	u := newTestUser(t, repo)
	a := newTestAccount(t, repo, u.ID, "Efectivo", core.AccountCash)

	if err := repo.ArchiveAccount(ctx, u.ID, a.ID); err != nil {
		t.Fatalf("ArchiveAccount() error = %v", err)
	}

	_, err := svc.Create(ctx, core.Transaction{
		UserID: u.ID, AccountID: a.ID, Type: core.Expense,
		Amount: core.Money{Cents: 1000}, Date: date(2025, time.June, 1),
	})
	if !errors.Is(err, core.ErrAccountArchived) {
		t.Errorf("Create() error = %v, want ErrAccountArchived", err)
	}
}

func TestTransactionService_InstallmentPlanRemainder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	svc := NewTransactionService(repo, nil, testLogger())
	u := newTestUser(t, repo)
	a := newTestAccount(t, repo, u.ID, "Tarjeta", core.AccountCredit)

	card, err := repo.CreateCreditCard(ctx, core.CreditCard{
		UserID: u.ID, AccountID: a.ID, CardName: "Oro",
		CreditLimit: core.Money{Cents: 5000000}, CutoffDay: 15, PaymentDueDay: 5,
		MinimumPaymentPercentage: 5,
	})
	if err != nil {
		t.Fatalf("CreateCreditCard() error = %v", err)
	}

	// 1000.00 over 3: 333.33 + 333.33 + 333.34 rearranged as remainder-first.
	purchase, txs, err := svc.CreateInstallmentPlan(ctx, core.InstallmentPurchase{
		UserID: u.ID, CreditCardID: card.ID, Description: "Laptop",
		TotalAmount:          core.Money{Cents: 100000},
		NumberOfInstallments: 3,
		PurchaseDate:         date(2025, time.January, 31),
	})
	if err != nil {
		t.Fatalf("CreateInstallmentPlan() error = %v", err)
	}

	if purchase.InstallmentAmount.Cents != 33333 {
		t.Errorf("InstallmentAmount = %d, want 33333", purchase.InstallmentAmount.Cents)
	}
	if len(txs) != 3 {
		t.Fatalf("len(txs) = %d, want 3", len(txs))
	}
	if txs[0].Amount.Cents != 33334 {
		t.Errorf("first charge = %d, want 33334 (carries the remainder)", txs[0].Amount.Cents)
	}
	var sum int64
	for _, tx := range txs {
		sum += tx.Amount.Cents
	}
	if sum != 100000 {
		t.Errorf("charges sum = %d, want 100000", sum)
	}

	// Jan 31 purchase: Feb charge clamps to the 28th, March recovers the 31st.
	if want := date(2025, time.February, 28); !txs[1].Date.Equal(want) {
		t.Errorf("second charge date = %s, want %s",
			txs[1].Date.Format(core.DateOnly), want.Format(core.DateOnly))
	}
	if want := date(2025, time.March, 31); !txs[2].Date.Equal(want) {
		t.Errorf("third charge date = %s, want %s",
			txs[2].Date.Format(core.DateOnly), want.Format(core.DateOnly))
	}
}

func TestTransactionService_DeleteInstallmentChargeRemovesPlan(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	svc := NewTransactionService(repo, nil, testLogger())
	u := newTestUser(t, repo)
	a := newTestAccount(t, repo, u.ID, "Tarjeta", core.AccountCredit)

	card, err := repo.CreateCreditCard(ctx, core.CreditCard{
		UserID: u.ID, AccountID: a.ID, CardName: "Oro",
		CreditLimit: core.Money{Cents: 5000000}, CutoffDay: 15, PaymentDueDay: 5,
		MinimumPaymentPercentage: 5,
	})
	if err != nil {
		t.Fatalf("CreateCreditCard() error = %v", err)
	}

	_, txs, err := svc.CreateInstallmentPlan(ctx, core.InstallmentPurchase{
		UserID: u.ID, CreditCardID: card.ID, Description: "Tele",
		TotalAmount: core.Money{Cents: 60000}, NumberOfInstallments: 2,
		PurchaseDate: date(2025, time.June, 1),
	})
	if err != nil {
		t.Fatalf("CreateInstallmentPlan() error = %v", err)
	}

	if err := svc.Delete(ctx, u.ID, txs[0].ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	for _, tx := range txs {
		if _, err := svc.Get(ctx, u.ID, tx.ID); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Get(%d) after plan delete error = %v, want ErrNotFound", tx.ID, err)
		}
	}
}

func TestTransactionService_AccountBalance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	svc := NewTransactionService(repo, nil, testLogger())
	u := newTestUser(t, repo)
	a := newTestAccount(t, repo, u.ID, "Débito", core.AccountDebit)
	b := newTestAccount(t, repo, u.ID, "Ahorro", core.AccountSavings)

	seed := []core.Transaction{
		{UserID: u.ID, AccountID: a.ID, Type: core.Income, Amount: core.Money{Cents: 200000}, Date: date(2025, time.June, 1)},
		{UserID: u.ID, AccountID: a.ID, Type: core.Expense, Amount: core.Money{Cents: 50000}, Date: date(2025, time.June, 2)},
		{UserID: u.ID, AccountID: a.ID, ToAccountID: b.ID, Type: core.Transfer, Amount: core.Money{Cents: 30000}, Date: date(2025, time.June, 3)},
	}
	for _, tx := range seed {
		if _, err := svc.Create(ctx, tx); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	balance, err := svc.AccountBalance(ctx, u.ID, a.ID)
	if err != nil {
		t.Fatalf("AccountBalance() error = %v", err)
	}
	// 500000 initial + 200000 - 50000 - 30000
	if balance.Cents != 620000 {
		t.Errorf("AccountBalance() = %d, want 620000", balance.Cents)
	}

	dest, err := svc.AccountBalance(ctx, u.ID, b.ID)
	if err != nil {
		t.Fatalf("AccountBalance() error = %v", err)
	}
	if dest.Cents != 530000 {
		t.Errorf("destination balance = %d, want 530000", dest.Cents)
	}
}
