package services

import (
	"context"
	"testing"
	"time"

	"monea/internal/core"
)

func TestMonthlyEquivalent(t *testing.T) {
	tests := []struct {
		frequency core.RecurrenceFrequency
		amount    int64
		want      int64
	}{
		{core.Monthly, 19900, 19900},
		{core.Annual, 120000, 10000},
		{core.Semiannual, 60000, 10000},
		{core.Quarterly, 30000, 10000},
		{core.Bimonthly, 20000, 10000},
		{core.Weekly, 12000, 52000},  // 12000 * 52 / 12
		{core.Biweekly, 12000, 26000},
		{core.Daily, 1200, 36500},
	}
	for _, tt := range tests {
		got := MonthlyEquivalent(core.Money{Cents: tt.amount}, tt.frequency)
		if got.Cents != tt.want {
			t.Errorf("MonthlyEquivalent(%d, %s) = %d, want %d",
				tt.amount, tt.frequency, got.Cents, tt.want)
		}
	}
}

func createMerchantExpense(t *testing.T, svc *TransactionService, userID, accountID int64, merchant string, cents int64, date time.Time) {
	t.Helper()
	_, err := svc.Create(context.Background(), core.Transaction{
		UserID: userID, AccountID: accountID, Type: core.Expense,
		Amount: core.Money{Cents: cents}, Date: date, Merchant: merchant,
	})
	if err != nil {
		t.Fatalf("Create() expense error = %v", err)
	}
}

func TestSubscriptionService_DetectFromHistory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)
	a := newTestAccount(t, repo, u.ID, "Débito", core.AccountDebit)
	transactions := NewTransactionService(repo, nil, testLogger())
	svc := NewSubscriptionService(repo, testLogger())

	// Three Netflix charges a month apart at a steady amount.
	now := today()
	for _, daysAgo := range []int{65, 35, 5} {
		createMerchantExpense(t, transactions, u.ID, a.ID, "Netflix", 19900, now.AddDate(0, 0, -daysAgo))
	}
	// Same-merchant charges at a wildly varying amount must not match.
	createMerchantExpense(t, transactions, u.ID, a.ID, "Uber", 8500, now.AddDate(0, 0, -60))
	createMerchantExpense(t, transactions, u.ID, a.ID, "Uber", 31000, now.AddDate(0, 0, -30))
	createMerchantExpense(t, transactions, u.ID, a.ID, "Uber", 4200, now.AddDate(0, 0, -2))

	created, err := svc.DetectFromHistory(ctx, u.ID, 3)
	if err != nil {
		t.Fatalf("DetectFromHistory() error = %v", err)
	}
	if created != 1 {
		t.Fatalf("DetectFromHistory() created = %d, want 1", created)
	}

	subs, err := svc.List(ctx, u.ID, true)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("len(subs) = %d, want 1", len(subs))
	}
	sub := subs[0]
	if sub.Name != "Netflix" {
		t.Errorf("Name = %q, want Netflix", sub.Name)
	}
	if sub.Frequency != core.Monthly {
		t.Errorf("Frequency = %s, want monthly", sub.Frequency)
	}
	if sub.Amount.Cents != 19900 {
		t.Errorf("Amount = %d, want 19900", sub.Amount.Cents)
	}
	if !sub.IsDetected {
		t.Error("IsDetected = false, want true")
	}

	// A second scan finds the same pattern but the name is already known.
	created, err = svc.DetectFromHistory(ctx, u.ID, 3)
	if err != nil {
		t.Fatalf("DetectFromHistory() second run error = %v", err)
	}
	if created != 0 {
		t.Errorf("second run created = %d, want 0", created)
	}
}

func TestSubscriptionService_DetectSkipsIrregularCadence(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)
	a := newTestAccount(t, repo, u.ID, "Débito", core.AccountDebit)
	transactions := NewTransactionService(repo, nil, testLogger())
	svc := NewSubscriptionService(repo, testLogger())

	// Steady amount but the gaps (50 and 10 days) fit no billing cadence.
	now := today()
	for _, daysAgo := range []int{62, 12, 2} {
		createMerchantExpense(t, transactions, u.ID, a.ID, "Gasolinera", 50000, now.AddDate(0, 0, -daysAgo))
	}

	created, err := svc.DetectFromHistory(ctx, u.ID, 3)
	if err != nil {
		t.Fatalf("DetectFromHistory() error = %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0 for irregular gaps", created)
	}
}
