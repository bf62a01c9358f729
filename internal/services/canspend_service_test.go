package services

import (
	"context"
	"testing"

	"monea/internal/core"
	"monea/internal/storage"
)

func newCanSpendService(repo *storage.Repository) *CanSpendService {
	transactions := NewTransactionService(repo, nil, testLogger())
	budgets := NewBudgetService(repo, testLogger())
	cards := NewCreditCardService(repo, transactions, testLogger())
	analytics := NewAnalyticsService(repo, budgets, testLogger())
	return NewCanSpendService(repo, budgets, cards, analytics, testLogger())
}

func TestCanSpendService_GoalReserveBlocks(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)
	svc := newCanSpendService(repo)
	goals := NewGoalService(repo, nil, testLogger())

	// 1000.00 liquid, all of it reserved in an open goal.
	if _, err := repo.CreateAccount(ctx, core.Account{
		UserID: u.ID, Name: "Débito", Type: core.AccountDebit,
		InitialBalance: core.Money{Cents: 100000}, Currency: core.DefaultCurrency,
	}); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	g, err := goals.Create(ctx, core.Goal{
		UserID: u.ID, Name: "Fondo de emergencia",
		TargetAmount:  core.Money{Cents: 500000},
		InitialAmount: core.Money{Cents: 100000},
	})
	if err != nil {
		t.Fatalf("Create() goal error = %v", err)
	}

	answer, err := svc.Analyze(ctx, u.ID, core.Money{Cents: 80000}, 0)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if answer.Verdict != "no" {
		t.Fatalf("verdict = %q, want no (liquid fully reserved in goals)", answer.Verdict)
	}
	if answer.MoneyInGoals.Cents != 100000 {
		t.Errorf("MoneyInGoals = %d, want 100000", answer.MoneyInGoals.Cents)
	}
	if answer.Available.Cents != 0 {
		t.Errorf("Available = %d, want 0", answer.Available.Cents)
	}
	if answer.AvailableAfter.Cents != -80000 {
		t.Errorf("AvailableAfter = %d, want -80000", answer.AvailableAfter.Cents)
	}
	if len(answer.AffectedGoals) != 1 || answer.AffectedGoals[0].Goal.ID != g.ID {
		t.Fatalf("AffectedGoals = %+v, want the reserve goal", answer.AffectedGoals)
	}
	if answer.AffectedGoals[0].PotentialImpact.Cents != 80000 {
		t.Errorf("PotentialImpact = %d, want 80000", answer.AffectedGoals[0].PotentialImpact.Cents)
	}
}

func TestCanSpendService_FreeLiquidAllows(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)
	svc := newCanSpendService(repo)

	if _, err := repo.CreateAccount(ctx, core.Account{
		UserID: u.ID, Name: "Débito", Type: core.AccountDebit,
		InitialBalance: core.Money{Cents: 100000}, Currency: core.DefaultCurrency,
	}); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	answer, err := svc.Analyze(ctx, u.ID, core.Money{Cents: 80000}, 0)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if answer.Verdict != "yes" {
		t.Fatalf("verdict = %q, want yes", answer.Verdict)
	}
	if answer.Available.Cents != 100000 {
		t.Errorf("Available = %d, want 100000", answer.Available.Cents)
	}
	if len(answer.AffectedGoals) != 0 {
		t.Errorf("AffectedGoals = %+v, want none", answer.AffectedGoals)
	}
}

func TestCanSpendService_CardPaymentCountsAsObligation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)
	svc := newCanSpendService(repo)
	transactions := NewTransactionService(repo, nil, testLogger())

	if _, err := repo.CreateAccount(ctx, core.Account{
		UserID: u.ID, Name: "Débito", Type: core.AccountDebit,
		InitialBalance: core.Money{Cents: 100000}, Currency: core.DefaultCurrency,
	}); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	cardAccount, err := repo.CreateAccount(ctx, core.Account{
		UserID: u.ID, Name: "Tarjeta", Type: core.AccountCredit,
		Currency: core.DefaultCurrency,
	})
	if err != nil {
		t.Fatalf("CreateAccount() card error = %v", err)
	}

	// Cutoff just passed and payment comes due within the horizon, so the
	// charge below lands on the closed statement.
	now := today()
	cutoffDay := now.AddDate(0, 0, -2).Day()
	dueDay := now.AddDate(0, 0, 10).Day()
	if cutoffDay > 28 || dueDay > 28 || dueDay <= cutoffDay {
		t.Skip("calendar position makes cutoff/due days ambiguous")
	}
	if _, err := repo.CreateCreditCard(ctx, core.CreditCard{
		UserID: u.ID, AccountID: cardAccount.ID, CardName: "Oro", LastFourDigits: "4421",
		CreditLimit: core.Money{Cents: 500000}, MinimumPaymentPercentage: 5,
		CutoffDay: cutoffDay, PaymentDueDay: dueDay, IsActive: true,
	}); err != nil {
		t.Fatalf("CreateCreditCard() error = %v", err)
	}
	if _, err := transactions.Create(ctx, core.Transaction{
		UserID: u.ID, AccountID: cardAccount.ID, Type: core.Expense,
		Amount: core.Money{Cents: 60000}, Date: now.AddDate(0, 0, -5),
	}); err != nil {
		t.Fatalf("Create() charge error = %v", err)
	}

	answer, err := svc.Analyze(ctx, u.ID, core.Money{Cents: 80000}, 0)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if answer.UpcomingObligations.Cents != 60000 {
		t.Fatalf("UpcomingObligations = %d, want 60000", answer.UpcomingObligations.Cents)
	}
	// 1000.00 liquid minus the 600.00 statement leaves 400.00: not enough.
	if answer.Verdict != "no" {
		t.Errorf("verdict = %q, want no", answer.Verdict)
	}
}
