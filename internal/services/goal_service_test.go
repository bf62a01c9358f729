package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"monea/internal/core"
)

func TestGoalService_ContributeCompletesGoal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	svc := NewGoalService(repo, nil, testLogger())
	u := newTestUser(t, repo)

	g, err := svc.Create(ctx, core.Goal{
		UserID: u.ID, Name: "Vacaciones",
		TargetAmount:  core.Money{Cents: 100000},
		InitialAmount: core.Money{Cents: 40000},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if g.CurrentAmount.Cents != 40000 {
		t.Fatalf("CurrentAmount = %d, want initial 40000", g.CurrentAmount.Cents)
	}

	g, err = svc.Contribute(ctx, u.ID, g.ID, core.Money{Cents: 60000}, date(2025, time.June, 1), "", false)
	if err != nil {
		t.Fatalf("Contribute() error = %v", err)
	}
	if !g.IsCompleted {
		t.Error("goal should be completed at target")
	}

	_, err = svc.Contribute(ctx, u.ID, g.ID, core.Money{Cents: 1000}, time.Time{}, "", false)
	if !errors.Is(err, core.ErrGoalCompleted) {
		t.Errorf("Contribute() on completed goal error = %v, want ErrGoalCompleted", err)
	}
}

func TestGoalService_CompletionCreatesAlert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)

	transactions := NewTransactionService(repo, nil, testLogger())
	budgets := NewBudgetService(repo, testLogger())
	cards := NewCreditCardService(repo, transactions, testLogger())
	alerts := NewAlertService(repo, budgets, cards, testLogger())
	svc := NewGoalService(repo, alerts, testLogger())

	g, err := svc.Create(ctx, core.Goal{
		UserID: u.ID, Name: "Enganche",
		TargetAmount: core.Money{Cents: 50000},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Partial contribution does not alert.
	if _, err := svc.Contribute(ctx, u.ID, g.ID, core.Money{Cents: 20000}, date(2025, time.June, 1), "", false); err != nil {
		t.Fatalf("Contribute() error = %v", err)
	}
	list, err := repo.ListAlerts(ctx, u.ID, false, 10)
	if err != nil {
		t.Fatalf("ListAlerts() error = %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("alerts after partial contribution = %d, want 0", len(list))
	}

	// Crossing the target emits a completion alert.
	if _, err := svc.Contribute(ctx, u.ID, g.ID, core.Money{Cents: 30000}, date(2025, time.June, 2), "", false); err != nil {
		t.Fatalf("Contribute() error = %v", err)
	}
	list, err = repo.ListAlerts(ctx, u.ID, false, 10)
	if err != nil {
		t.Fatalf("ListAlerts() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("alerts after completion = %d, want 1", len(list))
	}
	if list[0].Type != core.AlertGoalCompleted {
		t.Errorf("alert type = %q, want %q", list[0].Type, core.AlertGoalCompleted)
	}
	if list[0].GoalID != g.ID {
		t.Errorf("alert goal id = %d, want %d", list[0].GoalID, g.ID)
	}
}

func TestGoalService_WithdrawLimits(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	svc := NewGoalService(repo, nil, testLogger())
	u := newTestUser(t, repo)

	g, err := svc.Create(ctx, core.Goal{
		UserID: u.ID, Name: "Fondo de emergencia",
		TargetAmount:  core.Money{Cents: 500000},
		InitialAmount: core.Money{Cents: 100000},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = svc.Withdraw(ctx, u.ID, g.ID, core.Money{Cents: 200000}, time.Time{}, "")
	if !errors.Is(err, core.ErrGoalOverdraw) {
		t.Errorf("Withdraw() over balance error = %v, want ErrGoalOverdraw", err)
	}

	g, err = svc.Withdraw(ctx, u.ID, g.ID, core.Money{Cents: 30000}, date(2025, time.June, 2), "imprevisto")
	if err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	if g.CurrentAmount.Cents != 70000 {
		t.Errorf("CurrentAmount after withdrawal = %d, want 70000", g.CurrentAmount.Cents)
	}
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		from, to time.Time
		want     int
	}{
		{date(2025, time.January, 15), date(2025, time.June, 15), 5},
		{date(2025, time.January, 15), date(2025, time.June, 10), 4},
		{date(2025, time.June, 1), date(2025, time.June, 20), 0},
		{date(2025, time.June, 1), date(2026, time.June, 1), 12},
	}
	for _, tt := range tests {
		if got := monthsBetween(tt.from, tt.to); got != tt.want {
			t.Errorf("monthsBetween(%s, %s) = %d, want %d",
				tt.from.Format(core.DateOnly), tt.to.Format(core.DateOnly), got, tt.want)
		}
	}
}
