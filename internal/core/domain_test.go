package core

import (
	"errors"
	"testing"
	"time"
)

func TestTransaction_Validate(t *testing.T) {
	base := Transaction{
		AccountID: 1,
		Type:      Expense,
		Amount:    Money{Cents: 5000},
		Date:      date(2025, time.May, 1),
	}

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{"valid expense", func(tx *Transaction) {}, nil},
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -100} }, ErrInvalidAmount},
		{"transfer without destination", func(tx *Transaction) {
			tx.Type = Transfer
			tx.ToAccountID = 0
		}, ErrMissingToAccount},
		{"transfer to same account", func(tx *Transaction) {
			tx.Type = Transfer
			tx.ToAccountID = tx.AccountID
		}, ErrSameAccount},
		{"splits sum mismatch", func(tx *Transaction) {
			tx.Splits = []TransactionSplit{
				{CategoryID: 1, Amount: Money{Cents: 3000}},
				{CategoryID: 2, Amount: Money{Cents: 1999}},
			}
		}, ErrSplitMismatch},
		{"splits sum exact", func(tx *Transaction) {
			tx.Splits = []TransactionSplit{
				{CategoryID: 1, Amount: Money{Cents: 3000}},
				{CategoryID: 2, Amount: Money{Cents: 2000}},
			}
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := base
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBudget_Validate(t *testing.T) {
	tests := []struct {
		name    string
		budget  Budget
		wantErr bool
	}{
		{
			name: "valid category budget",
			budget: Budget{
				Name: "Food", Type: BudgetCategory, CategoryID: 3,
				LimitAmount: Money{Cents: 500000}, Period: PeriodMonthly,
			},
		},
		{
			name: "category budget without category",
			budget: Budget{
				Name: "Food", Type: BudgetCategory,
				LimitAmount: Money{Cents: 500000}, Period: PeriodMonthly,
			},
			wantErr: true,
		},
		{
			name: "tag budget without tag",
			budget: Budget{
				Name: "Trips", Type: BudgetTag,
				LimitAmount: Money{Cents: 500000}, Period: PeriodMonthly,
			},
			wantErr: true,
		},
		{
			name: "global budget needs no filter",
			budget: Budget{
				Name: "Everything", Type: BudgetGlobal,
				LimitAmount: Money{Cents: 2000000}, Period: PeriodMonthly,
			},
		},
		{
			name: "invalid period",
			budget: Budget{
				Name: "Food", Type: BudgetGlobal,
				LimitAmount: Money{Cents: 500000}, Period: "daily",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.budget.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreditCard_Validate(t *testing.T) {
	card := CreditCard{
		CardName: "BBVA Azul", CreditLimit: Money{Cents: 5000000},
		CutoffDay: 15, PaymentDueDay: 5, MinimumPaymentPercentage: 5,
	}
	if err := card.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	card.CutoffDay = 29
	if err := card.Validate(); err == nil {
		t.Error("expected error for cutoff day past 28")
	}

	card.CutoffDay = 15
	card.MinimumPaymentPercentage = 0
	if err := card.Validate(); err == nil {
		t.Error("expected error for zero minimum payment percentage")
	}
}

func TestRecurringTransaction_Validate(t *testing.T) {
	rec := RecurringTransaction{
		Name: "Rent", Type: Expense, Amount: Money{Cents: 1200000},
		Frequency: Monthly, DayOfMonth: 1,
		StartDate: date(2025, time.January, 1),
	}
	if err := rec.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	rec.Frequency = Custom
	if err := rec.Validate(); err == nil {
		t.Error("custom frequency without custom_frequency_days should fail")
	}
	rec.CustomFrequencyDays = 10
	if err := rec.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	rec.Type = Transfer
	if err := rec.Validate(); err == nil {
		t.Error("transfer recurrences should be rejected")
	}
}

func TestGoal_Validate(t *testing.T) {
	goal := Goal{Name: "Emergency fund", TargetAmount: Money{Cents: 10000000}}
	if err := goal.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	goal.InitialAmount = Money{Cents: 20000000}
	if err := goal.Validate(); err == nil {
		t.Error("initial above target should fail")
	}
}

func TestAccountType_Helpers(t *testing.T) {
	if !AccountSavings.Liquid() {
		t.Error("savings should be liquid")
	}
	if AccountCredit.Liquid() {
		t.Error("credit should not be liquid")
	}
	if !AccountLoan.Liability() {
		t.Error("loan should be a liability")
	}
	if AccountCash.Liability() {
		t.Error("cash should not be a liability")
	}
}
