package services

import (
	"context"
	"testing"
	"time"

	"monea/internal/core"
)

func TestNextDueDate(t *testing.T) {
	tests := []struct {
		name string
		rec  core.RecurringTransaction
		want time.Time
	}{
		{
			name: "never materialized starts at start date",
			rec: core.RecurringTransaction{
				Frequency: core.Weekly,
				StartDate: date(2025, time.June, 2),
			},
			want: date(2025, time.June, 2),
		},
		{
			name: "never materialized with day of month after start",
			rec: core.RecurringTransaction{
				Frequency:  core.Monthly,
				DayOfMonth: 15,
				StartDate:  date(2025, time.June, 1),
			},
			want: date(2025, time.June, 15),
		},
		{
			name: "never materialized with day of month before start rolls forward",
			rec: core.RecurringTransaction{
				Frequency:  core.Monthly,
				DayOfMonth: 5,
				StartDate:  date(2025, time.June, 10),
			},
			want: date(2025, time.July, 5),
		},
		{
			name: "monthly steps one month",
			rec: core.RecurringTransaction{
				Frequency:       core.Monthly,
				DayOfMonth:      31,
				StartDate:       date(2025, time.January, 31),
				LastCreatedDate: date(2025, time.January, 31),
			},
			want: date(2025, time.February, 28),
		},
		{
			name: "clamped month recovers the anchor day",
			rec: core.RecurringTransaction{
				Frequency:       core.Monthly,
				DayOfMonth:      31,
				StartDate:       date(2025, time.January, 31),
				LastCreatedDate: date(2025, time.February, 28),
			},
			want: date(2025, time.March, 31),
		},
		{
			name: "biweekly steps 14 days",
			rec: core.RecurringTransaction{
				Frequency:       core.Biweekly,
				StartDate:       date(2025, time.June, 1),
				LastCreatedDate: date(2025, time.June, 1),
			},
			want: date(2025, time.June, 15),
		},
		{
			name: "custom steps configured days",
			rec: core.RecurringTransaction{
				Frequency:           core.Custom,
				CustomFrequencyDays: 10,
				StartDate:           date(2025, time.June, 1),
				LastCreatedDate:     date(2025, time.June, 1),
			},
			want: date(2025, time.June, 11),
		},
		{
			name: "quarterly steps three months",
			rec: core.RecurringTransaction{
				Frequency:       core.Quarterly,
				DayOfMonth:      1,
				StartDate:       date(2025, time.January, 1),
				LastCreatedDate: date(2025, time.January, 1),
			},
			want: date(2025, time.April, 1),
		},
		{
			name: "exhausted schedule returns zero",
			rec: core.RecurringTransaction{
				Frequency:       core.Monthly,
				DayOfMonth:      1,
				StartDate:       date(2025, time.January, 1),
				EndDate:         date(2025, time.March, 1),
				LastCreatedDate: date(2025, time.March, 1),
			},
			want: time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDueDate(tt.rec)
			if !got.Equal(tt.want) {
				t.Errorf("NextDueDate() = %s, want %s",
					got.Format(core.DateOnly), tt.want.Format(core.DateOnly))
			}
		})
	}
}

func TestMaterializeDueDeactivatesExhausted(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := newTestUser(t, repo)
	a := newTestAccount(t, repo, u.ID, "Débito", core.AccountDebit)
	transactions := NewTransactionService(repo, nil, testLogger())
	svc := NewRecurringService(repo, transactions, testLogger())

	rec, err := repo.CreateRecurring(ctx, core.RecurringTransaction{
		UserID: u.ID, AccountID: a.ID, Name: "Gimnasio", Type: core.Expense,
		Amount: core.Money{Cents: 45000}, Frequency: core.Monthly,
		DayOfMonth: 1, AutoCreate: true,
		StartDate: date(2026, time.January, 1),
		EndDate:   date(2026, time.March, 1),
	})
	if err != nil {
		t.Fatalf("CreateRecurring() error = %v", err)
	}

	created, err := svc.MaterializeDue(ctx, date(2026, time.June, 1))
	if err != nil {
		t.Fatalf("MaterializeDue() error = %v", err)
	}
	if created != 3 {
		t.Fatalf("created = %d, want 3 occurrences through the end date", created)
	}

	// Past its end date the schedule is switched off, not removed.
	active, err := repo.ListRecurring(ctx, u.ID, true)
	if err != nil {
		t.Fatalf("ListRecurring() error = %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active schedules = %d, want 0", len(active))
	}
	got, err := repo.GetRecurring(ctx, u.ID, rec.ID)
	if err != nil {
		t.Fatalf("GetRecurring() error = %v", err)
	}
	if got.IsActive {
		t.Error("IsActive = true, want false after exhaustion")
	}

	// A second pass has nothing left to do.
	created, err = svc.MaterializeDue(ctx, date(2026, time.June, 1))
	if err != nil {
		t.Fatalf("MaterializeDue() second run error = %v", err)
	}
	if created != 0 {
		t.Errorf("second run created = %d, want 0", created)
	}
}

func TestSortUpcoming(t *testing.T) {
	occ := []UpcomingOccurrence{
		{DueDate: date(2025, time.June, 20)},
		{DueDate: date(2025, time.June, 5)},
		{DueDate: date(2025, time.June, 12)},
	}
	sortUpcoming(occ)
	if !occ[0].DueDate.Equal(date(2025, time.June, 5)) ||
		!occ[2].DueDate.Equal(date(2025, time.June, 20)) {
		t.Errorf("sortUpcoming() order = %v", occ)
	}
}
