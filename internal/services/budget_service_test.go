package services

import (
	"testing"
	"time"

	"monea/internal/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodWindow(t *testing.T) {
	tests := []struct {
		name     string
		period   core.BudgetPeriod
		startDay int
		ref      time.Time
		start    time.Time
		end      time.Time
	}{
		{
			name: "weekly mid-week", period: core.PeriodWeekly,
			ref:   date(2025, time.June, 11), // Wednesday
			start: date(2025, time.June, 9), end: date(2025, time.June, 15),
		},
		{
			name: "weekly on monday", period: core.PeriodWeekly,
			ref:   date(2025, time.June, 9),
			start: date(2025, time.June, 9), end: date(2025, time.June, 15),
		},
		{
			name: "biweekly first half", period: core.PeriodBiweekly,
			ref:   date(2025, time.June, 10),
			start: date(2025, time.June, 1), end: date(2025, time.June, 15),
		},
		{
			name: "biweekly second half", period: core.PeriodBiweekly,
			ref:   date(2025, time.June, 20),
			start: date(2025, time.June, 16), end: date(2025, time.June, 30),
		},
		{
			name: "monthly from the 1st", period: core.PeriodMonthly, startDay: 1,
			ref:   date(2025, time.June, 20),
			start: date(2025, time.June, 1), end: date(2025, time.June, 30),
		},
		{
			name: "monthly anchored at 15, ref after", period: core.PeriodMonthly, startDay: 15,
			ref:   date(2025, time.June, 20),
			start: date(2025, time.June, 15), end: date(2025, time.July, 14),
		},
		{
			name: "monthly anchored at 15, ref before", period: core.PeriodMonthly, startDay: 15,
			ref:   date(2025, time.June, 10),
			start: date(2025, time.May, 15), end: date(2025, time.June, 14),
		},
		{
			name: "monthly anchored at 31 clamps february", period: core.PeriodMonthly, startDay: 31,
			ref:   date(2025, time.February, 10),
			start: date(2025, time.January, 31), end: date(2025, time.February, 27),
		},
		{
			name: "annual", period: core.PeriodAnnual, startDay: 1,
			ref:   date(2025, time.June, 20),
			start: date(2025, time.January, 1), end: date(2025, time.December, 31),
		},
		{
			name: "annual ref before anchor", period: core.PeriodAnnual, startDay: 15,
			ref:   date(2025, time.January, 5),
			start: date(2024, time.January, 15), end: date(2025, time.January, 14),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := PeriodWindow(tt.period, tt.startDay, tt.ref)
			if !start.Equal(tt.start) || !end.Equal(tt.end) {
				t.Errorf("PeriodWindow() = [%s, %s], want [%s, %s]",
					start.Format(core.DateOnly), end.Format(core.DateOnly),
					tt.start.Format(core.DateOnly), tt.end.Format(core.DateOnly))
			}
		})
	}
}

func TestBudgetStatus(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{0, "safe"},
		{70, "safe"},
		{70.1, "warning"},
		{90, "warning"},
		{95, "critical"},
		{100, "critical"},
		{100.1, "exceeded"},
	}
	for _, tt := range tests {
		if got := budgetStatus(tt.pct); got != tt.want {
			t.Errorf("budgetStatus(%.1f) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}
