package core

import (
	"math"
	"time"
)

// DateOnly is the canonical wire and storage format for calendar dates.
const DateOnly = "2006-01-02"

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay resolves a target day within a month, clamping to the last day of
// short months (the 31st in February resolves to the 28th or 29th).
func ClampDay(year int, month time.Month, day int) time.Time {
	last := LastDayOfMonth(year, month)
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NextOccurrence returns the next date on or after ref with the given day of
// month. Used for credit-card cutoff and payment-due scheduling.
func NextOccurrence(dayOfMonth int, ref time.Time) time.Time {
	candidate := ClampDay(ref.Year(), ref.Month(), dayOfMonth)
	if !candidate.After(truncateToDay(ref)) {
		next := ref.AddDate(0, 1, 0)
		candidate = ClampDay(next.Year(), next.Month(), dayOfMonth)
	}
	return candidate
}

// ClosedPeriod returns the most recently closed billing period for a cutoff
// day: the window (start, cutoff] whose statement is currently awaiting
// payment. If today is past this month's cutoff the period ends at this
// month's cutoff; otherwise it ends at last month's.
func ClosedPeriod(cutoffDay int, ref time.Time) (start, cutoff time.Time) {
	day := truncateToDay(ref)
	thisCutoff := ClampDay(ref.Year(), ref.Month(), cutoffDay)
	if day.After(thisCutoff) {
		cutoff = thisCutoff
	} else {
		prev := ref.AddDate(0, -1, 0)
		cutoff = ClampDay(prev.Year(), prev.Month(), cutoffDay)
	}
	prev := cutoff.AddDate(0, -1, 0)
	start = ClampDay(prev.Year(), prev.Month(), cutoffDay).AddDate(0, 0, 1)
	return start, cutoff
}

// AccountBalance applies the balance identity:
// initial + incomes - expenses + transfers in - transfers out.
func AccountBalance(initial, incomes, expenses, transfersIn, transfersOut Money) Money {
	return Money{Cents: initial.Cents + incomes.Cents - expenses.Cents + transfersIn.Cents - transfersOut.Cents}
}

// NetWorth is assets minus liabilities.
func NetWorth(assets, liabilities Money) Money {
	return Money{Cents: assets.Cents - liabilities.Cents}
}

// CreditAvailable computes remaining credit on a card:
// limit - statement balance - post-cutoff charges - outstanding installment debt.
func CreditAvailable(limit, balanceAtCutoff, postCutoff, installmentDebt Money) Money {
	return Money{Cents: limit.Cents - balanceAtCutoff.Cents - postCutoff.Cents - installmentDebt.Cents}
}

// MinimumPayment computes the card's minimum payment from the statement
// balance, rounded half-up to the cent.
func MinimumPayment(balance Money, percentage float64) Money {
	if balance.Cents <= 0 {
		return Money{}
	}
	return Money{Cents: int64(math.Round(float64(balance.Cents) * percentage / 100.0))}
}

// MonthlyInterest computes one month of interest on a balance at an annual
// percentage rate.
func MonthlyInterest(balance Money, annualRate float64) Money {
	if balance.Cents <= 0 || annualRate <= 0 {
		return Money{}
	}
	return Money{Cents: int64(math.Round(float64(balance.Cents) * annualRate / 12.0 / 100.0))}
}

// Progress returns part/whole as a percentage; zero when the whole is zero.
func Progress(part, whole Money) float64 {
	return part.PercentOf(whole)
}

// ProjectCompletionMonths estimates months needed to reach target from
// current at the given monthly contribution. Returns 0 when already reached
// and -1 when no estimate is possible.
func ProjectCompletionMonths(current, target, monthlyContribution Money) int {
	if monthlyContribution.Cents <= 0 {
		return -1
	}
	remaining := target.Cents - current.Cents
	if remaining <= 0 {
		return 0
	}
	months := float64(remaining) / float64(monthlyContribution.Cents)
	return int(math.Ceil(months))
}

// InvestmentReturn computes absolute gain and percentage gain for a position.
func InvestmentReturn(purchasePrice, currentPrice Money, quantity float64) (Money, float64) {
	costBasis := float64(purchasePrice.Cents) * quantity
	marketValue := float64(currentPrice.Cents) * quantity
	gain := Money{Cents: int64(math.Round(marketValue - costBasis))}
	if costBasis == 0 {
		return gain, 0
	}
	return gain, (marketValue - costBasis) / costBasis * 100.0
}

// EstimateDepletionDate projects when a budget will run out at the current
// daily spend rate. The boolean is false when no estimate is possible.
func EstimateDepletionDate(spent, limit Money, daysElapsed int, now time.Time) (time.Time, bool) {
	if daysElapsed <= 0 || spent.Cents <= 0 {
		return time.Time{}, false
	}
	dailyAverage := float64(spent.Cents) / float64(daysElapsed)
	remaining := float64(limit.Cents - spent.Cents)
	if remaining <= 0 {
		return truncateToDay(now), true
	}
	days := int(remaining / dailyAverage)
	return truncateToDay(now).AddDate(0, 0, days), true
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
