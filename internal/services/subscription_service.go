package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"monea/internal/core"
	"monea/internal/log"
	"monea/internal/storage"
)

type SubscriptionService struct {
	repo   *storage.Repository
	logger *log.Logger
}

func NewSubscriptionService(repo *storage.Repository, logger *log.Logger) *SubscriptionService {
	return &SubscriptionService{repo: repo, logger: logger.WithComponent(log.ComponentRecurring)}
}

func (s *SubscriptionService) Create(ctx context.Context, sub core.Subscription) (core.Subscription, error) {
	if sub.Currency == "" {
		sub.Currency = core.DefaultCurrency
	}
	if sub.Frequency == "" {
		sub.Frequency = core.Monthly
	}
	if err := sub.Amount.Validate(); err != nil {
		return core.Subscription{}, err
	}
	if !sub.Frequency.Valid() || sub.Frequency == core.Custom {
		return core.Subscription{}, core.ErrInvalidFrequency
	}
	if sub.NextBillingDate.IsZero() && sub.BillingDay > 0 {
		sub.NextBillingDate = core.NextOccurrence(sub.BillingDay, today())
	}
	return s.repo.CreateSubscription(ctx, sub)
}

func (s *SubscriptionService) Get(ctx context.Context, userID, id int64) (core.Subscription, error) {
	return s.repo.GetSubscription(ctx, userID, id)
}

func (s *SubscriptionService) List(ctx context.Context, userID int64, activeOnly bool) ([]core.Subscription, error) {
	return s.repo.ListSubscriptions(ctx, userID, activeOnly)
}

func (s *SubscriptionService) Update(ctx context.Context, sub core.Subscription) (core.Subscription, error) {
	if err := sub.Amount.Validate(); err != nil {
		return core.Subscription{}, err
	}
	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return core.Subscription{}, err
	}
	return s.repo.GetSubscription(ctx, sub.UserID, sub.ID)
}

func (s *SubscriptionService) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteSubscription(ctx, userID, id)
}

// SubscriptionSummary totals recurring service costs on a monthly basis.
type SubscriptionSummary struct {
	ActiveCount       int                 `json:"active_count"`
	MonthlyEquivalent core.Money          `json:"monthly_equivalent"`
	AnnualEquivalent  core.Money          `json:"annual_equivalent"`
	Subscriptions     []core.Subscription `json:"subscriptions"`
	NextBilling       time.Time           `json:"next_billing,omitzero"` // earliest upcoming charge, zero when none
}

// Summary normalizes every active subscription to its monthly cost.
func (s *SubscriptionService) Summary(ctx context.Context, userID int64) (SubscriptionSummary, error) {
	subs, err := s.repo.ListSubscriptions(ctx, userID, true)
	if err != nil {
		return SubscriptionSummary{}, err
	}

	summary := SubscriptionSummary{Subscriptions: subs, ActiveCount: len(subs)}
	for _, sub := range subs {
		summary.MonthlyEquivalent = summary.MonthlyEquivalent.Add(MonthlyEquivalent(sub.Amount, sub.Frequency))
		if !sub.NextBillingDate.IsZero() &&
			(summary.NextBilling.IsZero() || sub.NextBillingDate.Before(summary.NextBilling)) {
			summary.NextBilling = sub.NextBillingDate
		}
	}
	summary.AnnualEquivalent = core.Money{Cents: summary.MonthlyEquivalent.Cents * 12}
	return summary, nil
}

// MonthlyEquivalent converts a billing amount at a frequency to its monthly
// cost. Weekly frequencies use the average weeks per month (52/12).
func MonthlyEquivalent(amount core.Money, frequency core.RecurrenceFrequency) core.Money {
	switch frequency {
	case core.Daily:
		return core.Money{Cents: amount.Cents * 365 / 12}
	case core.Weekly:
		return core.Money{Cents: amount.Cents * 52 / 12}
	case core.Biweekly:
		return core.Money{Cents: amount.Cents * 26 / 12}
	case core.Monthly:
		return amount
	case core.Bimonthly:
		return core.Money{Cents: amount.Cents / 2}
	case core.Quarterly:
		return core.Money{Cents: amount.Cents / 3}
	case core.Semiannual:
		return core.Money{Cents: amount.Cents / 6}
	case core.Annual:
		return core.Money{Cents: amount.Cents / 12}
	}
	return amount
}

// Detection thresholds: a pattern needs at least three same-merchant charges
// whose amounts stay within 10% of each other and whose gaps stay within
// three days of the average interval.
const (
	detectMinCharges    = 3
	detectAmountSpread  = 0.10
	detectIntervalDrift = 3
)

// DetectFromHistory scans recent expense history for merchant charge patterns
// that look like subscriptions and records each new one, marked as detected.
// Returns the number created.
func (s *SubscriptionService) DetectFromHistory(ctx context.Context, userID int64, months int) (int, error) {
	if months <= 0 {
		months = 3
	}
	txs, err := s.repo.ListTransactions(ctx, userID, storage.TransactionFilter{
		Type: core.Expense,
		From: today().AddDate(0, -months, 0),
	})
	if err != nil {
		return 0, err
	}

	groups := make(map[string][]core.Transaction)
	for _, t := range txs {
		key := merchantKey(t)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], t)
	}

	existing, err := s.repo.ListSubscriptions(ctx, userID, false)
	if err != nil {
		return 0, err
	}
	known := make(map[string]bool, len(existing))
	for _, sub := range existing {
		known[strings.ToLower(strings.TrimSpace(sub.Name))] = true
	}

	created := 0
	for key, charges := range groups {
		if len(charges) < detectMinCharges || known[key] {
			continue
		}
		candidate, ok := subscriptionPattern(charges)
		if !ok {
			continue
		}
		candidate.UserID = userID
		if _, err := s.repo.CreateSubscription(ctx, candidate); err != nil {
			return created, err
		}
		created++
	}
	if created > 0 {
		s.logger.InfoContext(ctx, "Subscriptions detected from transaction history",
			log.FieldUserID, userID, "created", created, "months", months)
	}
	return created, nil
}

// merchantKey groups transactions by merchant, falling back to notes.
func merchantKey(t core.Transaction) string {
	if m := strings.TrimSpace(t.Merchant); m != "" {
		return strings.ToLower(m)
	}
	return strings.ToLower(strings.TrimSpace(t.Notes))
}

// subscriptionPattern decides whether a merchant's charges form a steady
// cadence and, if so, builds the subscription to record.
func subscriptionPattern(charges []core.Transaction) (core.Subscription, bool) {
	sort.Slice(charges, func(i, j int) bool { return charges[i].Date.Before(charges[j].Date) })

	var minAmount, maxAmount int64 = charges[0].Amount.Cents, charges[0].Amount.Cents
	for _, c := range charges[1:] {
		minAmount = min(minAmount, c.Amount.Cents)
		maxAmount = max(maxAmount, c.Amount.Cents)
	}
	if minAmount <= 0 || float64(maxAmount-minAmount) > float64(minAmount)*detectAmountSpread {
		return core.Subscription{}, false
	}

	totalDays := 0
	for i := 1; i < len(charges); i++ {
		totalDays += daysUntil(charges[i-1].Date, charges[i].Date)
	}
	avgInterval := totalDays / (len(charges) - 1)
	frequency, ok := frequencyForInterval(avgInterval)
	if !ok {
		return core.Subscription{}, false
	}
	for i := 1; i < len(charges); i++ {
		gap := daysUntil(charges[i-1].Date, charges[i].Date)
		if gap < avgInterval-detectIntervalDrift || gap > avgInterval+detectIntervalDrift {
			return core.Subscription{}, false
		}
	}

	last := charges[len(charges)-1]
	name := strings.TrimSpace(last.Merchant)
	if name == "" {
		name = strings.TrimSpace(last.Notes)
	}
	return core.Subscription{
		Name:            name,
		Amount:          last.Amount,
		Currency:        last.Currency,
		Frequency:       frequency,
		BillingDay:      billingDayFor(frequency, last.Date),
		CategoryID:      last.CategoryID,
		AccountID:       last.AccountID,
		NextBillingDate: last.Date.AddDate(0, 0, avgInterval),
		IsActive:        true,
		IsDetected:      true,
	}, true
}

// frequencyForInterval maps an average gap in days onto a billing frequency.
// Bands follow the cadences a card statement actually produces.
func frequencyForInterval(days int) (core.RecurrenceFrequency, bool) {
	switch {
	case days >= 5 && days <= 9:
		return core.Weekly, true
	case days >= 12 && days <= 16:
		return core.Biweekly, true
	case days >= 25 && days <= 35:
		return core.Monthly, true
	case days >= 350 && days <= 380:
		return core.Annual, true
	}
	return "", false
}

func billingDayFor(frequency core.RecurrenceFrequency, lastCharge time.Time) int {
	switch frequency {
	case core.Monthly, core.Annual:
		if d := lastCharge.Day(); d <= 28 {
			return d
		}
	}
	return 0
}
