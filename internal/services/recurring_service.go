package services

import (
	"context"
	"time"

	"monea/internal/core"
	"monea/internal/log"
	"monea/internal/storage"
)

type RecurringService struct {
	repo         *storage.Repository
	transactions *TransactionService
	logger       *log.Logger
}

func NewRecurringService(repo *storage.Repository, transactions *TransactionService, logger *log.Logger) *RecurringService {
	return &RecurringService{
		repo:         repo,
		transactions: transactions,
		logger:       logger.WithComponent(log.ComponentRecurring),
	}
}

func (s *RecurringService) Create(ctx context.Context, rec core.RecurringTransaction) (core.RecurringTransaction, error) {
	if err := rec.Validate(); err != nil {
		return core.RecurringTransaction{}, err
	}
	return s.repo.CreateRecurring(ctx, rec)
}

func (s *RecurringService) Get(ctx context.Context, userID, id int64) (core.RecurringTransaction, error) {
	return s.repo.GetRecurring(ctx, userID, id)
}

func (s *RecurringService) List(ctx context.Context, userID int64, activeOnly bool) ([]core.RecurringTransaction, error) {
	return s.repo.ListRecurring(ctx, userID, activeOnly)
}

func (s *RecurringService) Update(ctx context.Context, rec core.RecurringTransaction) (core.RecurringTransaction, error) {
	if err := rec.Validate(); err != nil {
		return core.RecurringTransaction{}, err
	}
	if err := s.repo.UpdateRecurring(ctx, rec); err != nil {
		return core.RecurringTransaction{}, err
	}
	return s.repo.GetRecurring(ctx, rec.UserID, rec.ID)
}

func (s *RecurringService) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteRecurring(ctx, userID, id)
}

// NextDueDate computes the first date strictly after the last materialized
// occurrence (or on/after the start date when never materialized). A zero
// return means the schedule is exhausted.
func NextDueDate(rec core.RecurringTransaction) time.Time {
	var next time.Time
	if rec.LastCreatedDate.IsZero() {
		next = rec.StartDate
		if rec.DayOfMonth != 0 && monthlyStepped(rec.Frequency) {
			next = core.ClampDay(rec.StartDate.Year(), rec.StartDate.Month(), rec.DayOfMonth)
			if next.Before(rec.StartDate) {
				next = stepDate(rec, next)
			}
		}
	} else {
		next = stepDate(rec, rec.LastCreatedDate)
	}
	if !rec.EndDate.IsZero() && next.After(rec.EndDate) {
		return time.Time{}
	}
	return next
}

// stepDate advances one period. Month-based frequencies re-anchor on the
// configured day of month so short months do not drift the schedule.
func stepDate(rec core.RecurringTransaction, from time.Time) time.Time {
	switch rec.Frequency {
	case core.Daily:
		return from.AddDate(0, 0, 1)
	case core.Weekly:
		return from.AddDate(0, 0, 7)
	case core.Biweekly:
		return from.AddDate(0, 0, 14)
	case core.Custom:
		return from.AddDate(0, 0, rec.CustomFrequencyDays)
	case core.Monthly:
		return stepMonths(rec, from, 1)
	case core.Bimonthly:
		return stepMonths(rec, from, 2)
	case core.Quarterly:
		return stepMonths(rec, from, 3)
	case core.Semiannual:
		return stepMonths(rec, from, 6)
	case core.Annual:
		return stepMonths(rec, from, 12)
	}
	return from.AddDate(0, 1, 0)
}

func stepMonths(rec core.RecurringTransaction, from time.Time, months int) time.Time {
	day := rec.DayOfMonth
	if day == 0 {
		day = rec.StartDate.Day()
	}
	anchor := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	return core.ClampDay(anchor.Year(), anchor.Month(), day)
}

func monthlyStepped(f core.RecurrenceFrequency) bool {
	switch f {
	case core.Monthly, core.Bimonthly, core.Quarterly, core.Semiannual, core.Annual:
		return true
	}
	return false
}

// UpcomingOccurrence pairs a schedule with its next due date.
type UpcomingOccurrence struct {
	Recurring core.RecurringTransaction `json:"recurring"`
	DueDate   time.Time                 `json:"due_date"`
	DaysUntil int                       `json:"days_until"`
}

// Upcoming lists active schedules due within the horizon, soonest first.
func (s *RecurringService) Upcoming(ctx context.Context, userID int64, withinDays int) ([]UpcomingOccurrence, error) {
	recs, err := s.repo.ListRecurring(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	now := today()
	horizon := now.AddDate(0, 0, withinDays)

	var out []UpcomingOccurrence
	for _, rec := range recs {
		due := NextDueDate(rec)
		if due.IsZero() || due.After(horizon) {
			continue
		}
		out = append(out, UpcomingOccurrence{
			Recurring: rec,
			DueDate:   due,
			DaysUntil: int(due.Sub(now).Hours() / 24),
		})
	}
	sortUpcoming(out)
	return out, nil
}

func sortUpcoming(occ []UpcomingOccurrence) {
	for i := 1; i < len(occ); i++ {
		for j := i; j > 0 && occ[j].DueDate.Before(occ[j-1].DueDate); j-- {
			occ[j], occ[j-1] = occ[j-1], occ[j]
		}
	}
}

// MaterializeDue creates transactions for every auto-create schedule whose
// due date has arrived, catching up multiple missed periods one at a time.
// Variable-amount schedules are never auto-created; they only produce alerts.
// Schedules that have run past their end date are deactivated.
func (s *RecurringService) MaterializeDue(ctx context.Context, now time.Time) (int, error) {
	recs, err := s.repo.ListAllActiveRecurring(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, rec := range recs {
		if rec.AutoCreate && !rec.IsVariableAmount {
			for {
				due := NextDueDate(rec)
				if due.IsZero() || due.After(now) {
					break
				}
				if _, err := s.materializeOne(ctx, rec, due); err != nil {
					s.logger.ErrorContext(ctx, "Failed to materialize recurring transaction",
						log.FieldRecurringID, rec.ID, log.FieldError, err)
					break
				}
				rec.LastCreatedDate = due
				created++
			}
		}

		// A zero next date means the schedule ran past its end date.
		if !rec.EndDate.IsZero() && NextDueDate(rec).IsZero() {
			if err := s.repo.DeactivateRecurring(ctx, rec.ID); err != nil {
				s.logger.ErrorContext(ctx, "Failed to deactivate exhausted schedule",
					log.FieldRecurringID, rec.ID, log.FieldError, err)
				continue
			}
			s.logger.InfoContext(ctx, "Recurring schedule exhausted",
				log.FieldRecurringID, rec.ID, log.FieldUserID, rec.UserID)
		}
	}
	return created, nil
}

// MaterializeNow creates the next occurrence on demand, regardless of
// auto-create. Used to confirm a variable-amount schedule with an explicit
// amount.
func (s *RecurringService) MaterializeNow(ctx context.Context, userID, id int64, amount core.Money) (core.Transaction, error) {
	rec, err := s.repo.GetRecurring(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	due := NextDueDate(rec)
	if due.IsZero() {
		return core.Transaction{}, core.ErrNotFound
	}
	if amount.Cents > 0 {
		rec.Amount = amount
	}
	return s.materializeOne(ctx, rec, due)
}

func (s *RecurringService) materializeOne(ctx context.Context, rec core.RecurringTransaction, due time.Time) (core.Transaction, error) {
	notes := "[Auto] " + rec.Name
	if rec.Notes != "" {
		notes += " | " + rec.Notes
	}
	t, err := s.transactions.Create(ctx, core.Transaction{
		UserID:      rec.UserID,
		AccountID:   rec.AccountID,
		CategoryID:  rec.CategoryID,
		Type:        rec.Type,
		Amount:      rec.Amount,
		Date:        due,
		Merchant:    rec.Merchant,
		Notes:       notes,
		RecurringID: rec.ID,
	})
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.repo.SetRecurringLastCreated(ctx, rec.ID, due); err != nil {
		return core.Transaction{}, err
	}
	s.logger.InfoContext(ctx, "Recurring transaction materialized",
		log.FieldRecurringID, rec.ID, log.FieldTxID, t.ID, "due_date", due.Format(core.DateOnly))
	return t, nil
}
