package services

import (
	"context"
	"fmt"
	"time"

	"monea/internal/core"
	"monea/internal/log"
	"monea/internal/storage"
)

// alertDedupeWindow suppresses repeats of the same alert within a day.
const alertDedupeWindow = 24 * time.Hour

type AlertService struct {
	repo    *storage.Repository
	budgets *BudgetService
	cards   *CreditCardService
	logger  *log.Logger
}

func NewAlertService(repo *storage.Repository, budgets *BudgetService, cards *CreditCardService, logger *log.Logger) *AlertService {
	return &AlertService{
		repo:    repo,
		budgets: budgets,
		cards:   cards,
		logger:  logger.WithComponent(log.ComponentAlert),
	}
}

func (s *AlertService) Get(ctx context.Context, userID, id int64) (core.Alert, error) {
	return s.repo.GetAlert(ctx, userID, id)
}

func (s *AlertService) List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]core.Alert, error) {
	return s.repo.ListAlerts(ctx, userID, unreadOnly, limit)
}

func (s *AlertService) MarkRead(ctx context.Context, userID, id int64) error {
	return s.repo.MarkAlertRead(ctx, userID, id)
}

func (s *AlertService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.repo.MarkAllAlertsRead(ctx, userID)
}

func (s *AlertService) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteAlert(ctx, userID, id)
}

// CreateCustom records a user-authored reminder, bypassing dedupe.
func (s *AlertService) CreateCustom(ctx context.Context, userID int64, title, message string, priority core.Priority) (core.Alert, error) {
	if priority == "" {
		priority = core.PriorityMedium
	}
	return s.repo.CreateAlert(ctx, core.Alert{
		UserID:   userID,
		Type:     core.AlertCustom,
		Priority: priority,
		Title:    title,
		Message:  message,
	})
}

// create persists an alert unless an equivalent one exists in the dedupe
// window.
func (s *AlertService) create(ctx context.Context, a core.Alert) (bool, error) {
	recent, err := s.repo.HasRecentAlert(ctx, a.UserID, a.Type, a.BudgetID, a.CreditCardID, a.GoalID, a.RecurringID, alertDedupeWindow)
	if err != nil {
		return false, err
	}
	if recent {
		return false, nil
	}
	if _, err := s.repo.CreateAlert(ctx, a); err != nil {
		return false, err
	}
	s.logger.InfoContext(ctx, "Alert created",
		log.FieldAlertType, string(a.Type), log.FieldUserID, a.UserID)
	return true, nil
}

// CheckBudgets evaluates a user's budgets and emits warning or exceeded
// alerts. Called by the worker after each transaction event.
func (s *AlertService) CheckBudgets(ctx context.Context, userID int64) (int, error) {
	progress, err := s.budgets.ProgressAll(ctx, userID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, p := range progress {
		b := p.Budget
		threshold := b.AlertAtPercentage
		if threshold <= 0 {
			threshold = budgetWarningMax
		}

		var a core.Alert
		switch {
		case p.Percentage > 100 && b.AlertOnExceed:
			a = core.Alert{
				UserID:   userID,
				Type:     core.AlertBudgetExceeded,
				Priority: core.PriorityHigh,
				BudgetID: b.ID,
				Title:    fmt.Sprintf("Presupuesto excedido: %s", b.Name),
				Message: fmt.Sprintf("Has gastado %s de un límite de %s (%.0f%%).",
					p.Spent, p.EffectiveLimit, p.Percentage),
			}
		case p.Percentage >= threshold:
			a = core.Alert{
				UserID:   userID,
				Type:     core.AlertBudgetWarning,
				Priority: core.PriorityMedium,
				BudgetID: b.ID,
				Title:    fmt.Sprintf("Presupuesto al %.0f%%: %s", p.Percentage, b.Name),
				Message: fmt.Sprintf("Llevas %s de %s. Te quedan %s para este periodo.",
					p.Spent, p.EffectiveLimit, p.Remaining),
			}
		default:
			continue
		}

		ok, err := s.create(ctx, a)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// CheckCreditCards emits cutoff-approaching, payment-due and high-usage
// alerts for a user's active cards.
func (s *AlertService) CheckCreditCards(ctx context.Context, userID int64, now time.Time) (int, error) {
	summaries, err := s.cards.SummaryAll(ctx, userID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, summary := range summaries {
		card := summary.Card

		var candidates []core.Alert
		if days := daysUntil(now, summary.NextCutoffDate); card.AlertDaysBeforeCutoff > 0 && days >= 0 && days <= card.AlertDaysBeforeCutoff {
			candidates = append(candidates, core.Alert{
				UserID:       userID,
				Type:         core.AlertCardCutoff,
				Priority:     core.PriorityMedium,
				CreditCardID: card.ID,
				Title:        fmt.Sprintf("Corte de %s en %d días", card.CardName, days),
				Message: fmt.Sprintf("Tu tarjeta %s corta el %s.",
					card.CardName, summary.NextCutoffDate.Format(core.DateOnly)),
			})
		}
		if days := daysUntil(now, summary.PaymentDueDate); card.AlertDaysBeforePayment > 0 && days >= 0 && days <= card.AlertDaysBeforePayment && !summary.IsPaid && summary.StatementBalance.Cents > 0 {
			candidates = append(candidates, core.Alert{
				UserID:       userID,
				Type:         core.AlertCardPayment,
				Priority:     core.PriorityHigh,
				CreditCardID: card.ID,
				Title:        fmt.Sprintf("Pago de %s vence en %d días", card.CardName, days),
				Message: fmt.Sprintf("Saldo del estado de cuenta: %s. Pago mínimo: %s.",
					summary.StatementBalance, summary.MinimumPayment),
			})
		}
		if card.AlertWhenUsageExceeds > 0 && summary.UsagePercentage >= card.AlertWhenUsageExceeds {
			candidates = append(candidates, core.Alert{
				UserID:       userID,
				Type:         core.AlertCardHighUsage,
				Priority:     core.PriorityMedium,
				CreditCardID: card.ID,
				Title:        fmt.Sprintf("Uso alto en %s", card.CardName),
				Message: fmt.Sprintf("Estás usando %.0f%% de tu línea de crédito. Disponible: %s.",
					summary.UsagePercentage, summary.Available),
			})
		}

		for _, a := range candidates {
			ok, err := s.create(ctx, a)
			if err != nil {
				return created, err
			}
			if ok {
				created++
			}
		}
	}
	return created, nil
}

// NotifyGoalCompleted emits a completion alert for a goal.
func (s *AlertService) NotifyGoalCompleted(ctx context.Context, g core.Goal) error {
	_, err := s.create(ctx, core.Alert{
		UserID:   g.UserID,
		Type:     core.AlertGoalCompleted,
		Priority: core.PriorityHigh,
		GoalID:   g.ID,
		Title:    fmt.Sprintf("¡Meta cumplida: %s!", g.Name),
		Message:  fmt.Sprintf("Alcanzaste tu meta de %s.", g.TargetAmount),
	})
	return err
}

// CheckRecurringDue alerts on schedules due within their notify window,
// including variable-amount schedules that need manual confirmation.
func (s *AlertService) CheckRecurringDue(ctx context.Context, userID int64, now time.Time) (int, error) {
	recs, err := s.repo.ListRecurring(ctx, userID, true)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, rec := range recs {
		if rec.NotifyBeforeDays <= 0 {
			continue
		}
		due := NextDueDate(rec)
		if due.IsZero() {
			continue
		}
		days := daysUntil(now, due)
		if days < 0 || days > rec.NotifyBeforeDays {
			continue
		}
		ok, err := s.create(ctx, core.Alert{
			UserID:      userID,
			Type:        core.AlertRecurringDue,
			Priority:    core.PriorityLow,
			RecurringID: rec.ID,
			Title:       fmt.Sprintf("Próximo cargo: %s", rec.Name),
			Message: fmt.Sprintf("%s por %s el %s.",
				rec.Name, rec.Amount, due.Format(core.DateOnly)),
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func daysUntil(now, target time.Time) int {
	return int(target.Sub(now).Hours() / 24)
}
