package services

import (
	"context"
	"time"

	"monea/internal/core"
	"monea/internal/log"
	"monea/internal/storage"
)

// GoalNotifier receives goal lifecycle events. A nil notifier disables them.
type GoalNotifier interface {
	NotifyGoalCompleted(ctx context.Context, g core.Goal) error
}

type GoalService struct {
	repo     *storage.Repository
	notifier GoalNotifier
	logger   *log.Logger
}

func NewGoalService(repo *storage.Repository, notifier GoalNotifier, logger *log.Logger) *GoalService {
	return &GoalService{repo: repo, notifier: notifier, logger: logger.WithComponent(log.ComponentGoal)}
}

func (s *GoalService) Create(ctx context.Context, g core.Goal) (core.Goal, error) {
	if g.Type == "" {
		g.Type = core.GoalSavings
	}
	if g.Priority == "" {
		g.Priority = core.PriorityMedium
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	return s.repo.CreateGoal(ctx, g)
}

func (s *GoalService) Get(ctx context.Context, userID, id int64) (core.Goal, error) {
	return s.repo.GetGoal(ctx, userID, id)
}

func (s *GoalService) List(ctx context.Context, userID int64, includeArchived bool) ([]core.Goal, error) {
	return s.repo.ListGoals(ctx, userID, includeArchived)
}

func (s *GoalService) Update(ctx context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if err := s.repo.UpdateGoal(ctx, g); err != nil {
		return core.Goal{}, err
	}
	return s.repo.GetGoal(ctx, g.UserID, g.ID)
}

func (s *GoalService) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteGoal(ctx, userID, id)
}

// Contribute adds money toward a completed-checked goal.
func (s *GoalService) Contribute(ctx context.Context, userID, goalID int64, amount core.Money, date time.Time, notes string, automatic bool) (core.Goal, error) {
	if err := amount.Validate(); err != nil {
		return core.Goal{}, err
	}
	g, err := s.repo.GetGoal(ctx, userID, goalID)
	if err != nil {
		return core.Goal{}, err
	}
	if g.IsCompleted {
		return core.Goal{}, core.ErrGoalCompleted
	}
	if date.IsZero() {
		date = today()
	}

	updated, err := s.repo.AddGoalContribution(ctx, g, core.GoalContribution{
		GoalID:      g.ID,
		Amount:      amount,
		Date:        date,
		Notes:       notes,
		IsAutomatic: automatic,
	})
	if err != nil {
		return core.Goal{}, err
	}
	if updated.IsCompleted {
		s.logger.InfoContext(ctx, "Goal completed",
			log.FieldGoalID, updated.ID, log.FieldUserID, userID)
		if s.notifier != nil {
			if err := s.notifier.NotifyGoalCompleted(ctx, updated); err != nil {
				// The contribution is already recorded; log and continue.
				s.logger.ErrorContext(ctx, "Failed to create goal completion alert",
					log.FieldGoalID, updated.ID, log.FieldError, err)
			}
		}
	}
	return updated, nil
}

// Withdraw takes money back out of a goal, never more than accumulated.
// A withdrawal reopens a completed goal.
func (s *GoalService) Withdraw(ctx context.Context, userID, goalID int64, amount core.Money, date time.Time, notes string) (core.Goal, error) {
	if err := amount.Validate(); err != nil {
		return core.Goal{}, err
	}
	g, err := s.repo.GetGoal(ctx, userID, goalID)
	if err != nil {
		return core.Goal{}, err
	}
	if amount.Cents > g.CurrentAmount.Cents {
		return core.Goal{}, core.ErrGoalOverdraw
	}
	if date.IsZero() {
		date = today()
	}

	return s.repo.AddGoalContribution(ctx, g, core.GoalContribution{
		GoalID: g.ID,
		Amount: core.Money{Cents: -amount.Cents},
		Date:   date,
		Notes:  notes,
	})
}

func (s *GoalService) Contributions(ctx context.Context, userID, goalID int64) ([]core.GoalContribution, error) {
	if _, err := s.repo.GetGoal(ctx, userID, goalID); err != nil {
		return nil, err
	}
	return s.repo.ListGoalContributions(ctx, goalID)
}

// GoalProjection estimates when a goal will complete at the current pace.
type GoalProjection struct {
	Goal            core.Goal  `json:"goal"`
	Progress        float64    `json:"progress"`
	Remaining       core.Money `json:"remaining"`
	MonthsToGo      int        `json:"months_to_go"` // -1 when no estimate is possible
	ProjectedDate   time.Time  `json:"projected_date,omitzero"`
	OnTrack         bool       `json:"on_track"`
	RequiredMonthly core.Money `json:"required_monthly"` // to hit the target date, zero when open-ended
}

// Projection uses the configured auto contribution, falling back to the
// average of the last 90 days of manual contributions.
func (s *GoalService) Projection(ctx context.Context, userID, goalID int64) (GoalProjection, error) {
	g, err := s.repo.GetGoal(ctx, userID, goalID)
	if err != nil {
		return GoalProjection{}, err
	}

	monthly := g.AutoContributionAmount
	if monthly.Cents <= 0 {
		monthly, err = s.recentMonthlyAverage(ctx, g.ID)
		if err != nil {
			return GoalProjection{}, err
		}
	}

	now := today()
	p := GoalProjection{
		Goal:       g,
		Progress:   g.CurrentAmount.PercentOf(g.TargetAmount),
		Remaining:  g.TargetAmount.Sub(g.CurrentAmount),
		MonthsToGo: core.ProjectCompletionMonths(g.CurrentAmount, g.TargetAmount, monthly),
	}
	if p.MonthsToGo >= 0 {
		p.ProjectedDate = now.AddDate(0, p.MonthsToGo, 0)
	}

	if !g.TargetDate.IsZero() {
		monthsLeft := monthsBetween(now, g.TargetDate)
		if monthsLeft > 0 && p.Remaining.Cents > 0 {
			required := p.Remaining.Cents / int64(monthsLeft)
			if p.Remaining.Cents%int64(monthsLeft) != 0 {
				required++
			}
			p.RequiredMonthly = core.Money{Cents: required}
		}
		p.OnTrack = p.MonthsToGo >= 0 && !p.ProjectedDate.After(g.TargetDate)
	} else {
		p.OnTrack = p.MonthsToGo >= 0
	}
	return p, nil
}

func (s *GoalService) recentMonthlyAverage(ctx context.Context, goalID int64) (core.Money, error) {
	contributions, err := s.repo.ListGoalContributions(ctx, goalID)
	if err != nil {
		return core.Money{}, err
	}
	cutoff := today().AddDate(0, 0, -90)
	var sum int64
	for _, c := range contributions {
		if c.Amount.Cents > 0 && !c.Date.Before(cutoff) {
			sum += c.Amount.Cents
		}
	}
	return core.Money{Cents: sum / 3}, nil
}

func monthsBetween(from, to time.Time) int {
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	return months
}
