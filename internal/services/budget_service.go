package services

import (
	"context"
	"time"

	"monea/internal/core"
	"monea/internal/log"
	"monea/internal/storage"
)

// Budget status thresholds as percentage of the effective limit.
const (
	budgetSafeMax     = 70.0
	budgetWarningMax  = 90.0
	budgetCriticalMax = 100.0
)

type BudgetService struct {
	repo   *storage.Repository
	logger *log.Logger
}

func NewBudgetService(repo *storage.Repository, logger *log.Logger) *BudgetService {
	return &BudgetService{repo: repo, logger: logger.WithComponent(log.ComponentBudget)}
}

// BudgetProgress is the computed state of a budget in its current period.
type BudgetProgress struct {
	Budget         core.Budget `json:"budget"`
	PeriodStart    time.Time   `json:"period_start"`
	PeriodEnd      time.Time   `json:"period_end"`
	Spent          core.Money  `json:"spent"`
	EffectiveLimit core.Money  `json:"effective_limit"` // limit plus accumulated rollover
	Remaining      core.Money  `json:"remaining"`
	Percentage     float64     `json:"percentage"`
	Status         string      `json:"status"` // safe, warning, critical, exceeded
	DepletionDate  time.Time   `json:"depletion_date,omitzero"`
	WillDeplete    bool        `json:"will_deplete"`
}

func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	return s.repo.CreateBudget(ctx, b)
}

func (s *BudgetService) Get(ctx context.Context, userID, id int64) (core.Budget, error) {
	return s.repo.GetBudget(ctx, userID, id)
}

func (s *BudgetService) List(ctx context.Context, userID int64, activeOnly bool) ([]core.Budget, error) {
	return s.repo.ListBudgets(ctx, userID, activeOnly)
}

func (s *BudgetService) Update(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.repo.UpdateBudget(ctx, b); err != nil {
		return core.Budget{}, err
	}
	return s.repo.GetBudget(ctx, b.UserID, b.ID)
}

func (s *BudgetService) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteBudget(ctx, userID, id)
}

// Progress computes the current-period state of one budget.
func (s *BudgetService) Progress(ctx context.Context, userID, id int64) (BudgetProgress, error) {
	b, err := s.repo.GetBudget(ctx, userID, id)
	if err != nil {
		return BudgetProgress{}, err
	}
	return s.progressFor(ctx, b, today())
}

// ProgressAll computes the current-period state of every active budget.
func (s *BudgetService) ProgressAll(ctx context.Context, userID int64) ([]BudgetProgress, error) {
	budgets, err := s.repo.ListBudgets(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	now := today()
	out := make([]BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		p, err := s.progressFor(ctx, b, now)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *BudgetService) progressFor(ctx context.Context, b core.Budget, now time.Time) (BudgetProgress, error) {
	start, end := PeriodWindow(b.Period, b.StartDay, now)

	spent, err := s.repo.SumExpenses(ctx, b.UserID, start, end, b.CategoryID, b.AccountID, b.Tag)
	if err != nil {
		return BudgetProgress{}, err
	}

	limit := b.LimitAmount
	if b.EnableRollover {
		limit = limit.Add(b.CurrentRollover)
	}

	pct := spent.PercentOf(limit)
	p := BudgetProgress{
		Budget:         b,
		PeriodStart:    start,
		PeriodEnd:      end,
		Spent:          spent,
		EffectiveLimit: limit,
		Remaining:      limit.Sub(spent),
		Percentage:     pct,
		Status:         budgetStatus(pct),
	}

	daysElapsed := int(now.Sub(start).Hours()/24) + 1
	if when, ok := core.EstimateDepletionDate(spent, limit, daysElapsed, now); ok {
		p.DepletionDate = when
		p.WillDeplete = !when.After(end)
	}
	return p, nil
}

func budgetStatus(pct float64) string {
	switch {
	case pct <= budgetSafeMax:
		return "safe"
	case pct <= budgetWarningMax:
		return "warning"
	case pct <= budgetCriticalMax:
		return "critical"
	default:
		return "exceeded"
	}
}

// RollOver closes the previous period of a rollover budget, crediting unspent
// amounts (or debiting overspend) into the accumulated rollover, capped at
// the configured maximum.
func (s *BudgetService) RollOver(ctx context.Context, b core.Budget, now time.Time) (core.Money, error) {
	if !b.EnableRollover {
		return core.Money{}, nil
	}

	prevEnd, _ := PeriodWindow(b.Period, b.StartDay, now)
	prevEnd = prevEnd.AddDate(0, 0, -1)
	prevStart, _ := PeriodWindow(b.Period, b.StartDay, prevEnd)

	spent, err := s.repo.SumExpenses(ctx, b.UserID, prevStart, prevEnd, b.CategoryID, b.AccountID, b.Tag)
	if err != nil {
		return core.Money{}, err
	}

	unspent := b.LimitAmount.Sub(spent)
	rollover := b.CurrentRollover.Add(unspent)
	if rollover.IsNegative() {
		rollover = core.Money{}
	}
	if b.RolloverMaxAccumulation.Cents > 0 && rollover.Cents > b.RolloverMaxAccumulation.Cents {
		rollover = b.RolloverMaxAccumulation
	}

	if err := s.repo.SetBudgetRollover(ctx, b.ID, rollover); err != nil {
		return core.Money{}, err
	}
	s.logger.InfoContext(ctx, "Budget rollover applied",
		log.FieldBudgetID, b.ID, log.FieldAmountCents, rollover.Cents)
	return rollover, nil
}

// PeriodWindow returns the [start, end] dates of the period containing ref.
//
// Monthly and annual periods are anchored at startDay (clamped to short
// months). Weekly periods run Monday through Sunday; biweekly periods split
// each month at the 1st and the 16th.
func PeriodWindow(period core.BudgetPeriod, startDay int, ref time.Time) (time.Time, time.Time) {
	ref = time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	if startDay < 1 {
		startDay = 1
	}

	switch period {
	case core.PeriodWeekly:
		offset := (int(ref.Weekday()) + 6) % 7 // days since Monday
		start := ref.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 6)

	case core.PeriodBiweekly:
		if ref.Day() < 16 {
			start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
			return start, time.Date(ref.Year(), ref.Month(), 15, 0, 0, 0, 0, time.UTC)
		}
		start := time.Date(ref.Year(), ref.Month(), 16, 0, 0, 0, 0, time.UTC)
		end := time.Date(ref.Year(), ref.Month(), core.LastDayOfMonth(ref.Year(), ref.Month()), 0, 0, 0, 0, time.UTC)
		return start, end

	case core.PeriodAnnual:
		start := time.Date(ref.Year(), time.January, startDay, 0, 0, 0, 0, time.UTC)
		if ref.Before(start) {
			start = start.AddDate(-1, 0, 0)
		}
		return start, start.AddDate(1, 0, -1)

	default: // monthly
		start := core.ClampDay(ref.Year(), ref.Month(), startDay)
		if ref.Before(start) {
			prev := ref.AddDate(0, -1, 0)
			start = core.ClampDay(prev.Year(), prev.Month(), startDay)
		}
		next := time.Date(start.Year(), start.Month()+1, 1, 0, 0, 0, 0, time.UTC)
		end := core.ClampDay(next.Year(), next.Month(), startDay).AddDate(0, 0, -1)
		return start, end
	}
}
