package services

import (
	"context"
	"fmt"
	"sort"

	"monea/internal/core"
	"monea/internal/log"
	"monea/internal/storage"
)

// obligationHorizonDays is how far ahead card payments count as committed money.
const obligationHorizonDays = 15

type CanSpendService struct {
	repo      *storage.Repository
	budgets   *BudgetService
	cards     *CreditCardService
	analytics *AnalyticsService
	logger    *log.Logger
}

func NewCanSpendService(repo *storage.Repository, budgets *BudgetService, cards *CreditCardService, analytics *AnalyticsService, logger *log.Logger) *CanSpendService {
	return &CanSpendService{
		repo:      repo,
		budgets:   budgets,
		cards:     cards,
		analytics: analytics,
		logger:    logger.WithComponent(log.ComponentAnalytics),
	}
}

// BudgetImpact shows what a hypothetical expense does to one budget.
type BudgetImpact struct {
	Budget          core.Budget `json:"budget"`
	CurrentSpent    core.Money  `json:"current_spent"`
	ProjectedSpent  core.Money  `json:"projected_spent"`
	EffectiveLimit  core.Money  `json:"effective_limit"`
	ProjectedPct    float64     `json:"projected_pct"`
	ProjectedStatus string      `json:"projected_status"`
	WouldExceed     bool        `json:"would_exceed"`
}

// GoalImpact is a goal whose reserve would be eaten into by the purchase.
type GoalImpact struct {
	Goal            core.Goal  `json:"goal"`
	PotentialImpact core.Money `json:"potential_impact"`
}

// CanSpendAnswer is the verdict for a hypothetical purchase.
type CanSpendAnswer struct {
	Amount              core.Money     `json:"amount"`
	Verdict             string         `json:"verdict"` // yes, caution, no
	Reasons             []string       `json:"reasons"`
	LiquidBalance       core.Money     `json:"liquid_balance"`
	UpcomingObligations core.Money     `json:"upcoming_obligations"` // card statements payable within the horizon
	MoneyInGoals        core.Money     `json:"money_in_goals"`
	Available           core.Money     `json:"available"` // liquid minus obligations and goal reserves
	AvailableAfter      core.Money     `json:"available_after"`
	Impacts             []BudgetImpact `json:"impacts"`
	AffectedGoals       []GoalImpact   `json:"affected_goals,omitempty"`
}

// Analyze answers "can I spend this amount?". Spendable money is the liquid
// balance minus card payments due within the horizon and minus money already
// reserved in open goals; budgets the expense would land on can downgrade the
// verdict further. The optional category narrows the budget match.
func (s *CanSpendService) Analyze(ctx context.Context, userID int64, amount core.Money, categoryID int64) (CanSpendAnswer, error) {
	if err := amount.Validate(); err != nil {
		return CanSpendAnswer{}, err
	}

	answer := CanSpendAnswer{Amount: amount, Verdict: "yes"}

	accounts, err := s.analytics.accountBalances(ctx, userID)
	if err != nil {
		return CanSpendAnswer{}, err
	}
	for _, a := range accounts {
		if a.Account.Type.Liquid() && !a.Account.ExcludeFromTotals {
			answer.LiquidBalance = answer.LiquidBalance.Add(a.Balance)
		}
	}

	answer.UpcomingObligations, err = s.upcomingObligations(ctx, userID)
	if err != nil {
		return CanSpendAnswer{}, err
	}

	goals, err := s.openGoals(ctx, userID)
	if err != nil {
		return CanSpendAnswer{}, err
	}
	for _, g := range goals {
		answer.MoneyInGoals = answer.MoneyInGoals.Add(g.CurrentAmount)
	}

	answer.Available = answer.LiquidBalance.Sub(answer.UpcomingObligations).Sub(answer.MoneyInGoals)
	answer.AvailableAfter = answer.Available.Sub(amount)

	if answer.AvailableAfter.IsNegative() {
		answer.Verdict = "no"
		answer.Reasons = append(answer.Reasons,
			fmt.Sprintf("No tienes fondos disponibles suficientes: %s libres tras apartados y pagos próximos.", answer.Available))

		answer.AffectedGoals = affectedGoals(goals, core.Money{Cents: -answer.AvailableAfter.Cents})
		if len(answer.AffectedGoals) > 0 {
			answer.Reasons = append(answer.Reasons, "Este gasto podría afectar tus metas de ahorro.")
		}
	}

	progress, err := s.budgets.ProgressAll(ctx, userID)
	if err != nil {
		return CanSpendAnswer{}, err
	}
	for _, p := range progress {
		if !budgetApplies(p.Budget, categoryID) {
			continue
		}
		projected := p.Spent.Add(amount)
		pct := projected.PercentOf(p.EffectiveLimit)
		impact := BudgetImpact{
			Budget:          p.Budget,
			CurrentSpent:    p.Spent,
			ProjectedSpent:  projected,
			EffectiveLimit:  p.EffectiveLimit,
			ProjectedPct:    pct,
			ProjectedStatus: budgetStatus(pct),
			WouldExceed:     projected.Cents > p.EffectiveLimit.Cents,
		}
		answer.Impacts = append(answer.Impacts, impact)

		switch {
		case impact.WouldExceed:
			if answer.Verdict != "no" {
				answer.Verdict = "no"
			}
			answer.Reasons = append(answer.Reasons,
				fmt.Sprintf("Excederías el presupuesto %q (%.0f%%).", p.Budget.Name, pct))
		case impact.ProjectedStatus != "safe" && answer.Verdict == "yes":
			answer.Verdict = "caution"
			answer.Reasons = append(answer.Reasons,
				fmt.Sprintf("El presupuesto %q quedaría al %.0f%%.", p.Budget.Name, pct))
		}
	}

	if len(answer.Reasons) == 0 {
		answer.Reasons = append(answer.Reasons, "El gasto cabe en tus fondos y presupuestos.")
	}
	s.logger.InfoContext(ctx, "Can-i-spend analyzed",
		log.FieldUserID, userID, log.FieldAmountCents, amount.Cents, "verdict", answer.Verdict)
	return answer, nil
}

// upcomingObligations sums the closed statements of cards whose payment date
// falls within the horizon. Post-cutoff spend is not yet payable.
func (s *CanSpendService) upcomingObligations(ctx context.Context, userID int64) (core.Money, error) {
	summaries, err := s.cards.SummaryAll(ctx, userID)
	if err != nil {
		return core.Money{}, err
	}
	horizon := today().AddDate(0, 0, obligationHorizonDays)
	var total core.Money
	for _, summary := range summaries {
		if summary.IsPaid || summary.StatementBalance.Cents <= 0 {
			continue
		}
		if !summary.PaymentDueDate.After(horizon) {
			total = total.Add(summary.StatementBalance)
		}
	}
	return total, nil
}

// openGoals returns goals whose reserves count against spendable money.
func (s *CanSpendService) openGoals(ctx context.Context, userID int64) ([]core.Goal, error) {
	goals, err := s.repo.ListGoals(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	open := goals[:0]
	for _, g := range goals {
		if !g.IsCompleted && g.CurrentAmount.Cents > 0 {
			open = append(open, g)
		}
	}
	return open, nil
}

// affectedGoals spreads a deficit over the goals with the largest reserves
// first, mirroring where an overdraw would actually bite.
func affectedGoals(goals []core.Goal, deficit core.Money) []GoalImpact {
	sorted := make([]core.Goal, len(goals))
	copy(sorted, goals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CurrentAmount.Cents > sorted[j].CurrentAmount.Cents
	})

	var affected []GoalImpact
	remaining := deficit.Cents
	for _, g := range sorted {
		if remaining <= 0 {
			break
		}
		impact := min(remaining, g.CurrentAmount.Cents)
		if impact <= 0 {
			continue
		}
		affected = append(affected, GoalImpact{Goal: g, PotentialImpact: core.Money{Cents: impact}})
		remaining -= impact
	}
	return affected
}

// budgetApplies reports whether a hypothetical expense in the category would
// count against the budget. Tag budgets are skipped since the hypothetical
// carries no tags.
func budgetApplies(b core.Budget, categoryID int64) bool {
	switch b.Type {
	case core.BudgetGlobal:
		return true
	case core.BudgetCategory:
		return categoryID != 0 && b.CategoryID == categoryID
	default:
		return false
	}
}
