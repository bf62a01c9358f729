package services

import (
	"context"
	"fmt"
	"time"

	"monea/internal/cache"
	"monea/internal/core"
	"monea/internal/log"
	"monea/internal/storage"
)

// Small-expense ("gasto hormiga") detection defaults.
const (
	smallExpenseThresholdCents = 15000 // 150.00
	smallExpenseMinCount       = 3
)

const (
	analyticsCacheSize = 512
	analyticsCacheTTL  = 5 * time.Minute
)

// AnalyticsService serves aggregated views over transactions. Results are
// cached per user and invalidated on writes.
type AnalyticsService struct {
	repo    *storage.Repository
	budgets *BudgetService
	cache   *cache.LRUCache[any]
	logger  *log.Logger
}

func NewAnalyticsService(repo *storage.Repository, budgets *BudgetService, logger *log.Logger) *AnalyticsService {
	return &AnalyticsService{
		repo:    repo,
		budgets: budgets,
		cache:   cache.NewLRUCache[any](analyticsCacheSize, analyticsCacheTTL),
		logger:  logger.WithComponent(log.ComponentAnalytics),
	}
}

// Cache exposes the cache for the cleanup manager.
func (s *AnalyticsService) Cache() *cache.LRUCache[any] { return s.cache }

// Invalidate drops every cached view of a user. Called after any write that
// touches their transactions or accounts.
func (s *AnalyticsService) Invalidate(userID int64) {
	n := s.cache.DeletePrefix(fmt.Sprintf("u%d:", userID))
	if n > 0 {
		s.logger.Debug("Analytics cache invalidated", log.FieldUserID, userID, "entries", n)
	}
}

// AccountBalanceView is one account with its computed balance.
type AccountBalanceView struct {
	Account core.Account `json:"account"`
	Balance core.Money   `json:"balance"`
}

// Dashboard is the single-call summary for the home screen.
type Dashboard struct {
	PeriodStart     time.Time            `json:"period_start"`
	PeriodEnd       time.Time            `json:"period_end"`
	TotalIncome     core.Money           `json:"total_income"`
	TotalExpenses   core.Money           `json:"total_expenses"`
	NetFlow         core.Money           `json:"net_flow"`
	LiquidBalance   core.Money           `json:"liquid_balance"`
	Accounts        []AccountBalanceView `json:"accounts"`
	TopCategories   []storage.CategorySum `json:"top_categories"`
	BudgetsAtRisk   []BudgetProgress     `json:"budgets_at_risk"`
	DailyAverage    core.Money           `json:"daily_average"`
	ExpenseDayCount int                  `json:"expense_day_count"`
}

// Dashboard aggregates the current financial month for a user. The month is
// anchored at the user's configured start day.
func (s *AnalyticsService) Dashboard(ctx context.Context, userID int64) (Dashboard, error) {
	now := today()
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	start, end := PeriodWindow(core.PeriodMonthly, user.FinancialMonthStartDay, now)

	key := fmt.Sprintf("u%d:dashboard:%s", userID, start.Format(core.DateOnly))
	if v, ok := s.cache.Get(key); ok {
		return v.(Dashboard), nil
	}

	income, err := s.repo.SumByType(ctx, userID, core.Income, start, end)
	if err != nil {
		return Dashboard{}, err
	}
	expenses, err := s.repo.SumByType(ctx, userID, core.Expense, start, end)
	if err != nil {
		return Dashboard{}, err
	}

	accounts, err := s.accountBalances(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	var liquid core.Money
	for _, a := range accounts {
		if a.Account.Type.Liquid() && !a.Account.ExcludeFromTotals {
			liquid = liquid.Add(a.Balance)
		}
	}

	categories, err := s.repo.GetCategorySums(ctx, userID, start, end, core.Expense)
	if err != nil {
		return Dashboard{}, err
	}
	if len(categories) > 5 {
		categories = categories[:5]
	}

	progress, err := s.budgets.ProgressAll(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	var atRisk []BudgetProgress
	for _, p := range progress {
		if p.Status != "safe" {
			atRisk = append(atRisk, p)
		}
	}

	expenseDays, err := s.repo.CountExpenseDays(ctx, userID, start, now)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		PeriodStart:     start,
		PeriodEnd:       end,
		TotalIncome:     income,
		TotalExpenses:   expenses,
		NetFlow:         income.Sub(expenses),
		LiquidBalance:   liquid,
		Accounts:        accounts,
		TopCategories:   categories,
		BudgetsAtRisk:   atRisk,
		ExpenseDayCount: expenseDays,
	}
	if daysElapsed := int(now.Sub(start).Hours()/24) + 1; daysElapsed > 0 {
		d.DailyAverage = core.Money{Cents: expenses.Cents / int64(daysElapsed)}
	}

	s.cache.Set(key, d)
	return d, nil
}

func (s *AnalyticsService) accountBalances(ctx context.Context, userID int64) ([]AccountBalanceView, error) {
	accounts, err := s.repo.ListAccounts(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	out := make([]AccountBalanceView, 0, len(accounts))
	for _, a := range accounts {
		flows, err := s.repo.GetAccountFlows(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, AccountBalanceView{
			Account: a,
			Balance: core.AccountBalance(a.InitialBalance, flows.Incomes, flows.Expenses,
				flows.TransfersIn, flows.TransfersOut),
		})
	}
	return out, nil
}

// ByCategory breaks down spending (or income) per category in a window.
func (s *AnalyticsService) ByCategory(ctx context.Context, userID int64, from, to time.Time, txType core.TransactionType) ([]storage.CategorySum, error) {
	if txType == "" {
		txType = core.Expense
	}
	key := fmt.Sprintf("u%d:bycat:%s:%s:%s", userID, txType, from.Format(core.DateOnly), to.Format(core.DateOnly))
	if v, ok := s.cache.Get(key); ok {
		return v.([]storage.CategorySum), nil
	}
	sums, err := s.repo.GetCategorySums(ctx, userID, from, to, txType)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, sums)
	return sums, nil
}

// MonthlyTrend returns income/expense totals for the trailing months.
func (s *AnalyticsService) MonthlyTrend(ctx context.Context, userID int64, months int) ([]storage.MonthTotal, error) {
	if months < 1 {
		months = 6
	}
	now := today()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	key := fmt.Sprintf("u%d:trend:%d:%s", userID, months, now.Format("2006-01"))
	if v, ok := s.cache.Get(key); ok {
		return v.([]storage.MonthTotal), nil
	}
	totals, err := s.repo.GetMonthlyTotals(ctx, userID, from, now)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, totals)
	return totals, nil
}

// SmallExpenses surfaces repeated low-value charges per merchant over the
// window, defaulting to the last 30 days.
func (s *AnalyticsService) SmallExpenses(ctx context.Context, userID int64, from, to time.Time, threshold core.Money) ([]storage.MerchantSum, error) {
	now := today()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if threshold.Cents <= 0 {
		threshold = core.Money{Cents: smallExpenseThresholdCents}
	}
	return s.repo.GetSmallExpenseSums(ctx, userID, from, to, threshold, smallExpenseMinCount)
}

// NetWorthReport splits balances into assets and liabilities.
type NetWorthReport struct {
	Assets      core.Money           `json:"assets"`
	Liabilities core.Money           `json:"liabilities"`
	NetWorth    core.Money           `json:"net_worth"`
	Accounts    []AccountBalanceView `json:"accounts"`
}

// NetWorth totals every non-excluded account; liability accounts count
// against net worth by their owed amount.
func (s *AnalyticsService) NetWorth(ctx context.Context, userID int64) (NetWorthReport, error) {
	key := fmt.Sprintf("u%d:networth", userID)
	if v, ok := s.cache.Get(key); ok {
		return v.(NetWorthReport), nil
	}

	accounts, err := s.accountBalances(ctx, userID)
	if err != nil {
		return NetWorthReport{}, err
	}
	var report NetWorthReport
	for _, a := range accounts {
		if a.Account.ExcludeFromTotals {
			continue
		}
		if a.Account.Type.Liability() {
			// Liability balances go negative as debt accrues.
			report.Liabilities = report.Liabilities.Add(core.Money{Cents: -a.Balance.Cents})
		} else {
			report.Assets = report.Assets.Add(a.Balance)
		}
	}
	report.NetWorth = core.NetWorth(report.Assets, report.Liabilities)
	report.Accounts = accounts

	s.cache.Set(key, report)
	return report, nil
}

// MonthlyReport is the full closing summary for one calendar month.
type MonthlyReport struct {
	Month         string                `json:"month"` // "2006-01"
	TotalIncome   core.Money            `json:"total_income"`
	TotalExpenses core.Money            `json:"total_expenses"`
	NetFlow       core.Money            `json:"net_flow"`
	SavingsRate   float64               `json:"savings_rate"` // percentage of income kept
	ByCategory    []storage.CategorySum `json:"by_category"`
	SmallExpenses []storage.MerchantSum `json:"small_expenses"`
	ExpenseDays   int                   `json:"expense_days"`
	DailyAverage  core.Money            `json:"daily_average"`
}

// MonthlyReport summarizes a month given as "2006-01".
func (s *AnalyticsService) MonthlyReport(ctx context.Context, userID int64, month string) (MonthlyReport, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("invalid month %q: %w", month, err)
	}
	end := start.AddDate(0, 1, -1)

	key := fmt.Sprintf("u%d:report:%s", userID, month)
	if v, ok := s.cache.Get(key); ok {
		return v.(MonthlyReport), nil
	}

	income, err := s.repo.SumByType(ctx, userID, core.Income, start, end)
	if err != nil {
		return MonthlyReport{}, err
	}
	expenses, err := s.repo.SumByType(ctx, userID, core.Expense, start, end)
	if err != nil {
		return MonthlyReport{}, err
	}
	categories, err := s.repo.GetCategorySums(ctx, userID, start, end, core.Expense)
	if err != nil {
		return MonthlyReport{}, err
	}
	small, err := s.repo.GetSmallExpenseSums(ctx, userID, start, end,
		core.Money{Cents: smallExpenseThresholdCents}, smallExpenseMinCount)
	if err != nil {
		return MonthlyReport{}, err
	}
	expenseDays, err := s.repo.CountExpenseDays(ctx, userID, start, end)
	if err != nil {
		return MonthlyReport{}, err
	}

	report := MonthlyReport{
		Month:         month,
		TotalIncome:   income,
		TotalExpenses: expenses,
		NetFlow:       income.Sub(expenses),
		ByCategory:    categories,
		SmallExpenses: small,
		ExpenseDays:   expenseDays,
		DailyAverage:  core.Money{Cents: expenses.Cents / int64(end.Day())},
	}
	if income.Cents > 0 {
		report.SavingsRate = float64(income.Cents-expenses.Cents) / float64(income.Cents) * 100.0
	}

	s.cache.Set(key, report)
	return report, nil
}
