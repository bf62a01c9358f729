package storage

import (
	"context"
	"fmt"
	"time"

	"monea/internal/core"
)

// CategorySum is a per-category expense total inside a window.
type CategorySum struct {
	CategoryID int64      `json:"category_id"`
	Name       string     `json:"name"`
	Total      core.Money `json:"total"`
	Count      int        `json:"count"`
}

func (r *Repository) GetCategorySums(ctx context.Context, userID int64, from, to time.Time, txType core.TransactionType) ([]CategorySum, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.category_id, COALESCE(c.name, 'Sin categoría'),
			SUM(t.amount_cents), COUNT(*)
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND t.type = ? AND t.date >= ? AND t.date <= ?
		GROUP BY t.category_id
		ORDER BY SUM(t.amount_cents) DESC`,
		userID, txType, fmtDate(from), fmtDate(to))
	if err != nil {
		return nil, fmt.Errorf("get category sums: %w", err)
	}
	defer rows.Close()

	var sums []CategorySum
	for rows.Next() {
		var s CategorySum
		if err := rows.Scan(&s.CategoryID, &s.Name, &s.Total.Cents, &s.Count); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		sums = append(sums, s)
	}
	return sums, rows.Err()
}

// MonthTotal is one month's income and expense totals.
type MonthTotal struct {
	Month    string     `json:"month"` // "2006-01"
	Income   core.Money `json:"income"`
	Expenses core.Money `json:"expenses"`
}

func (r *Repository) GetMonthlyTotals(ctx context.Context, userID int64, from, to time.Time) ([]MonthTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT substr(date, 1, 7) AS month,
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents END), 0)
		FROM transactions
		WHERE user_id = ? AND date >= ? AND date <= ? AND type != 'transfer'
		GROUP BY month
		ORDER BY month`,
		userID, fmtDate(from), fmtDate(to))
	if err != nil {
		return nil, fmt.Errorf("get monthly totals: %w", err)
	}
	defer rows.Close()

	var totals []MonthTotal
	for rows.Next() {
		var t MonthTotal
		if err := rows.Scan(&t.Month, &t.Income.Cents, &t.Expenses.Cents); err != nil {
			return nil, fmt.Errorf("scan month total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// MerchantSum groups small recurrent expenses by merchant.
type MerchantSum struct {
	Merchant string     `json:"merchant"`
	Total    core.Money `json:"total"`
	Count    int        `json:"count"`
}

// GetSmallExpenseSums finds merchants with repeated sub-threshold charges,
// the classic "hormiga" spending pattern.
func (r *Repository) GetSmallExpenseSums(ctx context.Context, userID int64, from, to time.Time, threshold core.Money, minCount int) ([]MerchantSum, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT CASE WHEN merchant = '' THEN 'Sin comercio' ELSE merchant END AS m,
			SUM(amount_cents), COUNT(*)
		FROM transactions
		WHERE user_id = ? AND type = 'expense' AND amount_cents <= ?
		  AND date >= ? AND date <= ?
		GROUP BY m
		HAVING COUNT(*) >= ?
		ORDER BY SUM(amount_cents) DESC`,
		userID, threshold.Cents, fmtDate(from), fmtDate(to), minCount)
	if err != nil {
		return nil, fmt.Errorf("get small expense sums: %w", err)
	}
	defer rows.Close()

	var sums []MerchantSum
	for rows.Next() {
		var s MerchantSum
		if err := rows.Scan(&s.Merchant, &s.Total.Cents, &s.Count); err != nil {
			return nil, fmt.Errorf("scan merchant sum: %w", err)
		}
		sums = append(sums, s)
	}
	return sums, rows.Err()
}

// SumByType totals income or expenses across all accounts in a window.
func (r *Repository) SumByType(ctx context.Context, userID int64, txType core.TransactionType, from, to time.Time) (core.Money, error) {
	var total core.Money
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE user_id = ? AND type = ? AND date >= ? AND date <= ?`,
		userID, txType, fmtDate(from), fmtDate(to)).Scan(&total.Cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum by type: %w", err)
	}
	return total, nil
}

// CountExpenseDays counts distinct days with at least one expense in a window.
func (r *Repository) CountExpenseDays(ctx context.Context, userID int64, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT date) FROM transactions
		WHERE user_id = ? AND type = 'expense' AND date >= ? AND date <= ?`,
		userID, fmtDate(from), fmtDate(to)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expense days: %w", err)
	}
	return n, nil
}
