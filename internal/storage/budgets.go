package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"monea/internal/core"
)

const budgetColumns = `id, user_id, name, type, limit_cents, period, start_day,
	enable_rollover, rollover_max_cents, current_rollover_cents,
	alert_at_percentage, alert_on_exceed, category_id, account_id, tag, is_active`

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var b core.Budget
	err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Type, &b.LimitAmount.Cents, &b.Period,
		&b.StartDay, &b.EnableRollover, &b.RolloverMaxAccumulation.Cents,
		&b.CurrentRollover.Cents, &b.AlertAtPercentage, &b.AlertOnExceed,
		&b.CategoryID, &b.AccountID, &b.Tag, &b.IsActive)
	return b, err
}

func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, name, type, limit_cents, period, start_day,
			enable_rollover, rollover_max_cents, alert_at_percentage, alert_on_exceed,
			category_id, account_id, tag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.Name, b.Type, b.LimitAmount.Cents, b.Period, b.StartDay,
		boolToInt(b.EnableRollover), b.RolloverMaxAccumulation.Cents,
		b.AlertAtPercentage, boolToInt(b.AlertOnExceed), b.CategoryID, b.AccountID, b.Tag)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget id: %w", err)
	}
	return r.GetBudget(ctx, b.UserID, id)
}

func (r *Repository) GetBudget(ctx context.Context, userID, id int64) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *Repository) ListBudgets(ctx context.Context, userID int64, activeOnly bool) ([]core.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// ListActiveBudgetsForUser is the worker-side variant without user scoping checks.
func (r *Repository) ListActiveBudgetsByCategory(ctx context.Context, userID, categoryID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+budgetColumns+` FROM budgets
		WHERE user_id = ? AND is_active = 1
		  AND (type = 'global' OR (type = 'category' AND category_id = ?))`,
		userID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list budgets by category: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (r *Repository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE budgets SET name = ?, type = ?, limit_cents = ?, period = ?, start_day = ?,
			enable_rollover = ?, rollover_max_cents = ?, current_rollover_cents = ?,
			alert_at_percentage = ?, alert_on_exceed = ?, category_id = ?, account_id = ?,
			tag = ?, is_active = ?
		WHERE id = ? AND user_id = ?`,
		b.Name, b.Type, b.LimitAmount.Cents, b.Period, b.StartDay,
		boolToInt(b.EnableRollover), b.RolloverMaxAccumulation.Cents, b.CurrentRollover.Cents,
		b.AlertAtPercentage, boolToInt(b.AlertOnExceed), b.CategoryID, b.AccountID,
		b.Tag, boolToInt(b.IsActive), b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteBudget(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) SetBudgetRollover(ctx context.Context, id int64, rollover core.Money) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET current_rollover_cents = ? WHERE id = ?`, rollover.Cents, id)
	if err != nil {
		return fmt.Errorf("set budget rollover: %w", err)
	}
	return nil
}
