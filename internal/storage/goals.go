package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"monea/internal/core"
)

const goalColumns = `id, user_id, name, description, type, target_cents, initial_cents, current_cents,
	target_date, linked_account_id, auto_contribution_cents, auto_contribution_frequency,
	priority, color, icon, is_completed, completed_at, is_archived`

func scanGoal(row interface{ Scan(...any) error }) (core.Goal, error) {
	var g core.Goal
	var targetDate, completedAt string
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.Description, &g.Type,
		&g.TargetAmount.Cents, &g.InitialAmount.Cents, &g.CurrentAmount.Cents,
		&targetDate, &g.LinkedAccountID, &g.AutoContributionAmount.Cents,
		&g.AutoContributionFrequency, &g.Priority, &g.Color, &g.Icon,
		&g.IsCompleted, &completedAt, &g.IsArchived)
	g.TargetDate = parseDate(targetDate)
	g.CompletedAt = parseDate(completedAt)
	return g, err
}

func (r *Repository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (user_id, name, description, type, target_cents, initial_cents, current_cents,
			target_date, linked_account_id, auto_contribution_cents, auto_contribution_frequency,
			priority, color, icon)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.Name, g.Description, g.Type, g.TargetAmount.Cents,
		g.InitialAmount.Cents, g.InitialAmount.Cents, fmtDate(g.TargetDate),
		g.LinkedAccountID, g.AutoContributionAmount.Cents, g.AutoContributionFrequency,
		g.Priority, g.Color, g.Icon)
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal id: %w", err)
	}
	return r.GetGoal(ctx, g.UserID, id)
}

func (r *Repository) GetGoal(ctx context.Context, userID, id int64) (core.Goal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, core.ErrNotFound
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (r *Repository) ListGoals(ctx context.Context, userID int64, includeArchived bool) ([]core.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id = ?`
	if !includeArchived {
		query += ` AND is_archived = 0`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (r *Repository) UpdateGoal(ctx context.Context, g core.Goal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals SET name = ?, description = ?, type = ?, target_cents = ?,
			target_date = ?, linked_account_id = ?, auto_contribution_cents = ?,
			auto_contribution_frequency = ?, priority = ?, color = ?, icon = ?,
			is_archived = ?
		WHERE id = ? AND user_id = ?`,
		g.Name, g.Description, g.Type, g.TargetAmount.Cents, fmtDate(g.TargetDate),
		g.LinkedAccountID, g.AutoContributionAmount.Cents, g.AutoContributionFrequency,
		g.Priority, g.Color, g.Icon, boolToInt(g.IsArchived), g.ID, g.UserID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteGoal(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// AddGoalContribution records a movement and adjusts the accumulated amount in
// one transaction. Negative amounts are withdrawals. Marks the goal completed
// when the target is reached.
func (r *Repository) AddGoalContribution(ctx context.Context, goal core.Goal, c core.GoalContribution) (core.Goal, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Goal{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO goal_contributions (goal_id, amount_cents, date, notes, is_automatic)
		VALUES (?, ?, ?, ?, ?)`,
		c.GoalID, c.Amount.Cents, fmtDate(c.Date), c.Notes, boolToInt(c.IsAutomatic)); err != nil {
		return core.Goal{}, fmt.Errorf("insert contribution: %w", err)
	}

	newAmount := goal.CurrentAmount.Add(c.Amount)
	completed := newAmount.Cents >= goal.TargetAmount.Cents
	completedAt := ""
	if completed {
		completedAt = fmtDate(time.Now().UTC())
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE goals SET current_cents = ?, is_completed = ?, completed_at = ?
		WHERE id = ?`, newAmount.Cents, boolToInt(completed), completedAt, goal.ID); err != nil {
		return core.Goal{}, fmt.Errorf("update goal amount: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Goal{}, fmt.Errorf("commit: %w", err)
	}
	return r.GetGoal(ctx, goal.UserID, goal.ID)
}

func (r *Repository) ListGoalContributions(ctx context.Context, goalID int64) ([]core.GoalContribution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, goal_id, amount_cents, date, notes, is_automatic
		FROM goal_contributions WHERE goal_id = ? ORDER BY date DESC, id DESC`, goalID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var contributions []core.GoalContribution
	for rows.Next() {
		var c core.GoalContribution
		var dateStr string
		if err := rows.Scan(&c.ID, &c.GoalID, &c.Amount.Cents, &dateStr, &c.Notes, &c.IsAutomatic); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		c.Date = parseDate(dateStr)
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}
