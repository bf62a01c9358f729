package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"monea/internal/core"
)

const alertColumns = `id, user_id, type, priority, title, message,
	transaction_id, budget_id, goal_id, credit_card_id, recurring_id, is_read, read_at, created_at`

func scanAlert(row interface{ Scan(...any) error }) (core.Alert, error) {
	var a core.Alert
	var readAt string
	err := row.Scan(&a.ID, &a.UserID, &a.Type, &a.Priority, &a.Title, &a.Message,
		&a.TransactionID, &a.BudgetID, &a.GoalID, &a.CreditCardID, &a.RecurringID,
		&a.IsRead, &readAt, &a.CreatedAt)
	a.ReadAt = parseDate(readAt)
	return a, err
}

func (r *Repository) CreateAlert(ctx context.Context, a core.Alert) (core.Alert, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (user_id, type, priority, title, message,
			transaction_id, budget_id, goal_id, credit_card_id, recurring_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Type, a.Priority, a.Title, a.Message,
		a.TransactionID, a.BudgetID, a.GoalID, a.CreditCardID, a.RecurringID)
	if err != nil {
		return core.Alert{}, fmt.Errorf("create alert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Alert{}, fmt.Errorf("create alert id: %w", err)
	}
	a.ID = id
	return a, nil
}

// HasRecentAlert dedupes: true when a matching alert was created in the window.
func (r *Repository) HasRecentAlert(ctx context.Context, userID int64, alertType core.AlertType, budgetID, cardID, goalID, recurringID int64, within time.Duration) (bool, error) {
	// CURRENT_TIMESTAMP stores "2006-01-02 15:04:05"; compare lexically.
	cutoff := time.Now().UTC().Add(-within).Format("2006-01-02 15:04:05")
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM alerts
		WHERE user_id = ? AND type = ? AND budget_id = ? AND credit_card_id = ? AND goal_id = ? AND recurring_id = ?
		  AND created_at >= ?`,
		userID, alertType, budgetID, cardID, goalID, recurringID, cutoff).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check recent alert: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) GetAlert(ctx context.Context, userID, id int64) (core.Alert, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Alert{}, core.ErrNotFound
	}
	if err != nil {
		return core.Alert{}, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

func (r *Repository) ListAlerts(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]core.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE user_id = ?`
	args := []any{userID}
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []core.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (r *Repository) MarkAlertRead(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE alerts SET is_read = 1, read_at = ? WHERE id = ? AND user_id = ?`,
		fmtDate(time.Now().UTC()), id, userID)
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) MarkAllAlertsRead(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE alerts SET is_read = 1, read_at = ? WHERE user_id = ? AND is_read = 0`,
		fmtDate(time.Now().UTC()), userID)
	if err != nil {
		return 0, fmt.Errorf("mark all alerts read: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *Repository) DeleteAlert(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM alerts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}
