package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"monea/internal/core"
)

const recurringColumns = `id, user_id, account_id, category_id, name, type, amount_cents,
	is_variable_amount, frequency, custom_frequency_days, day_of_month,
	start_date, end_date, auto_create, notify_before_days, merchant, notes,
	is_active, last_created_date`

func scanRecurring(row interface{ Scan(...any) error }) (core.RecurringTransaction, error) {
	var rec core.RecurringTransaction
	var startDate, endDate, lastCreated string
	err := row.Scan(&rec.ID, &rec.UserID, &rec.AccountID, &rec.CategoryID, &rec.Name,
		&rec.Type, &rec.Amount.Cents, &rec.IsVariableAmount, &rec.Frequency,
		&rec.CustomFrequencyDays, &rec.DayOfMonth, &startDate, &endDate,
		&rec.AutoCreate, &rec.NotifyBeforeDays, &rec.Merchant, &rec.Notes,
		&rec.IsActive, &lastCreated)
	rec.StartDate = parseDate(startDate)
	rec.EndDate = parseDate(endDate)
	rec.LastCreatedDate = parseDate(lastCreated)
	return rec, err
}

func (r *Repository) CreateRecurring(ctx context.Context, rec core.RecurringTransaction) (core.RecurringTransaction, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_transactions (user_id, account_id, category_id, name, type, amount_cents,
			is_variable_amount, frequency, custom_frequency_days, day_of_month,
			start_date, end_date, auto_create, notify_before_days, merchant, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.AccountID, rec.CategoryID, rec.Name, rec.Type, rec.Amount.Cents,
		boolToInt(rec.IsVariableAmount), rec.Frequency, rec.CustomFrequencyDays,
		rec.DayOfMonth, fmtDate(rec.StartDate), fmtDate(rec.EndDate),
		boolToInt(rec.AutoCreate), rec.NotifyBeforeDays, rec.Merchant, rec.Notes)
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("create recurring: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("create recurring id: %w", err)
	}
	return r.GetRecurring(ctx, rec.UserID, id)
}

func (r *Repository) GetRecurring(ctx context.Context, userID, id int64) (core.RecurringTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions WHERE id = ? AND user_id = ?`, id, userID)
	rec, err := scanRecurring(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTransaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("get recurring: %w", err)
	}
	return rec, nil
}

func (r *Repository) ListRecurring(ctx context.Context, userID int64, activeOnly bool) ([]core.RecurringTransaction, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_transactions WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring: %w", err)
	}
	defer rows.Close()

	return collectRecurring(rows)
}

// ListAllActiveRecurring spans every user, for the materialization worker.
func (r *Repository) ListAllActiveRecurring(ctx context.Context) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list all active recurring: %w", err)
	}
	defer rows.Close()

	return collectRecurring(rows)
}

func collectRecurring(rows *sql.Rows) ([]core.RecurringTransaction, error) {
	var recs []core.RecurringTransaction
	for rows.Next() {
		rec, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *Repository) UpdateRecurring(ctx context.Context, rec core.RecurringTransaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_transactions SET account_id = ?, category_id = ?, name = ?, type = ?,
			amount_cents = ?, is_variable_amount = ?, frequency = ?, custom_frequency_days = ?,
			day_of_month = ?, start_date = ?, end_date = ?, auto_create = ?,
			notify_before_days = ?, merchant = ?, notes = ?, is_active = ?
		WHERE id = ? AND user_id = ?`,
		rec.AccountID, rec.CategoryID, rec.Name, rec.Type, rec.Amount.Cents,
		boolToInt(rec.IsVariableAmount), rec.Frequency, rec.CustomFrequencyDays,
		rec.DayOfMonth, fmtDate(rec.StartDate), fmtDate(rec.EndDate),
		boolToInt(rec.AutoCreate), rec.NotifyBeforeDays, rec.Merchant, rec.Notes,
		boolToInt(rec.IsActive), rec.ID, rec.UserID)
	if err != nil {
		return fmt.Errorf("update recurring: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteRecurring deactivates rather than removes, so materialized
// transactions keep a valid recurring_id.
func (r *Repository) DeleteRecurring(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET is_active = 0 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete recurring: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeactivateRecurring is the worker-side variant without a user scope, for
// schedules that have run past their end date.
func (r *Repository) DeactivateRecurring(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate recurring: %w", err)
	}
	return nil
}

func (r *Repository) SetRecurringLastCreated(ctx context.Context, id int64, date time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET last_created_date = ? WHERE id = ?`, fmtDate(date), id)
	if err != nil {
		return fmt.Errorf("set recurring last created: %w", err)
	}
	return nil
}
