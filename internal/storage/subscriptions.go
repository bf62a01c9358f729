package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"monea/internal/core"
)

const subscriptionColumns = `id, user_id, recurring_id, name, amount_cents, currency, frequency,
	billing_day, category_id, account_id, url, notes, next_billing_date,
	trial_end_date, is_active, is_detected`

func scanSubscription(row interface{ Scan(...any) error }) (core.Subscription, error) {
	var s core.Subscription
	var nextBilling, trialEnd string
	err := row.Scan(&s.ID, &s.UserID, &s.RecurringID, &s.Name, &s.Amount.Cents,
		&s.Currency, &s.Frequency, &s.BillingDay, &s.CategoryID, &s.AccountID,
		&s.URL, &s.Notes, &nextBilling, &trialEnd, &s.IsActive, &s.IsDetected)
	s.NextBillingDate = parseDate(nextBilling)
	s.TrialEndDate = parseDate(trialEnd)
	return s, err
}

func (r *Repository) CreateSubscription(ctx context.Context, s core.Subscription) (core.Subscription, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, recurring_id, name, amount_cents, currency, frequency,
			billing_day, category_id, account_id, url, notes, next_billing_date, trial_end_date, is_detected)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.UserID, s.RecurringID, s.Name, s.Amount.Cents, s.Currency, s.Frequency,
		s.BillingDay, s.CategoryID, s.AccountID, s.URL, s.Notes,
		fmtDate(s.NextBillingDate), fmtDate(s.TrialEndDate), boolToInt(s.IsDetected))
	if err != nil {
		return core.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Subscription{}, fmt.Errorf("create subscription id: %w", err)
	}
	return r.GetSubscription(ctx, s.UserID, id)
}

func (r *Repository) GetSubscription(ctx context.Context, userID, id int64) (core.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ? AND user_id = ?`, id, userID)
	s, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Subscription{}, core.ErrNotFound
	}
	if err != nil {
		return core.Subscription{}, fmt.Errorf("get subscription: %w", err)
	}
	return s, nil
}

func (r *Repository) ListSubscriptions(ctx context.Context, userID int64, activeOnly bool) ([]core.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []core.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *Repository) UpdateSubscription(ctx context.Context, s core.Subscription) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET name = ?, amount_cents = ?, currency = ?, frequency = ?,
			billing_day = ?, category_id = ?, account_id = ?, url = ?, notes = ?,
			next_billing_date = ?, trial_end_date = ?, is_active = ?
		WHERE id = ? AND user_id = ?`,
		s.Name, s.Amount.Cents, s.Currency, s.Frequency, s.BillingDay,
		s.CategoryID, s.AccountID, s.URL, s.Notes,
		fmtDate(s.NextBillingDate), fmtDate(s.TrialEndDate), boolToInt(s.IsActive),
		s.ID, s.UserID)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteSubscription(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}
