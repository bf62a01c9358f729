package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"monea/internal/core"
)

const userColumns = `id, email, username, password_hash, full_name, base_currency,
	financial_month_start_day, hide_amounts, enable_notifications, is_active, created_at`

func scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.FullName,
		&u.BaseCurrency, &u.FinancialMonthStartDay, &u.HideAmounts,
		&u.EnableNotifications, &u.IsActive, &u.CreatedAt)
	return u, err
}

func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email, username, password_hash, full_name, base_currency, financial_month_start_day)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Email, u.Username, u.PasswordHash, u.FullName, u.BaseCurrency, u.FinancialMonthStartDay)
	if err != nil {
		if isUniqueViolation(err, "email") {
			return core.User{}, core.ErrEmailTaken
		}
		if isUniqueViolation(err, "username") {
			return core.User{}, core.ErrUsernameTaken
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("create user id: %w", err)
	}
	return r.GetUser(ctx, id)
}

func (r *Repository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *Repository) UpdateUserSettings(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET full_name = ?, base_currency = ?, financial_month_start_day = ?,
			hide_amounts = ?, enable_notifications = ?
		WHERE id = ?`,
		u.FullName, u.BaseCurrency, u.FinancialMonthStartDay,
		boolToInt(u.HideAmounts), boolToInt(u.EnableNotifications), u.ID)
	if err != nil {
		return fmt.Errorf("update user settings: %w", err)
	}
	return nil
}

// ListActiveUserIDs returns the ids of every active account holder, for the
// background workers that sweep per user.
func (r *Repository) ListActiveUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func isUniqueViolation(err error, column string) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
