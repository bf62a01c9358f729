package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"monea/internal/core"
)

const accountColumns = `id, user_id, name, type, initial_balance_cents, currency, color, icon,
	is_default, is_archived, exclude_from_totals, debtor_name, display_order, created_at`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var a core.Account
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.InitialBalance.Cents,
		&a.Currency, &a.Color, &a.Icon, &a.IsDefault, &a.IsArchived,
		&a.ExcludeFromTotals, &a.DebtorName, &a.DisplayOrder, &a.CreatedAt)
	return a, err
}

func (r *Repository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Account{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Only one default account per user.
	if a.IsDefault {
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET is_default = 0 WHERE user_id = ?`, a.UserID); err != nil {
			return core.Account{}, fmt.Errorf("clear default account: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (user_id, name, type, initial_balance_cents, currency, color, icon,
			is_default, exclude_from_totals, debtor_name, display_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Name, a.Type, a.InitialBalance.Cents, a.Currency, a.Color, a.Icon,
		boolToInt(a.IsDefault), boolToInt(a.ExcludeFromTotals), a.DebtorName, a.DisplayOrder)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("create account id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Account{}, fmt.Errorf("commit: %w", err)
	}
	return r.GetAccount(ctx, a.UserID, id)
}

func (r *Repository) GetAccount(ctx context.Context, userID, id int64) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (r *Repository) ListAccounts(ctx context.Context, userID int64, includeArchived bool) ([]core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = ?`
	if !includeArchived {
		query += ` AND is_archived = 0`
	}
	query += ` ORDER BY display_order, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *Repository) UpdateAccount(ctx context.Context, a core.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if a.IsDefault {
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET is_default = 0 WHERE user_id = ? AND id != ?`, a.UserID, a.ID); err != nil {
			return fmt.Errorf("clear default account: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE accounts SET name = ?, type = ?, initial_balance_cents = ?, currency = ?,
			color = ?, icon = ?, is_default = ?, is_archived = ?, exclude_from_totals = ?,
			debtor_name = ?, display_order = ?
		WHERE id = ? AND user_id = ?`,
		a.Name, a.Type, a.InitialBalance.Cents, a.Currency, a.Color, a.Icon,
		boolToInt(a.IsDefault), boolToInt(a.IsArchived), boolToInt(a.ExcludeFromTotals),
		a.DebtorName, a.DisplayOrder, a.ID, a.UserID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return tx.Commit()
}

// ArchiveAccount soft-deletes; transaction history stays intact.
func (r *Repository) ArchiveAccount(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET is_archived = 1, is_default = 0 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("archive account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// AccountFlows aggregates the movement sums feeding the balance identity.
type AccountFlows struct {
	Incomes      core.Money
	Expenses     core.Money
	TransfersIn  core.Money
	TransfersOut core.Money
}

func (r *Repository) GetAccountFlows(ctx context.Context, accountID int64) (AccountFlows, error) {
	var f AccountFlows
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'income' AND account_id = ? THEN amount_cents END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' AND account_id = ? THEN amount_cents END), 0),
			COALESCE(SUM(CASE WHEN type = 'transfer' AND to_account_id = ? THEN amount_cents END), 0),
			COALESCE(SUM(CASE WHEN type = 'transfer' AND account_id = ? THEN amount_cents END), 0)
		FROM transactions
		WHERE account_id = ? OR to_account_id = ?`,
		accountID, accountID, accountID, accountID, accountID, accountID).
		Scan(&f.Incomes.Cents, &f.Expenses.Cents, &f.TransfersIn.Cents, &f.TransfersOut.Cents)
	if err != nil {
		return AccountFlows{}, fmt.Errorf("get account flows: %w", err)
	}
	return f, nil
}
