package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"monea/internal/core"
)

const transactionColumns = `id, user_id, account_id, category_id, type, amount_cents, currency,
	date, merchant, notes, tags, to_account_id, is_reimbursable, reimbursed,
	is_installment, installment_purchase_id, installment_number, is_split,
	recurring_id, sync_status, version, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var t core.Transaction
	var dateStr string
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.CategoryID, &t.Type,
		&t.Amount.Cents, &t.Currency, &dateStr, &t.Merchant, &t.Notes, &t.Tags,
		&t.ToAccountID, &t.IsReimbursable, &t.Reimbursed, &t.IsInstallment,
		&t.InstallmentPurchaseID, &t.InstallmentNumber, &t.IsSplit,
		&t.RecurringID, &t.SyncStatus, &t.Version, &t.CreatedAt)
	t.Date = parseDate(dateStr)
	return t, err
}

// TransactionFilter narrows ListTransactions results. Zero values are ignored.
type TransactionFilter struct {
	AccountID  int64
	CategoryID int64
	Type       core.TransactionType
	From       time.Time
	To         time.Time
	Tag        string
	Search     string
	Limit      int
	Offset     int
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id, err := insertTransaction(ctx, tx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit: %w", err)
	}
	return r.GetTransaction(ctx, t.UserID, id)
}

// CreateTransactions inserts a batch atomically, used by installment plans.
func (r *Repository) CreateTransactions(ctx context.Context, txs []core.Transaction) ([]int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(txs))
	for _, t := range txs {
		id, err := insertTransaction(ctx, tx, t)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ids, nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t core.Transaction) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (user_id, account_id, category_id, type, amount_cents, currency,
			date, merchant, notes, tags, to_account_id, is_reimbursable,
			is_installment, installment_purchase_id, installment_number, is_split, recurring_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.AccountID, t.CategoryID, t.Type, t.Amount.Cents, t.Currency,
		fmtDate(t.Date), t.Merchant, t.Notes, t.Tags, t.ToAccountID,
		boolToInt(t.IsReimbursable), boolToInt(t.IsInstallment),
		t.InstallmentPurchaseID, t.InstallmentNumber, boolToInt(len(t.Splits) > 0), t.RecurringID)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert transaction id: %w", err)
	}
	for _, s := range t.Splits {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transaction_splits (transaction_id, category_id, amount_cents, notes)
			VALUES (?, ?, ?, ?)`, id, s.CategoryID, s.Amount.Cents, s.Notes); err != nil {
			return 0, fmt.Errorf("insert split: %w", err)
		}
	}
	return id, nil
}

func (r *Repository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	if t.IsSplit {
		if t.Splits, err = r.getSplits(ctx, t.ID); err != nil {
			return core.Transaction{}, err
		}
	}
	return t, nil
}

func (r *Repository) getSplits(ctx context.Context, transactionID int64) ([]core.TransactionSplit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category_id, amount_cents, notes
		FROM transaction_splits WHERE transaction_id = ? ORDER BY id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("get splits: %w", err)
	}
	defer rows.Close()

	var splits []core.TransactionSplit
	for rows.Next() {
		var s core.TransactionSplit
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Amount.Cents, &s.Notes); err != nil {
			return nil, fmt.Errorf("scan split: %w", err)
		}
		splits = append(splits, s)
	}
	return splits, rows.Err()
}

func (r *Repository) ListTransactions(ctx context.Context, userID int64, f TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{userID}

	if f.AccountID != 0 {
		query += ` AND (account_id = ? OR to_account_id = ?)`
		args = append(args, f.AccountID, f.AccountID)
	}
	if f.CategoryID != 0 {
		query += ` AND category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, f.Type)
	}
	if !f.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, fmtDate(f.From))
	}
	if !f.To.IsZero() {
		query += ` AND date <= ?`
		args = append(args, fmtDate(f.To))
	}
	if f.Tag != "" {
		query += ` AND tags LIKE ?`
		args = append(args, `%"`+f.Tag+`"%`)
	}
	if f.Search != "" {
		query += ` AND (merchant LIKE ? OR notes LIKE ?)`
		like := "%" + f.Search + "%"
		args = append(args, like, like)
	}

	query += ` ORDER BY date DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, f.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range txs {
		if txs[i].IsSplit {
			if txs[i].Splits, err = r.getSplits(ctx, txs[i].ID); err != nil {
				return nil, err
			}
		}
	}
	return txs, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Any edit bumps the version and requeues the sheets mirror.
	res, err := tx.ExecContext(ctx, `
		UPDATE transactions SET account_id = ?, category_id = ?, type = ?, amount_cents = ?,
			currency = ?, date = ?, merchant = ?, notes = ?, tags = ?, to_account_id = ?,
			is_reimbursable = ?, reimbursed = ?, is_split = ?,
			sync_status = 'pending', version = version + 1
		WHERE id = ? AND user_id = ?`,
		t.AccountID, t.CategoryID, t.Type, t.Amount.Cents, t.Currency, fmtDate(t.Date),
		t.Merchant, t.Notes, t.Tags, t.ToAccountID, boolToInt(t.IsReimbursable),
		boolToInt(t.Reimbursed), boolToInt(len(t.Splits) > 0), t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transaction_splits WHERE transaction_id = ?`, t.ID); err != nil {
		return fmt.Errorf("clear splits: %w", err)
	}
	for _, s := range t.Splits {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transaction_splits (transaction_id, category_id, amount_cents, notes)
			VALUES (?, ?, ?, ?)`, t.ID, s.CategoryID, s.Amount.Cents, s.Notes); err != nil {
			return fmt.Errorf("insert split: %w", err)
		}
	}
	return tx.Commit()
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteInstallmentTransactions removes every charge of an installment plan.
func (r *Repository) DeleteInstallmentTransactions(ctx context.Context, userID, purchaseID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = ? AND installment_purchase_id = ?`, userID, purchaseID)
	if err != nil {
		return fmt.Errorf("delete installment transactions: %w", err)
	}
	return nil
}

// SumExpenses totals expense amounts within a window, optionally filtered by
// category, account, or tag. Used by budget progress and can-i-spend.
func (r *Repository) SumExpenses(ctx context.Context, userID int64, from, to time.Time, categoryID, accountID int64, tag string) (core.Money, error) {
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE user_id = ? AND type = 'expense' AND date >= ? AND date <= ?`
	args := []any{userID, fmtDate(from), fmtDate(to)}
	if categoryID != 0 {
		query += ` AND category_id = ?`
		args = append(args, categoryID)
	}
	if accountID != 0 {
		query += ` AND account_id = ?`
		args = append(args, accountID)
	}
	if tag != "" {
		query += ` AND tags LIKE ?`
		args = append(args, `%"`+tag+`"%`)
	}

	var total core.Money
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total.Cents); err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}

// PendingSyncTransaction carries the minimum needed to queue a mirror write.
type PendingSyncTransaction struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

func (r *Repository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, created_at FROM transactions
		WHERE sync_status = 'pending' ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var pending []PendingSyncTransaction
	for rows.Next() {
		var p PendingSyncTransaction
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync transaction: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// GetTransactionByID fetches without a user scope, for worker consumption.
func (r *Repository) GetTransactionByID(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

func (r *Repository) MarkTransactionSynced(ctx context.Context, id, version int64) error {
	// Guard on version so an edit during the mirror write stays pending.
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced' WHERE id = ? AND version = ?`, id, version)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return nil
}

func (r *Repository) MarkTransactionSyncError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	return nil
}
