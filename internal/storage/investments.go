package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"monea/internal/core"
)

const investmentColumns = `id, user_id, name, ticker, type, quantity, purchase_price_cents,
	current_price_cents, purchase_date, last_price_update, broker_account,
	currency, notes, is_active`

func scanInvestment(row interface{ Scan(...any) error }) (core.Investment, error) {
	var inv core.Investment
	var purchaseDate, lastUpdate string
	err := row.Scan(&inv.ID, &inv.UserID, &inv.Name, &inv.Ticker, &inv.Type,
		&inv.Quantity, &inv.PurchasePrice.Cents, &inv.CurrentPrice.Cents,
		&purchaseDate, &lastUpdate, &inv.BrokerAccount, &inv.Currency,
		&inv.Notes, &inv.IsActive)
	inv.PurchaseDate = parseDate(purchaseDate)
	inv.LastPriceUpdate = parseDate(lastUpdate)
	return inv, err
}

func (r *Repository) CreateInvestment(ctx context.Context, inv core.Investment) (core.Investment, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO investments (user_id, name, ticker, type, quantity, purchase_price_cents,
			current_price_cents, purchase_date, broker_account, currency, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.UserID, inv.Name, inv.Ticker, inv.Type, inv.Quantity,
		inv.PurchasePrice.Cents, inv.CurrentPrice.Cents, fmtDate(inv.PurchaseDate),
		inv.BrokerAccount, inv.Currency, inv.Notes)
	if err != nil {
		return core.Investment{}, fmt.Errorf("create investment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Investment{}, fmt.Errorf("create investment id: %w", err)
	}
	return r.GetInvestment(ctx, inv.UserID, id)
}

func (r *Repository) GetInvestment(ctx context.Context, userID, id int64) (core.Investment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE id = ? AND user_id = ?`, id, userID)
	inv, err := scanInvestment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Investment{}, core.ErrNotFound
	}
	if err != nil {
		return core.Investment{}, fmt.Errorf("get investment: %w", err)
	}
	return inv, nil
}

func (r *Repository) ListInvestments(ctx context.Context, userID int64, activeOnly bool) ([]core.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	defer rows.Close()

	var investments []core.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan investment: %w", err)
		}
		investments = append(investments, inv)
	}
	return investments, rows.Err()
}

func (r *Repository) UpdateInvestment(ctx context.Context, inv core.Investment) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE investments SET name = ?, ticker = ?, type = ?, quantity = ?,
			purchase_price_cents = ?, current_price_cents = ?, purchase_date = ?,
			last_price_update = ?, broker_account = ?, currency = ?, notes = ?, is_active = ?
		WHERE id = ? AND user_id = ?`,
		inv.Name, inv.Ticker, inv.Type, inv.Quantity, inv.PurchasePrice.Cents,
		inv.CurrentPrice.Cents, fmtDate(inv.PurchaseDate), fmtDate(inv.LastPriceUpdate),
		inv.BrokerAccount, inv.Currency, inv.Notes, boolToInt(inv.IsActive),
		inv.ID, inv.UserID)
	if err != nil {
		return fmt.Errorf("update investment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteInvestment(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM investments WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete investment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// UpdateInvestmentPrice refreshes the market price and its timestamp.
func (r *Repository) UpdateInvestmentPrice(ctx context.Context, userID, id int64, price core.Money, asOf time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE investments SET current_price_cents = ?, last_price_update = ?
		WHERE id = ? AND user_id = ?`,
		price.Cents, fmtDate(asOf), id, userID)
	if err != nil {
		return fmt.Errorf("update investment price: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) CreateInvestmentTransaction(ctx context.Context, t core.InvestmentTransaction) (core.InvestmentTransaction, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO investment_transactions (investment_id, user_id, type, quantity,
			price_per_unit_cents, total_cents, date, fees_cents, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.InvestmentID, t.UserID, t.Type, t.Quantity, t.PricePerUnit.Cents,
		t.TotalAmount.Cents, fmtDate(t.Date), t.Fees.Cents, t.Notes)
	if err != nil {
		return core.InvestmentTransaction{}, fmt.Errorf("create investment transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.InvestmentTransaction{}, fmt.Errorf("create investment transaction id: %w", err)
	}
	t.ID = id
	return t, nil
}

func (r *Repository) ListInvestmentTransactions(ctx context.Context, investmentID int64) ([]core.InvestmentTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, investment_id, user_id, type, quantity, price_per_unit_cents,
			total_cents, date, fees_cents, notes
		FROM investment_transactions WHERE investment_id = ? ORDER BY date DESC, id DESC`, investmentID)
	if err != nil {
		return nil, fmt.Errorf("list investment transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.InvestmentTransaction
	for rows.Next() {
		var t core.InvestmentTransaction
		var dateStr string
		if err := rows.Scan(&t.ID, &t.InvestmentID, &t.UserID, &t.Type, &t.Quantity,
			&t.PricePerUnit.Cents, &t.TotalAmount.Cents, &dateStr, &t.Fees.Cents, &t.Notes); err != nil {
			return nil, fmt.Errorf("scan investment transaction: %w", err)
		}
		t.Date = parseDate(dateStr)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// AdjustInvestmentQuantity applies a buy/sell delta to the held quantity.
func (r *Repository) AdjustInvestmentQuantity(ctx context.Context, id int64, delta float64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE investments SET quantity = quantity + ? WHERE id = ?`, delta, id)
	if err != nil {
		return fmt.Errorf("adjust investment quantity: %w", err)
	}
	return nil
}
