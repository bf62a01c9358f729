package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"monea/internal/core"
)

const creditCardColumns = `id, user_id, account_id, card_name, last_four_digits, credit_limit_cents,
	cutoff_day, payment_due_day, annual_interest_rate, minimum_payment_percentage,
	color, icon, alert_days_before_cutoff, alert_days_before_payment,
	alert_when_usage_exceeds, is_active`

func scanCreditCard(row interface{ Scan(...any) error }) (core.CreditCard, error) {
	var c core.CreditCard
	err := row.Scan(&c.ID, &c.UserID, &c.AccountID, &c.CardName, &c.LastFourDigits,
		&c.CreditLimit.Cents, &c.CutoffDay, &c.PaymentDueDay, &c.AnnualInterestRate,
		&c.MinimumPaymentPercentage, &c.Color, &c.Icon, &c.AlertDaysBeforeCutoff,
		&c.AlertDaysBeforePayment, &c.AlertWhenUsageExceeds, &c.IsActive)
	return c, err
}

func (r *Repository) CreateCreditCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO credit_cards (user_id, account_id, card_name, last_four_digits, credit_limit_cents,
			cutoff_day, payment_due_day, annual_interest_rate, minimum_payment_percentage,
			color, icon, alert_days_before_cutoff, alert_days_before_payment, alert_when_usage_exceeds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.AccountID, c.CardName, c.LastFourDigits, c.CreditLimit.Cents,
		c.CutoffDay, c.PaymentDueDay, c.AnnualInterestRate, c.MinimumPaymentPercentage,
		c.Color, c.Icon, c.AlertDaysBeforeCutoff, c.AlertDaysBeforePayment, c.AlertWhenUsageExceeds)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.CreditCard{}, core.ErrCardExists
		}
		return core.CreditCard{}, fmt.Errorf("create credit card: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("create credit card id: %w", err)
	}
	return r.GetCreditCard(ctx, c.UserID, id)
}

func (r *Repository) GetCreditCard(ctx context.Context, userID, id int64) (core.CreditCard, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+creditCardColumns+` FROM credit_cards WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCreditCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CreditCard{}, core.ErrNotFound
	}
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("get credit card: %w", err)
	}
	return c, nil
}

func (r *Repository) GetCreditCardByAccount(ctx context.Context, accountID int64) (core.CreditCard, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+creditCardColumns+` FROM credit_cards WHERE account_id = ?`, accountID)
	c, err := scanCreditCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CreditCard{}, core.ErrNotFound
	}
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("get credit card by account: %w", err)
	}
	return c, nil
}

func (r *Repository) ListCreditCards(ctx context.Context, userID int64, activeOnly bool) ([]core.CreditCard, error) {
	query := `SELECT ` + creditCardColumns + ` FROM credit_cards WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w", err)
	}
	defer rows.Close()

	var cards []core.CreditCard
	for rows.Next() {
		c, err := scanCreditCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credit card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (r *Repository) UpdateCreditCard(ctx context.Context, c core.CreditCard) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE credit_cards SET card_name = ?, last_four_digits = ?, credit_limit_cents = ?,
			cutoff_day = ?, payment_due_day = ?, annual_interest_rate = ?,
			minimum_payment_percentage = ?, color = ?, icon = ?,
			alert_days_before_cutoff = ?, alert_days_before_payment = ?,
			alert_when_usage_exceeds = ?, is_active = ?
		WHERE id = ? AND user_id = ?`,
		c.CardName, c.LastFourDigits, c.CreditLimit.Cents, c.CutoffDay, c.PaymentDueDay,
		c.AnnualInterestRate, c.MinimumPaymentPercentage, c.Color, c.Icon,
		c.AlertDaysBeforeCutoff, c.AlertDaysBeforePayment, c.AlertWhenUsageExceeds,
		boolToInt(c.IsActive), c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("update credit card: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteCreditCard(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM credit_cards WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete credit card: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// SumCardCharges totals expenses on the card's account inside a date window.
func (r *Repository) SumCardCharges(ctx context.Context, accountID int64, from, to time.Time) (core.Money, error) {
	var total core.Money
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE account_id = ? AND type = 'expense' AND date >= ? AND date <= ?`,
		accountID, fmtDate(from), fmtDate(to)).Scan(&total.Cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum card charges: %w", err)
	}
	return total, nil
}

// SumCardPayments totals transfers into the card's account inside a window.
func (r *Repository) SumCardPayments(ctx context.Context, accountID int64, from, to time.Time) (core.Money, error) {
	var total core.Money
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE to_account_id = ? AND type = 'transfer' AND date >= ? AND date <= ?`,
		accountID, fmtDate(from), fmtDate(to)).Scan(&total.Cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum card payments: %w", err)
	}
	return total, nil
}

func (r *Repository) CreateInstallmentPurchase(ctx context.Context, p core.InstallmentPurchase) (core.InstallmentPurchase, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO installment_purchases (credit_card_id, user_id, category_id, description, merchant,
			total_cents, number_of_installments, installment_cents, purchase_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.CreditCardID, p.UserID, p.CategoryID, p.Description, p.Merchant,
		p.TotalAmount.Cents, p.NumberOfInstallments, p.InstallmentAmount.Cents,
		fmtDate(p.PurchaseDate))
	if err != nil {
		return core.InstallmentPurchase{}, fmt.Errorf("create installment purchase: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.InstallmentPurchase{}, fmt.Errorf("create installment purchase id: %w", err)
	}
	return r.GetInstallmentPurchase(ctx, p.UserID, id)
}

const installmentColumns = `id, credit_card_id, user_id, category_id, description, merchant,
	total_cents, number_of_installments, installment_cents, purchase_date, is_active, completed`

func scanInstallment(row interface{ Scan(...any) error }) (core.InstallmentPurchase, error) {
	var p core.InstallmentPurchase
	var purchaseDate string
	err := row.Scan(&p.ID, &p.CreditCardID, &p.UserID, &p.CategoryID, &p.Description,
		&p.Merchant, &p.TotalAmount.Cents, &p.NumberOfInstallments,
		&p.InstallmentAmount.Cents, &purchaseDate, &p.IsActive, &p.Completed)
	p.PurchaseDate = parseDate(purchaseDate)
	return p, err
}

func (r *Repository) GetInstallmentPurchase(ctx context.Context, userID, id int64) (core.InstallmentPurchase, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+installmentColumns+` FROM installment_purchases WHERE id = ? AND user_id = ?`, id, userID)
	p, err := scanInstallment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.InstallmentPurchase{}, core.ErrNotFound
	}
	if err != nil {
		return core.InstallmentPurchase{}, fmt.Errorf("get installment purchase: %w", err)
	}
	return p, nil
}

func (r *Repository) ListInstallmentPurchases(ctx context.Context, cardID int64, activeOnly bool) ([]core.InstallmentPurchase, error) {
	query := `SELECT ` + installmentColumns + ` FROM installment_purchases WHERE credit_card_id = ?`
	if activeOnly {
		query += ` AND is_active = 1 AND completed = 0`
	}
	query += ` ORDER BY purchase_date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, cardID)
	if err != nil {
		return nil, fmt.Errorf("list installment purchases: %w", err)
	}
	defer rows.Close()

	var purchases []core.InstallmentPurchase
	for rows.Next() {
		p, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan installment purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

func (r *Repository) DeleteInstallmentPurchase(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM installment_purchases WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete installment purchase: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// CountPostedInstallments counts plan charges dated on or before a day.
func (r *Repository) CountPostedInstallments(ctx context.Context, purchaseID int64, asOf time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE installment_purchase_id = ? AND date <= ?`,
		purchaseID, fmtDate(asOf)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count posted installments: %w", err)
	}
	return n, nil
}
