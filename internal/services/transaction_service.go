// Package services implements the business rules on top of storage.
package services

import (
	"context"
	"fmt"
	"time"

	"monea/internal/core"
	"monea/internal/log"
	"monea/internal/storage"
)

// EventPublisher pushes transaction events to the worker queue. A nil
// publisher disables eventing, for tests and queue-less deployments.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, id, version int64) error
}

type TransactionService struct {
	repo      *storage.Repository
	publisher EventPublisher
	logger    *log.Logger
}

func NewTransactionService(repo *storage.Repository, publisher EventPublisher, logger *log.Logger) *TransactionService {
	return &TransactionService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentTransaction),
	}
}

// Create validates and persists a transaction, then emits an event. Credit
// card purchases with more than one installment fan out into an installment
// plan instead of a single row.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.Currency == "" {
		t.Currency = core.DefaultCurrency
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	account, err := s.repo.GetAccount(ctx, t.UserID, t.AccountID)
	if err != nil {
		return core.Transaction{}, err
	}
	if account.IsArchived {
		return core.Transaction{}, core.ErrAccountArchived
	}
	if t.Type == core.Transfer {
		dest, err := s.repo.GetAccount(ctx, t.UserID, t.ToAccountID)
		if err != nil {
			return core.Transaction{}, err
		}
		if dest.IsArchived {
			return core.Transaction{}, core.ErrAccountArchived
		}
	}

	created, err := s.repo.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}

	s.publishEvent(ctx, created.ID, created.Version)
	s.logger.InfoContext(ctx, "Transaction created",
		log.FieldTxID, created.ID,
		log.FieldTxType, string(created.Type),
		log.FieldAmountCents, created.Amount.Cents,
		log.FieldUserID, created.UserID)
	return created, nil
}

// CreateInstallmentPlan records a credit card purchase paid in n monthly
// charges. The per-charge amount is total/n rounded down, with the remainder
// cents added to the first charge so the sum is exact.
func (s *TransactionService) CreateInstallmentPlan(ctx context.Context, p core.InstallmentPurchase) (core.InstallmentPurchase, []core.Transaction, error) {
	if p.NumberOfInstallments < 2 {
		return core.InstallmentPurchase{}, nil, fmt.Errorf("installment plan needs at least 2 installments")
	}
	if err := p.TotalAmount.Validate(); err != nil {
		return core.InstallmentPurchase{}, nil, err
	}

	card, err := s.repo.GetCreditCard(ctx, p.UserID, p.CreditCardID)
	if err != nil {
		return core.InstallmentPurchase{}, nil, err
	}

	n := int64(p.NumberOfInstallments)
	base := p.TotalAmount.Cents / n
	remainder := p.TotalAmount.Cents - base*n
	p.InstallmentAmount = core.Money{Cents: base}

	purchase, err := s.repo.CreateInstallmentPurchase(ctx, p)
	if err != nil {
		return core.InstallmentPurchase{}, nil, err
	}

	txs := make([]core.Transaction, p.NumberOfInstallments)
	for i := range txs {
		amount := base
		if i == 0 {
			amount += remainder
		}
		chargeDate := core.ClampDay(
			p.PurchaseDate.AddDate(0, i, 0).Year(),
			p.PurchaseDate.AddDate(0, i, 0).Month(),
			p.PurchaseDate.Day())
		txs[i] = core.Transaction{
			UserID:                p.UserID,
			AccountID:             card.AccountID,
			CategoryID:            p.CategoryID,
			Type:                  core.Expense,
			Amount:                core.Money{Cents: amount},
			Currency:              core.DefaultCurrency,
			Date:                  chargeDate,
			Merchant:              p.Merchant,
			Notes:                 fmt.Sprintf("%s (%d/%d)", p.Description, i+1, p.NumberOfInstallments),
			IsInstallment:         true,
			InstallmentPurchaseID: purchase.ID,
			InstallmentNumber:     i + 1,
		}
	}

	ids, err := s.repo.CreateTransactions(ctx, txs)
	if err != nil {
		return core.InstallmentPurchase{}, nil, err
	}
	for i, id := range ids {
		txs[i].ID = id
		s.publishEvent(ctx, id, 1)
	}

	s.logger.InfoContext(ctx, "Installment plan created",
		log.FieldCardID, card.ID,
		log.FieldAmountCents, p.TotalAmount.Cents,
		"installments", p.NumberOfInstallments,
		log.FieldUserID, p.UserID)
	return purchase, txs, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, userID, id)
}

func (s *TransactionService) List(ctx context.Context, userID int64, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, f)
}

func (s *TransactionService) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.repo.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, err
	}
	updated, err := s.repo.GetTransaction(ctx, t.UserID, t.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publishEvent(ctx, updated.ID, updated.Version)
	return updated, nil
}

// Delete removes a transaction. Deleting one charge of an installment plan
// removes the whole plan, so partial plans never linger.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	t, err := s.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}
	if t.IsInstallment && t.InstallmentPurchaseID != 0 {
		if err := s.repo.DeleteInstallmentTransactions(ctx, userID, t.InstallmentPurchaseID); err != nil {
			return err
		}
		if err := s.repo.DeleteInstallmentPurchase(ctx, userID, t.InstallmentPurchaseID); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "Installment plan deleted",
			"installment_purchase_id", t.InstallmentPurchaseID, log.FieldUserID, userID)
		return nil
	}
	return s.repo.DeleteTransaction(ctx, userID, id)
}

// AccountBalance applies the balance identity over persisted movements.
func (s *TransactionService) AccountBalance(ctx context.Context, userID, accountID int64) (core.Money, error) {
	account, err := s.repo.GetAccount(ctx, userID, accountID)
	if err != nil {
		return core.Money{}, err
	}
	flows, err := s.repo.GetAccountFlows(ctx, accountID)
	if err != nil {
		return core.Money{}, err
	}
	return core.AccountBalance(account.InitialBalance, flows.Incomes, flows.Expenses,
		flows.TransfersIn, flows.TransfersOut), nil
}

func (s *TransactionService) publishEvent(ctx context.Context, id, version int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, id, version); err != nil {
		// Eventing is best effort; the worker sweep picks up missed rows.
		s.logger.WarnContext(ctx, "Failed to publish transaction event",
			log.FieldTxID, id, log.FieldError, err)
	}
}

// truncate to day in UTC, shared by services working with calendar dates
func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
