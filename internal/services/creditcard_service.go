package services

import (
	"context"
	"time"

	"monea/internal/core"
	"monea/internal/log"
	"monea/internal/storage"
)

type CreditCardService struct {
	repo         *storage.Repository
	transactions *TransactionService
	logger       *log.Logger
}

func NewCreditCardService(repo *storage.Repository, transactions *TransactionService, logger *log.Logger) *CreditCardService {
	return &CreditCardService{
		repo:         repo,
		transactions: transactions,
		logger:       logger.WithComponent(log.ComponentCreditCard),
	}
}

// Create registers a credit card over an existing credit account. One card
// per account.
func (s *CreditCardService) Create(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	if c.MinimumPaymentPercentage == 0 {
		c.MinimumPaymentPercentage = 5
	}
	if err := c.Validate(); err != nil {
		return core.CreditCard{}, err
	}
	account, err := s.repo.GetAccount(ctx, c.UserID, c.AccountID)
	if err != nil {
		return core.CreditCard{}, err
	}
	if account.Type != core.AccountCredit {
		return core.CreditCard{}, core.ErrNotCreditAccount
	}
	return s.repo.CreateCreditCard(ctx, c)
}

func (s *CreditCardService) Get(ctx context.Context, userID, id int64) (core.CreditCard, error) {
	return s.repo.GetCreditCard(ctx, userID, id)
}

func (s *CreditCardService) List(ctx context.Context, userID int64, activeOnly bool) ([]core.CreditCard, error) {
	return s.repo.ListCreditCards(ctx, userID, activeOnly)
}

func (s *CreditCardService) Update(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	if err := c.Validate(); err != nil {
		return core.CreditCard{}, err
	}
	if err := s.repo.UpdateCreditCard(ctx, c); err != nil {
		return core.CreditCard{}, err
	}
	return s.repo.GetCreditCard(ctx, c.UserID, c.ID)
}

func (s *CreditCardService) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteCreditCard(ctx, userID, id)
}

// CardSummary is the statement-oriented view of a credit card.
type CardSummary struct {
	Card             core.CreditCard `json:"card"`
	PeriodStart      time.Time       `json:"period_start"`
	CutoffDate       time.Time       `json:"cutoff_date"` // close of the statement awaiting payment
	NextCutoffDate   time.Time       `json:"next_cutoff_date"`
	PaymentDueDate   time.Time       `json:"payment_due_date"`
	StatementBalance core.Money      `json:"statement_balance"` // charges minus payments in the closed period
	PostCutoffSpend  core.Money      `json:"post_cutoff_spend"`
	InstallmentDebt  core.Money      `json:"installment_debt"` // remaining charges of active plans
	Available        core.Money      `json:"available"`
	UsagePercentage  float64         `json:"usage_percentage"`
	MinimumPayment   core.Money      `json:"minimum_payment"`
	PaymentMade      core.Money      `json:"payment_made"` // payments since the cutoff
	IsPaid           bool            `json:"is_paid"`
}

// Summary computes the closed statement, upcoming dates and available credit
// for one card.
func (s *CreditCardService) Summary(ctx context.Context, userID, cardID int64) (CardSummary, error) {
	card, err := s.repo.GetCreditCard(ctx, userID, cardID)
	if err != nil {
		return CardSummary{}, err
	}
	return s.summaryFor(ctx, card, today())
}

// SummaryAll computes the statement view of every active card.
func (s *CreditCardService) SummaryAll(ctx context.Context, userID int64) ([]CardSummary, error) {
	cards, err := s.repo.ListCreditCards(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	now := today()
	out := make([]CardSummary, 0, len(cards))
	for _, card := range cards {
		summary, err := s.summaryFor(ctx, card, now)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *CreditCardService) summaryFor(ctx context.Context, card core.CreditCard, now time.Time) (CardSummary, error) {
	start, cutoff := core.ClosedPeriod(card.CutoffDay, now)

	charges, err := s.repo.SumCardCharges(ctx, card.AccountID, start, cutoff)
	if err != nil {
		return CardSummary{}, err
	}
	payments, err := s.repo.SumCardPayments(ctx, card.AccountID, start, cutoff)
	if err != nil {
		return CardSummary{}, err
	}
	statement := charges.Sub(payments)
	if statement.IsNegative() {
		statement = core.Money{}
	}

	postCutoff, err := s.repo.SumCardCharges(ctx, card.AccountID, cutoff.AddDate(0, 0, 1), now)
	if err != nil {
		return CardSummary{}, err
	}
	paymentsSince, err := s.repo.SumCardPayments(ctx, card.AccountID, cutoff.AddDate(0, 0, 1), now)
	if err != nil {
		return CardSummary{}, err
	}

	installmentDebt, err := s.installmentDebt(ctx, card.ID, now)
	if err != nil {
		return CardSummary{}, err
	}

	owedNow := statement.Sub(paymentsSince)
	if owedNow.IsNegative() {
		owedNow = core.Money{}
	}
	available := core.CreditAvailable(card.CreditLimit, owedNow, postCutoff, installmentDebt)
	used := card.CreditLimit.Sub(available)

	return CardSummary{
		Card:             card,
		PeriodStart:      start,
		CutoffDate:       cutoff,
		NextCutoffDate:   core.NextOccurrence(card.CutoffDay, now),
		PaymentDueDate:   core.NextOccurrence(card.PaymentDueDay, cutoff),
		StatementBalance: statement,
		PostCutoffSpend:  postCutoff,
		InstallmentDebt:  installmentDebt,
		Available:        available,
		UsagePercentage:  used.PercentOf(card.CreditLimit),
		MinimumPayment:   core.MinimumPayment(statement, card.MinimumPaymentPercentage),
		PaymentMade:      paymentsSince,
		IsPaid:           statement.Cents > 0 && paymentsSince.Cents >= statement.Cents,
	}, nil
}

// installmentDebt sums the charges of active plans not yet posted as of now.
func (s *CreditCardService) installmentDebt(ctx context.Context, cardID int64, now time.Time) (core.Money, error) {
	plans, err := s.repo.ListInstallmentPurchases(ctx, cardID, true)
	if err != nil {
		return core.Money{}, err
	}
	var debt core.Money
	for _, p := range plans {
		posted, err := s.repo.CountPostedInstallments(ctx, p.ID, now)
		if err != nil {
			return core.Money{}, err
		}
		pending := p.NumberOfInstallments - posted
		if pending <= 0 {
			continue
		}
		debt = debt.Add(core.Money{Cents: p.InstallmentAmount.Cents * int64(pending)})
	}
	return debt, nil
}

// RegisterPayment records a card payment as a transfer from a funding account
// into the card's account.
func (s *CreditCardService) RegisterPayment(ctx context.Context, userID, cardID, fromAccountID int64, amount core.Money, date time.Time) (core.Transaction, error) {
	card, err := s.repo.GetCreditCard(ctx, userID, cardID)
	if err != nil {
		return core.Transaction{}, err
	}
	if date.IsZero() {
		date = today()
	}
	t, err := s.transactions.Create(ctx, core.Transaction{
		UserID:      userID,
		AccountID:   fromAccountID,
		Type:        core.Transfer,
		Amount:      amount,
		Date:        date,
		ToAccountID: card.AccountID,
		Notes:       "Pago de tarjeta " + card.CardName,
	})
	if err != nil {
		return core.Transaction{}, err
	}
	s.logger.InfoContext(ctx, "Card payment registered",
		log.FieldCardID, card.ID, log.FieldAmountCents, amount.Cents, log.FieldUserID, userID)
	return t, nil
}

// PayoffStep is one simulated month of a minimum-payment payoff.
type PayoffStep struct {
	Month    int        `json:"month"`
	Payment  core.Money `json:"payment"`
	Interest core.Money `json:"interest"`
	Balance  core.Money `json:"balance"` // after payment
}

// PayoffSimulation projects how long paying only the minimum takes.
type PayoffSimulation struct {
	Months        int          `json:"months"`
	TotalPaid     core.Money   `json:"total_paid"`
	TotalInterest core.Money   `json:"total_interest"`
	Steps         []PayoffStep `json:"steps"`
	NeverPaysOff  bool         `json:"never_pays_off"`
}

const payoffSimulationCapMonths = 600

// SimulateMinimumPayoff projects month by month what happens paying only the
// minimum: interest accrues first, then the minimum payment is applied. A
// simulation that does not converge within 50 years is reported as such.
func (s *CreditCardService) SimulateMinimumPayoff(ctx context.Context, userID, cardID int64) (PayoffSimulation, error) {
	card, err := s.repo.GetCreditCard(ctx, userID, cardID)
	if err != nil {
		return PayoffSimulation{}, err
	}
	summary, err := s.summaryFor(ctx, card, today())
	if err != nil {
		return PayoffSimulation{}, err
	}

	balance := summary.StatementBalance.Add(summary.PostCutoffSpend).Add(summary.InstallmentDebt)
	var sim PayoffSimulation
	for month := 1; balance.Cents > 0; month++ {
		if month > payoffSimulationCapMonths {
			sim.NeverPaysOff = true
			break
		}
		interest := core.MonthlyInterest(balance, card.AnnualInterestRate)
		balance = balance.Add(interest)

		payment := core.MinimumPayment(balance, card.MinimumPaymentPercentage)
		if payment.Cents >= balance.Cents || payment.Cents == 0 {
			payment = balance
		}
		balance = balance.Sub(payment)

		sim.Months = month
		sim.TotalPaid = sim.TotalPaid.Add(payment)
		sim.TotalInterest = sim.TotalInterest.Add(interest)
		sim.Steps = append(sim.Steps, PayoffStep{
			Month: month, Payment: payment, Interest: interest, Balance: balance,
		})
	}
	return sim, nil
}

func (s *CreditCardService) InstallmentPurchases(ctx context.Context, userID, cardID int64, activeOnly bool) ([]core.InstallmentPurchase, error) {
	if _, err := s.repo.GetCreditCard(ctx, userID, cardID); err != nil {
		return nil, err
	}
	return s.repo.ListInstallmentPurchases(ctx, cardID, activeOnly)
}
