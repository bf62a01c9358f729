package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Expense  TransactionType = "expense"
	Income   TransactionType = "income"
	Transfer TransactionType = "transfer"
)

const (
	AccountCash       AccountType = "cash"
	AccountDebit      AccountType = "debit"
	AccountCredit     AccountType = "credit"
	AccountSavings    AccountType = "savings"
	AccountInvestment AccountType = "investment"
	AccountLoan       AccountType = "loan"
	AccountReceivable AccountType = "receivable"
)

const (
	CategoryExpense CategoryType = "expense"
	CategoryIncome  CategoryType = "income"
)

const (
	Daily      RecurrenceFrequency = "daily"
	Weekly     RecurrenceFrequency = "weekly"
	Biweekly   RecurrenceFrequency = "biweekly"
	Monthly    RecurrenceFrequency = "monthly"
	Bimonthly  RecurrenceFrequency = "bimonthly"
	Quarterly  RecurrenceFrequency = "quarterly"
	Semiannual RecurrenceFrequency = "semiannual"
	Annual     RecurrenceFrequency = "annual"
	Custom     RecurrenceFrequency = "custom"
)

const (
	BudgetCategory BudgetType = "category"
	BudgetAccount  BudgetType = "account"
	BudgetTag      BudgetType = "tag"
	BudgetGlobal   BudgetType = "global"
)

const (
	PeriodWeekly   BudgetPeriod = "weekly"
	PeriodBiweekly BudgetPeriod = "biweekly"
	PeriodMonthly  BudgetPeriod = "monthly"
	PeriodAnnual   BudgetPeriod = "annual"
)

const (
	GoalSavings     GoalType = "savings"
	GoalDebtPayment GoalType = "debt_payment"
	GoalInvestment  GoalType = "investment"
	GoalNetWorth    GoalType = "net_worth"
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	InvestmentStock      InvestmentType = "stock"
	InvestmentETF        InvestmentType = "etf"
	InvestmentMutualFund InvestmentType = "mutual_fund"
	InvestmentCrypto     InvestmentType = "crypto"
	InvestmentBond       InvestmentType = "bond"
	InvestmentRealEstate InvestmentType = "real_estate"
	InvestmentOther      InvestmentType = "other"
)

const (
	InvestmentBuy        InvestmentTxType = "buy"
	InvestmentSell       InvestmentTxType = "sell"
	InvestmentDividend   InvestmentTxType = "dividend"
	InvestmentSplit      InvestmentTxType = "split"
	InvestmentAdjustment InvestmentTxType = "adjustment"
)

const (
	AlertCardCutoff     AlertType = "credit_card_cutoff"
	AlertCardPayment    AlertType = "credit_card_payment"
	AlertCardHighUsage  AlertType = "credit_card_high_usage"
	AlertBudgetWarning  AlertType = "budget_warning"
	AlertBudgetExceeded AlertType = "budget_exceeded"
	AlertGoalCompleted  AlertType = "goal_completed"
	AlertRecurringDue   AlertType = "recurring_due"
	AlertCustom         AlertType = "custom"
)

const (
	SyncPending SyncStatus = "pending"
	SyncDone    SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

// DefaultCurrency is applied when a payload omits the currency code.
const DefaultCurrency = "MXN"

type (
	TransactionType     string
	AccountType         string
	CategoryType        string
	RecurrenceFrequency string
	BudgetType          string
	BudgetPeriod        string
	GoalType            string
	Priority            string
	InvestmentType      string
	InvestmentTxType    string
	AlertType           string
	SyncStatus          string

	Money struct {
		Cents int64
	}

	User struct {
		ID                     int64     `json:"id"`
		Email                  string    `json:"email"`
		Username               string    `json:"username"`
		PasswordHash           string    `json:"-"`
		FullName               string    `json:"full_name"`
		BaseCurrency           string    `json:"base_currency"`
		FinancialMonthStartDay int       `json:"financial_month_start_day"`
		HideAmounts            bool      `json:"hide_amounts"`
		EnableNotifications    bool      `json:"enable_notifications"`
		IsActive               bool      `json:"is_active"`
		CreatedAt              time.Time `json:"created_at"`
	}

	Account struct {
		ID                int64       `json:"id"`
		UserID            int64       `json:"user_id"`
		Name              string      `json:"name"`
		Type              AccountType `json:"type"`
		InitialBalance    Money       `json:"initial_balance"`
		Currency          string      `json:"currency"`
		Color             string      `json:"color,omitempty"`
		Icon              string      `json:"icon,omitempty"`
		IsDefault         bool        `json:"is_default"`
		IsArchived        bool        `json:"is_archived"`
		ExcludeFromTotals bool        `json:"exclude_from_totals"`
		DebtorName        string      `json:"debtor_name,omitempty"`
		DisplayOrder      int         `json:"display_order"`
		CreatedAt         time.Time   `json:"created_at"`
	}

	Category struct {
		ID           int64        `json:"id"`
		UserID       int64        `json:"user_id"`
		ParentID     int64        `json:"parent_id,omitempty"` // 0 for top-level categories
		Name         string       `json:"name"`
		Type         CategoryType `json:"type"`
		Icon         string       `json:"icon,omitempty"`
		Color        string       `json:"color,omitempty"`
		IsSystem     bool         `json:"is_system"`
		IsHidden     bool         `json:"is_hidden"`
		DisplayOrder int          `json:"display_order"`
	}

	TransactionSplit struct {
		ID         int64  `json:"id"`
		CategoryID int64  `json:"category_id"`
		Amount     Money  `json:"amount"`
		Notes      string `json:"notes,omitempty"`
	}

	Transaction struct {
		ID                    int64              `json:"id"`
		UserID                int64              `json:"user_id"`
		AccountID             int64              `json:"account_id"`
		CategoryID            int64              `json:"category_id,omitempty"` // 0 when uncategorized
		Type                  TransactionType    `json:"type"`
		Amount                Money              `json:"amount"`
		Currency              string             `json:"currency"`
		Date                  time.Time          `json:"date"`
		Merchant              string             `json:"merchant,omitempty"`
		Notes                 string             `json:"notes,omitempty"`
		Tags                  string             `json:"tags,omitempty"` // JSON-encoded list
		ToAccountID           int64              `json:"to_account_id,omitempty"` // transfers only
		IsReimbursable        bool               `json:"is_reimbursable"`
		Reimbursed            bool               `json:"reimbursed"`
		IsInstallment         bool               `json:"is_installment"`
		InstallmentPurchaseID int64              `json:"installment_purchase_id,omitempty"`
		InstallmentNumber     int                `json:"installment_number,omitempty"`
		IsSplit               bool               `json:"is_split"`
		Splits                []TransactionSplit `json:"splits,omitempty"`
		RecurringID           int64              `json:"recurring_id,omitempty"`
		SyncStatus            SyncStatus         `json:"sync_status"`
		Version               int64              `json:"version"`
		CreatedAt             time.Time          `json:"created_at"`
	}

	RecurringTransaction struct {
		ID                  int64               `json:"id"`
		UserID              int64               `json:"user_id"`
		AccountID           int64               `json:"account_id"`
		CategoryID          int64               `json:"category_id,omitempty"`
		Name                string              `json:"name"`
		Type                TransactionType     `json:"type"`
		Amount              Money               `json:"amount"`
		IsVariableAmount    bool                `json:"is_variable_amount"`
		Frequency           RecurrenceFrequency `json:"frequency"`
		CustomFrequencyDays int                 `json:"custom_frequency_days,omitempty"`
		DayOfMonth          int                 `json:"day_of_month,omitempty"` // 0 = unset
		StartDate           time.Time           `json:"start_date"`
		EndDate             time.Time           `json:"end_date,omitzero"` // zero = indefinite
		AutoCreate          bool                `json:"auto_create"`
		NotifyBeforeDays    int                 `json:"notify_before_days"`
		Merchant            string              `json:"merchant,omitempty"`
		Notes               string              `json:"notes,omitempty"`
		IsActive            bool                `json:"is_active"`
		LastCreatedDate     time.Time           `json:"last_created_date,omitzero"` // zero = never materialized
	}

	Budget struct {
		ID                      int64        `json:"id"`
		UserID                  int64        `json:"user_id"`
		Name                    string       `json:"name"`
		Type                    BudgetType   `json:"type"`
		LimitAmount             Money        `json:"limit_amount"`
		Period                  BudgetPeriod `json:"period"`
		StartDay                int          `json:"start_day"`
		EnableRollover          bool         `json:"enable_rollover"`
		RolloverMaxAccumulation Money        `json:"rollover_max_accumulation"`
		CurrentRollover         Money        `json:"current_rollover"`
		AlertAtPercentage       float64      `json:"alert_at_percentage"`
		AlertOnExceed           bool         `json:"alert_on_exceed"`
		CategoryID              int64        `json:"category_id,omitempty"`
		AccountID               int64        `json:"account_id,omitempty"`
		Tag                     string       `json:"tag,omitempty"`
		IsActive                bool         `json:"is_active"`
	}

	Goal struct {
		ID                        int64               `json:"id"`
		UserID                    int64               `json:"user_id"`
		Name                      string              `json:"name"`
		Description               string              `json:"description,omitempty"`
		Type                      GoalType            `json:"type"`
		TargetAmount              Money               `json:"target_amount"`
		InitialAmount             Money               `json:"initial_amount"`
		CurrentAmount             Money               `json:"current_amount"`
		TargetDate                time.Time           `json:"target_date,omitzero"` // zero = open-ended
		LinkedAccountID           int64               `json:"linked_account_id,omitempty"`
		AutoContributionAmount    Money               `json:"auto_contribution_amount"`
		AutoContributionFrequency RecurrenceFrequency `json:"auto_contribution_frequency,omitempty"`
		Priority                  Priority            `json:"priority"`
		Color                     string              `json:"color,omitempty"`
		Icon                      string              `json:"icon,omitempty"`
		IsCompleted               bool                `json:"is_completed"`
		CompletedAt               time.Time           `json:"completed_at,omitzero"`
		IsArchived                bool                `json:"is_archived"`
	}

	GoalContribution struct {
		ID          int64     `json:"id"`
		GoalID      int64     `json:"goal_id"`
		Amount      Money     `json:"amount"` // negative for withdrawals
		Date        time.Time `json:"date"`
		Notes       string    `json:"notes,omitempty"`
		IsAutomatic bool      `json:"is_automatic"`
	}

	CreditCard struct {
		ID                       int64   `json:"id"`
		UserID                   int64   `json:"user_id"`
		AccountID                int64   `json:"account_id"`
		CardName                 string  `json:"card_name"`
		LastFourDigits           string  `json:"last_four_digits,omitempty"`
		CreditLimit              Money   `json:"credit_limit"`
		CutoffDay                int     `json:"cutoff_day"`
		PaymentDueDay            int     `json:"payment_due_day"`
		AnnualInterestRate       float64 `json:"annual_interest_rate"`
		MinimumPaymentPercentage float64 `json:"minimum_payment_percentage"`
		Color                    string  `json:"color,omitempty"`
		Icon                     string  `json:"icon,omitempty"`
		AlertDaysBeforeCutoff    int     `json:"alert_days_before_cutoff"`
		AlertDaysBeforePayment   int     `json:"alert_days_before_payment"`
		AlertWhenUsageExceeds    float64 `json:"alert_when_usage_exceeds"`
		IsActive                 bool    `json:"is_active"`
	}

	InstallmentPurchase struct {
		ID                   int64     `json:"id"`
		CreditCardID         int64     `json:"credit_card_id"`
		UserID               int64     `json:"user_id"`
		CategoryID           int64     `json:"category_id,omitempty"`
		Description          string    `json:"description"`
		Merchant             string    `json:"merchant,omitempty"`
		TotalAmount          Money     `json:"total_amount"`
		NumberOfInstallments int       `json:"number_of_installments"`
		InstallmentAmount    Money     `json:"installment_amount"`
		PurchaseDate         time.Time `json:"purchase_date"`
		IsActive             bool      `json:"is_active"`
		Completed            bool      `json:"completed"`
	}

	Subscription struct {
		ID              int64               `json:"id"`
		UserID          int64               `json:"user_id"`
		RecurringID     int64               `json:"recurring_id,omitempty"`
		Name            string              `json:"name"`
		Amount          Money               `json:"amount"`
		Currency        string              `json:"currency"`
		Frequency       RecurrenceFrequency `json:"frequency"`
		BillingDay      int                 `json:"billing_day"`
		CategoryID      int64               `json:"category_id,omitempty"`
		AccountID       int64               `json:"account_id,omitempty"`
		URL             string              `json:"url,omitempty"`
		Notes           string              `json:"notes,omitempty"`
		NextBillingDate time.Time           `json:"next_billing_date,omitzero"`
		TrialEndDate    time.Time           `json:"trial_end_date,omitzero"`
		IsActive        bool                `json:"is_active"`
		IsDetected      bool                `json:"is_detected"`
	}

	Investment struct {
		ID              int64          `json:"id"`
		UserID          int64          `json:"user_id"`
		Name            string         `json:"name"`
		Ticker          string         `json:"ticker,omitempty"`
		Type            InvestmentType `json:"type"`
		Quantity        float64        `json:"quantity"`
		PurchasePrice   Money          `json:"purchase_price"` // per unit
		CurrentPrice    Money          `json:"current_price"`  // per unit
		PurchaseDate    time.Time      `json:"purchase_date"`
		LastPriceUpdate time.Time      `json:"last_price_update,omitzero"`
		BrokerAccount   string         `json:"broker_account,omitempty"`
		Currency        string         `json:"currency"`
		Notes           string         `json:"notes,omitempty"`
		IsActive        bool           `json:"is_active"`
	}

	InvestmentTransaction struct {
		ID           int64            `json:"id"`
		InvestmentID int64            `json:"investment_id"`
		UserID       int64            `json:"user_id"`
		Type         InvestmentTxType `json:"type"`
		Quantity     float64          `json:"quantity"`
		PricePerUnit Money            `json:"price_per_unit"`
		TotalAmount  Money            `json:"total_amount"`
		Date         time.Time        `json:"date"`
		Fees         Money            `json:"fees"`
		Notes        string           `json:"notes,omitempty"`
	}

	Alert struct {
		ID            int64     `json:"id"`
		UserID        int64     `json:"user_id"`
		Type          AlertType `json:"type"`
		Priority      Priority  `json:"priority"`
		Title         string    `json:"title"`
		Message       string    `json:"message"`
		TransactionID int64     `json:"transaction_id,omitempty"`
		BudgetID      int64     `json:"budget_id,omitempty"`
		GoalID        int64     `json:"goal_id,omitempty"`
		CreditCardID  int64     `json:"credit_card_id,omitempty"`
		RecurringID   int64     `json:"recurring_id,omitempty"`
		IsRead        bool      `json:"is_read"`
		ReadAt        time.Time `json:"read_at,omitzero"`
		CreatedAt     time.Time `json:"created_at"`
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("resource does not belong to user")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrAccountArchived  = errors.New("account is archived")
	ErrSameAccount      = errors.New("source and destination accounts must differ")
	ErrMissingToAccount = errors.New("destination account required for transfers")
	ErrSplitMismatch    = errors.New("split amounts do not sum to transaction amount")
	ErrNotCreditAccount = errors.New("account is not backed by a credit card")
	ErrGoalCompleted    = errors.New("goal is already completed")
	ErrGoalOverdraw     = errors.New("cannot withdraw more than accumulated")
	ErrInvalidFrequency = errors.New("invalid recurrence frequency")
	ErrInvalidDay       = errors.New("invalid day of month")
	ErrEmailTaken       = errors.New("email already registered")
	ErrUsernameTaken    = errors.New("username already registered")
	ErrBadCredentials   = errors.New("invalid email or password")
	ErrCardExists       = errors.New("a credit card is already configured for this account")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// Sub returns m minus o.
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) IsZero() bool     { return m.Cents == 0 }
func (m Money) IsNegative() bool { return m.Cents < 0 }

func (t TransactionType) Valid() bool {
	switch t {
	case Expense, Income, Transfer:
		return true
	}
	return false
}

func (t AccountType) Valid() bool {
	switch t {
	case AccountCash, AccountDebit, AccountCredit, AccountSavings,
		AccountInvestment, AccountLoan, AccountReceivable:
		return true
	}
	return false
}

// Liquid reports whether balances of this account type count as spendable money.
func (t AccountType) Liquid() bool {
	switch t {
	case AccountCash, AccountDebit, AccountSavings:
		return true
	}
	return false
}

// Liability reports whether this account type represents debt.
func (t AccountType) Liability() bool {
	return t == AccountCredit || t == AccountLoan
}

func (f RecurrenceFrequency) Valid() bool {
	switch f {
	case Daily, Weekly, Biweekly, Monthly, Bimonthly, Quarterly, Semiannual, Annual, Custom:
		return true
	}
	return false
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Type.Valid() {
		return errors.New("invalid account type")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Type != CategoryExpense && c.Type != CategoryIncome {
		return errors.New("invalid category type")
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return errors.New("invalid transaction type")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return errors.New("date is required")
	}
	if t.Type == Transfer && t.ToAccountID == 0 {
		return ErrMissingToAccount
	}
	if t.Type == Transfer && t.ToAccountID == t.AccountID {
		return ErrSameAccount
	}
	if len(t.Splits) > 0 {
		var sum int64
		for _, s := range t.Splits {
			if err := s.Amount.Validate(); err != nil {
				return err
			}
			sum += s.Amount.Cents
		}
		// Cents are exact, so no tolerance is needed here.
		if sum != t.Amount.Cents {
			return ErrSplitMismatch
		}
	}
	return nil
}

func (r RecurringTransaction) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if !r.Type.Valid() || r.Type == Transfer {
		return errors.New("recurring transactions must be expense or income")
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if !r.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if r.Frequency == Custom && r.CustomFrequencyDays < 1 {
		return errors.New("custom frequency requires custom_frequency_days")
	}
	if r.DayOfMonth != 0 && (r.DayOfMonth < 1 || r.DayOfMonth > 31) {
		return ErrInvalidDay
	}
	if r.StartDate.IsZero() {
		return errors.New("start date is required")
	}
	if !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate) {
		return errors.New("end date must not precede start date")
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if err := b.LimitAmount.Validate(); err != nil {
		return err
	}
	switch b.Type {
	case BudgetCategory:
		if b.CategoryID == 0 {
			return errors.New("category budget requires category_id")
		}
	case BudgetAccount:
		if b.AccountID == 0 {
			return errors.New("account budget requires account_id")
		}
	case BudgetTag:
		if strings.TrimSpace(b.Tag) == "" {
			return errors.New("tag budget requires tag")
		}
	case BudgetGlobal:
	default:
		return errors.New("invalid budget type")
	}
	switch b.Period {
	case PeriodWeekly, PeriodBiweekly, PeriodMonthly, PeriodAnnual:
	default:
		return errors.New("invalid budget period")
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return err
	}
	if g.InitialAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	if g.InitialAmount.Cents > g.TargetAmount.Cents {
		return errors.New("initial amount cannot exceed target amount")
	}
	return nil
}

func (c CreditCard) Validate() error {
	if strings.TrimSpace(c.CardName) == "" {
		return ErrEmptyName
	}
	if err := c.CreditLimit.Validate(); err != nil {
		return err
	}
	if c.CutoffDay < 1 || c.CutoffDay > 28 {
		return errors.New("cutoff day must be between 1 and 28")
	}
	if c.PaymentDueDay < 1 || c.PaymentDueDay > 28 {
		return errors.New("payment due day must be between 1 and 28")
	}
	if c.MinimumPaymentPercentage <= 0 || c.MinimumPaymentPercentage > 100 {
		return errors.New("minimum payment percentage must be between 0 and 100")
	}
	return nil
}
