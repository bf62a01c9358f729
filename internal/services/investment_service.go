package services

import (
	"context"
	"fmt"
	"math"

	"monea/internal/core"
	"monea/internal/log"
	"monea/internal/storage"
)

type InvestmentService struct {
	repo   *storage.Repository
	logger *log.Logger
}

func NewInvestmentService(repo *storage.Repository, logger *log.Logger) *InvestmentService {
	return &InvestmentService{repo: repo, logger: logger.WithComponent(log.ComponentAnalytics)}
}

func (s *InvestmentService) Create(ctx context.Context, inv core.Investment) (core.Investment, error) {
	if inv.Quantity <= 0 {
		return core.Investment{}, fmt.Errorf("quantity must be positive")
	}
	if err := inv.PurchasePrice.Validate(); err != nil {
		return core.Investment{}, err
	}
	if inv.CurrentPrice.Cents == 0 {
		inv.CurrentPrice = inv.PurchasePrice
	}
	if inv.Currency == "" {
		inv.Currency = core.DefaultCurrency
	}
	if inv.PurchaseDate.IsZero() {
		inv.PurchaseDate = today()
	}
	return s.repo.CreateInvestment(ctx, inv)
}

func (s *InvestmentService) Get(ctx context.Context, userID, id int64) (core.Investment, error) {
	return s.repo.GetInvestment(ctx, userID, id)
}

func (s *InvestmentService) List(ctx context.Context, userID int64, activeOnly bool) ([]core.Investment, error) {
	return s.repo.ListInvestments(ctx, userID, activeOnly)
}

func (s *InvestmentService) Update(ctx context.Context, inv core.Investment) (core.Investment, error) {
	if err := s.repo.UpdateInvestment(ctx, inv); err != nil {
		return core.Investment{}, err
	}
	return s.repo.GetInvestment(ctx, inv.UserID, inv.ID)
}

func (s *InvestmentService) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.DeleteInvestment(ctx, userID, id)
}

// UpdatePrice records a fresh market price for a position.
func (s *InvestmentService) UpdatePrice(ctx context.Context, userID, id int64, price core.Money) (core.Investment, error) {
	if err := price.Validate(); err != nil {
		return core.Investment{}, err
	}
	if err := s.repo.UpdateInvestmentPrice(ctx, userID, id, price, today()); err != nil {
		return core.Investment{}, err
	}
	return s.repo.GetInvestment(ctx, userID, id)
}

// RecordTransaction registers a buy or sell, adjusting the held quantity.
// Sells cannot exceed the held quantity.
func (s *InvestmentService) RecordTransaction(ctx context.Context, t core.InvestmentTransaction) (core.InvestmentTransaction, error) {
	inv, err := s.repo.GetInvestment(ctx, t.UserID, t.InvestmentID)
	if err != nil {
		return core.InvestmentTransaction{}, err
	}
	if t.Quantity <= 0 {
		return core.InvestmentTransaction{}, fmt.Errorf("quantity must be positive")
	}
	if err := t.PricePerUnit.Validate(); err != nil {
		return core.InvestmentTransaction{}, err
	}
	if t.Date.IsZero() {
		t.Date = today()
	}
	if t.TotalAmount.Cents == 0 {
		t.TotalAmount = core.Money{Cents: int64(math.Round(float64(t.PricePerUnit.Cents) * t.Quantity))}
	}

	var delta float64
	switch t.Type {
	case core.InvestmentBuy:
		delta = t.Quantity
	case core.InvestmentSell:
		if t.Quantity > inv.Quantity {
			return core.InvestmentTransaction{}, fmt.Errorf("cannot sell %.4f units, only %.4f held", t.Quantity, inv.Quantity)
		}
		delta = -t.Quantity
	case core.InvestmentDividend:
		delta = 0
	default:
		return core.InvestmentTransaction{}, fmt.Errorf("unsupported investment transaction type %q", t.Type)
	}

	created, err := s.repo.CreateInvestmentTransaction(ctx, t)
	if err != nil {
		return core.InvestmentTransaction{}, err
	}
	if delta != 0 {
		if err := s.repo.AdjustInvestmentQuantity(ctx, inv.ID, delta); err != nil {
			return core.InvestmentTransaction{}, err
		}
	}
	s.logger.InfoContext(ctx, "Investment transaction recorded",
		"investment_id", inv.ID, "tx_type", string(t.Type), log.FieldUserID, t.UserID)
	return created, nil
}

func (s *InvestmentService) Transactions(ctx context.Context, userID, investmentID int64) ([]core.InvestmentTransaction, error) {
	if _, err := s.repo.GetInvestment(ctx, userID, investmentID); err != nil {
		return nil, err
	}
	return s.repo.ListInvestmentTransactions(ctx, investmentID)
}

// PositionPerformance is one holding with its market value and return.
type PositionPerformance struct {
	Investment  core.Investment `json:"investment"`
	CostBasis   core.Money      `json:"cost_basis"`
	MarketValue core.Money      `json:"market_value"`
	Gain        core.Money      `json:"gain"`
	GainPct     float64         `json:"gain_pct"`
	StalePrice  bool            `json:"stale_price"` // price older than 7 days
}

// PortfolioSummary aggregates every active position.
type PortfolioSummary struct {
	TotalCostBasis   core.Money            `json:"total_cost_basis"`
	TotalMarketValue core.Money            `json:"total_market_value"`
	TotalGain        core.Money            `json:"total_gain"`
	TotalGainPct     float64               `json:"total_gain_pct"`
	Positions        []PositionPerformance `json:"positions"`
}

// Portfolio computes per-position and aggregate returns at current prices.
func (s *InvestmentService) Portfolio(ctx context.Context, userID int64) (PortfolioSummary, error) {
	investments, err := s.repo.ListInvestments(ctx, userID, true)
	if err != nil {
		return PortfolioSummary{}, err
	}

	staleCutoff := today().AddDate(0, 0, -7)
	var summary PortfolioSummary
	for _, inv := range investments {
		gain, pct := core.InvestmentReturn(inv.PurchasePrice, inv.CurrentPrice, inv.Quantity)
		cost := core.Money{Cents: int64(math.Round(float64(inv.PurchasePrice.Cents) * inv.Quantity))}
		value := core.Money{Cents: int64(math.Round(float64(inv.CurrentPrice.Cents) * inv.Quantity))}

		summary.Positions = append(summary.Positions, PositionPerformance{
			Investment:  inv,
			CostBasis:   cost,
			MarketValue: value,
			Gain:        gain,
			GainPct:     pct,
			StalePrice:  inv.LastPriceUpdate.IsZero() || inv.LastPriceUpdate.Before(staleCutoff),
		})
		summary.TotalCostBasis = summary.TotalCostBasis.Add(cost)
		summary.TotalMarketValue = summary.TotalMarketValue.Add(value)
	}
	summary.TotalGain = summary.TotalMarketValue.Sub(summary.TotalCostBasis)
	if summary.TotalCostBasis.Cents > 0 {
		summary.TotalGainPct = float64(summary.TotalGain.Cents) / float64(summary.TotalCostBasis.Cents) * 100.0
	}
	return summary, nil
}
