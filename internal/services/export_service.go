package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"monea/internal/core"
	"monea/internal/log"
	"monea/internal/storage"
)

type ExportService struct {
	repo   *storage.Repository
	logger *log.Logger
}

func NewExportService(repo *storage.Repository, logger *log.Logger) *ExportService {
	return &ExportService{repo: repo, logger: logger.WithComponent(log.ComponentTransaction)}
}

var exportHeader = []string{
	"id", "date", "type", "amount", "currency", "account", "category",
	"merchant", "notes", "tags", "to_account",
}

// ExportCSV streams a user's filtered transactions as CSV. Amounts are
// written as decimal units, not cents, to match spreadsheet expectations.
func (s *ExportService) ExportCSV(ctx context.Context, userID int64, f storage.TransactionFilter, w io.Writer) error {
	txs, err := s.repo.ListTransactions(ctx, userID, f)
	if err != nil {
		return err
	}
	names, err := s.lookupNames(ctx, userID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range txs {
		record := []string{
			strconv.FormatInt(t.ID, 10),
			t.Date.Format(core.DateOnly),
			string(t.Type),
			strconv.FormatFloat(t.Amount.Units(), 'f', 2, 64),
			t.Currency,
			names.accounts[t.AccountID],
			names.categories[t.CategoryID],
			t.Merchant,
			t.Notes,
			t.Tags,
			names.accounts[t.ToAccountID],
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	s.logger.InfoContext(ctx, "Transactions exported",
		log.FieldUserID, userID, "format", "csv", "rows", len(txs))
	return nil
}

// exportedTransaction is the JSON export shape, self-contained with resolved
// account and category names.
type exportedTransaction struct {
	ID        int64   `json:"id"`
	Date      string  `json:"date"`
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Account   string  `json:"account"`
	Category  string  `json:"category,omitempty"`
	Merchant  string  `json:"merchant,omitempty"`
	Notes     string  `json:"notes,omitempty"`
	Tags      string  `json:"tags,omitempty"`
	ToAccount string  `json:"to_account,omitempty"`
}

// ExportJSON streams a user's filtered transactions as a JSON array.
func (s *ExportService) ExportJSON(ctx context.Context, userID int64, f storage.TransactionFilter, w io.Writer) error {
	txs, err := s.repo.ListTransactions(ctx, userID, f)
	if err != nil {
		return err
	}
	names, err := s.lookupNames(ctx, userID)
	if err != nil {
		return err
	}

	out := make([]exportedTransaction, 0, len(txs))
	for _, t := range txs {
		out = append(out, exportedTransaction{
			ID:        t.ID,
			Date:      t.Date.Format(core.DateOnly),
			Type:      string(t.Type),
			Amount:    t.Amount.Units(),
			Currency:  t.Currency,
			Account:   names.accounts[t.AccountID],
			Category:  names.categories[t.CategoryID],
			Merchant:  t.Merchant,
			Notes:     t.Notes,
			Tags:      t.Tags,
			ToAccount: names.accounts[t.ToAccountID],
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}

	s.logger.InfoContext(ctx, "Transactions exported",
		log.FieldUserID, userID, "format", "json", "rows", len(txs))
	return nil
}

type nameLookup struct {
	accounts   map[int64]string
	categories map[int64]string
}

func (s *ExportService) lookupNames(ctx context.Context, userID int64) (nameLookup, error) {
	accounts, err := s.repo.ListAccounts(ctx, userID, true)
	if err != nil {
		return nameLookup{}, err
	}
	categories, err := s.repo.ListCategories(ctx, userID, "")
	if err != nil {
		return nameLookup{}, err
	}

	names := nameLookup{
		accounts:   make(map[int64]string, len(accounts)),
		categories: make(map[int64]string, len(categories)),
	}
	for _, a := range accounts {
		names.accounts[a.ID] = a.Name
	}
	for _, c := range categories {
		names.categories[c.ID] = c.Name
	}
	return names, nil
}
