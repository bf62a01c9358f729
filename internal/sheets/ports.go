// Package sheets defines the outbound port for the ledger mirror.
package sheets

import (
	"context"

	"monea/internal/core"
)

// LedgerWriter appends transactions to an external ledger. The worker treats
// a nil writer as "mirror disabled".
type LedgerWriter interface {
	AppendTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
