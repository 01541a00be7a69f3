// Package ledger provides the asset ledger that pools move funds through.
// Pools never hold balances themselves; they instruct a Ledger to debit
// and credit accounts and treat any failure as grounds for rollback.
package ledger

import (
	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
)

//go:generate mockgen -source=ledger.go -destination=mocks/mock_ledger.go -package=mocks

// Ledger is the custody capability handed to a pool. Each call either
// applies completely or fails leaving every balance untouched.
type Ledger interface {
	// Debit removes amt of the asset from the account. It fails with
	// ErrInsufficientFunds when the account balance is too small.
	Debit(a asset.Asset, from string, amt amount.Amount) error

	// Credit adds amt of the asset to the account. It fails with
	// ErrTransferFailed when the credit cannot be applied.
	Credit(a asset.Asset, to string, amt amount.Amount) error
}
