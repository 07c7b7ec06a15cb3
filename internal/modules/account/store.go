// README: Ledger store contract. The pg implementation applies each posting
// as a single transaction; the contract spells out the atomicity so fakes
// must honor it too.
package account

import (
	"context"
	"errors"
	"time"

	"tamtom/internal/types"
)

var (
	ErrAccountNotFound = errors.New("restaurant account not found")
	// ErrRevenuePosted means the order already has an order_revenue ledger
	// row; posting is idempotent and repeats are rejected unchanged.
	ErrRevenuePosted = errors.New("revenue already posted for order")
)

type TransactionFilter struct {
	Type   TransactionType // empty matches all
	Since  time.Time       // zero matches all
	Limit  int             // 0 means no limit
	Offset int
}

type Store interface {
	GetAccount(ctx context.Context, restaurantID types.ID) (*Account, error)
	// CreateAccount is a no-op if the account already exists.
	CreateAccount(ctx context.Context, a *Account) error
	UpdateAccount(ctx context.Context, a *Account) error

	// PostRevenue persists the updated account and both ledger rows as one
	// atomic unit. Fails with ErrRevenuePosted when the revenue row's order
	// already appears in the ledger, leaving everything untouched.
	PostRevenue(ctx context.Context, updated *Account, revenueTx, commissionTx *Transaction) error

	// ApplyWithdrawal persists the updated account, the pending withdrawal
	// row, and its ledger row as one atomic unit.
	ApplyWithdrawal(ctx context.Context, updated *Account, w *Withdrawal, tx *Transaction) error

	ListTransactions(ctx context.Context, restaurantID types.ID, f TransactionFilter) ([]Transaction, error)
	ListWithdrawals(ctx context.Context, restaurantID types.ID, status WithdrawalStatus) ([]Withdrawal, error)

	UpsertDailyStats(ctx context.Context, s *DailyStats) error
	DailyStatsRange(ctx context.Context, restaurantID types.ID, from, to time.Time) ([]DailyStats, error)
}
