// README: Restaurant ledger aggregates: account, transactions, withdrawals, daily stats.
package account

import (
	"time"

	"tamtom/internal/types"
)

// DefaultCommissionRate is the platform cut applied to accounts created
// lazily on first revenue posting, in percent.
const DefaultCommissionRate = 15.0

type Account struct {
	RestaurantID     types.ID
	CommissionRate   float64
	TotalOrders      int64
	TotalRevenue     types.Money
	TotalCommission  types.Money
	AvailableBalance types.Money
	PendingAmount    types.Money
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type TransactionType string

const (
	TxOrderRevenue        TransactionType = "order_revenue"
	TxCommissionDeduction TransactionType = "commission_deduction"
	TxWithdrawalRequest   TransactionType = "withdrawal_request"
)

// Transaction is an append-only ledger row. Created, never mutated or deleted.
type Transaction struct {
	ID            string
	RestaurantID  types.ID
	OrderID       *types.ID
	Type          TransactionType
	Amount        types.Money // signed
	BalanceBefore types.Money
	BalanceAfter  types.Money
	Description   string
	CreatedAt     time.Time
}

type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalCompleted WithdrawalStatus = "completed"
	WithdrawalRejected  WithdrawalStatus = "rejected"
)

// Withdrawal rows are created pending here; status transitions belong to the
// back-office and are only read back through ListWithdrawals.
type Withdrawal struct {
	ID            string
	RestaurantID  types.ID
	Amount        types.Money
	Status        WithdrawalStatus
	PaymentMethod string
	Notes         string
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

type DailyStats struct {
	RestaurantID types.ID
	Day          time.Time // midnight UTC
	OrdersCount  int64
	Revenue      types.Money
	Commission   types.Money
}
