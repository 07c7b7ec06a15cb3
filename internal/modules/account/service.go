// README: Account service: revenue posting, withdrawals, partial updates.
// Per-restaurant read-modify-write is serialized by a keyed mutex on top of
// the store's transactional writes.
package account

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tamtom/internal/logger"
	"tamtom/internal/metrics"
	"tamtom/internal/types"
)

var (
	ErrInvalidAmount       = errors.New("withdrawal amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient available balance")
	ErrInvalidCommission   = errors.New("commission rate must be between 0 and 100")
)

// OrderSummary is the slice of an order the ledger needs for aggregation.
// Defined here so the order store can feed stats without a module cycle.
type OrderSummary struct {
	ID        types.ID
	Status    string
	Subtotal  types.Money
	CreatedAt time.Time
}

type OrderReader interface {
	ListByRestaurant(ctx context.Context, restaurantID types.ID, since time.Time) ([]OrderSummary, error)
}

type RatingReader interface {
	AverageApproved(ctx context.Context, restaurantID types.ID) (float64, error)
}

type Service struct {
	store   Store
	orders  OrderReader  // optional; stats report zero orders without it
	ratings RatingReader // optional

	mu    sync.Mutex
	locks map[types.ID]*sync.Mutex
}

func NewService(store Store, orders OrderReader, ratings RatingReader) *Service {
	return &Service{
		store:   store,
		orders:  orders,
		ratings: ratings,
		locks:   make(map[types.ID]*sync.Mutex),
	}
}

// lockRestaurant serializes balance mutations for one restaurant. Two
// concurrent postings (or a posting racing a withdrawal) must not both read
// the same stale balance.
func (s *Service) lockRestaurant(id types.ID) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// GetOrCreateAccount fetches the restaurant's account, lazily creating it
// with the default commission rate.
func (s *Service) GetOrCreateAccount(ctx context.Context, restaurantID types.ID) (*Account, error) {
	a, err := s.store.GetAccount(ctx, restaurantID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}
	now := time.Now().UTC()
	fresh := &Account{
		RestaurantID:     restaurantID,
		CommissionRate:   DefaultCommissionRate,
		TotalRevenue:     types.NewMoney(0),
		TotalCommission:  types.NewMoney(0),
		AvailableBalance: types.NewMoney(0),
		PendingAmount:    types.NewMoney(0),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateAccount(ctx, fresh); err != nil {
		return nil, err
	}
	// Re-read: a concurrent creator may have won the ON CONFLICT race.
	return s.store.GetAccount(ctx, restaurantID)
}

type PostRevenueCommand struct {
	OrderID      types.ID
	RestaurantID types.ID
	Subtotal     types.Money
	DeliveryFee  types.Money
}

// PostOrderRevenue applies a delivered order to the restaurant's account:
// totals and available balance move up, and two ledger rows are appended —
// a positive order_revenue row and an informational commission_deduction row
// whose before/after balances are equal (the commission was already netted
// out of the revenue increment, it is not subtracted twice).
//
// Posting the same order twice returns ErrRevenuePosted and changes nothing.
func (s *Service) PostOrderRevenue(ctx context.Context, cmd PostRevenueCommand) (Revenue, error) {
	unlock := s.lockRestaurant(cmd.RestaurantID)
	defer unlock()

	acct, err := s.GetOrCreateAccount(ctx, cmd.RestaurantID)
	if err != nil {
		return Revenue{}, err
	}

	rev := SplitRevenue(cmd.Subtotal, cmd.DeliveryFee, acct.CommissionRate)
	before := acct.AvailableBalance

	updated := *acct
	updated.TotalOrders++
	updated.TotalRevenue = updated.TotalRevenue.Add(rev.OrderAmount)
	updated.TotalCommission = updated.TotalCommission.Add(rev.PlatformCommission)
	updated.AvailableBalance = updated.AvailableBalance.Add(rev.RestaurantRevenue)
	after := updated.AvailableBalance

	now := time.Now().UTC()
	orderID := cmd.OrderID
	revenueTx := &Transaction{
		ID:            uuid.NewString(),
		RestaurantID:  cmd.RestaurantID,
		OrderID:       &orderID,
		Type:          TxOrderRevenue,
		Amount:        rev.RestaurantRevenue,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   fmt.Sprintf("revenue for order %s", cmd.OrderID),
		CreatedAt:     now,
	}
	commissionTx := &Transaction{
		ID:            uuid.NewString(),
		RestaurantID:  cmd.RestaurantID,
		OrderID:       &orderID,
		Type:          TxCommissionDeduction,
		Amount:        rev.PlatformCommission.Neg(),
		BalanceBefore: after,
		BalanceAfter:  after,
		Description:   fmt.Sprintf("platform commission for order %s (%.1f%%)", cmd.OrderID, acct.CommissionRate),
		CreatedAt:     now,
	}

	if err := s.store.PostRevenue(ctx, &updated, revenueTx, commissionTx); err != nil {
		if errors.Is(err, ErrRevenuePosted) {
			metrics.RevenuePostingsTotal.WithLabelValues("duplicate").Inc()
			return rev, err
		}
		metrics.RevenuePostingsTotal.WithLabelValues("error").Inc()
		logger.L().Error("post order revenue failed",
			zap.String("restaurant_id", string(cmd.RestaurantID)),
			zap.String("order_id", string(cmd.OrderID)),
			zap.Error(err))
		return Revenue{}, err
	}
	metrics.RevenuePostingsTotal.WithLabelValues("posted").Inc()
	return rev, nil
}

// PostDeliveredOrder adapts PostOrderRevenue for the order state machine:
// a repeated posting is success from the order's point of view.
func (s *Service) PostDeliveredOrder(ctx context.Context, orderID, restaurantID types.ID, subtotal, deliveryFee types.Money) error {
	_, err := s.PostOrderRevenue(ctx, PostRevenueCommand{
		OrderID:      orderID,
		RestaurantID: restaurantID,
		Subtotal:     subtotal,
		DeliveryFee:  deliveryFee,
	})
	if errors.Is(err, ErrRevenuePosted) {
		return nil
	}
	return err
}

// RequestWithdrawal moves amount from available to pending and appends the
// withdrawal_request ledger row. Failed preconditions change nothing.
func (s *Service) RequestWithdrawal(ctx context.Context, restaurantID types.ID, amount types.Money, paymentMethod, notes string) (*Withdrawal, error) {
	unlock := s.lockRestaurant(restaurantID)
	defer unlock()

	acct, err := s.store.GetAccount(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		metrics.WithdrawalsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidAmount
	}
	if acct.AvailableBalance.LessThan(amount) {
		metrics.WithdrawalsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrInsufficientBalance
	}

	before := acct.AvailableBalance
	updated := *acct
	updated.AvailableBalance = updated.AvailableBalance.Sub(amount)
	updated.PendingAmount = updated.PendingAmount.Add(amount)

	now := time.Now().UTC()
	w := &Withdrawal{
		ID:            uuid.NewString(),
		RestaurantID:  restaurantID,
		Amount:        amount,
		Status:        WithdrawalPending,
		PaymentMethod: paymentMethod,
		Notes:         notes,
		CreatedAt:     now,
	}
	ledgerTx := &Transaction{
		ID:            uuid.NewString(),
		RestaurantID:  restaurantID,
		Type:          TxWithdrawalRequest,
		Amount:        amount.Neg(),
		BalanceBefore: before,
		BalanceAfter:  updated.AvailableBalance,
		Description:   fmt.Sprintf("withdrawal request %s", w.ID),
		CreatedAt:     now,
	}

	if err := s.store.ApplyWithdrawal(ctx, &updated, w, ledgerTx); err != nil {
		logger.L().Error("apply withdrawal failed",
			zap.String("restaurant_id", string(restaurantID)),
			zap.Error(err))
		return nil, err
	}
	metrics.WithdrawalsTotal.WithLabelValues("accepted").Inc()
	return w, nil
}

// AccountPatch is a validated partial update from the back-office form.
type AccountPatch struct {
	CommissionRate *float64
}

func (s *Service) UpdateAccount(ctx context.Context, restaurantID types.ID, patch AccountPatch) (*Account, error) {
	unlock := s.lockRestaurant(restaurantID)
	defer unlock()

	acct, err := s.store.GetAccount(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if patch.CommissionRate != nil {
		if *patch.CommissionRate < 0 || *patch.CommissionRate > 100 {
			return nil, ErrInvalidCommission
		}
		acct.CommissionRate = *patch.CommissionRate
	}
	if err := s.store.UpdateAccount(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

func (s *Service) Transactions(ctx context.Context, restaurantID types.ID, f TransactionFilter) ([]Transaction, error) {
	return s.store.ListTransactions(ctx, restaurantID, f)
}

func (s *Service) Withdrawals(ctx context.Context, restaurantID types.ID, status WithdrawalStatus) ([]Withdrawal, error) {
	return s.store.ListWithdrawals(ctx, restaurantID, status)
}
