// README: Order service implements state transitions and revenue posting on delivery.
package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"

	"tamtom/internal/logger"
	"tamtom/internal/modules/delivery"
	"tamtom/internal/types"
)

var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("order not found")
	ErrConflict     = errors.New("order state conflict")
	ErrBadRequest   = errors.New("bad request")
)

// Quoter prices the delivery leg at submission time. Whatever it returns is
// the authoritative fee for the order; there is no server-side re-validation
// at delivery time.
type Quoter interface {
	QuoteTrip(ctx context.Context, origin, dest types.Point, subtotal types.Money) delivery.Quote
}

// Ledger posts a delivered order's revenue. Implementations must be
// idempotent per order.
type Ledger interface {
	PostDeliveredOrder(ctx context.Context, orderID, restaurantID types.ID, subtotal, deliveryFee types.Money) error
}

type Service struct {
	store  *Store
	quoter Quoter
	ledger Ledger
}

func NewService(store *Store, quoter Quoter, ledger Ledger) *Service {
	return &Service{store: store, quoter: quoter, ledger: ledger}
}

type CreateCommand struct {
	RestaurantID types.ID
	CustomerID   types.ID
	Subtotal     types.Money
	Origin       types.Point // restaurant
	Dropoff      types.Point // customer
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if cmd.RestaurantID == "" || cmd.CustomerID == "" || !cmd.Subtotal.IsPositive() {
		return nil, ErrBadRequest
	}

	now := time.Now().UTC()
	o := &Order{
		ID:           newID(),
		RestaurantID: cmd.RestaurantID,
		CustomerID:   cmd.CustomerID,
		Status:       StatusPending,
		Subtotal:     cmd.Subtotal,
		Dropoff:      cmd.Dropoff,
		CreatedAt:    now,
	}

	if s.quoter != nil {
		q := s.quoter.QuoteTrip(ctx, cmd.Origin, cmd.Dropoff, cmd.Subtotal)
		o.DeliveryFee = q.Fee
		o.DistanceKm = q.DistanceKm
	} else {
		o.DeliveryFee = types.NewMoney(0)
	}
	o.Total = o.Subtotal.Add(o.DeliveryFee)

	if err := s.store.Create(ctx, o); err != nil {
		return nil, err
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorType:  "customer",
		ActorID:    &cmd.CustomerID,
		CreatedAt:  now,
	})
	return o, nil
}

type TransitionCommand struct {
	OrderID   types.ID
	To        Status
	ActorType string
	ActorID   *types.ID
	DriverID  *types.ID
	Reason    *string
}

// Transition advances an order through the state machine. On the delivered
// transition the restaurant's revenue is posted. A posting failure is logged
// and surfaced, but by then the status row is already delivered and the state
// machine offers no re-entry into that transition; recovery means re-posting
// the order against the ledger directly, which its idempotency guard allows.
// There is no compensating rollback of the status flip.
func (s *Service) Transition(ctx context.Context, cmd TransitionCommand) (*Order, error) {
	o, err := s.store.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, cmd.To) {
		return nil, ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, cmd.To, o.StatusVersion, cmd.DriverID, cmd.Reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	_ = s.store.AppendEvent(ctx, &Event{
		OrderID:    o.ID,
		FromStatus: o.Status,
		ToStatus:   cmd.To,
		ActorType:  cmd.ActorType,
		ActorID:    cmd.ActorID,
		CreatedAt:  time.Now().UTC(),
	})

	if cmd.To == StatusDelivered && s.ledger != nil {
		if err := s.ledger.PostDeliveredOrder(ctx, o.ID, o.RestaurantID, o.Subtotal, o.DeliveryFee); err != nil {
			logger.L().Error("revenue posting failed after delivery",
				zap.String("order_id", string(o.ID)),
				zap.String("restaurant_id", string(o.RestaurantID)),
				zap.Error(err))
			return nil, err
		}
	}
	return s.store.Get(ctx, o.ID)
}

func (s *Service) Cancel(ctx context.Context, orderID types.ID, actorType string, reason string) (*Order, error) {
	return s.Transition(ctx, TransitionCommand{
		OrderID:   orderID,
		To:        StatusCancelled,
		ActorType: actorType,
		Reason:    &reason,
	})
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
