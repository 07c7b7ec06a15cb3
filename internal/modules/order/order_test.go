package order

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"tamtom/internal/modules/delivery"
	"tamtom/internal/types"
)

// TestCanTransition verifies the state machine transition table without a database.
func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// happy-path forward transitions
		{StatusPending, StatusConfirmed, true},
		{StatusConfirmed, StatusPreparing, true},
		{StatusPreparing, StatusOutForDelivery, true},
		{StatusOutForDelivery, StatusDelivered, true},
		// cancels from every non-terminal state
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusPreparing, StatusCancelled, true},
		{StatusOutForDelivery, StatusCancelled, true},
		// invalid: terminal states have no outgoing transitions
		{StatusDelivered, StatusPending, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
		// invalid: skipping states
		{StatusPending, StatusPreparing, false},
		{StatusPending, StatusDelivered, false},
		{StatusConfirmed, StatusDelivered, false},
		// invalid: moving backwards
		{StatusPreparing, StatusConfirmed, false},
		{StatusOutForDelivery, StatusPreparing, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"pending", "confirmed", "preparing", "out_for_delivery", "delivered", "cancelled"} {
		if _, ok := ParseStatus(valid); !ok {
			t.Errorf("ParseStatus(%q) rejected a valid status", valid)
		}
	}
	for _, invalid := range []string{"", "none", "shipped", "DELIVERED"} {
		if _, ok := ParseStatus(invalid); ok {
			t.Errorf("ParseStatus(%q) accepted an invalid status", invalid)
		}
	}
}

type recordingLedger struct {
	mu    sync.Mutex
	calls []types.ID
}

func (r *recordingLedger) PostDeliveredOrder(_ context.Context, orderID, _ types.ID, _, _ types.Money) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, orderID)
	return nil
}

type fixedQuoter struct{ fee int64 }

func (q fixedQuoter) QuoteTrip(_ context.Context, origin, dest types.Point, _ types.Money) delivery.Quote {
	return delivery.Quote{DistanceKm: delivery.DistanceKm(origin, dest), Fee: types.NewMoney(q.fee)}
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("TAMTOM_TEST_DSN")
	if dsn == "" {
		t.Skip("TAMTOM_TEST_DSN not set; skipping DB-backed order tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(ctx, "TRUNCATE TABLE order_status_events, orders"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return NewStore(db)
}

func mustCreateOrder(t *testing.T, svc *Service, customerID types.ID) *Order {
	t.Helper()
	o, err := svc.Create(context.Background(), CreateCommand{
		RestaurantID: "rest_1",
		CustomerID:   customerID,
		Subtotal:     types.FromMajor(100),
		Origin:       types.Point{Lat: 24.7136, Lng: 46.6753},
		Dropoff:      types.Point{Lat: 24.7743, Lng: 46.7386},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func transition(t *testing.T, svc *Service, id types.ID, to Status) *Order {
	t.Helper()
	o, err := svc.Transition(context.Background(), TransitionCommand{
		OrderID:   id,
		To:        to,
		ActorType: "restaurant",
	})
	if err != nil {
		t.Fatalf("transition to %s: %v", to, err)
	}
	return o
}

func TestOrderFlowHappyPath(t *testing.T) {
	ledger := &recordingLedger{}
	svc := NewService(setupTestStore(t), fixedQuoter{fee: 700}, ledger)

	o := mustCreateOrder(t, svc, "cust_happy")
	if o.Status != StatusPending {
		t.Fatalf("status = %s, want pending", o.Status)
	}
	if o.Total.Decimal() != "107.00" {
		t.Fatalf("total = %s, want 107.00", o.Total.Decimal())
	}

	transition(t, svc, o.ID, StatusConfirmed)
	transition(t, svc, o.ID, StatusPreparing)
	transition(t, svc, o.ID, StatusOutForDelivery)
	final := transition(t, svc, o.ID, StatusDelivered)

	if final.Status != StatusDelivered {
		t.Fatalf("status = %s, want delivered", final.Status)
	}
	if final.DeliveredAt == nil {
		t.Fatal("expected delivered_at to be set")
	}
	if len(ledger.calls) != 1 || ledger.calls[0] != o.ID {
		t.Fatalf("ledger calls = %v, want exactly one for %s", ledger.calls, o.ID)
	}
}

func TestOrderInvalidTransitions(t *testing.T) {
	svc := NewService(setupTestStore(t), nil, nil)
	ctx := context.Background()

	o := mustCreateOrder(t, svc, "cust_invalid")

	if _, err := svc.Transition(ctx, TransitionCommand{OrderID: o.ID, To: StatusDelivered, ActorType: "driver"}); err != ErrInvalidState {
		t.Fatalf("deliver from pending: expected ErrInvalidState, got %v", err)
	}
	if _, err := svc.Transition(ctx, TransitionCommand{OrderID: o.ID, To: StatusPreparing, ActorType: "restaurant"}); err != ErrInvalidState {
		t.Fatalf("prepare from pending: expected ErrInvalidState, got %v", err)
	}
	if _, err := svc.Get(ctx, "no_such_order"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOrderCancelTerminal(t *testing.T) {
	svc := NewService(setupTestStore(t), nil, nil)
	ctx := context.Background()

	o := mustCreateOrder(t, svc, "cust_cancel")
	cancelled, err := svc.Cancel(ctx, o.ID, "customer", "changed my mind")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("cancelled order = %+v", cancelled)
	}

	if _, err := svc.Transition(ctx, TransitionCommand{OrderID: o.ID, To: StatusConfirmed, ActorType: "restaurant"}); err != ErrInvalidState {
		t.Fatalf("confirm after cancel: expected ErrInvalidState, got %v", err)
	}
}

type failingLedger struct {
	recordingLedger
	failures int
}

func (f *failingLedger) PostDeliveredOrder(ctx context.Context, orderID, restaurantID types.ID, subtotal, fee types.Money) error {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return errors.New("ledger unavailable")
	}
	f.mu.Unlock()
	return f.recordingLedger.PostDeliveredOrder(ctx, orderID, restaurantID, subtotal, fee)
}

// TestDeliveredPostingFailure documents the no-rollback contract: a failed
// posting leaves the order delivered, the state machine cannot re-enter the
// delivered transition, and recovery is a direct re-post to the ledger.
func TestDeliveredPostingFailure(t *testing.T) {
	ledger := &failingLedger{failures: 1}
	svc := NewService(setupTestStore(t), nil, ledger)
	ctx := context.Background()

	o := mustCreateOrder(t, svc, "cust_postfail")
	transition(t, svc, o.ID, StatusConfirmed)
	transition(t, svc, o.ID, StatusPreparing)
	transition(t, svc, o.ID, StatusOutForDelivery)

	if _, err := svc.Transition(ctx, TransitionCommand{OrderID: o.ID, To: StatusDelivered, ActorType: "driver"}); err == nil {
		t.Fatal("expected the posting error to surface")
	}

	// The status flip is not rolled back.
	got, err := svc.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusDelivered {
		t.Fatalf("status = %s, want delivered", got.Status)
	}

	// The transition cannot be replayed to trigger another posting.
	if _, err := svc.Transition(ctx, TransitionCommand{OrderID: o.ID, To: StatusDelivered, ActorType: "driver"}); err != ErrInvalidState {
		t.Fatalf("replayed deliver: expected ErrInvalidState, got %v", err)
	}

	// Recovery path: re-post directly; the ledger's idempotency guard owns
	// duplicate protection.
	if err := ledger.PostDeliveredOrder(ctx, o.ID, o.RestaurantID, o.Subtotal, o.DeliveryFee); err != nil {
		t.Fatalf("direct re-post: %v", err)
	}
	if len(ledger.calls) != 1 || ledger.calls[0] != o.ID {
		t.Fatalf("ledger calls = %v, want exactly one for %s", ledger.calls, o.ID)
	}
}

func TestConcurrentDeliverVsCancel(t *testing.T) {
	ledger := &recordingLedger{}
	svc := NewService(setupTestStore(t), nil, ledger)
	ctx := context.Background()

	o := mustCreateOrder(t, svc, "cust_race")
	transition(t, svc, o.ID, StatusConfirmed)
	transition(t, svc, o.ID, StatusPreparing)
	transition(t, svc, o.ID, StatusOutForDelivery)

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.Transition(ctx, TransitionCommand{OrderID: o.ID, To: StatusDelivered, ActorType: "driver"})
		errs <- err
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.Cancel(ctx, o.ID, "customer", "too late")
		errs <- err
	}()
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrConflict && err != ErrInvalidState {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", success)
	}

	final, err := svc.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Status == StatusDelivered && len(ledger.calls) != 1 {
		t.Fatalf("delivered but ledger calls = %d", len(ledger.calls))
	}
	if final.Status == StatusCancelled && len(ledger.calls) != 0 {
		t.Fatalf("cancelled but ledger was called")
	}
}
