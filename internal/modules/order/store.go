// README: Order store backed by PostgreSQL; optimistic status updates.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tamtom/internal/modules/account"
	"tamtom/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, o *Order) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO orders (
            id, restaurant_id, customer_id, driver_id, status, status_version,
            subtotal, delivery_fee, total, distance_km,
            dropoff_lat, dropoff_lng, created_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6,
            $7, $8, $9, $10,
            $11, $12, $13
        )`,
		string(o.ID), string(o.RestaurantID), string(o.CustomerID),
		idArg(o.DriverID), string(o.Status), o.StatusVersion,
		o.Subtotal.Amount, o.DeliveryFee.Amount, o.Total.Amount, o.DistanceKm,
		o.Dropoff.Lat, o.Dropoff.Lng, o.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, restaurant_id, customer_id, driver_id, status, status_version,
               subtotal, delivery_fee, total, distance_km,
               dropoff_lat, dropoff_lng,
               created_at, delivered_at, cancelled_at, cancel_reason
        FROM orders
        WHERE id = $1`, string(id),
	)

	var o Order
	var driverID, cancelReason *string
	var subtotal, deliveryFee, total int64

	err := row.Scan(
		&o.ID, &o.RestaurantID, &o.CustomerID, &driverID, &o.Status, &o.StatusVersion,
		&subtotal, &deliveryFee, &total, &o.DistanceKm,
		&o.Dropoff.Lat, &o.Dropoff.Lng,
		&o.CreatedAt, &o.DeliveredAt, &o.CancelledAt, &cancelReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if driverID != nil {
		d := types.ID(*driverID)
		o.DriverID = &d
	}
	o.CancelReason = cancelReason
	o.Subtotal = types.NewMoney(subtotal)
	o.DeliveryFee = types.NewMoney(deliveryFee)
	o.Total = types.NewMoney(total)
	return &o, nil
}

// UpdateStatus moves an order between states only when both the expected
// status and version still hold; a false return means someone else won.
func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, driverID *types.ID, reason *string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE orders
        SET status = $1,
            status_version = status_version + 1,
            driver_id = COALESCE($2, driver_id),
            cancel_reason = COALESCE($3, cancel_reason),
            delivered_at = CASE WHEN $1 = 'delivered' THEN NOW() ELSE delivered_at END,
            cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END
        WHERE id = $4 AND status = $5 AND status_version = $6`,
		string(to),
		idArg(driverID),
		reason,
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO order_status_events (
            order_id, from_status, to_status, actor_type, actor_id, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.OrderID), string(e.FromStatus), string(e.ToStatus),
		e.ActorType, idArg(e.ActorID), e.CreatedAt,
	)
	return err
}

// ListByRestaurant satisfies account.OrderReader for stats aggregation.
func (s *Store) ListByRestaurant(ctx context.Context, restaurantID types.ID, since time.Time) ([]account.OrderSummary, error) {
	q := `
        SELECT id, status, subtotal, created_at
        FROM orders
        WHERE restaurant_id = $1`
	args := []any{string(restaurantID)}
	if !since.IsZero() {
		args = append(args, since)
		q += " AND created_at >= $2"
	}
	q += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []account.OrderSummary
	for rows.Next() {
		var o account.OrderSummary
		var subtotal int64
		if err := rows.Scan(&o.ID, &o.Status, &subtotal, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Subtotal = types.NewMoney(subtotal)
		out = append(out, o)
	}
	return out, rows.Err()
}

func idArg(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
