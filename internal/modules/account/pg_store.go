// README: Ledger store backed by PostgreSQL.
package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tamtom/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) GetAccount(ctx context.Context, restaurantID types.ID) (*Account, error) {
	row := s.db.QueryRow(ctx, `
        SELECT restaurant_id, commission_rate, total_orders,
               total_revenue, total_commission, available_balance, pending_amount,
               created_at, updated_at
        FROM restaurant_accounts
        WHERE restaurant_id = $1`, string(restaurantID),
	)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	return a, err
}

func (s *PGStore) CreateAccount(ctx context.Context, a *Account) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO restaurant_accounts (
            restaurant_id, commission_rate, total_orders,
            total_revenue, total_commission, available_balance, pending_amount,
            created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (restaurant_id) DO NOTHING`,
		string(a.RestaurantID), a.CommissionRate, a.TotalOrders,
		a.TotalRevenue.Amount, a.TotalCommission.Amount,
		a.AvailableBalance.Amount, a.PendingAmount.Amount,
		a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (s *PGStore) UpdateAccount(ctx context.Context, a *Account) error {
	return s.updateAccount(ctx, s.db, a)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *PGStore) updateAccount(ctx context.Context, db execer, a *Account) error {
	tag, err := db.Exec(ctx, `
        UPDATE restaurant_accounts
        SET commission_rate = $2,
            total_orders = $3,
            total_revenue = $4,
            total_commission = $5,
            available_balance = $6,
            pending_amount = $7,
            updated_at = NOW()
        WHERE restaurant_id = $1`,
		string(a.RestaurantID), a.CommissionRate, a.TotalOrders,
		a.TotalRevenue.Amount, a.TotalCommission.Amount,
		a.AvailableBalance.Amount, a.PendingAmount.Amount,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *PGStore) PostRevenue(ctx context.Context, updated *Account, revenueTx, commissionTx *Transaction) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	err = tx.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM restaurant_transactions
            WHERE order_id = $1 AND type = $2
        )`, orderIDArg(revenueTx.OrderID), string(TxOrderRevenue),
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return ErrRevenuePosted
	}

	if err := s.updateAccount(ctx, tx, updated); err != nil {
		return err
	}
	for _, t := range []*Transaction{revenueTx, commissionTx} {
		if err := insertTransaction(ctx, tx, t); err != nil {
			// The (order_id, type) unique index backstops the EXISTS check
			// against a concurrent poster.
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrRevenuePosted
			}
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PGStore) ApplyWithdrawal(ctx context.Context, updated *Account, w *Withdrawal, ledgerTx *Transaction) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.updateAccount(ctx, tx, updated); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
        INSERT INTO restaurant_withdrawals (
            id, restaurant_id, amount, status, payment_method, notes, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		w.ID, string(w.RestaurantID), w.Amount.Amount, string(w.Status),
		w.PaymentMethod, w.Notes, w.CreatedAt,
	)
	if err != nil {
		return err
	}
	if err := insertTransaction(ctx, tx, ledgerTx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertTransaction(ctx context.Context, db execer, t *Transaction) error {
	_, err := db.Exec(ctx, `
        INSERT INTO restaurant_transactions (
            id, restaurant_id, order_id, type, amount,
            balance_before, balance_after, description, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, string(t.RestaurantID), orderIDArg(t.OrderID), string(t.Type),
		t.Amount.Amount, t.BalanceBefore.Amount, t.BalanceAfter.Amount,
		t.Description, t.CreatedAt,
	)
	return err
}

func (s *PGStore) ListTransactions(ctx context.Context, restaurantID types.ID, f TransactionFilter) ([]Transaction, error) {
	q := `
        SELECT id, restaurant_id, order_id, type, amount,
               balance_before, balance_after, description, created_at
        FROM restaurant_transactions
        WHERE restaurant_id = $1`
	args := []any{string(restaurantID)}
	if f.Type != "" {
		args = append(args, string(f.Type))
		q += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		q += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	q += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		var orderID *string
		var amount, before, after int64
		if err := rows.Scan(&t.ID, &t.RestaurantID, &orderID, &t.Type,
			&amount, &before, &after, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		if orderID != nil {
			id := types.ID(*orderID)
			t.OrderID = &id
		}
		t.Amount = types.NewMoney(amount)
		t.BalanceBefore = types.NewMoney(before)
		t.BalanceAfter = types.NewMoney(after)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PGStore) ListWithdrawals(ctx context.Context, restaurantID types.ID, status WithdrawalStatus) ([]Withdrawal, error) {
	q := `
        SELECT id, restaurant_id, amount, status, payment_method, notes, created_at, processed_at
        FROM restaurant_withdrawals
        WHERE restaurant_id = $1`
	args := []any{string(restaurantID)}
	if status != "" {
		args = append(args, string(status))
		q += " AND status = $2"
	}
	q += " ORDER BY created_at DESC"

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Withdrawal
	for rows.Next() {
		var w Withdrawal
		var amount int64
		if err := rows.Scan(&w.ID, &w.RestaurantID, &amount, &w.Status,
			&w.PaymentMethod, &w.Notes, &w.CreatedAt, &w.ProcessedAt); err != nil {
			return nil, err
		}
		w.Amount = types.NewMoney(amount)
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *PGStore) UpsertDailyStats(ctx context.Context, d *DailyStats) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO restaurant_daily_stats (restaurant_id, day, orders_count, revenue, commission)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (restaurant_id, day) DO UPDATE
        SET orders_count = EXCLUDED.orders_count,
            revenue = EXCLUDED.revenue,
            commission = EXCLUDED.commission`,
		string(d.RestaurantID), d.Day, d.OrdersCount, d.Revenue.Amount, d.Commission.Amount,
	)
	return err
}

func (s *PGStore) DailyStatsRange(ctx context.Context, restaurantID types.ID, from, to time.Time) ([]DailyStats, error) {
	rows, err := s.db.Query(ctx, `
        SELECT restaurant_id, day, orders_count, revenue, commission
        FROM restaurant_daily_stats
        WHERE restaurant_id = $1 AND day >= $2 AND day <= $3
        ORDER BY day`, string(restaurantID), from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyStats
	for rows.Next() {
		var d DailyStats
		var revenue, commission int64
		if err := rows.Scan(&d.RestaurantID, &d.Day, &d.OrdersCount, &revenue, &commission); err != nil {
			return nil, err
		}
		d.Revenue = types.NewMoney(revenue)
		d.Commission = types.NewMoney(commission)
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	var revenue, commission, available, pending int64
	err := row.Scan(&a.RestaurantID, &a.CommissionRate, &a.TotalOrders,
		&revenue, &commission, &available, &pending,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.TotalRevenue = types.NewMoney(revenue)
	a.TotalCommission = types.NewMoney(commission)
	a.AvailableBalance = types.NewMoney(available)
	a.PendingAmount = types.NewMoney(pending)
	return &a, nil
}

func orderIDArg(id *types.ID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}
