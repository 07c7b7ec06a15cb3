// README: Read-only aggregations: period stats and daily stats maintenance.
package account

import (
	"context"
	"fmt"
	"time"

	"tamtom/internal/types"
)

type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// ParsePeriod validates a query-string period, defaulting empty to "all".
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodAll:
		return Period(s), nil
	case "":
		return PeriodAll, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

func periodStart(p Period, now time.Time) time.Time {
	switch p {
	case PeriodToday:
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case PeriodWeek:
		return now.Add(-7 * 24 * time.Hour)
	case PeriodMonth:
		return now.Add(-30 * 24 * time.Hour)
	default:
		return time.Time{}
	}
}

type Stats struct {
	Period            Period      `json:"period"`
	TotalOrders       int         `json:"total_orders"`
	DeliveredOrders   int         `json:"delivered_orders"`
	CancelledOrders   int         `json:"cancelled_orders"`
	Revenue           types.Money `json:"revenue"`
	Commission        types.Money `json:"commission"`
	AverageOrderValue types.Money `json:"average_order_value"`
	AverageRating     float64     `json:"average_rating"`
}

// Stats aggregates the restaurant's orders over the window. Commission is
// summed from the ledger rows written at posting time, so a later commission
// rate change does not rewrite history.
func (s *Service) Stats(ctx context.Context, restaurantID types.ID, period Period) (*Stats, error) {
	since := periodStart(period, time.Now())

	st := &Stats{
		Period:            period,
		Revenue:           types.NewMoney(0),
		Commission:        types.NewMoney(0),
		AverageOrderValue: types.NewMoney(0),
	}

	if s.orders != nil {
		orders, err := s.orders.ListByRestaurant(ctx, restaurantID, since)
		if err != nil {
			return nil, err
		}
		st.TotalOrders = len(orders)
		for _, o := range orders {
			switch o.Status {
			case "delivered":
				st.DeliveredOrders++
				st.Revenue = st.Revenue.Add(o.Subtotal)
			case "cancelled":
				st.CancelledOrders++
			}
		}
		if st.DeliveredOrders > 0 {
			st.AverageOrderValue = types.NewMoney(st.Revenue.Amount / int64(st.DeliveredOrders))
		}
	}

	commissions, err := s.store.ListTransactions(ctx, restaurantID, TransactionFilter{
		Type:  TxCommissionDeduction,
		Since: since,
	})
	if err != nil {
		return nil, err
	}
	for _, t := range commissions {
		st.Commission = st.Commission.Add(t.Amount.Neg())
	}

	if s.ratings != nil {
		rating, err := s.ratings.AverageApproved(ctx, restaurantID)
		if err != nil {
			return nil, err
		}
		st.AverageRating = rating
	}
	return st, nil
}

// RecordDailyStats recomputes and upserts the snapshot row for one UTC day.
func (s *Service) RecordDailyStats(ctx context.Context, restaurantID types.ID, day time.Time) (*DailyStats, error) {
	y, m, d := day.UTC().Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	stats := &DailyStats{
		RestaurantID: restaurantID,
		Day:          dayStart,
		Revenue:      types.NewMoney(0),
		Commission:   types.NewMoney(0),
	}

	if s.orders != nil {
		orders, err := s.orders.ListByRestaurant(ctx, restaurantID, dayStart)
		if err != nil {
			return nil, err
		}
		for _, o := range orders {
			if o.Status != "delivered" || !o.CreatedAt.Before(dayEnd) {
				continue
			}
			stats.OrdersCount++
			stats.Revenue = stats.Revenue.Add(o.Subtotal)
		}
	}

	commissions, err := s.store.ListTransactions(ctx, restaurantID, TransactionFilter{
		Type:  TxCommissionDeduction,
		Since: dayStart,
	})
	if err != nil {
		return nil, err
	}
	for _, t := range commissions {
		if t.CreatedAt.Before(dayEnd) {
			stats.Commission = stats.Commission.Add(t.Amount.Neg())
		}
	}

	if err := s.store.UpsertDailyStats(ctx, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Service) DailyStats(ctx context.Context, restaurantID types.ID, from, to time.Time) ([]DailyStats, error) {
	return s.store.DailyStatsRange(ctx, restaurantID, from, to)
}
