// README: Pure revenue split for a delivered order.
package account

import (
	"math"

	"tamtom/internal/types"
)

// Revenue is the breakdown of a single order's subtotal between platform and
// restaurant. The delivery fee never accrues to the restaurant; it is echoed
// back for the order record only.
type Revenue struct {
	OrderAmount        types.Money `json:"order_amount"`
	PlatformCommission types.Money `json:"platform_commission"`
	RestaurantRevenue  types.Money `json:"restaurant_revenue"`
	DeliveryFee        types.Money `json:"delivery_fee"`
	NetRevenue         types.Money `json:"net_revenue"`
}

// SplitRevenue divides subtotal by the commission rate (percent). Commission
// rounds half away from zero to the nearest minor unit; the restaurant share
// is the exact remainder so the two always sum back to the subtotal.
func SplitRevenue(subtotal, deliveryFee types.Money, rate float64) Revenue {
	commission := types.NewMoney(int64(math.Round(float64(subtotal.Amount) * rate / 100)))
	restaurant := subtotal.Sub(commission)
	return Revenue{
		OrderAmount:        subtotal,
		PlatformCommission: commission,
		RestaurantRevenue:  restaurant,
		DeliveryFee:        deliveryFee,
		NetRevenue:         restaurant,
	}
}
