// README: Delivery fee settings and quote result.
package delivery

import "tamtom/internal/types"

// Settings is the fee formula for a quote. All amounts are minor units.
// MinFee <= MaxFee is assumed, not checked; the operator owns that invariant.
type Settings struct {
	BaseFee               types.Money
	PerKmFee              types.Money
	MinFee                types.Money
	MaxFee                types.Money
	FreeDeliveryThreshold *types.Money
}

type Quote struct {
	DistanceKm float64     `json:"distance_km"`
	Fee        types.Money `json:"fee"`
	Free       bool        `json:"free"`
}
