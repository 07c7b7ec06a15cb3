// README: Delivery fee calculator: haversine distance plus a clamped linear fee.
package delivery

import (
	"context"
	"math"

	"go.uber.org/zap"

	"tamtom/internal/logger"
	"tamtom/internal/metrics"
	"tamtom/internal/types"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points, rounded to
// two decimals. Inputs are trusted; NaN in means NaN out.
func DistanceKm(a, b types.Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return math.Round(earthRadiusKm*c*100) / 100
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// ComputeFee derives the fee for a quoted distance. The free-delivery
// short-circuit wins before any distance-based charge; otherwise the linear
// formula is clamped into [MinFee, MaxFee]. Pure, no failure modes.
func ComputeFee(distanceKm float64, subtotal types.Money, s Settings) types.Money {
	if s.FreeDeliveryThreshold != nil && subtotal.Amount >= s.FreeDeliveryThreshold.Amount {
		return types.NewMoney(0)
	}
	fee := s.BaseFee.Amount + int64(math.Round(distanceKm*float64(s.PerKmFee.Amount)))
	if fee < s.MinFee.Amount {
		fee = s.MinFee.Amount
	}
	if fee > s.MaxFee.Amount {
		fee = s.MaxFee.Amount
	}
	return types.NewMoney(fee)
}

// DistanceProvider resolves a road distance between two points, e.g. via the
// Google Directions API.
type DistanceProvider interface {
	RoadDistanceKm(ctx context.Context, origin, dest types.Point) (float64, error)
}

type Service struct {
	settings Settings
	roads    DistanceProvider // nil means haversine only
}

func NewService(settings Settings, roads DistanceProvider) *Service {
	return &Service{settings: settings, roads: roads}
}

func (s *Service) Settings() Settings {
	return s.settings
}

// QuoteTrip prices a delivery from restaurant to customer. Road distance is
// preferred when a provider is configured; haversine is the fallback so a
// quote always succeeds.
func (s *Service) QuoteTrip(ctx context.Context, origin, dest types.Point, subtotal types.Money) Quote {
	dist := DistanceKm(origin, dest)
	source := "haversine"
	if s.roads != nil {
		if rd, err := s.roads.RoadDistanceKm(ctx, origin, dest); err == nil {
			// Same precision as DistanceKm so quotes are uniform.
			dist = math.Round(rd*100) / 100
			source = "road"
		} else {
			logger.L().Warn("road distance lookup failed, using haversine",
				zap.Float64("haversine_km", dist), zap.Error(err))
		}
	}
	metrics.DeliveryQuotesTotal.WithLabelValues(source).Inc()
	fee := ComputeFee(dist, subtotal, s.settings)
	return Quote{DistanceKm: dist, Fee: fee, Free: fee.IsZero()}
}
