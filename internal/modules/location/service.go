// README: Location service: persists driver positions and fans them out to the relay.
package location

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tamtom/internal/logger"
	"tamtom/internal/types"
)

// Publisher pushes a live position to interested websocket subscribers.
type Publisher interface {
	PublishDriverLocation(driverID types.ID, pos types.Point)
}

type Service struct {
	store     *Store
	publisher Publisher // nil means no live fan-out
}

func NewService(store *Store, publisher Publisher) *Service {
	return &Service{store: store, publisher: publisher}
}

// Update records a driver position. The GEO write is authoritative; a failed
// snapshot append is logged and tolerated since snapshots are history, not
// state.
func (s *Service) Update(ctx context.Context, u Update) error {
	if err := s.store.SetGeo(ctx, u.DriverID, u.Position); err != nil {
		return err
	}
	if err := s.store.AppendSnapshot(ctx, Snapshot{
		DriverID:   u.DriverID,
		Position:   u.Position,
		RecordedAt: time.Now().UTC(),
	}); err != nil {
		logger.L().Warn("location snapshot append failed",
			zap.String("driver_id", string(u.DriverID)), zap.Error(err))
	}
	if s.publisher != nil {
		s.publisher.PublishDriverLocation(u.DriverID, u.Position)
	}
	return nil
}

func (s *Service) Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error) {
	return s.store.NearbyDrivers(ctx, p, radiusKm)
}

func (s *Service) Deactivate(ctx context.Context, driverID types.ID) error {
	return s.store.RemoveGeo(ctx, driverID)
}
