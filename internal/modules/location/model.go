// README: Driver location update and persistence snapshot.
package location

import (
	"time"

	"tamtom/internal/types"
)

type Update struct {
	DriverID types.ID
	Position types.Point
}

type Snapshot struct {
	ID         int64
	DriverID   types.ID
	Position   types.Point
	RecordedAt time.Time
}
