package account

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"tamtom/internal/types"
)

// PGRatingStore reads approved customer ratings for stats reporting.
type PGRatingStore struct {
	db *pgxpool.Pool
}

func NewPGRatingStore(db *pgxpool.Pool) *PGRatingStore {
	return &PGRatingStore{db: db}
}

// AverageApproved returns the mean score of approved ratings, zero when the
// restaurant has none.
func (s *PGRatingStore) AverageApproved(ctx context.Context, restaurantID types.ID) (float64, error) {
	var avg float64
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(AVG(score), 0)
		FROM ratings
		WHERE restaurant_id = $1 AND status = 'approved'
	`, string(restaurantID)).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("average rating: %w", err)
	}
	return avg, nil
}
