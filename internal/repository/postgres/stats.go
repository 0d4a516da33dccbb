package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository"
)

type statsRepository struct {
	BaseRepository
}

func NewStatsRepository(db *sqlx.DB) repository.StatsRepository {
	return &statsRepository{NewBaseRepository(db)}
}

// DashboardStats counts everything in one round trip. Readings recorded in
// [dayStart, dayEnd) count as today's.
func (r *statsRepository) DashboardStats(ctx context.Context, dayStart, dayEnd time.Time) (*model.DashboardStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM patients) AS total_patients,
			(SELECT COUNT(*) FROM bp_readings WHERE is_abnormal) AS abnormal_readings,
			(SELECT COUNT(*) FROM workflow_tasks WHERE status = 'pending' AND title ILIKE '%call%') AS pending_calls,
			(SELECT COUNT(*) FROM bp_readings WHERE recorded_at >= $1 AND recorded_at < $2) AS today_readings
	`
	var stats model.DashboardStats
	if err := r.db.GetContext(ctx, &stats, query, dayStart, dayEnd); err != nil {
		return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
	}
	return &stats, nil
}
