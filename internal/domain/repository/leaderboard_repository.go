package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"skill_forge/internal/domain/model"
)

type LeaderboardRepository interface {
	// Standings returns per-user aggregates over completed progress rows
	// with completed_at >= since (unbounded when since is nil, in which case
	// points come from the stored user total rather than a windowed sum).
	// Entries come back unranked; ordering and rank assignment belong to the
	// caller. limit caps the scan.
	Standings(ctx context.Context, since *time.Time, limit int) ([]model.Standing, error)
}

type pgLeaderboardRepository struct {
	db *sql.DB
}

func NewPgLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &pgLeaderboardRepository{db: db}
}

func (r *pgLeaderboardRepository) Standings(ctx context.Context, since *time.Time, limit int) ([]model.Standing, error) {
	query := `
	SELECT u.id, u.display_name,
	       COUNT(up.id) AS completed_count,
	       CASE WHEN $1::timestamptz IS NULL THEN u.total_points
	            ELSE COALESCE(SUM(up.points_earned), 0) END AS points,
	       AVG(up.fastest_time_seconds)::float8 AS avg_fastest_time
	FROM user_progress up
	JOIN users u ON u.id = up.user_id
	WHERE up.status = 'completed'
	  AND ($1::timestamptz IS NULL OR up.completed_at >= $1)
	GROUP BY u.id, u.display_name, u.total_points
	ORDER BY completed_count DESC, AVG(up.fastest_time_seconds) ASC NULLS LAST, u.id ASC
	LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("pgLeaderboardRepository.Standings query: %w", err)
	}
	defer rows.Close()

	standings := []model.Standing{}
	for rows.Next() {
		var s model.Standing
		var avg sql.NullFloat64
		if err := rows.Scan(&s.UserID, &s.DisplayName, &s.CompletedCount, &s.Points, &avg); err != nil {
			return nil, fmt.Errorf("pgLeaderboardRepository.Standings scan: %w", err)
		}
		if avg.Valid {
			s.AvgFastestTime = &avg.Float64
		}
		standings = append(standings, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgLeaderboardRepository.Standings rows.Err: %w", err)
	}
	return standings, nil
}
