package service

import (
	"context"
	"fmt"
	"time"
	"skill_forge/internal/domain/model"
	"skill_forge/internal/domain/repository"
)

// LeaderboardService is the read-only query layer over progress rows and
// user totals. Reads are snapshot reads; no strict consistency is promised
// across windows under concurrent writes.
type LeaderboardService struct {
	leaderboardRepo repository.LeaderboardRepository
	maxRows         int
	pageLimit       int
	now             func() time.Time
}

func NewLeaderboardService(leaderboardRepo repository.LeaderboardRepository, maxRows, pageLimit int) *LeaderboardService {
	if maxRows < 1 {
		maxRows = 1000
	}
	if pageLimit < 1 {
		pageLimit = 100
	}
	return &LeaderboardService{
		leaderboardRepo: leaderboardRepo,
		maxRows:         maxRows,
		pageLimit:       pageLimit,
		now:             time.Now,
	}
}

// Standings returns the ranked leaderboard for a window, limited to at most
// limit rows (capped by the configured page limit).
func (s *LeaderboardService) Standings(ctx context.Context, window model.LeaderboardWindow, limit int) ([]model.Standing, error) {
	if limit <= 0 || limit > s.pageLimit {
		limit = s.pageLimit
	}

	since := window.Start(s.now())
	standings, err := s.leaderboardRepo.Standings(ctx, since, s.maxRows)
	if err != nil {
		return nil, fmt.Errorf("failed to load standings: %w", err)
	}

	model.SortStandings(standings)
	if limit < len(standings) {
		standings = standings[:limit]
	}
	return standings, nil
}

// UserRank re-derives the all-time ordering, bounded by the configured row
// cap, and returns the caller's own entry. A nil result means the user has
// no completed progress rows and is unranked, which callers must keep
// distinct from any numeric rank.
func (s *LeaderboardService) UserRank(ctx context.Context, userID string) (*model.Standing, error) {
	standings, err := s.leaderboardRepo.Standings(ctx, nil, s.maxRows)
	if err != nil {
		return nil, fmt.Errorf("failed to load standings: %w", err)
	}

	model.SortStandings(standings)
	for i := range standings {
		if standings[i].UserID == userID {
			entry := standings[i]
			return &entry, nil
		}
	}
	return nil, nil
}
