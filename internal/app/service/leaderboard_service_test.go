package service

import (
	"context"
	"testing"
	"time"
	"skill_forge/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLeaderboardService(store *repository.MemoryStore, now time.Time) *LeaderboardService {
	svc := NewLeaderboardService(store, 1000, 100)
	svc.now = func() time.Time { return now }
	return svc
}

func TestStandingsRanksAndOrdering(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

	seedUser(t, store, "alice")
	seedUser(t, store, "bob")
	seedUser(t, store, "carol")
	seedProblem(t, store, "p1", 100, true)
	seedProblem(t, store, "p2", 100, true)

	progressSvc := newProgressService(store, now)
	for _, c := range []struct {
		userID, slug string
		elapsed      *int
	}{
		{"alice", "p1", intPtr(20)},
		{"alice", "p2", intPtr(40)},
		{"bob", "p1", intPtr(10)},
		{"bob", "p2", intPtr(10)},
		{"carol", "p1", nil}, // completed without timing data
	} {
		_, err := progressSvc.RecordSubmission(ctx, c.userID, RecordSubmissionRequest{
			ProblemSlug: c.slug, AnswerCorrect: true, ElapsedSeconds: c.elapsed,
		})
		require.NoError(t, err)
	}

	svc := newLeaderboardService(store, now)
	standings, err := svc.Standings(ctx, "all", 0)
	require.NoError(t, err)
	require.Len(t, standings, 3)

	// Bob and alice both have 2 completions; bob's average of 10s beats
	// alice's 30s. Carol has fewer completions and no timing data.
	assert.Equal(t, "bob", standings[0].UserID)
	assert.Equal(t, "alice", standings[1].UserID)
	assert.Equal(t, "carol", standings[2].UserID)
	for i, s := range standings {
		assert.Equal(t, i+1, s.Rank)
	}
	require.NotNil(t, standings[0].AvgFastestTime)
	assert.InDelta(t, 10.0, *standings[0].AvgFastestTime, 0.001)
	require.NotNil(t, standings[1].AvgFastestTime)
	assert.InDelta(t, 30.0, *standings[1].AvgFastestTime, 0.001)
	assert.Nil(t, standings[2].AvgFastestTime)
}

func TestStandingsWeeklyWindowExcludesOldCompletions(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	seedUser(t, store, "alice")
	seedUser(t, store, "bob")
	seedProblem(t, store, "p1", 100, true)
	seedProblem(t, store, "p2", 100, true)

	// Alice completed last month; bob completed this week.
	progressSvc := newProgressService(store, time.Date(2024, 2, 5, 12, 0, 0, 0, time.UTC))
	_, err := progressSvc.RecordSubmission(ctx, "alice", RecordSubmissionRequest{
		ProblemSlug: "p1", AnswerCorrect: true,
	})
	require.NoError(t, err)

	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC) // a Wednesday
	progressSvc.now = func() time.Time { return now }
	_, err = progressSvc.RecordSubmission(ctx, "bob", RecordSubmissionRequest{
		ProblemSlug: "p2", AnswerCorrect: true,
	})
	require.NoError(t, err)

	svc := newLeaderboardService(store, now)

	weekly, err := svc.Standings(ctx, "weekly", 0)
	require.NoError(t, err)
	require.Len(t, weekly, 1)
	assert.Equal(t, "bob", weekly[0].UserID)
	assert.Equal(t, 1, weekly[0].Rank)

	monthly, err := svc.Standings(ctx, "monthly", 0)
	require.NoError(t, err)
	require.Len(t, monthly, 1)
	assert.Equal(t, "bob", monthly[0].UserID)

	allTime, err := svc.Standings(ctx, "all", 0)
	require.NoError(t, err)
	assert.Len(t, allTime, 2)
}

func TestStandingsLimit(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	seedProblem(t, store, "p1", 100, true)

	progressSvc := newProgressService(store, now)
	for _, id := range []string{"u1", "u2", "u3"} {
		seedUser(t, store, id)
		_, err := progressSvc.MarkComplete(ctx, id, "p1")
		require.NoError(t, err)
	}

	svc := newLeaderboardService(store, now)
	standings, err := svc.Standings(ctx, "all", 2)
	require.NoError(t, err)
	require.Len(t, standings, 2)
	// Ranks are assigned before truncation, so the page is still 1..N.
	assert.Equal(t, 1, standings[0].Rank)
	assert.Equal(t, 2, standings[1].Rank)
}

func TestUserRank(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	now := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

	seedUser(t, store, "alice")
	seedUser(t, store, "bob")
	seedProblem(t, store, "p1", 100, true)
	seedProblem(t, store, "p2", 100, true)

	progressSvc := newProgressService(store, now)
	_, err := progressSvc.MarkComplete(ctx, "alice", "p1")
	require.NoError(t, err)
	_, err = progressSvc.MarkComplete(ctx, "alice", "p2")
	require.NoError(t, err)
	_, err = progressSvc.MarkComplete(ctx, "bob", "p1")
	require.NoError(t, err)

	svc := newLeaderboardService(store, now)

	entry, err := svc.UserRank(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 2, entry.Rank)
	assert.Equal(t, 1, entry.CompletedCount)

	// A user with no completed rows is unranked, not rank zero.
	seedUser(t, store, "dave")
	entry, err = svc.UserRank(ctx, "dave")
	require.NoError(t, err)
	assert.Nil(t, entry)
}
