package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func TestSortStandingsOrdering(t *testing.T) {
	entries := []Standing{
		{UserID: "u-slow", CompletedCount: 5, AvgFastestTime: fptr(90)},
		{UserID: "u-untimed", CompletedCount: 5},
		{UserID: "u-few", CompletedCount: 2, AvgFastestTime: fptr(10)},
		{UserID: "u-fast", CompletedCount: 5, AvgFastestTime: fptr(30)},
	}

	SortStandings(entries)

	order := make([]string, len(entries))
	for i, e := range entries {
		order[i] = e.UserID
	}
	// More completions first; among equals faster average first; users
	// without timing data sort after every timed user.
	assert.Equal(t, []string{"u-fast", "u-slow", "u-untimed", "u-few"}, order)
}

func TestSortStandingsAssignsSequentialRanks(t *testing.T) {
	entries := []Standing{
		{UserID: "a", CompletedCount: 3, AvgFastestTime: fptr(20)},
		{UserID: "b", CompletedCount: 3, AvgFastestTime: fptr(20)},
		{UserID: "c", CompletedCount: 1},
	}

	SortStandings(entries)

	// Ties still get distinct consecutive ranks; user id breaks the tie.
	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank, "entry %d", i)
	}
	assert.Equal(t, "a", entries[0].UserID)
	assert.Equal(t, "b", entries[1].UserID)
}

func TestSortStandingsTieBreakIsDeterministic(t *testing.T) {
	build := func() []Standing {
		return []Standing{
			{UserID: "z", CompletedCount: 2},
			{UserID: "a", CompletedCount: 2},
			{UserID: "m", CompletedCount: 2},
		}
	}

	first := build()
	SortStandings(first)
	second := build()
	SortStandings(second)

	require.Equal(t, first, second)
	assert.Equal(t, "a", first[0].UserID)
	assert.Equal(t, "z", first[2].UserID)
}

func TestParseLeaderboardWindow(t *testing.T) {
	w, ok := ParseLeaderboardWindow("")
	require.True(t, ok)
	assert.Equal(t, WindowAllTime, w)

	w, ok = ParseLeaderboardWindow("monthly")
	require.True(t, ok)
	assert.Equal(t, WindowMonthly, w)

	_, ok = ParseLeaderboardWindow("daily")
	assert.False(t, ok)
}

func TestWindowStart(t *testing.T) {
	// A Saturday mid-month, with a non-UTC input zone.
	loc := time.FixedZone("UTC+5", 5*3600)
	now := time.Date(2024, time.March, 16, 3, 30, 0, 0, loc)

	assert.Nil(t, WindowAllTime.Start(now))

	monthly := WindowMonthly.Start(now)
	require.NotNil(t, monthly)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), *monthly)

	// 2024-03-16 03:30 +05 is 2024-03-15 22:30 UTC, a Friday; the week
	// started Monday the 11th.
	weekly := WindowWeekly.Start(now)
	require.NotNil(t, weekly)
	assert.Equal(t, time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC), *weekly)
}

func TestWindowStartOnMonday(t *testing.T) {
	now := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)
	weekly := WindowWeekly.Start(now)
	require.NotNil(t, weekly)
	assert.Equal(t, now, *weekly)
}

func TestWindowStartOnSunday(t *testing.T) {
	now := time.Date(2024, time.March, 17, 23, 59, 0, 0, time.UTC)
	weekly := WindowWeekly.Start(now)
	require.NotNil(t, weekly)
	assert.Equal(t, time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC), *weekly)
}
