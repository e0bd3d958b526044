package model

import (
	"sort"
	"time"
)

type LeaderboardWindow string

const (
	WindowAllTime LeaderboardWindow = "all"
	WindowMonthly LeaderboardWindow = "monthly"
	WindowWeekly  LeaderboardWindow = "weekly"
)

// ParseLeaderboardWindow validates a window query parameter, defaulting to
// all-time for the empty string.
func ParseLeaderboardWindow(s string) (LeaderboardWindow, bool) {
	switch LeaderboardWindow(s) {
	case "", WindowAllTime:
		return WindowAllTime, true
	case WindowMonthly:
		return WindowMonthly, true
	case WindowWeekly:
		return WindowWeekly, true
	}
	return "", false
}

// Start returns the inclusive lower bound on completed_at for the window, or
// nil for the unbounded all-time view. Windows are calendar-based in UTC;
// weeks start on Monday.
func (w LeaderboardWindow) Start(now time.Time) *time.Time {
	now = now.UTC()
	switch w {
	case WindowMonthly:
		t := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return &t
	case WindowWeekly:
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		t := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, -daysSinceMonday)
		return &t
	}
	return nil
}

// Standing is one leaderboard row for a user within a window.
type Standing struct {
	Rank           int     `json:"rank"`
	UserID         string  `json:"user_id"`
	DisplayName    *string `json:"display_name"`
	CompletedCount int     `json:"completed_count"`
	Points         int     `json:"points"`
	// AvgFastestTime is nil when the user has no timed completions in the
	// window; such users sort after users with timing data.
	AvgFastestTime *float64 `json:"avg_fastest_time,omitempty"`
}

// SortStandings orders entries by completed count descending, then average
// fastest time ascending with nils last, then user id for a stable total
// order, and assigns ranks as a dense 1-indexed sequence. Users with an
// identical (count, avg-time) key still receive distinct sequential ranks.
func SortStandings(entries []Standing) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CompletedCount != entries[j].CompletedCount {
			return entries[i].CompletedCount > entries[j].CompletedCount
		}
		ti, tj := entries[i].AvgFastestTime, entries[j].AvgFastestTime
		switch {
		case ti == nil && tj == nil:
			return entries[i].UserID < entries[j].UserID
		case ti == nil:
			return false
		case tj == nil:
			return true
		case *ti != *tj:
			return *ti < *tj
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}
