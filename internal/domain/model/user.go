package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID             string     `json:"id"`
	ExternalID     string     `json:"external_id"`
	Email          *string    `json:"email,omitempty"`
	HashedPassword *string    `json:"-"` // Not exposed
	Role           string     `json:"role"`
	DisplayName    *string    `json:"display_name"` // Nullable until the user picks one
	TotalPoints    int        `json:"total_points"`
	CurrentStreak  int        `json:"current_streak"`
	LongestStreak  int        `json:"longest_streak"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	// UsernameUpdatedAt tracks the display-name change cooldown.
	UsernameUpdatedAt  *time.Time `json:"username_updated_at,omitempty"`
	ModerationAttempts int        `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NextStreak returns the current/longest streak pair after activity at now,
// given the previous activity timestamp. Same-day activity keeps the streak,
// next-day activity extends it, anything else restarts at 1.
func (u *User) NextStreak(now time.Time) (current, longest int) {
	current = 1
	if u.LastActivityAt != nil {
		last := u.LastActivityAt.UTC()
		today := now.UTC().Truncate(24 * time.Hour)
		lastDay := last.Truncate(24 * time.Hour)
		switch {
		case lastDay.Equal(today):
			current = u.CurrentStreak
			if current == 0 {
				current = 1
			}
		case lastDay.Equal(today.AddDate(0, 0, -1)):
			current = u.CurrentStreak + 1
		}
	}
	longest = u.LongestStreak
	if current > longest {
		longest = current
	}
	return current, longest
}
