package model

import "time"

// Submission is one append-only row per answer attempt. Rows are never
// mutated or deleted; UserProgress is the materialized state derived from
// them.
type Submission struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ProblemID      string    `json:"problem_id"`
	AnswerText     string    `json:"answer_text"`
	IsCorrect      bool      `json:"is_correct"`
	ElapsedSeconds *int      `json:"elapsed_seconds,omitempty"`
	// PointsAwarded is the award carried by this particular submission: the
	// problem's base points on first completion, zero otherwise.
	PointsAwarded int       `json:"points_awarded"`
	CreatedAt     time.Time `json:"created_at"`
}
