package model

import (
	"time"
)

type ProblemDifficulty string

const (
	DifficultyEasy   ProblemDifficulty = "Easy"
	DifficultyMedium ProblemDifficulty = "Medium"
	DifficultyHard   ProblemDifficulty = "Hard"
)

// DefaultBasePoints maps a difficulty to the points awarded on first
// completion when the catalog entry does not set them explicitly.
func DefaultBasePoints(d ProblemDifficulty) int {
	switch d {
	case DifficultyMedium:
		return 200
	case DifficultyHard:
		return 300
	default:
		return 100
	}
}

type Problem struct {
	ID          string            `json:"id"`
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Module      string            `json:"module"`
	Difficulty  ProblemDifficulty `json:"difficulty"`
	BasePoints  int               `json:"base_points"`
	IsPublished bool              `json:"is_published"`
	SortOrder   int               `json:"sort_order"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
