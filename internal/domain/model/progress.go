package model

import (
	"encoding/json"
	"sort"
	"time"
)

type ProgressStatus string

const (
	StatusInProgress ProgressStatus = "in_progress"
	StatusCompleted  ProgressStatus = "completed"
)

// UserProgress is the durable per-(user, problem) state record. There is at
// most one row per pair; absence of a row means "not started".
type UserProgress struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	ProblemID      string         `json:"problem_id"`
	Status         ProgressStatus `json:"status"`
	AttemptsCount  int            `json:"attempts_count"`
	FirstAttemptAt time.Time      `json:"first_attempt_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	// FastestTimeSeconds only decreases once set; it is meaningful only for
	// completed rows.
	FastestTimeSeconds *int `json:"fastest_time_seconds,omitempty"`
	// PointsEarned is frozen at first completion and never recomputed, even
	// if the problem's base points change later.
	PointsEarned *int `json:"points_earned,omitempty"`
}

// CompletionOutcome is the tagged result of the atomic completion operation.
// Exactly one caller observes OutcomeCreated or OutcomeUpdatedFromIncomplete
// for a given (user, problem) pair; every later caller observes
// OutcomeAlreadyCompleted and must not award points.
type CompletionOutcome int

const (
	OutcomeCreated CompletionOutcome = iota
	OutcomeUpdatedFromIncomplete
	OutcomeAlreadyCompleted
)

func (o CompletionOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdatedFromIncomplete:
		return "updated_from_incomplete"
	case OutcomeAlreadyCompleted:
		return "already_completed"
	}
	return "unknown"
}

// Awarded reports whether this outcome carries a one-time point award.
func (o CompletionOutcome) Awarded() bool {
	return o == OutcomeCreated || o == OutcomeUpdatedFromIncomplete
}

// CompletionSet is a structured set of problem identifiers (slugs or ids).
// It replaces loosely structured completion maps with an explicit type that
// serializes as a sorted JSON array.
type CompletionSet map[string]struct{}

func NewCompletionSet(members ...string) CompletionSet {
	s := make(CompletionSet, len(members))
	for _, m := range members {
		s.Add(m)
	}
	return s
}

func (s CompletionSet) Add(member string) {
	s[member] = struct{}{}
}

func (s CompletionSet) Has(member string) bool {
	_, ok := s[member]
	return ok
}

func (s CompletionSet) Len() int {
	return len(s)
}

// Members returns the set contents sorted for deterministic output.
func (s CompletionSet) Members() []string {
	members := make([]string, 0, len(s))
	for m := range s {
		members = append(members, m)
	}
	sort.Strings(members)
	return members
}

func (s CompletionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Members())
}

func (s *CompletionSet) UnmarshalJSON(data []byte) error {
	var members []string
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	*s = NewCompletionSet(members...)
	return nil
}

// MinElapsed returns the smaller of an existing fastest time and a candidate,
// treating nil as "no timing data". The result only ever decreases.
func MinElapsed(existing, candidate *int) *int {
	if candidate == nil {
		return existing
	}
	if existing == nil || *candidate < *existing {
		v := *candidate
		return &v
	}
	return existing
}
