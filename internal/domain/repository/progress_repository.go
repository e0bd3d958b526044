package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"skill_forge/internal/common"
	"skill_forge/internal/domain/model"
)

// CompleteParams carries everything the atomic completion operation needs.
// ID is used only when a new row is inserted.
type CompleteParams struct {
	ID             string
	UserID         string
	ProblemID      string
	ElapsedSeconds *int
	Points         int
	Now            time.Time
}

type ProgressRepository interface {
	Get(ctx context.Context, userID, problemID string) (*model.UserProgress, error)
	// RecordFailedAttempt creates an in_progress row on first attempt or
	// bumps attempts_count on an existing non-completed row. Returns nil for
	// an already-completed row, which is left untouched.
	RecordFailedAttempt(ctx context.Context, tx *sql.Tx, id, userID, problemID string, now time.Time) (*model.UserProgress, error)
	// Complete runs the single atomic transition of the point awarding
	// policy and reports which branch it took. The caller decides whether to
	// add points from the outcome; exactly one caller per (user, problem)
	// pair ever observes an awarding outcome.
	Complete(ctx context.Context, tx *sql.Tx, params CompleteParams) (model.CompletionOutcome, *model.UserProgress, error)
	// ExistingProblemIDs returns the ids of all problems the user has any
	// progress row for, regardless of status.
	ExistingProblemIDs(ctx context.Context, userID string) (model.CompletionSet, error)
}

const progressColumns = `id, user_id, problem_id, status, attempts_count,
	first_attempt_at, completed_at, fastest_time_seconds, points_earned`

type pgProgressRepository struct {
	db *sql.DB
}

func NewPgProgressRepository(db *sql.DB) ProgressRepository {
	return &pgProgressRepository{db: db}
}

func scanProgress(row interface{ Scan(...interface{}) error }) (*model.UserProgress, error) {
	up := &model.UserProgress{}
	err := row.Scan(
		&up.ID, &up.UserID, &up.ProblemID, &up.Status, &up.AttemptsCount,
		&up.FirstAttemptAt, &up.CompletedAt, &up.FastestTimeSeconds, &up.PointsEarned,
	)
	if err != nil {
		return nil, err
	}
	return up, nil
}

func (r *pgProgressRepository) Get(ctx context.Context, userID, problemID string) (*model.UserProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = $1 AND problem_id = $2`
	up, err := scanProgress(r.db.QueryRowContext(ctx, query, userID, problemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProgressRepository.Get: %w", err)
	}
	return up, nil
}

func (r *pgProgressRepository) RecordFailedAttempt(ctx context.Context, tx *sql.Tx, id, userID, problemID string, now time.Time) (*model.UserProgress, error) {
	// The guarded upsert returns no row when the existing row is already
	// completed; attempts on solved problems are only counted through the
	// completion path.
	query := `INSERT INTO user_progress (id, user_id, problem_id, status, attempts_count, first_attempt_at)
	          VALUES ($1, $2, $3, 'in_progress', 1, $4)
	          ON CONFLICT (user_id, problem_id) DO UPDATE
	            SET attempts_count = user_progress.attempts_count + 1
	            WHERE user_progress.status <> 'completed'
	          RETURNING ` + progressColumns

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, id, userID, problemID, now)
	} else {
		row = r.db.QueryRowContext(ctx, query, id, userID, problemID, now)
	}
	up, err := scanProgress(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // row exists and is completed
		}
		return nil, fmt.Errorf("pgProgressRepository.RecordFailedAttempt: %w", err)
	}
	return up, nil
}

func (r *pgProgressRepository) Complete(ctx context.Context, tx *sql.Tx, params CompleteParams) (model.CompletionOutcome, *model.UserProgress, error) {
	if tx == nil {
		return 0, nil, fmt.Errorf("pgProgressRepository.Complete: transaction required")
	}

	// First try to win the insert race. On conflict with a concurrent
	// uncommitted insert, ON CONFLICT DO NOTHING blocks until that
	// transaction commits, so the loser always proceeds to the locked read
	// below and lands in the already-completed branch.
	insert := `INSERT INTO user_progress
	             (id, user_id, problem_id, status, attempts_count, first_attempt_at, completed_at, fastest_time_seconds, points_earned)
	           VALUES ($1, $2, $3, 'completed', 1, $4, $4, $5, $6)
	           ON CONFLICT (user_id, problem_id) DO NOTHING
	           RETURNING ` + progressColumns

	up, err := scanProgress(tx.QueryRowContext(ctx, insert,
		params.ID, params.UserID, params.ProblemID, params.Now, params.ElapsedSeconds, params.Points))
	if err == nil {
		return model.OutcomeCreated, up, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, nil, fmt.Errorf("pgProgressRepository.Complete insert: %w", err)
	}

	// Row exists: lock it and branch on its status.
	sel := `SELECT ` + progressColumns + ` FROM user_progress
	        WHERE user_id = $1 AND problem_id = $2 FOR UPDATE`
	existing, err := scanProgress(tx.QueryRowContext(ctx, sel, params.UserID, params.ProblemID))
	if err != nil {
		return 0, nil, fmt.Errorf("pgProgressRepository.Complete lock: %w", err)
	}

	if existing.Status == model.StatusCompleted {
		fastest := model.MinElapsed(existing.FastestTimeSeconds, params.ElapsedSeconds)
		update := `UPDATE user_progress
		           SET attempts_count = attempts_count + 1, fastest_time_seconds = $1
		           WHERE id = $2
		           RETURNING ` + progressColumns
		up, err = scanProgress(tx.QueryRowContext(ctx, update, fastest, existing.ID))
		if err != nil {
			return 0, nil, fmt.Errorf("pgProgressRepository.Complete re-solve update: %w", err)
		}
		return model.OutcomeAlreadyCompleted, up, nil
	}

	update := `UPDATE user_progress
	           SET status = 'completed', attempts_count = attempts_count + 1,
	               completed_at = $1, fastest_time_seconds = $2, points_earned = $3
	           WHERE id = $4
	           RETURNING ` + progressColumns
	up, err = scanProgress(tx.QueryRowContext(ctx, update,
		params.Now, params.ElapsedSeconds, params.Points, existing.ID))
	if err != nil {
		return 0, nil, fmt.Errorf("pgProgressRepository.Complete first-completion update: %w", err)
	}
	return model.OutcomeUpdatedFromIncomplete, up, nil
}

func (r *pgProgressRepository) ExistingProblemIDs(ctx context.Context, userID string) (model.CompletionSet, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT problem_id FROM user_progress WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("pgProgressRepository.ExistingProblemIDs: %w", err)
	}
	defer rows.Close()

	set := model.NewCompletionSet()
	for rows.Next() {
		var problemID string
		if err := rows.Scan(&problemID); err != nil {
			return nil, fmt.Errorf("pgProgressRepository.ExistingProblemIDs scan: %w", err)
		}
		set.Add(problemID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProgressRepository.ExistingProblemIDs rows.Err: %w", err)
	}
	return set, nil
}
