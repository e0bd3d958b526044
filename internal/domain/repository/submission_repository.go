package repository

import (
	"context"
	"database/sql"
	"fmt"
	"skill_forge/internal/domain/model"
)

type SubmissionRepository interface {
	// CreateSubmission appends one attempt to the audit log. Rows are never
	// updated.
	CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	GetSubmissionsForUserProblem(ctx context.Context, userID, problemID string, limit, offset int) ([]model.Submission, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	query := `INSERT INTO submissions (id, user_id, problem_id, answer_text, is_correct, elapsed_seconds, points_awarded, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, sub.ID, sub.UserID, sub.ProblemID, sub.AnswerText, sub.IsCorrect, sub.ElapsedSeconds, sub.PointsAwarded, sub.CreatedAt)
	} else {
		_, err = r.db.ExecContext(ctx, query, sub.ID, sub.UserID, sub.ProblemID, sub.AnswerText, sub.IsCorrect, sub.ElapsedSeconds, sub.PointsAwarded, sub.CreatedAt)
	}
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) GetSubmissionsForUserProblem(ctx context.Context, userID, problemID string, limit, offset int) ([]model.Submission, error) {
	query := `SELECT id, user_id, problem_id, answer_text, is_correct, elapsed_seconds, points_awarded, created_at
	          FROM submissions WHERE user_id = $1 AND problem_id = $2
	          ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.db.QueryContext(ctx, query, userID, problemID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionsForUserProblem query: %w", err)
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.UserID, &s.ProblemID, &s.AnswerText, &s.IsCorrect, &s.ElapsedSeconds, &s.PointsAwarded, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionsForUserProblem scan: %w", err)
		}
		subs = append(subs, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionsForUserProblem rows.Err: %w", err)
	}
	return subs, nil
}
