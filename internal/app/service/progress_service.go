package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"skill_forge/internal/common"
	"skill_forge/internal/domain/model"
	"skill_forge/internal/domain/repository"

	"github.com/google/uuid"
)

// ProgressService drives all per-(user, problem) state transitions. Every
// mutation of the user's total_points counter goes through completeOnce; no
// other code path touches it.
type ProgressService struct {
	progressRepo   repository.ProgressRepository
	problemRepo    repository.ProblemRepository
	submissionRepo repository.SubmissionRepository
	userRepo       repository.UserRepository
	runner         repository.TxRunner
	retryAttempts  int
	now            func() time.Time
}

func NewProgressService(
	progressRepo repository.ProgressRepository,
	problemRepo repository.ProblemRepository,
	submissionRepo repository.SubmissionRepository,
	userRepo repository.UserRepository,
	runner repository.TxRunner,
	retryAttempts int,
) *ProgressService {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &ProgressService{
		progressRepo:   progressRepo,
		problemRepo:    problemRepo,
		submissionRepo: submissionRepo,
		userRepo:       userRepo,
		runner:         runner,
		retryAttempts:  retryAttempts,
		now:            time.Now,
	}
}

type RecordSubmissionRequest struct {
	ProblemSlug    string `json:"problemSlug"`
	AnswerText     string `json:"answerText"`
	AnswerCorrect  bool   `json:"answerCorrect"`
	ElapsedSeconds *int   `json:"elapsedSeconds,omitempty"`
}

type SubmissionResult struct {
	Status        model.ProgressStatus `json:"status"`
	PointsAwarded int                  `json:"pointsAwarded"`
}

// RecordSubmission records one answer attempt. Incorrect attempts only touch
// the progress row and activity timestamp; correct attempts run the
// completion path.
func (s *ProgressService) RecordSubmission(ctx context.Context, userID string, req RecordSubmissionRequest) (*SubmissionResult, error) {
	if req.ProblemSlug == "" {
		return nil, fmt.Errorf("problemSlug is required: %w", common.ErrValidation)
	}
	if req.ElapsedSeconds != nil && *req.ElapsedSeconds < 0 {
		return nil, fmt.Errorf("elapsedSeconds must be non-negative: %w", common.ErrValidation)
	}

	problem, err := s.resolveProblem(ctx, req.ProblemSlug)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	if !req.AnswerCorrect {
		return s.recordFailedAttempt(ctx, user, problem, req)
	}

	outcome, progress, err := s.completeOnce(ctx, user, problem, req.ElapsedSeconds, &req.AnswerText)
	if err != nil {
		return nil, err
	}
	awarded := 0
	if outcome.Awarded() {
		awarded = problem.BasePoints
	}
	return &SubmissionResult{Status: progress.Status, PointsAwarded: awarded}, nil
}

// MarkComplete grants completion regardless of answer correctness, with the
// same idempotency guarantees as a correct submission. It is a direct
// completion signal, not an answer attempt, so no submission row is logged.
func (s *ProgressService) MarkComplete(ctx context.Context, userID, problemSlug string) (*SubmissionResult, error) {
	if problemSlug == "" {
		return nil, fmt.Errorf("problemSlug is required: %w", common.ErrValidation)
	}
	problem, err := s.resolveProblem(ctx, problemSlug)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	outcome, progress, err := s.completeOnce(ctx, user, problem, nil, nil)
	if err != nil {
		return nil, err
	}
	awarded := 0
	if outcome.Awarded() {
		awarded = problem.BasePoints
	}
	return &SubmissionResult{Status: progress.Status, PointsAwarded: awarded}, nil
}

// GetSubmissionHistory returns the append-only attempt log for one problem.
func (s *ProgressService) GetSubmissionHistory(ctx context.Context, userID, problemSlug string, limit, offset int) ([]model.Submission, error) {
	problem, err := s.resolveProblem(ctx, problemSlug)
	if err != nil {
		return nil, err
	}
	return s.submissionRepo.GetSubmissionsForUserProblem(ctx, userID, problem.ID, limit, offset)
}

func (s *ProgressService) resolveProblem(ctx context.Context, slug string) (*model.Problem, error) {
	problem, err := s.problemRepo.FindProblemBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("problem %q not found: %w", slug, err)
	}
	if !problem.IsPublished {
		return nil, fmt.Errorf("problem %q not found: %w", slug, common.ErrNotFound)
	}
	return problem, nil
}

func (s *ProgressService) recordFailedAttempt(ctx context.Context, user *model.User, problem *model.Problem, req RecordSubmissionRequest) (*SubmissionResult, error) {
	now := s.now().UTC()
	status := model.StatusInProgress

	err := s.runner.InTx(ctx, func(tx *sql.Tx) error {
		progress, err := s.progressRepo.RecordFailedAttempt(ctx, tx, uuid.NewString(), user.ID, problem.ID, now)
		if err != nil {
			return err
		}
		if progress == nil {
			// Row already completed; incorrect attempts after completion do
			// not bump the counter.
			status = model.StatusCompleted
		}
		if err := s.userRepo.TouchActivity(ctx, tx, user.ID, now); err != nil {
			return err
		}
		return s.submissionRepo.CreateSubmission(ctx, tx, &model.Submission{
			ID:             uuid.NewString(),
			UserID:         user.ID,
			ProblemID:      problem.ID,
			AnswerText:     req.AnswerText,
			IsCorrect:      false,
			ElapsedSeconds: req.ElapsedSeconds,
			PointsAwarded:  0,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", err)
	}
	return &SubmissionResult{Status: status, PointsAwarded: 0}, nil
}

// completeOnce is the point awarding policy. It runs the atomic completion
// transition, adds points to the user's total exactly when the outcome says
// the award fired, and optionally appends a submission log row, all in one
// transaction. Transient transaction conflicts are retried a bounded number
// of times.
func (s *ProgressService) completeOnce(ctx context.Context, user *model.User, problem *model.Problem, elapsedSeconds *int, answerText *string) (model.CompletionOutcome, *model.UserProgress, error) {
	var outcome model.CompletionOutcome
	var progress *model.UserProgress

	attempt := func() error {
		now := s.now().UTC()
		return s.runner.InTx(ctx, func(tx *sql.Tx) error {
			o, p, err := s.progressRepo.Complete(ctx, tx, repository.CompleteParams{
				ID:             uuid.NewString(),
				UserID:         user.ID,
				ProblemID:      problem.ID,
				ElapsedSeconds: elapsedSeconds,
				Points:         problem.BasePoints,
				Now:            now,
			})
			if err != nil {
				return err
			}

			awarded := 0
			if o.Awarded() {
				awarded = problem.BasePoints
				current, longest := user.NextStreak(now)
				if err := s.userRepo.AddPointsAndActivity(ctx, tx, user.ID, awarded, now, current, longest); err != nil {
					return err
				}
			} else {
				if err := s.userRepo.TouchActivity(ctx, tx, user.ID, now); err != nil {
					return err
				}
			}

			if answerText != nil {
				if err := s.submissionRepo.CreateSubmission(ctx, tx, &model.Submission{
					ID:             uuid.NewString(),
					UserID:         user.ID,
					ProblemID:      problem.ID,
					AnswerText:     *answerText,
					IsCorrect:      true,
					ElapsedSeconds: elapsedSeconds,
					PointsAwarded:  awarded,
					CreatedAt:      now,
				}); err != nil {
					return err
				}
			}

			outcome, progress = o, p
			return nil
		})
	}

	var err error
	for i := 0; i < s.retryAttempts; i++ {
		err = attempt()
		if err == nil {
			return outcome, progress, nil
		}
		if !common.IsRetryableTxError(err) {
			return 0, nil, err
		}
	}
	return 0, nil, fmt.Errorf("completion of %q for user %s kept conflicting after %d attempts: %w",
		problem.Slug, user.ID, s.retryAttempts, common.ErrConflictExhausted)
}
