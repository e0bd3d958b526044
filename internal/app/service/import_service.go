package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
	"skill_forge/internal/common"
	"skill_forge/internal/domain/model"
	"skill_forge/internal/domain/repository"

	"github.com/google/uuid"
)

// ImportService replays externally-held completion lists into the progress
// store without double-counting. It shares the completion semantics of the
// point awarding policy but batches the total-points delta into a single
// update per run.
type ImportService struct {
	progressRepo  repository.ProgressRepository
	problemRepo   repository.ProblemRepository
	userRepo      repository.UserRepository
	runner        repository.TxRunner
	retryAttempts int
	now           func() time.Time
}

func NewImportService(
	progressRepo repository.ProgressRepository,
	problemRepo repository.ProblemRepository,
	userRepo repository.UserRepository,
	runner repository.TxRunner,
	retryAttempts int,
) *ImportService {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &ImportService{
		progressRepo:  progressRepo,
		problemRepo:   problemRepo,
		userRepo:      userRepo,
		runner:        runner,
		retryAttempts: retryAttempts,
		now:           time.Now,
	}
}

// ImportCompletions marks every resolvable problem in slugs complete for the
// user, skipping any (user, problem) pair that already has a progress row in
// any status. Unknown or unpublished slugs are logged and skipped. Running
// the same list twice yields zero additional point changes.
func (s *ImportService) ImportCompletions(ctx context.Context, userID string, slugs []string) (int, error) {
	if slugs == nil {
		return 0, fmt.Errorf("completedSlugs is required: %w", common.ErrValidation)
	}
	for _, slug := range slugs {
		if slug == "" {
			return 0, fmt.Errorf("completedSlugs must not contain empty slugs: %w", common.ErrValidation)
		}
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("user not found: %w", err)
	}

	existing, err := s.progressRepo.ExistingProblemIDs(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load existing progress: %w", err)
	}

	// Resolve slugs up front, deduplicating repeats within the request.
	seen := model.NewCompletionSet()
	var toImport []*model.Problem
	for _, slug := range slugs {
		if seen.Has(slug) {
			continue
		}
		seen.Add(slug)

		problem, err := s.problemRepo.FindProblemBySlug(ctx, slug)
		if err != nil {
			log.Printf("WARN: import for user %s: unknown problem slug %q, skipping", user.ID, slug)
			continue
		}
		if !problem.IsPublished {
			log.Printf("WARN: import for user %s: problem %q is unpublished, skipping", user.ID, slug)
			continue
		}
		if existing.Has(problem.ID) {
			continue
		}
		toImport = append(toImport, problem)
	}

	if len(toImport) == 0 {
		return 0, nil
	}

	migrated := 0
	attempt := func() error {
		migrated = 0
		now := s.now().UTC()
		return s.runner.InTx(ctx, func(tx *sql.Tx) error {
			pointsDelta := 0
			for _, problem := range toImport {
				outcome, _, err := s.progressRepo.Complete(ctx, tx, repository.CompleteParams{
					ID:        uuid.NewString(),
					UserID:    user.ID,
					ProblemID: problem.ID,
					Points:    problem.BasePoints,
					Now:       now,
				})
				if err != nil {
					return err
				}
				// A row that appeared since the pre-scan means another call
				// already awarded this problem; the delta must not grow.
				if outcome.Awarded() {
					pointsDelta += problem.BasePoints
					migrated++
				}
			}
			if pointsDelta == 0 {
				return nil
			}
			current, longest := user.NextStreak(now)
			return s.userRepo.AddPointsAndActivity(ctx, tx, user.ID, pointsDelta, now, current, longest)
		})
	}

	for i := 0; i < s.retryAttempts; i++ {
		err = attempt()
		if err == nil {
			return migrated, nil
		}
		if !common.IsRetryableTxError(err) {
			return 0, fmt.Errorf("import failed: %w", err)
		}
	}
	return 0, fmt.Errorf("import for user %s kept conflicting after %d attempts: %w",
		user.ID, s.retryAttempts, common.ErrConflictExhausted)
}
