package service

import (
	"context"
	"sync"
	"testing"
	"time"
	"skill_forge/internal/common"
	"skill_forge/internal/domain/model"
	"skill_forge/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func seedUser(t *testing.T, store *repository.MemoryStore, id string) *model.User {
	t.Helper()
	u := &model.User{ID: id, ExternalID: "ext-" + id, Role: model.RoleUser}
	require.NoError(t, store.Create(context.Background(), u))
	return u
}

func seedProblem(t *testing.T, store *repository.MemoryStore, slug string, points int, published bool) *model.Problem {
	t.Helper()
	p := &model.Problem{
		ID:          "prob-" + slug,
		Slug:        slug,
		Title:       slug,
		Module:      "pandas-basics",
		Difficulty:  model.DifficultyEasy,
		BasePoints:  points,
		IsPublished: published,
	}
	require.NoError(t, store.CreateProblem(context.Background(), p))
	return p
}

func newProgressService(store *repository.MemoryStore, now time.Time) *ProgressService {
	svc := NewProgressService(store, store, store, store, store, 3)
	svc.now = func() time.Time { return now }
	return svc
}

func TestRecordSubmissionFirstCorrectAwardsOnce(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedUser(t, store, "u1")
	seedProblem(t, store, "log-transform", 100, true)
	svc := newProgressService(store, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))

	res, err := svc.RecordSubmission(ctx, "u1", RecordSubmissionRequest{
		ProblemSlug:    "log-transform",
		AnswerText:     "df['x'] = np.log(df['x'])",
		AnswerCorrect:  true,
		ElapsedSeconds: intPtr(30),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, res.Status)
	assert.Equal(t, 100, res.PointsAwarded)

	user, err := store.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, user.TotalPoints)
	assert.Equal(t, 1, user.CurrentStreak)

	progress, err := store.Get(ctx, "u1", "prob-log-transform")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, progress.Status)
	require.NotNil(t, progress.FastestTimeSeconds)
	assert.Equal(t, 30, *progress.FastestTimeSeconds)
	require.NotNil(t, progress.PointsEarned)
	assert.Equal(t, 100, *progress.PointsEarned)
}

// A user completes a problem, then solves it again faster. The second solve
// improves the recorded fastest time but the point total must not move.
func TestRecordSubmissionResolveImprovesTimeNotPoints(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedUser(t, store, "u1")
	seedProblem(t, store, "log-transform", 100, true)
	svc := newProgressService(store, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))

	_, err := svc.RecordSubmission(ctx, "u1", RecordSubmissionRequest{
		ProblemSlug: "log-transform", AnswerCorrect: true, ElapsedSeconds: intPtr(30),
	})
	require.NoError(t, err)

	res, err := svc.RecordSubmission(ctx, "u1", RecordSubmissionRequest{
		ProblemSlug: "log-transform", AnswerCorrect: true, ElapsedSeconds: intPtr(10),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, res.Status)
	assert.Equal(t, 0, res.PointsAwarded)

	user, err := store.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, user.TotalPoints)

	progress, err := store.Get(ctx, "u1", "prob-log-transform")
	require.NoError(t, err)
	assert.Equal(t, 10, *progress.FastestTimeSeconds)
	assert.Equal(t, 2, progress.AttemptsCount)
}

func TestRecordSubmissionSlowerResolveKeepsFastest(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedUser(t, store, "u1")
	seedProblem(t, store, "two-sum", 100, true)
	svc := newProgressService(store, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))

	_, err := svc.RecordSubmission(ctx, "u1", RecordSubmissionRequest{
		ProblemSlug: "two-sum", AnswerCorrect: true, ElapsedSeconds: intPtr(10),
	})
	require.NoError(t, err)
	_, err = svc.RecordSubmission(ctx, "u1", RecordSubmissionRequest{
		ProblemSlug: "two-sum", AnswerCorrect: true, ElapsedSeconds: intPtr(45),
	})
	require.NoError(t, err)

	progress, err := store.Get(ctx, "u1", "prob-two-sum")
	require.NoError(t, err)
	assert.Equal(t, 10, *progress.FastestTimeSeconds)
}

func TestRecordSubmissionIncorrectThenCorrect(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedUser(t, store, "u1")
	seedProblem(t, store, "groupby-agg", 200, true)
	svc := newProgressService(store, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))

	res, err := svc.RecordSubmission(ctx, "u1", RecordSubmissionRequest{
		ProblemSlug: "groupby-agg", AnswerText: "wrong", AnswerCorrect: false,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, res.Status)
	assert.Equal(t, 0, res.PointsAwarded)

	res, err = svc.RecordSubmission(ctx, "u1", RecordSubmissionRequest{
		ProblemSlug: "groupby-agg", AnswerText: "right", AnswerCorrect: true, ElapsedSeconds: intPtr(60),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, res.Status)
	assert.Equal(t, 200, res.PointsAwarded)

	progress, err := store.Get(ctx, "u1", "prob-groupby-agg")
	require.NoError(t, err)
	assert.Equal(t, 2, progress.AttemptsCount)

	subs, err := store.GetSubmissionsForUserProblem(ctx, "u1", "prob-groupby-agg", 10, 0)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	// Newest first.
	assert.True(t, subs[0].IsCorrect)
	assert.Equal(t, 200, subs[0].PointsAwarded)
	assert.False(t, subs[1].IsCorrect)
	assert.Equal(t, 0, subs[1].PointsAwarded)
}

func TestRecordSubmissionIncorrectAfterCompletion(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedUser(t, store, "u1")
	seedProblem(t, store, "two-sum", 100, true)
	svc := newProgressService(store, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))

	_, err := svc.RecordSubmission(ctx, "u1", RecordSubmissionRequest{
		ProblemSlug: "two-sum", AnswerCorrect: true,
	})
	require.NoError(t, err)

	res, err := svc.RecordSubmission(ctx, "u1", RecordSubmissionRequest{
		ProblemSlug: "two-sum", AnswerText: "oops", AnswerCorrect: false,
	})
	require.NoError(t, err)
	// The completed row is reported as such and stays untouched.
	assert.Equal(t, model.StatusCompleted, res.Status)

	progress, err := store.Get(ctx, "u1", "prob-two-sum")
	require.NoError(t, err)
	assert.Equal(t, 1, progress.AttemptsCount)
}

func TestRecordSubmissionValidation(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedUser(t, store, "u1")
	seedProblem(t, store, "two-sum", 100, true)
	seedProblem(t, store, "hidden", 100, false)
	svc := newProgressService(store, time.Now().UTC())

	_, err := svc.RecordSubmission(ctx, "u1", RecordSubmissionRequest{AnswerCorrect: true})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.RecordSubmission(ctx, "u1", RecordSubmissionRequest{
		ProblemSlug: "two-sum", AnswerCorrect: true, ElapsedSeconds: intPtr(-5),
	})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.RecordSubmission(ctx, "u1", RecordSubmissionRequest{
		ProblemSlug: "no-such-problem", AnswerCorrect: true,
	})
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Unpublished problems are indistinguishable from missing ones.
	_, err = svc.RecordSubmission(ctx, "u1", RecordSubmissionRequest{
		ProblemSlug: "hidden", AnswerCorrect: true,
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMarkCompleteNoSubmissionRow(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedUser(t, store, "u1")
	seedProblem(t, store, "two-sum", 100, true)
	svc := newProgressService(store, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))

	res, err := svc.MarkComplete(ctx, "u1", "two-sum")
	require.NoError(t, err)
	assert.Equal(t, 100, res.PointsAwarded)

	subs, err := store.GetSubmissionsForUserProblem(ctx, "u1", "prob-two-sum", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestMarkCompleteConcurrentAwardsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedUser(t, store, "u1")
	seedProblem(t, store, "two-sum", 100, true)
	svc := newProgressService(store, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))

	const callers = 16
	awards := make([]int, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.MarkComplete(ctx, "u1", "two-sum")
			if err != nil {
				errs[i] = err
				return
			}
			awards[i] = res.PointsAwarded
		}(i)
	}
	wg.Wait()

	total := 0
	for i := range awards {
		require.NoError(t, errs[i])
		total += awards[i]
	}
	assert.Equal(t, 100, total, "exactly one caller should win the award")

	user, err := store.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, user.TotalPoints)

	progress, err := store.Get(ctx, "u1", "prob-two-sum")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, progress.Status)
}

func TestCompletionExtendsStreakAcrossDays(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedUser(t, store, "u1")
	seedProblem(t, store, "day-one", 100, true)
	seedProblem(t, store, "day-two", 100, true)

	svc := newProgressService(store, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	_, err := svc.MarkComplete(ctx, "u1", "day-one")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC) }
	_, err = svc.MarkComplete(ctx, "u1", "day-two")
	require.NoError(t, err)

	user, err := store.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, user.CurrentStreak)
	assert.Equal(t, 2, user.LongestStreak)
	assert.Equal(t, 200, user.TotalPoints)
}

func TestGetSubmissionHistoryUnknownProblem(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedUser(t, store, "u1")
	svc := newProgressService(store, time.Now().UTC())

	_, err := svc.GetSubmissionHistory(ctx, "u1", "nope", 10, 0)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
