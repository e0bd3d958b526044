package repository

import (
	"context"
	"database/sql"
	"sync"
	"time"
	"skill_forge/internal/common"
	"skill_forge/internal/domain/model"
)

// MemoryStore is an in-memory implementation of every repository contract
// plus TxRunner. It backs service tests so the point awarding policy can be
// exercised without Postgres; InTx serializes callers under a lock, which
// models the per-row serialization the database gives the real
// implementation.
type MemoryStore struct {
	txMu sync.Mutex // serializes atomic units
	mu   sync.Mutex // guards the maps below

	users       map[string]*model.User
	byExternal  map[string]string // external_id -> user id
	problems    map[string]*model.Problem
	bySlug      map[string]string // slug -> problem id
	progress    map[string]*model.UserProgress // userID+"/"+problemID
	submissions []model.Submission
}

var _ UserRepository = (*MemoryStore)(nil)
var _ ProblemRepository = (*MemoryStore)(nil)
var _ ProgressRepository = (*MemoryStore)(nil)
var _ SubmissionRepository = (*MemoryStore)(nil)
var _ LeaderboardRepository = (*MemoryStore)(nil)
var _ TxRunner = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*model.User),
		byExternal: make(map[string]string),
		problems:   make(map[string]*model.Problem),
		bySlug:     make(map[string]string),
		progress:   make(map[string]*model.UserProgress),
	}
}

func progressKey(userID, problemID string) string {
	return userID + "/" + problemID
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(nil)
}

// ─── UserRepository ───

func (m *MemoryStore) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byExternal[user.ExternalID]; ok {
		return common.ErrConflict
	}
	for _, u := range m.users {
		if user.Email != nil && u.Email != nil && *u.Email == *user.Email {
			return common.ErrConflict
		}
		if user.DisplayName != nil && u.DisplayName != nil && *u.DisplayName == *user.DisplayName {
			return common.ErrConflict
		}
	}
	cp := *user
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.users[cp.ID] = &cp
	m.byExternal[cp.ExternalID] = cp.ID
	return nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email != nil && *u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *MemoryStore) FindByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byExternal[externalID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *MemoryStore) GetOrCreateByExternalID(ctx context.Context, proto *model.User) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byExternal[proto.ExternalID]; ok {
		cp := *m.users[id]
		return &cp, nil
	}
	cp := *proto
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.users[cp.ID] = &cp
	m.byExternal[cp.ExternalID] = cp.ID
	out := cp
	return &out, nil
}

func (m *MemoryStore) AddPointsAndActivity(ctx context.Context, tx *sql.Tx, userID string, points int, now time.Time, currentStreak, longestStreak int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.TotalPoints += points
	u.CurrentStreak = currentStreak
	u.LongestStreak = longestStreak
	t := now
	u.LastActivityAt = &t
	u.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) TouchActivity(ctx context.Context, tx *sql.Tx, userID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	t := now
	u.LastActivityAt = &t
	u.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) UpdateDisplayName(ctx context.Context, userID, displayName string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	for id, other := range m.users {
		if id != userID && other.DisplayName != nil && *other.DisplayName == displayName {
			return common.ErrConflict
		}
	}
	name := displayName
	t := now
	u.DisplayName = &name
	u.UsernameUpdatedAt = &t
	u.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) IncrementModerationAttempts(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.ModerationAttempts++
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	delete(m.byExternal, u.ExternalID)
	delete(m.users, userID)
	for key, up := range m.progress {
		if up.UserID == userID {
			delete(m.progress, key)
		}
	}
	kept := m.submissions[:0]
	for _, s := range m.submissions {
		if s.UserID != userID {
			kept = append(kept, s)
		}
	}
	m.submissions = kept
	return nil
}

// ─── ProblemRepository ───

func (m *MemoryStore) CreateProblem(ctx context.Context, p *model.Problem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bySlug[p.Slug]; ok {
		return common.ErrConflict
	}
	cp := *p
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.problems[cp.ID] = &cp
	m.bySlug[cp.Slug] = cp.ID
	return nil
}

func (m *MemoryStore) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.bySlug[slug]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *m.problems[id]
	return &cp, nil
}

func (m *MemoryStore) ListProblems(ctx context.Context, publishedOnly bool, limit, offset int) ([]model.Problem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []model.Problem{}
	for _, p := range m.problems {
		if publishedOnly && !p.IsPublished {
			continue
		}
		all = append(all, *p)
	}
	total := len(all)
	if offset >= len(all) {
		return []model.Problem{}, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

// ─── ProgressRepository ───

func (m *MemoryStore) Get(ctx context.Context, userID, problemID string) (*model.UserProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	up, ok := m.progress[progressKey(userID, problemID)]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *up
	return &cp, nil
}

func (m *MemoryStore) RecordFailedAttempt(ctx context.Context, tx *sql.Tx, id, userID, problemID string, now time.Time) (*model.UserProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := progressKey(userID, problemID)
	if up, ok := m.progress[key]; ok {
		if up.Status == model.StatusCompleted {
			return nil, nil
		}
		up.AttemptsCount++
		cp := *up
		return &cp, nil
	}
	up := &model.UserProgress{
		ID:             id,
		UserID:         userID,
		ProblemID:      problemID,
		Status:         model.StatusInProgress,
		AttemptsCount:  1,
		FirstAttemptAt: now,
	}
	m.progress[key] = up
	cp := *up
	return &cp, nil
}

func (m *MemoryStore) Complete(ctx context.Context, tx *sql.Tx, params CompleteParams) (model.CompletionOutcome, *model.UserProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := progressKey(params.UserID, params.ProblemID)

	existing, ok := m.progress[key]
	if !ok {
		points := params.Points
		now := params.Now
		up := &model.UserProgress{
			ID:                 params.ID,
			UserID:             params.UserID,
			ProblemID:          params.ProblemID,
			Status:             model.StatusCompleted,
			AttemptsCount:      1,
			FirstAttemptAt:     now,
			CompletedAt:        &now,
			FastestTimeSeconds: model.MinElapsed(nil, params.ElapsedSeconds),
			PointsEarned:       &points,
		}
		m.progress[key] = up
		cp := *up
		return model.OutcomeCreated, &cp, nil
	}

	if existing.Status == model.StatusCompleted {
		existing.AttemptsCount++
		existing.FastestTimeSeconds = model.MinElapsed(existing.FastestTimeSeconds, params.ElapsedSeconds)
		cp := *existing
		return model.OutcomeAlreadyCompleted, &cp, nil
	}

	points := params.Points
	now := params.Now
	existing.Status = model.StatusCompleted
	existing.AttemptsCount++
	existing.CompletedAt = &now
	existing.FastestTimeSeconds = model.MinElapsed(nil, params.ElapsedSeconds)
	existing.PointsEarned = &points
	cp := *existing
	return model.OutcomeUpdatedFromIncomplete, &cp, nil
}

func (m *MemoryStore) ExistingProblemIDs(ctx context.Context, userID string) (model.CompletionSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := model.NewCompletionSet()
	for _, up := range m.progress {
		if up.UserID == userID {
			set.Add(up.ProblemID)
		}
	}
	return set, nil
}

// ─── SubmissionRepository ───

func (m *MemoryStore) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions = append(m.submissions, *sub)
	return nil
}

func (m *MemoryStore) GetSubmissionsForUserProblem(ctx context.Context, userID, problemID string, limit, offset int) ([]model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Submission{}
	for i := len(m.submissions) - 1; i >= 0; i-- {
		s := m.submissions[i]
		if s.UserID == userID && s.ProblemID == problemID {
			out = append(out, s)
		}
	}
	if offset >= len(out) {
		return []model.Submission{}, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// ─── LeaderboardRepository ───

func (m *MemoryStore) Standings(ctx context.Context, since *time.Time, limit int) ([]model.Standing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type agg struct {
		count    int
		points   int
		timeSum  int
		timedCnt int
	}
	byUser := map[string]*agg{}
	for _, up := range m.progress {
		if up.Status != model.StatusCompleted || up.CompletedAt == nil {
			continue
		}
		if since != nil && up.CompletedAt.Before(*since) {
			continue
		}
		a, ok := byUser[up.UserID]
		if !ok {
			a = &agg{}
			byUser[up.UserID] = a
		}
		a.count++
		if up.PointsEarned != nil {
			a.points += *up.PointsEarned
		}
		if up.FastestTimeSeconds != nil {
			a.timeSum += *up.FastestTimeSeconds
			a.timedCnt++
		}
	}

	standings := []model.Standing{}
	for userID, a := range byUser {
		u, ok := m.users[userID]
		if !ok {
			continue
		}
		s := model.Standing{
			UserID:         userID,
			DisplayName:    u.DisplayName,
			CompletedCount: a.count,
			Points:         a.points,
		}
		if since == nil {
			s.Points = u.TotalPoints
		}
		if a.timedCnt > 0 {
			avg := float64(a.timeSum) / float64(a.timedCnt)
			s.AvgFastestTime = &avg
		}
		standings = append(standings, s)
	}

	model.SortStandings(standings)
	if limit < len(standings) {
		standings = standings[:limit]
	}
	return standings, nil
}
