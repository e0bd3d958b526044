package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"skill_forge/internal/api/middleware"
	"skill_forge/internal/app/service"
	"skill_forge/internal/domain/model"
	"skill_forge/internal/domain/repository"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAuth(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDCtxKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newProgressRouter(t *testing.T, store *repository.MemoryStore, userID string) http.Handler {
	t.Helper()
	progressSvc := service.NewProgressService(store, store, store, store, store, 3)
	importSvc := service.NewImportService(store, store, store, store, 3)
	h := NewProgressHandler(progressSvc, importSvc)

	r := chi.NewRouter()
	r.Route("/progress", func(pr chi.Router) {
		pr.Use(fakeAuth(userID))
		h.RegisterRoutes(pr)
	})
	return r
}

func seedFixtures(t *testing.T, store *repository.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &model.User{ID: "u1", ExternalID: "ext-u1", Role: model.RoleUser}))
	require.NoError(t, store.CreateProblem(ctx, &model.Problem{
		ID: "prob-two-sum", Slug: "two-sum", Title: "Two Sum",
		Difficulty: model.DifficultyEasy, BasePoints: 100, IsPublished: true,
	}))
}

func TestSubmitEndpoint(t *testing.T) {
	store := repository.NewMemoryStore()
	seedFixtures(t, store)
	router := newProgressRouter(t, store, "u1")

	body := bytes.NewBufferString(`{"problemSlug":"two-sum","answerText":"ok","answerCorrect":true,"elapsedSeconds":30}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/progress/submit", body))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result service.SubmissionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, model.StatusCompleted, result.Status)
	assert.Equal(t, 100, result.PointsAwarded)
}

func TestSubmitEndpointUnknownProblem(t *testing.T) {
	store := repository.NewMemoryStore()
	seedFixtures(t, store)
	router := newProgressRouter(t, store, "u1")

	body := bytes.NewBufferString(`{"problemSlug":"nope","answerCorrect":true}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/progress/submit", body))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompleteEndpointIsIdempotent(t *testing.T) {
	store := repository.NewMemoryStore()
	seedFixtures(t, store)
	router := newProgressRouter(t, store, "u1")

	for i := 0; i < 2; i++ {
		body := bytes.NewBufferString(`{"problemSlug":"two-sum"}`)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/progress/complete", body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	user, err := store.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, user.TotalPoints)
}

func TestImportEndpoint(t *testing.T) {
	store := repository.NewMemoryStore()
	seedFixtures(t, store)
	router := newProgressRouter(t, store, "u1")

	body := bytes.NewBufferString(`{"completedSlugs":["two-sum","unknown-slug"]}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/progress/import", body))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp["migratedCount"])

	// Missing list is a validation error, not an empty import.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/progress/import", bytes.NewBufferString(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmissionHistoryEndpoint(t *testing.T) {
	store := repository.NewMemoryStore()
	seedFixtures(t, store)
	router := newProgressRouter(t, store, "u1")

	body := bytes.NewBufferString(`{"problemSlug":"two-sum","answerText":"nope","answerCorrect":false}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/progress/submit", body))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress/submissions/two-sum", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var subs []model.Submission
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subs))
	require.Len(t, subs, 1)
	assert.False(t, subs[0].IsCorrect)
}
