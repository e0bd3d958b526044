package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func authedRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/progress/submit", nil)
	ctx := context.WithValue(req.Context(), UserIDCtxKey, userID)
	return req.WithContext(ctx)
}

func TestRateLimitBlocksAfterThreshold(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	handler := RateLimit(client, 3)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest("u1"))
		assert.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("u1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimitIsPerUser(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	handler := RateLimit(client, 1)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("u1"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("u1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different user has their own window.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("u2"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitFailsOpenWhenRedisIsDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	handler := RateLimit(client, 1)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("u1"))
	assert.Equal(t, http.StatusOK, rec.Code)
}
