package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"
	"skill_forge/internal/common"

	"github.com/redis/go-redis/v9"
)

// RateLimit is a fixed-window per-user limiter over redis. Anonymous
// requests fall back to the remote address as the key. Redis being down
// fails open; the limiter protects write endpoints, it is not a security
// boundary.
func RateLimit(rdb *redis.Client, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if userID, ok := GetUserIDFromContext(r.Context()); ok {
				key = userID
			}
			window := time.Now().Unix() / 60
			redisKey := fmt.Sprintf("ratelimit:%s:%d", key, window)

			count, err := rdb.Incr(r.Context(), redisKey).Result()
			if err != nil {
				log.Printf("WARN: rate limiter unavailable: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rdb.Expire(r.Context(), redisKey, time.Minute)
			}
			if count > int64(perMinute) {
				common.RespondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
