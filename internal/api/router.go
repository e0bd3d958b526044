package api

import (
	"net/http"
	"time"
	"skill_forge/internal/api/handler"
	"skill_forge/internal/api/middleware"
	"skill_forge/internal/app/service"
	"skill_forge/internal/common/security"
	"skill_forge/internal/platform/config"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/redis/go-redis/v9"
)

func NewRouter(
	authService *service.AuthService,
	identityService *service.IdentityService,
	progressService *service.ProgressService,
	importService *service.ImportService,
	leaderboardService *service.LeaderboardService,
	problemService *service.ProblemService,
	userService *service.UserService,
	rdb *redis.Client,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies the bearer token when present and puts claims in context.
	// Whether a token is required is decided per route group below.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	rateLimit := middleware.RateLimit(rdb, config.AppConfig.RateLimitPerMinute)

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		// Auth routes (public)
		authHandler := handler.NewAuthHandler(authService)
		v1.Group(func(publicAuth chi.Router) {
			authHandler.RegisterRoutes(publicAuth)
		})

		// Problem catalog (public reads, admin writes)
		problemHandler := handler.NewProblemHandler(problemService)
		v1.Route("/problems", func(pr chi.Router) {
			pr.Group(func(public chi.Router) {
				public.Use(middleware.OptionalAuthenticator(identityService))
				problemHandler.RegisterPublicRoutes(public)
			})
			pr.Group(func(admin chi.Router) {
				admin.Use(middleware.Authenticator(identityService))
				admin.Use(middleware.AdminOnly)
				problemHandler.RegisterAdminRoutes(admin)
			})
		})

		// Progress routes (authenticated, rate limited writes)
		progressHandler := handler.NewProgressHandler(progressService, importService)
		v1.Route("/progress", func(pr chi.Router) {
			pr.Use(middleware.Authenticator(identityService))
			pr.Use(rateLimit)
			progressHandler.RegisterRoutes(pr)
		})

		// Leaderboard (public, enriched with the caller's rank when authed)
		leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)
		v1.Route("/leaderboard", func(lr chi.Router) {
			lr.Use(middleware.OptionalAuthenticator(identityService))
			leaderboardHandler.RegisterRoutes(lr)
		})

		// Account routes (authenticated, rate limited)
		userHandler := handler.NewUserHandler(userService)
		v1.Route("/users", func(ur chi.Router) {
			ur.Use(middleware.Authenticator(identityService))
			ur.Use(rateLimit)
			userHandler.RegisterRoutes(ur)
		})
	})

	return r
}
