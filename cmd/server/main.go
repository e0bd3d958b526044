package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"skill_forge/internal/api"
	"skill_forge/internal/app/service"
	"skill_forge/internal/common/security"
	"skill_forge/internal/domain/repository"
	"skill_forge/internal/platform/cache"
	"skill_forge/internal/platform/config"
	"skill_forge/internal/platform/database"
)

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()
	fmt.Println("JWT initialized.")

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	fmt.Println("Database connected.")

	if err := database.Migrate(context.Background(), database.DB); err != nil {
		log.Fatalf("Could not run migrations: %v", err)
	}
	fmt.Println("Migrations applied.")

	// 4. Initialize Redis
	cache.ConnectRedis()
	defer cache.CloseRedis()
	fmt.Println("Redis connected.")

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)
	progressRepo := repository.NewPgProgressRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	leaderboardRepo := repository.NewPgLeaderboardRepository(database.DB)
	runner := repository.NewSQLTxRunner(database.DB)

	// 6. Initialize Services
	cfg := config.AppConfig
	authService := service.NewAuthService(userRepo)
	identityService := service.NewIdentityService(userRepo)
	progressService := service.NewProgressService(
		progressRepo, problemRepo, submissionRepo, userRepo, runner, cfg.CompletionRetryAttempts)
	importService := service.NewImportService(
		progressRepo, problemRepo, userRepo, runner, cfg.CompletionRetryAttempts)
	leaderboardService := service.NewLeaderboardService(
		leaderboardRepo, cfg.LeaderboardMaxRows, cfg.LeaderboardPageLimit)
	problemService := service.NewProblemService(problemRepo)
	userService := service.NewUserService(userRepo, service.AllowAllModerator{}, cfg.UsernameCooldownDays)

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(
		authService,
		identityService,
		progressService,
		importService,
		leaderboardService,
		problemService,
		userService,
		cache.RDB,
	)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped gracefully.")
}
