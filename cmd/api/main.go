package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/talentbridge/talentbridge-api/internal/config"
	"github.com/talentbridge/talentbridge-api/internal/database"
	"github.com/talentbridge/talentbridge-api/internal/handler"
	"github.com/talentbridge/talentbridge-api/internal/middleware"
	"github.com/talentbridge/talentbridge-api/internal/models"
	"github.com/talentbridge/talentbridge-api/internal/repository"
	"github.com/talentbridge/talentbridge-api/internal/router"
	"github.com/talentbridge/talentbridge-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Project{}, &models.Submission{}, &models.Notification{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	} else {
		logger.Warn().Msg("nats url not configured, event fan-out limited to redis")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	projectRepo := repository.NewProjectRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.EventChannelBase, natsConn, logger)
	leaderboardService := service.NewLeaderboardService(submissionRepo, redisClient, cfg.LeaderboardCacheTTL, logger)
	workflowService := service.NewWorkflowService(submissionRepo, projectRepo, validate, notificationService, leaderboardService, logger)
	projectService := service.NewProjectService(projectRepo, logger)

	projectHandler := handler.NewProjectHandler(projectService, logger)
	workflowHandler := handler.NewWorkflowHandler(workflowService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ProjectHandler:      projectHandler,
		WorkflowHandler:     workflowHandler,
		NotificationHandler: notificationHandler,
		LeaderboardHandler:  leaderboardHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
