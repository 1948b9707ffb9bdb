package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/talentbridge/talentbridge-api/internal/config"
	"github.com/talentbridge/talentbridge-api/internal/handler"
	"github.com/talentbridge/talentbridge-api/internal/middleware"
	"github.com/talentbridge/talentbridge-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ProjectHandler      *handler.ProjectHandler
	WorkflowHandler     *handler.WorkflowHandler
	NotificationHandler *handler.NotificationHandler
	LeaderboardHandler  *handler.LeaderboardHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Project catalog (public reads)
	if deps.ProjectHandler != nil {
		projects := api.Group("/projects")
		deps.ProjectHandler.Register(projects)
	}

	// Project-execution workflow
	if deps.WorkflowHandler != nil {
		workflow := api.Group("/workflow", jwtMiddleware)
		submitLimiter := middleware.RateLimit("workflow-submit", cfg.SubmitRateLimit, cfg.SubmitRateWindow)
		reviewGuard := middleware.RequireRole("admin", "mentor")
		deps.WorkflowHandler.Register(workflow, submitLimiter, reviewGuard)
	}

	// Notification feed
	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}

	// Points leaderboard
	if deps.LeaderboardHandler != nil {
		leaderboard := api.Group("/leaderboard")
		deps.LeaderboardHandler.Register(leaderboard)
	}
}
