package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/talentbridge/talentbridge-api/internal/service"
	"github.com/talentbridge/talentbridge-api/internal/utils"
)

// LeaderboardHandler serves the points leaderboard.
type LeaderboardHandler struct {
	service service.LeaderboardService
	logger  zerolog.Logger
}

// NewLeaderboardHandler builds a leaderboard handler instance.
func NewLeaderboardHandler(service service.LeaderboardService, logger zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		service: service,
		logger:  logger.With().Str("component", "leaderboard_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *LeaderboardHandler) Register(router fiber.Router) {
	router.Get("", h.top)
}

func (h *LeaderboardHandler) top(c *fiber.Ctx) error {
	limit := parseQueryInt(c, "limit", 10)

	entries, err := h.service.Top(c.UserContext(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to build leaderboard")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
	return utils.SendSuccess(c, "leaderboard retrieved", entries)
}
