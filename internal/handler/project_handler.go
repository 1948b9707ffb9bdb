package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/talentbridge/talentbridge-api/internal/service"
	"github.com/talentbridge/talentbridge-api/internal/utils"
)

// ProjectHandler serves the published project catalog.
type ProjectHandler struct {
	service service.ProjectService
	logger  zerolog.Logger
}

// NewProjectHandler builds a project handler instance.
func NewProjectHandler(service service.ProjectService, logger zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		service: service,
		logger:  logger.With().Str("component", "project_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ProjectHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

func (h *ProjectHandler) list(c *fiber.Ctx) error {
	projects, err := h.service.List(c.UserContext())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list projects")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
	return utils.SendSuccess(c, "projects retrieved", projects)
}

func (h *ProjectHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid project id")
	}

	project, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "project not found")
		}
		h.logger.Error().Err(err).Msg("failed to fetch project")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
	return utils.SendSuccess(c, "project retrieved", project)
}
