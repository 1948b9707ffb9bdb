package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/talentbridge/talentbridge-api/internal/dto"
	"github.com/talentbridge/talentbridge-api/internal/repository"
	"github.com/talentbridge/talentbridge-api/internal/service"
	"github.com/talentbridge/talentbridge-api/internal/utils"
)

// WorkflowHandler manages the project-execution workflow endpoints.
type WorkflowHandler struct {
	service service.WorkflowService
	logger  zerolog.Logger
}

// NewWorkflowHandler builds a workflow handler instance.
func NewWorkflowHandler(service service.WorkflowService, logger zerolog.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		service: service,
		logger:  logger.With().Str("component", "workflow_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. The optional
// guards protect the mutating endpoints: submitLimiter throttles student
// submissions, reviewGuard restricts reviews to privileged roles.
func (h *WorkflowHandler) Register(router fiber.Router, submitLimiter fiber.Handler, reviewGuard fiber.Handler) {
	noop := func(c *fiber.Ctx) error { return c.Next() }
	if submitLimiter == nil {
		submitLimiter = noop
	}
	if reviewGuard == nil {
		reviewGuard = noop
	}

	router.Post("/accept", h.accept)
	router.Post("/submit-step", submitLimiter, h.submitStep)
	router.Post("/review-step", reviewGuard, h.reviewStep)
	router.Get("/submission", h.getSubmission)
	router.Get("/progress", h.progress)
}

func (h *WorkflowHandler) accept(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "student identity required")
	}

	var payload dto.AcceptProjectRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.AcceptProject(c.UserContext(), studentID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "project accepted", submission)
}

func (h *WorkflowHandler) submitStep(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "student identity required")
	}

	var payload dto.SubmitStepRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.SubmitStep(c.UserContext(), studentID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "step submitted", submission)
}

func (h *WorkflowHandler) reviewStep(c *fiber.Ctx) error {
	actor := reviewActorFromContext(c)
	if actor.ID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "reviewer identity required")
	}

	var payload dto.ReviewStepRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.ReviewStep(c.UserContext(), payload, actor)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "step reviewed", submission)
}

func (h *WorkflowHandler) getSubmission(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "student identity required")
	}

	projectID, err := parseQueryUint(c, "project_id")
	if err != nil || projectID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "project_id is required")
	}

	submission, err := h.service.GetSubmission(c.UserContext(), studentID, *projectID)
	if err != nil {
		return h.handleError(c, err)
	}
	if submission == nil {
		return utils.SendSuccess(c, "no submission for this project", nil)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *WorkflowHandler) progress(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "student identity required")
	}

	projectID, err := parseQueryUint(c, "project_id")
	if err != nil || projectID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "project_id is required")
	}

	progress, err := h.service.Progress(c.UserContext(), studentID, *projectID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "progress computed", progress)
}

func (h *WorkflowHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErr *service.ValidationError
	var stateErr *service.StateError
	var fieldErrors validator.ValidationErrors

	switch {
	case errors.As(err, &validationErr):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, validationErr.Message)
	case errors.As(err, &stateErr):
		if stateErr.Code == service.CodeSubmissionNotFound {
			return utils.SendError(c, fiber.StatusNotFound, stateErr.Message)
		}
		return utils.SendError(c, fiber.StatusConflict, stateErr.Message)
	case errors.Is(err, service.ErrProjectNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "project not found")
	case errors.Is(err, repository.ErrVersionMismatch):
		return utils.SendError(c, fiber.StatusConflict, "submission was updated concurrently, please retry")
	case errors.As(err, &fieldErrors):
		return utils.SendError(c, fiber.StatusBadRequest, fieldErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
