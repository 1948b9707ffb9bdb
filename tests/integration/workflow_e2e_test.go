package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-api/internal/config"
	"github.com/talentbridge/talentbridge-api/internal/dto"
	"github.com/talentbridge/talentbridge-api/internal/handler"
	"github.com/talentbridge/talentbridge-api/internal/middleware"
	"github.com/talentbridge/talentbridge-api/internal/models"
	"github.com/talentbridge/talentbridge-api/internal/repository"
	"github.com/talentbridge/talentbridge-api/internal/router"
	"github.com/talentbridge/talentbridge-api/internal/service"
)

func setupWorkflowApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:workflow_e2e?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Project{}, &models.Submission{}, &models.Notification{}))

	server := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	projectRepo := repository.NewProjectRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationService := service.NewNotificationService(notificationRepo, redisClient, "bridge", nil, logger)
	leaderboardService := service.NewLeaderboardService(submissionRepo, redisClient, time.Minute, logger)
	workflowService := service.NewWorkflowService(submissionRepo, projectRepo, validate, notificationService, leaderboardService, logger)
	projectService := service.NewProjectService(projectRepo, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})

	cfg := config.Config{
		AppName:          "TalentBridge Test",
		JWTSecret:        "secret",
		SubmitRateLimit:  100,
		SubmitRateWindow: time.Minute,
	}
	router.Register(app, cfg, router.Dependencies{
		ProjectHandler:      handler.NewProjectHandler(projectService, logger),
		WorkflowHandler:     handler.NewWorkflowHandler(workflowService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger),
		LeaderboardHandler:  handler.NewLeaderboardHandler(leaderboardService, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			// Tests impersonate users through headers instead of signed tokens.
			if raw := c.Get("X-Test-User"); raw != "" {
				if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
					c.Locals("user_id", uint(id))
				}
			}
			if role := c.Get("X-Test-Role"); role != "" {
				c.Locals("user_role", role)
			}
			return c.Next()
		},
	})

	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload interface{}, userID uint, role string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(userID), 10))
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response, target *T) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target))
}

func TestWorkflowEndToEnd(t *testing.T) {
	app, db := setupWorkflowApp(t)

	project := models.Project{
		Title:       "Marketplace Analytics Dashboard",
		CompanyName: "Acme Corp",
		Steps: []models.ProjectStep{
			{Title: "Design", Points: 50},
			{Title: "Implementation", Points: 100},
			{Title: "Delivery", Points: 100},
		},
	}
	require.NoError(t, db.Create(&project).Error)

	const studentID = 7
	const mentorID = 900

	// Student browses the catalog.
	resp := doJSON(t, app, http.MethodGet, "/api/v1/projects", nil, 0, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var catalog struct {
		Success bool                  `json:"success"`
		Data    []dto.ProjectResponse `json:"data"`
	}
	decodeBody(t, resp, &catalog)
	require.True(t, catalog.Success)
	require.Len(t, catalog.Data, 1)
	require.Equal(t, 250, catalog.Data[0].TotalPoints)

	// Student accepts the project.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/workflow/accept",
		dto.AcceptProjectRequest{ProjectID: project.ID}, studentID, "student")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var accepted struct {
		Data dto.SubmissionResponse `json:"data"`
	}
	decodeBody(t, resp, &accepted)
	require.Equal(t, "accepted", accepted.Data.Status)
	submissionID := accepted.Data.ID

	// A second accept for the same project conflicts.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/workflow/accept",
		dto.AcceptProjectRequest{ProjectID: project.ID}, studentID, "student")
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	submit := func(index int) {
		resp := doJSON(t, app, http.MethodPost, "/api/v1/workflow/submit-step", dto.SubmitStepRequest{
			ProjectID: project.ID,
			StepIndex: index,
			Content:   json.RawMessage(`{"link":"https://github.com/acme/work","notes":"done"}`),
		}, studentID, "student")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
	review := func(payload dto.ReviewStepRequest, wantStatus int) dto.SubmissionResponse {
		payload.SubmissionID = submissionID
		resp := doJSON(t, app, http.MethodPost, "/api/v1/workflow/review-step", payload, mentorID, "mentor")
		require.Equal(t, wantStatus, resp.StatusCode)
		var out struct {
			Data dto.SubmissionResponse `json:"data"`
		}
		decodeBody(t, resp, &out)
		return out.Data
	}

	// Students cannot review steps.
	submit(0)
	resp = doJSON(t, app, http.MethodPost, "/api/v1/workflow/review-step", dto.ReviewStepRequest{
		SubmissionID: submissionID,
		StepIndex:    0,
		Status:       "approved",
	}, studentID, "student")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	review(dto.ReviewStepRequest{StepIndex: 0, Status: "approved", Feedback: "Clean design"}, fiber.StatusOK)

	progress := func() dto.ProgressResponse {
		resp := doJSON(t, app, http.MethodGet, "/api/v1/workflow/progress?project_id="+strconv.Itoa(int(project.ID)), nil, studentID, "student")
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		var out struct {
			Data dto.ProgressResponse `json:"data"`
		}
		decodeBody(t, resp, &out)
		return out.Data
	}
	require.Equal(t, 33, progress().Percent)

	// Out-of-order submission is blocked.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/workflow/submit-step", dto.SubmitStepRequest{
		ProjectID: project.ID,
		StepIndex: 2,
		Content:   json.RawMessage(`{"link":"https://github.com/acme/work","notes":"skipping ahead"}`),
	}, studentID, "student")
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	submit(1)
	review(dto.ReviewStepRequest{StepIndex: 1, Status: "approved"}, fiber.StatusOK)
	require.Equal(t, 67, progress().Percent)

	// Final approval demands the grading payload.
	submit(2)
	review(dto.ReviewStepRequest{StepIndex: 2, Status: "approved", Feedback: "Great delivery overall"}, fiber.StatusUnprocessableEntity)

	score := 95.0
	final := review(dto.ReviewStepRequest{
		StepIndex:  2,
		Status:     "approved",
		Feedback:   "Excellent work across every milestone.",
		Grade:      "A",
		TotalScore: &score,
	}, fiber.StatusOK)
	require.Equal(t, "completed", final.Status)
	require.Equal(t, "A", final.Grade)

	done := progress()
	require.Equal(t, 100, done.Percent)
	require.Equal(t, "accepted", done.Classification)

	// Completion feeds the leaderboard.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/leaderboard", nil, 0, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var board struct {
		Data []dto.LeaderboardEntryResponse `json:"data"`
	}
	decodeBody(t, resp, &board)
	require.Len(t, board.Data, 1)
	require.Equal(t, uint(studentID), board.Data[0].StudentID)
	require.Equal(t, int64(250), board.Data[0].Points)

	// Every transition left a notification in the student feed.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/notifications", nil, studentID, "student")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var feed struct {
		Data []dto.NotificationResponse `json:"data"`
	}
	decodeBody(t, resp, &feed)
	require.NotEmpty(t, feed.Data)
}
