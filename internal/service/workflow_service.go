package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-api/internal/dto"
	"github.com/talentbridge/talentbridge-api/internal/models"
	"github.com/talentbridge/talentbridge-api/internal/observability"
	"github.com/talentbridge/talentbridge-api/internal/repository"
)

// ReviewActor identifies the mentor or admin making a review decision.
// Identity is supplied by the auth layer and trusted as-is.
type ReviewActor struct {
	ID   uint
	Role string
}

// WorkflowService orchestrates the project-execution state machine: a student
// accepts a project, submits work step by step, and a reviewer approves or
// rejects each step. Every operation is a single read-modify-write against the
// submission store; concurrent writers are resolved by the store's version
// check.
type WorkflowService interface {
	AcceptProject(ctx context.Context, studentID uint, payload dto.AcceptProjectRequest) (dto.SubmissionResponse, error)
	SubmitStep(ctx context.Context, studentID uint, payload dto.SubmitStepRequest) (dto.SubmissionResponse, error)
	ReviewStep(ctx context.Context, payload dto.ReviewStepRequest, actor ReviewActor) (dto.SubmissionResponse, error)
	GetSubmission(ctx context.Context, studentID, projectID uint) (*dto.SubmissionResponse, error)
	Progress(ctx context.Context, studentID, projectID uint) (dto.ProgressResponse, error)
}

// LeaderboardInvalidator drops cached standings after a completion.
type LeaderboardInvalidator interface {
	InvalidateLeaderboard(ctx context.Context)
}

type workflowService struct {
	submissions repository.SubmissionRepository
	projects    repository.ProjectRepository
	validator   *validator.Validate
	events      EventEmitter
	leaderboard LeaderboardInvalidator
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewWorkflowService constructs the workflow engine.
func NewWorkflowService(submissions repository.SubmissionRepository, projects repository.ProjectRepository, validate *validator.Validate, events EventEmitter, leaderboard LeaderboardInvalidator, logger zerolog.Logger) WorkflowService {
	return &workflowService{
		submissions: submissions,
		projects:    projects,
		validator:   validate,
		events:      events,
		leaderboard: leaderboard,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "workflow_service").Logger(),
		tracer:      otel.Tracer("github.com/talentbridge/talentbridge-api/internal/service/workflow"),
		now:         time.Now,
	}
}

// workflowPath is the per-kind behavior of the state machine. Step-based
// projects and legacy single-shot projects run the same machine; the path
// only selects the status vocabulary and the terminal handling of rejections.
type workflowPath interface {
	stepCount() int
	statusOnAccept() string
	statusOnSubmit() string
	statusOnReject(current string) string
	rejectionEvent() EventKind
}

type stepwisePath struct {
	steps int
}

func (p stepwisePath) stepCount() int            { return p.steps }
func (p stepwisePath) statusOnAccept() string    { return models.SubmissionStatusAccepted }
func (p stepwisePath) statusOnSubmit() string    { return models.SubmissionStatusInProgress }
func (p stepwisePath) rejectionEvent() EventKind { return EventStepRejected }

// A rejected step keeps the stepwise submission open for resubmission.
func (p stepwisePath) statusOnReject(current string) string { return current }

type singleShotPath struct{}

func (p singleShotPath) stepCount() int            { return 1 }
func (p singleShotPath) statusOnAccept() string    { return models.SubmissionStatusStarted }
func (p singleShotPath) statusOnSubmit() string    { return models.SubmissionStatusSubmitted }
func (p singleShotPath) rejectionEvent() EventKind { return EventProjectRejected }

// A single-shot rejection is terminal for the submission.
func (p singleShotPath) statusOnReject(current string) string { return models.SubmissionStatusRejected }

func pathForProject(project models.Project) workflowPath {
	if project.HasSteps() {
		return stepwisePath{steps: len(project.Steps)}
	}
	return singleShotPath{}
}

func (s *workflowService) AcceptProject(ctx context.Context, studentID uint, payload dto.AcceptProjectRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	project, err := s.loadProject(ctx, payload.ProjectID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if _, err := s.submissions.GetByStudentAndProject(ctx, studentID, project.ID); err == nil {
		return dto.SubmissionResponse{}, &StateError{
			Code:    CodeDuplicateSubmission,
			Message: "You have already accepted this project.",
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SubmissionResponse{}, err
	}

	path := pathForProject(project)
	submission := models.Submission{
		StudentID:       studentID,
		ProjectID:       project.ID,
		Status:          path.statusOnAccept(),
		CurrentStep:     0,
		CompletedSteps:  []int{},
		StepSubmissions: map[int]models.StepSubmission{},
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		// The unique (student, project) index closes the check-then-create race.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.SubmissionResponse{}, &StateError{
				Code:    CodeDuplicateSubmission,
				Message: "You have already accepted this project.",
			}
		}
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Uint("submission_id", submission.ID).Uint("project_id", project.ID).Msg("project accepted")
	s.emit(ctx, WorkflowEvent{
		Kind:         EventProjectAccepted,
		SubmissionID: submission.ID,
		StudentID:    studentID,
		ProjectID:    project.ID,
	})
	observability.WorkflowOperations().WithLabelValues("accept", "ok").Inc()

	return dto.NewSubmissionResponse(submission), nil
}

func (s *workflowService) SubmitStep(ctx context.Context, studentID uint, payload dto.SubmitStepRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	content, err := s.parseContent(payload.Content)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	project, err := s.loadProject(ctx, payload.ProjectID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByStudentAndProject(ctx, studentID, project.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, &StateError{
				Code:    CodeSubmissionNotFound,
				Message: "Accept the project before submitting work.",
			}
		}
		return dto.SubmissionResponse{}, err
	}

	if submission.IsFinalized() {
		return dto.SubmissionResponse{}, &StateError{
			Code:    CodeAlreadyFinalized,
			Message: "This submission has already been finalized.",
		}
	}

	path := pathForProject(project)
	index := payload.StepIndex
	if err := checkStepGate(submission, path, index); err != nil {
		return dto.SubmissionResponse{}, err
	}

	record := models.StepSubmission{
		StepIndex:   index,
		Content:     content,
		Status:      models.StepStatusPending,
		SubmittedAt: s.now(),
	}
	// Prior rejection feedback stays readable until the next review decision.
	if previous, ok := submission.StepSubmissions[index]; ok {
		record.Feedback = previous.Feedback
	}
	submission.StepSubmissions[index] = record
	submission.Status = path.statusOnSubmit()

	if err := s.save(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Uint("submission_id", submission.ID).Int("step_index", index).Msg("step submitted")
	s.emit(ctx, WorkflowEvent{
		Kind:         EventStepSubmitted,
		SubmissionID: submission.ID,
		StudentID:    studentID,
		ProjectID:    project.ID,
		StepIndex:    &index,
	})
	observability.WorkflowOperations().WithLabelValues("submit_step", "ok").Inc()

	return dto.NewSubmissionResponse(submission), nil
}

func (s *workflowService) ReviewStep(ctx context.Context, payload dto.ReviewStepRequest, actor ReviewActor) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.review_step", trace.WithAttributes(
		attribute.Int64("review.submission_id", int64(payload.SubmissionID)),
		attribute.Int("review.step_index", payload.StepIndex),
		attribute.String("review.decision", payload.Status),
		attribute.Int64("review.actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, payload.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, &StateError{
				Code:    CodeSubmissionNotFound,
				Message: "Submission not found.",
			}
		}
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	project, err := s.loadProject(ctx, submission.ProjectID)
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	if submission.IsFinalized() {
		return dto.SubmissionResponse{}, &StateError{
			Code:    CodeAlreadyFinalized,
			Message: "This submission has already been finalized.",
		}
	}

	path := pathForProject(project)
	index := payload.StepIndex
	record, ok := submission.StepSubmissions[index]
	if !ok || index >= path.stepCount() {
		return dto.SubmissionResponse{}, &StateError{
			Code:    CodeStepLocked,
			Message: "This step has no submission to review.",
		}
	}
	if record.Status == models.StepStatusApproved {
		return dto.SubmissionResponse{}, &StateError{
			Code:    CodeAlreadyFinalized,
			Message: "This step has already been approved.",
		}
	}

	feedback := strings.TrimSpace(s.sanitizer.Sanitize(payload.Feedback))

	var event WorkflowEvent
	switch payload.Status {
	case models.StepStatusRejected:
		if err := ValidateRejection(feedback); err != nil {
			return dto.SubmissionResponse{}, err
		}
		record.Status = models.StepStatusRejected
		record.Feedback = feedback
		submission.StepSubmissions[index] = record
		submission.Status = path.statusOnReject(submission.Status)
		event = WorkflowEvent{Kind: path.rejectionEvent(), StepIndex: &index}

	case models.StepStatusApproved:
		final := index == path.stepCount()-1
		if final {
			// All grading validation runs before any mutation: a bad payload
			// leaves the aggregate untouched.
			if err := ValidateFinalGrading(payload.Grade, payload.TotalScore, feedback); err != nil {
				return dto.SubmissionResponse{}, err
			}
		}

		record.Status = models.StepStatusApproved
		record.Feedback = feedback
		submission.StepSubmissions[index] = record
		submission.MarkStepCompleted(index)
		submission.CurrentStep = index + 1

		if final {
			submission.Grade = strings.TrimSpace(payload.Grade)
			submission.TotalScore = payload.TotalScore
			submission.Feedback = feedback
			submission.Status = models.SubmissionStatusCompleted
			event = WorkflowEvent{Kind: EventProjectCompleted}
		} else {
			event = WorkflowEvent{Kind: EventStepApproved, StepIndex: &index}
		}

	default:
		return dto.SubmissionResponse{}, &ValidationError{
			Code:    CodeInvalidContent,
			Message: "Review decision must be approved or rejected.",
		}
	}

	if err := s.save(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	event.SubmissionID = submission.ID
	event.StudentID = submission.StudentID
	event.ProjectID = submission.ProjectID
	s.emit(ctx, event)
	observability.WorkflowOperations().WithLabelValues("review_step", "ok").Inc()

	if event.Kind == EventProjectCompleted {
		s.logger.Info().Uint("submission_id", submission.ID).Uint("reviewer_id", actor.ID).Msg("project completed")
		if s.leaderboard != nil {
			s.leaderboard.InvalidateLeaderboard(ctx)
		}
	}

	span.SetAttributes(attribute.String("review.result_status", submission.Status))
	return dto.NewSubmissionResponse(submission), nil
}

func (s *workflowService) GetSubmission(ctx context.Context, studentID, projectID uint) (*dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByStudentAndProject(ctx, studentID, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	response := dto.NewSubmissionResponse(submission)
	return &response, nil
}

func (s *workflowService) Progress(ctx context.Context, studentID, projectID uint) (dto.ProgressResponse, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	submission, err := s.submissions.GetByStudentAndProject(ctx, studentID, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgressResponse{}, &StateError{
				Code:    CodeSubmissionNotFound,
				Message: "Accept the project before checking progress.",
			}
		}
		return dto.ProgressResponse{}, err
	}

	return ComputeProgress(submission, project), nil
}

// checkStepGate enforces sequential step ordering: a step may be submitted
// only when it is the current step or its prior submission was rejected.
func checkStepGate(submission models.Submission, path workflowPath, index int) error {
	if index < 0 || index >= path.stepCount() {
		return &StateError{
			Code:    CodeStepLocked,
			Message: "This step does not exist for the project.",
		}
	}

	if index == submission.CurrentStep {
		return nil
	}
	if existing, ok := submission.StepSubmissions[index]; ok && existing.Status == models.StepStatusRejected {
		return nil
	}

	return &StateError{
		Code:    CodeStepLocked,
		Message: "This step is locked until the previous step is approved.",
	}
}

// parseContent decodes submitted content exactly once. Only a JSON object
// with link/notes fields is accepted; malformed payloads are rejected rather
// than degraded to bare notes.
func (s *workflowService) parseContent(raw json.RawMessage) (models.Content, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || !strings.HasPrefix(trimmed, "{") {
		return models.Content{}, &ValidationError{
			Code:    CodeInvalidContent,
			Message: "Step content must be an object with link and notes.",
		}
	}

	var content models.Content
	decoder := json.NewDecoder(strings.NewReader(trimmed))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&content); err != nil {
		return models.Content{}, &ValidationError{
			Code:    CodeInvalidContent,
			Message: "Step content must be an object with link and notes.",
		}
	}

	content.Link = strings.TrimSpace(content.Link)
	content.Notes = strings.TrimSpace(s.sanitizer.Sanitize(content.Notes))
	if content.Link == "" && content.Notes == "" {
		return models.Content{}, &ValidationError{
			Code:    CodeInvalidContent,
			Message: "Step content requires a link or notes.",
		}
	}

	return content, nil
}

func (s *workflowService) loadProject(ctx context.Context, projectID uint) (models.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Project{}, ErrProjectNotFound
		}
		return models.Project{}, err
	}
	return project, nil
}

// save performs the single compare-and-swap write for this operation.
func (s *workflowService) save(ctx context.Context, submission *models.Submission) error {
	if err := s.submissions.Save(ctx, submission, submission.Version); err != nil {
		if errors.Is(err, repository.ErrVersionMismatch) {
			observability.WorkflowConflicts().Inc()
			s.logger.Warn().Uint("submission_id", submission.ID).Msg("concurrent update detected")
		}
		return err
	}
	return nil
}

func (s *workflowService) emit(ctx context.Context, event WorkflowEvent) {
	if s.events == nil {
		return
	}
	event.OccurredAt = s.now().UTC()
	s.events.Emit(ctx, event)
}
