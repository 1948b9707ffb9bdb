package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/talentbridge/talentbridge-api/internal/dto"
	"github.com/talentbridge/talentbridge-api/internal/models"
	"github.com/talentbridge/talentbridge-api/internal/observability"
	"github.com/talentbridge/talentbridge-api/internal/repository"
)

// NotificationService persists workflow events as student notifications and
// fans them out over Redis pub/sub and NATS for other nodes or delivery
// workers. It implements EventEmitter for the workflow engine.
type NotificationService interface {
	EventEmitter
	List(ctx context.Context, studentID uint, limit, offset int) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, id, studentID uint) (dto.NotificationResponse, error)
}

type notificationService struct {
	repo        repository.NotificationRepository
	redis       *redis.Client
	redisChan   string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	nodeID      string
}

type notificationEnvelope struct {
	Source string        `json:"source"`
	Event  WorkflowEvent `json:"event"`
	SentAt time.Time     `json:"sent_at"`
}

// NewNotificationService constructs the notification emitter. Redis and NATS
// are both optional; a nil client simply disables that fan-out leg.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) NotificationService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":workflow-events"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".workflow.events"
	}

	return &notificationService{
		repo:        repo,
		redis:       redisClient,
		redisChan:   channel,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "notification_service").Logger(),
		nodeID:      uuid.NewString(),
	}
}

func (s *notificationService) Emit(ctx context.Context, event WorkflowEvent) {
	notification := models.Notification{
		StudentID:    event.StudentID,
		Kind:         string(event.Kind),
		Message:      messageForEvent(event),
		SubmissionID: event.SubmissionID,
		ProjectID:    event.ProjectID,
		StepIndex:    event.StepIndex,
	}

	if err := s.repo.Create(ctx, &notification); err != nil {
		s.logger.Warn().Err(err).Str("kind", string(event.Kind)).Msg("failed to persist notification")
	}

	if err := s.publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("kind", string(event.Kind)).Msg("failed to publish workflow event")
	}

	observability.WorkflowEventsEmitted().WithLabelValues(string(event.Kind)).Inc()
}

func (s *notificationService) List(ctx context.Context, studentID uint, limit, offset int) ([]dto.NotificationResponse, error) {
	notifications, err := s.repo.ListByStudent(ctx, studentID, limit, offset)
	if err != nil {
		return nil, err
	}
	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, studentID uint) (dto.NotificationResponse, error) {
	notification, err := s.repo.MarkRead(ctx, id, studentID)
	if err != nil {
		return dto.NotificationResponse{}, err
	}
	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) publish(ctx context.Context, event WorkflowEvent) error {
	if s.redis == nil && s.nats == nil {
		return nil
	}

	envelope := notificationEnvelope{
		Source: s.nodeID,
		Event:  event,
		SentAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChan != "" {
		if err := s.redis.Publish(ctx, s.redisChan, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func messageForEvent(event WorkflowEvent) string {
	switch event.Kind {
	case EventProjectAccepted:
		return "You have accepted a new project. Good luck!"
	case EventStepSubmitted:
		if event.StepIndex != nil {
			return fmt.Sprintf("Step %d was submitted for review.", *event.StepIndex+1)
		}
		return "Your work was submitted for review."
	case EventStepApproved:
		if event.StepIndex != nil {
			return fmt.Sprintf("Step %d was approved. The next step is now open.", *event.StepIndex+1)
		}
		return "Your step was approved."
	case EventStepRejected:
		if event.StepIndex != nil {
			return fmt.Sprintf("Step %d was rejected. Check the feedback and resubmit.", *event.StepIndex+1)
		}
		return "Your step was rejected. Check the feedback and resubmit."
	case EventProjectCompleted:
		return "Congratulations! Your project was graded and completed."
	case EventProjectRejected:
		return "Your submission was rejected. Check the feedback for details."
	default:
		return "Your project has an update."
	}
}
