package service

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-api/internal/models"
)

type fakeNotificationRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   []models.Notification
}

func (r *fakeNotificationRepo) Create(_ context.Context, notification *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	notification.ID = r.nextID
	notification.CreatedAt = time.Now()
	r.rows = append(r.rows, *notification)
	return nil
}

func (r *fakeNotificationRepo) ListByStudent(_ context.Context, studentID uint, limit, offset int) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.Notification
	for _, row := range r.rows {
		if row.StudentID == studentID {
			matched = append(matched, row)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id, studentID uint) (models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, row := range r.rows {
		if row.ID == id && row.StudentID == studentID {
			r.rows[i].Read = true
			return r.rows[i], nil
		}
	}
	return models.Notification{}, gorm.ErrRecordNotFound
}

func TestNotificationEmitPersistsAndPublishes(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, client, "bridge", nil, zerolog.New(io.Discard))

	ctx := context.Background()
	sub := client.Subscribe(ctx, "bridge:workflow-events")
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	index := 1
	svc.Emit(ctx, WorkflowEvent{
		Kind:         EventStepApproved,
		SubmissionID: 42,
		StudentID:    7,
		ProjectID:    1,
		StepIndex:    &index,
		OccurredAt:   time.Now().UTC(),
	})

	require.Len(t, repo.rows, 1)
	require.Equal(t, uint(7), repo.rows[0].StudentID)
	require.Equal(t, string(EventStepApproved), repo.rows[0].Kind)
	require.Contains(t, repo.rows[0].Message, "Step 2 was approved")

	select {
	case msg := <-sub.Channel():
		var envelope struct {
			Source string        `json:"source"`
			Event  WorkflowEvent `json:"event"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &envelope))
		require.NotEmpty(t, envelope.Source)
		require.Equal(t, EventStepApproved, envelope.Event.Kind)
		require.Equal(t, uint(42), envelope.Event.SubmissionID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a published workflow event")
	}
}

func TestNotificationEmitWithoutTransportsStillPersists(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, nil, "", nil, zerolog.New(io.Discard))

	svc.Emit(context.Background(), WorkflowEvent{
		Kind:      EventProjectCompleted,
		StudentID: 7,
	})

	require.Len(t, repo.rows, 1)
	require.Contains(t, repo.rows[0].Message, "Congratulations")
}

func TestNotificationListAndMarkRead(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewNotificationService(repo, nil, "", nil, zerolog.New(io.Discard))
	ctx := context.Background()

	svc.Emit(ctx, WorkflowEvent{Kind: EventProjectAccepted, StudentID: 7})
	svc.Emit(ctx, WorkflowEvent{Kind: EventStepSubmitted, StudentID: 7})
	svc.Emit(ctx, WorkflowEvent{Kind: EventProjectAccepted, StudentID: 8})

	feed, err := svc.List(ctx, 7, 20, 0)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	require.False(t, feed[0].Read)

	marked, err := svc.MarkRead(ctx, feed[0].ID, 7)
	require.NoError(t, err)
	require.True(t, marked.Read)

	_, err = svc.MarkRead(ctx, feed[0].ID, 8)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
