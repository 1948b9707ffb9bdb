package dto

import (
	"time"

	"github.com/talentbridge/talentbridge-api/internal/models"
)

// NotificationResponse serializes a workflow notification for a student feed.
type NotificationResponse struct {
	ID           uint      `json:"id"`
	StudentID    uint      `json:"student_id"`
	Kind         string    `json:"kind"`
	Message      string    `json:"message"`
	SubmissionID uint      `json:"submission_id"`
	ProjectID    uint      `json:"project_id"`
	StepIndex    *int      `json:"step_index,omitempty"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"created_at"`
}

// LeaderboardEntryResponse is one row of the points leaderboard.
type LeaderboardEntryResponse struct {
	Rank      int   `json:"rank"`
	StudentID uint  `json:"student_id"`
	Points    int64 `json:"points"`
}

// NewNotificationResponse converts a Notification model into a DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:           model.ID,
		StudentID:    model.StudentID,
		Kind:         model.Kind,
		Message:      model.Message,
		SubmissionID: model.SubmissionID,
		ProjectID:    model.ProjectID,
		StepIndex:    model.StepIndex,
		Read:         model.Read,
		CreatedAt:    model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts notification models into DTOs.
func NewNotificationResponseSlice(models []models.Notification) []NotificationResponse {
	responses := make([]NotificationResponse, 0, len(models))
	for _, notification := range models {
		responses = append(responses, NewNotificationResponse(notification))
	}
	return responses
}
