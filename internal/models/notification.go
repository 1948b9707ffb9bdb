package models

import "time"

// Notification stores an emitted workflow event for a student's feed.
// Delivery beyond persistence and pub/sub fan-out is handled by clients.
type Notification struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StudentID    uint      `gorm:"index" json:"student_id"`
	Kind         string    `gorm:"size:64;index" json:"kind"`
	Message      string    `gorm:"type:text" json:"message"`
	SubmissionID uint      `gorm:"index" json:"submission_id"`
	ProjectID    uint      `json:"project_id"`
	StepIndex    *int      `json:"step_index"`
	Read         bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
