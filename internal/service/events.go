package service

import (
	"context"
	"time"
)

// EventKind names a workflow domain event.
type EventKind string

// Workflow event kinds.
const (
	EventProjectAccepted  EventKind = "project.accepted"
	EventStepSubmitted    EventKind = "step.submitted"
	EventStepApproved     EventKind = "step.approved"
	EventStepRejected     EventKind = "step.rejected"
	EventProjectCompleted EventKind = "project.completed"
	EventProjectRejected  EventKind = "project.rejected"
)

// WorkflowEvent is emitted after a successful state transition.
type WorkflowEvent struct {
	Kind         EventKind `json:"kind"`
	SubmissionID uint      `json:"submission_id"`
	StudentID    uint      `json:"student_id"`
	ProjectID    uint      `json:"project_id"`
	StepIndex    *int      `json:"step_index,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// EventEmitter receives workflow events. Emission is fire-and-forget:
// implementations log failures and must never affect the transition that
// produced the event.
type EventEmitter interface {
	Emit(ctx context.Context, event WorkflowEvent)
}
