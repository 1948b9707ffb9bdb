package service

import (
	"math"

	"github.com/talentbridge/talentbridge-api/internal/dto"
	"github.com/talentbridge/talentbridge-api/internal/models"
)

// Derived per-step display states. Computed once per read from the aggregate
// and the project's step list, never stored.
const (
	StepStateLocked   = "locked"
	StepStateOpen     = "open"
	StepStatePending  = "pending"
	StepStateApproved = "approved"
	StepStateRejected = "rejected"
)

// Display classifications of a submission.
const (
	ClassificationAccepted = "accepted"
	ClassificationPending  = "pending"
	ClassificationActive   = "active"
)

// ComputeProgress derives the progress view of a submission: completion
// percentage, 1-based current step display, classification, and the per-step
// state array. Pure; no side effects.
func ComputeProgress(submission models.Submission, project models.Project) dto.ProgressResponse {
	total := project.StepCount()
	percent := int(math.Round(100 * float64(len(submission.CompletedSteps)) / float64(total)))

	return dto.ProgressResponse{
		Percent:            percent,
		CurrentStepDisplay: submission.CurrentStep + 1,
		Classification:     Classify(submission),
		Steps:              deriveStepStates(submission, project),
	}
}

// Classify buckets a submission for display: accepted once completed, pending
// while any step awaits review and none is rejected, active otherwise.
func Classify(submission models.Submission) string {
	if submission.Status == models.SubmissionStatusCompleted {
		return ClassificationAccepted
	}

	anyPending := false
	anyRejected := false
	for _, step := range submission.StepSubmissions {
		switch step.Status {
		case models.StepStatusPending:
			anyPending = true
		case models.StepStatusRejected:
			anyRejected = true
		}
	}

	if anyPending && !anyRejected {
		return ClassificationPending
	}
	return ClassificationActive
}

func deriveStepStates(submission models.Submission, project models.Project) []dto.StepProgressResponse {
	steps := project.Steps
	if len(steps) == 0 {
		// Single-shot projects collapse to one virtual step.
		steps = []models.ProjectStep{{Title: project.Title, Points: project.TotalPoints}}
	}

	states := make([]dto.StepProgressResponse, 0, len(steps))
	for index, step := range steps {
		state := StepStateLocked
		if record, ok := submission.StepSubmissions[index]; ok {
			switch record.Status {
			case models.StepStatusApproved:
				state = StepStateApproved
			case models.StepStatusRejected:
				state = StepStateRejected
			default:
				state = StepStatePending
			}
		} else if index == submission.CurrentStep {
			state = StepStateOpen
		}

		states = append(states, dto.StepProgressResponse{
			Index:  index,
			Title:  step.Title,
			Points: step.Points,
			State:  state,
		})
	}
	return states
}
