package dto

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/talentbridge/talentbridge-api/internal/models"
)

// AcceptProjectRequest starts a workflow for the authenticated student.
type AcceptProjectRequest struct {
	ProjectID uint `json:"project_id" validate:"required,gt=0"`
}

// SubmitStepRequest submits work for one step of an accepted project.
// Content must be a JSON object with link and notes fields.
type SubmitStepRequest struct {
	ProjectID uint            `json:"project_id" validate:"required,gt=0"`
	StepIndex int             `json:"step_index" validate:"gte=0"`
	Content   json.RawMessage `json:"content" validate:"required"`
}

// ReviewStepRequest records a mentor decision for one submitted step. Grade
// and total score are required only when approving the final step.
type ReviewStepRequest struct {
	SubmissionID uint     `json:"submission_id" validate:"required,gt=0"`
	StepIndex    int      `json:"step_index" validate:"gte=0"`
	Status       string   `json:"status" validate:"required,oneof=approved rejected"`
	Feedback     string   `json:"feedback"`
	Grade        string   `json:"grade"`
	TotalScore   *float64 `json:"total_score"`
}

// StepSubmissionResponse serializes one step's submitted work and outcome.
type StepSubmissionResponse struct {
	StepIndex   int       `json:"step_index"`
	Link        string    `json:"link"`
	Notes       string    `json:"notes"`
	Status      string    `json:"status"`
	Feedback    string    `json:"feedback,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID              uint                     `json:"id"`
	StudentID       uint                     `json:"student_id"`
	ProjectID       uint                     `json:"project_id"`
	Status          string                   `json:"status"`
	CurrentStep     int                      `json:"current_step"`
	CompletedSteps  []int                    `json:"completed_steps"`
	StepSubmissions []StepSubmissionResponse `json:"step_submissions"`
	Grade           string                   `json:"grade,omitempty"`
	TotalScore      *float64                 `json:"total_score,omitempty"`
	Feedback        string                   `json:"feedback,omitempty"`
	GithubURL       string                   `json:"github_url,omitempty"`
	Description     string                   `json:"description,omitempty"`
	Version         int                      `json:"version"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// StepProgressResponse is the derived display state of one step.
type StepProgressResponse struct {
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Points int    `json:"points"`
	State  string `json:"state"`
}

// ProgressResponse is the derived progress view of a submission.
type ProgressResponse struct {
	Percent            int                    `json:"percent"`
	CurrentStepDisplay int                    `json:"current_step_display"`
	Classification     string                 `json:"classification"`
	Steps              []StepProgressResponse `json:"steps"`
}

// NewSubmissionResponse converts a Submission aggregate into a DTO. Step
// submissions are emitted as an index-sorted array.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	completed := append([]int(nil), model.CompletedSteps...)
	if completed == nil {
		completed = []int{}
	}

	steps := make([]StepSubmissionResponse, 0, len(model.StepSubmissions))
	for _, step := range model.StepSubmissions {
		steps = append(steps, StepSubmissionResponse{
			StepIndex:   step.StepIndex,
			Link:        step.Content.Link,
			Notes:       step.Content.Notes,
			Status:      step.Status,
			Feedback:    step.Feedback,
			SubmittedAt: step.SubmittedAt,
		})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].StepIndex < steps[j].StepIndex })

	return SubmissionResponse{
		ID:              model.ID,
		StudentID:       model.StudentID,
		ProjectID:       model.ProjectID,
		Status:          model.Status,
		CurrentStep:     model.CurrentStep,
		CompletedSteps:  completed,
		StepSubmissions: steps,
		Grade:           model.Grade,
		TotalScore:      model.TotalScore,
		Feedback:        model.Feedback,
		GithubURL:       model.GithubURL,
		Description:     model.Description,
		Version:         model.Version,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}
