package models

import (
	"encoding/json"
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Submission is the per-(student, project) workflow aggregate. The whole
// aggregate lives in a single row: step submissions and the completed-step set
// serialise into JSON columns so every workflow transition is one atomic write
// guarded by the optimistic Version counter.
type Submission struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	StudentID    uint           `gorm:"not null;uniqueIndex:uniq_student_project" json:"student_id"`
	ProjectID    uint           `gorm:"not null;uniqueIndex:uniq_student_project" json:"project_id"`
	Status       string         `gorm:"size:32;not null" json:"status"`
	CurrentStep  int            `gorm:"not null;default:0" json:"current_step"`
	CompletedRaw datatypes.JSON `gorm:"column:completed_steps;type:json" json:"-"`
	StepsRaw     datatypes.JSON `gorm:"column:step_submissions;type:json" json:"-"`
	Grade        string         `gorm:"size:32" json:"grade"`
	TotalScore   *float64       `json:"total_score"`
	Feedback     string         `gorm:"type:text" json:"feedback"`
	GithubURL    string         `gorm:"size:512" json:"github_url"`
	Description  string         `gorm:"type:text" json:"description"`
	Version      int            `gorm:"not null;default:0" json:"version"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	CompletedSteps  []int                  `gorm:"-" json:"completed_steps"`
	StepSubmissions map[int]StepSubmission `gorm:"-" json:"step_submissions"`
}

// StepSubmission records one step's submitted content and review outcome.
// Rejection feedback stays on the record until the next review decision
// overwrites it, so the student can read why the step came back.
type StepSubmission struct {
	StepIndex   int       `json:"step_index"`
	Content     Content   `json:"content"`
	Status      string    `json:"status"`
	Feedback    string    `json:"feedback,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Content is the structured payload of a step submission, decoded once at
// submission time. Malformed payloads are rejected rather than degraded.
type Content struct {
	Link  string `json:"link"`
	Notes string `json:"notes"`
}

// Submission statuses for the step-based workflow.
const (
	SubmissionStatusAccepted   = "accepted"
	SubmissionStatusInProgress = "in_progress"
	SubmissionStatusCompleted  = "completed"
	SubmissionStatusRejected   = "rejected"
)

// Submission statuses reachable only on the single-shot path.
const (
	SubmissionStatusStarted   = "started"
	SubmissionStatusSubmitted = "submitted"
)

// Step review statuses.
const (
	StepStatusPending  = "pending"
	StepStatusApproved = "approved"
	StepStatusRejected = "rejected"
)

// BeforeSave serialises the in-memory aggregate state before persisting.
func (s *Submission) BeforeSave(tx *gorm.DB) error {
	return s.EncodeState()
}

// AfterFind hydrates the aggregate state after loading from the database.
func (s *Submission) AfterFind(tx *gorm.DB) error {
	return s.DecodeState()
}

// EncodeState marshals CompletedSteps and StepSubmissions into their JSON
// columns. Step submissions persist as an index-sorted array; per-index
// uniqueness is guaranteed by the map representation.
func (s *Submission) EncodeState() error {
	completed := append([]int(nil), s.CompletedSteps...)
	if completed == nil {
		completed = []int{}
	}
	sort.Ints(completed)
	rawCompleted, err := json.Marshal(completed)
	if err != nil {
		return err
	}
	s.CompletedRaw = datatypes.JSON(rawCompleted)

	steps := make([]StepSubmission, 0, len(s.StepSubmissions))
	for _, step := range s.StepSubmissions {
		steps = append(steps, step)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].StepIndex < steps[j].StepIndex })
	rawSteps, err := json.Marshal(steps)
	if err != nil {
		return err
	}
	s.StepsRaw = datatypes.JSON(rawSteps)
	return nil
}

// DecodeState rebuilds the in-memory aggregate from the JSON columns. The
// stored array shape is reconstructed as a map keyed by step index; a
// duplicate index in stored data keeps the last record.
func (s *Submission) DecodeState() error {
	s.CompletedSteps = []int{}
	if len(s.CompletedRaw) > 0 {
		if err := json.Unmarshal(s.CompletedRaw, &s.CompletedSteps); err != nil {
			return err
		}
	}

	s.StepSubmissions = map[int]StepSubmission{}
	if len(s.StepsRaw) > 0 {
		var steps []StepSubmission
		if err := json.Unmarshal(s.StepsRaw, &steps); err != nil {
			return err
		}
		for _, step := range steps {
			s.StepSubmissions[step.StepIndex] = step
		}
	}
	return nil
}

// IsFinalized reports whether the submission can no longer be reviewed.
// A rejected step on the step-based path stays open for resubmission; a
// rejected single-shot submission is terminal.
func (s Submission) IsFinalized() bool {
	return s.Status == SubmissionStatusCompleted || s.Status == SubmissionStatusRejected
}

// HasCompletedStep reports whether the given step index has been approved.
func (s Submission) HasCompletedStep(index int) bool {
	for _, completed := range s.CompletedSteps {
		if completed == index {
			return true
		}
	}
	return false
}

// MarkStepCompleted records an approved step exactly once.
func (s *Submission) MarkStepCompleted(index int) {
	if !s.HasCompletedStep(index) {
		s.CompletedSteps = append(s.CompletedSteps, index)
		sort.Ints(s.CompletedSteps)
	}
}
