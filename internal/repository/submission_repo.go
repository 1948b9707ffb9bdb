package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-api/internal/models"
)

// ErrVersionMismatch indicates a concurrent writer updated the submission
// between the caller's read and its save. Callers recover by re-fetching the
// aggregate and retrying the operation.
var ErrVersionMismatch = errors.New("submission version mismatch")

// SubmissionRepository is the store for workflow aggregates. Save is the only
// mutation path for existing submissions and performs a compare-and-swap on
// the version counter.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByStudentAndProject(ctx context.Context, studentID, projectID uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Save(ctx context.Context, submission *models.Submission, expectedVersion int) error
	PointsByStudent(ctx context.Context) ([]StudentPoints, error)
}

// StudentPoints aggregates earned points for completed submissions.
type StudentPoints struct {
	StudentID uint
	Points    int64
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) GetByStudentAndProject(ctx context.Context, studentID, projectID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("project_id = ?", projectID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

// Save writes the full aggregate in one conditional UPDATE. The WHERE clause
// on the version counter makes concurrent writers lose deterministically: the
// row is matched only if nobody advanced the version since the caller's read.
func (r *submissionRepository) Save(ctx context.Context, submission *models.Submission, expectedVersion int) error {
	if err := submission.EncodeState(); err != nil {
		return err
	}

	updates := map[string]interface{}{
		"status":           submission.Status,
		"current_step":     submission.CurrentStep,
		"completed_steps":  submission.CompletedRaw,
		"step_submissions": submission.StepsRaw,
		"grade":            submission.Grade,
		"total_score":      submission.TotalScore,
		"feedback":         submission.Feedback,
		"github_url":       submission.GithubURL,
		"description":      submission.Description,
		"version":          expectedVersion + 1,
		"updated_at":       time.Now(),
	}

	tx := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND version = ?", submission.ID, expectedVersion).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrVersionMismatch
	}

	submission.Version = expectedVersion + 1
	return nil
}

func (r *submissionRepository) PointsByStudent(ctx context.Context) ([]StudentPoints, error) {
	var rows []StudentPoints
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("submissions.student_id AS student_id, SUM(projects.total_points) AS points").
		Joins("JOIN projects ON projects.id = submissions.project_id").
		Where("submissions.status = ?", models.SubmissionStatusCompleted).
		Group("submissions.student_id").
		Order("points DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
