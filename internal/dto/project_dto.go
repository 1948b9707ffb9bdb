package dto

import (
	"time"

	"github.com/talentbridge/talentbridge-api/internal/models"
)

// ProjectStepResponse describes one step of a project listing.
type ProjectStepResponse struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int    `json:"points"`
}

// ProjectResponse is a catalog listing returned to API clients.
type ProjectResponse struct {
	ID          uint                  `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	CompanyName string                `json:"company_name"`
	Steps       []ProjectStepResponse `json:"steps"`
	TotalPoints int                   `json:"total_points"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// NewProjectResponse converts a Project model into a DTO.
func NewProjectResponse(model models.Project) ProjectResponse {
	steps := make([]ProjectStepResponse, 0, len(model.Steps))
	for index, step := range model.Steps {
		steps = append(steps, ProjectStepResponse{
			Index:       index,
			Title:       step.Title,
			Description: step.Description,
			Points:      step.Points,
		})
	}

	return ProjectResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		CompanyName: model.CompanyName,
		Steps:       steps,
		TotalPoints: model.TotalPoints,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewProjectResponseSlice converts project models into DTOs.
func NewProjectResponseSlice(models []models.Project) []ProjectResponse {
	responses := make([]ProjectResponse, 0, len(models))
	for _, project := range models {
		responses = append(responses, NewProjectResponse(project))
	}
	return responses
}
