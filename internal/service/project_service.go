package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge-api/internal/dto"
	"github.com/talentbridge/talentbridge-api/internal/repository"
)

// ProjectService exposes the published project catalog for browsing.
type ProjectService interface {
	List(ctx context.Context) ([]dto.ProjectResponse, error)
	Get(ctx context.Context, id uint) (dto.ProjectResponse, error)
}

type projectService struct {
	projects repository.ProjectRepository
	logger   zerolog.Logger
}

// NewProjectService constructs the catalog read service.
func NewProjectService(projects repository.ProjectRepository, logger zerolog.Logger) ProjectService {
	return &projectService{
		projects: projects,
		logger:   logger.With().Str("component", "project_service").Logger(),
	}
}

func (s *projectService) List(ctx context.Context) ([]dto.ProjectResponse, error) {
	projects, err := s.projects.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewProjectResponseSlice(projects), nil
}

func (s *projectService) Get(ctx context.Context, id uint) (dto.ProjectResponse, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProjectResponse{}, ErrProjectNotFound
		}
		return dto.ProjectResponse{}, err
	}
	return dto.NewProjectResponse(project), nil
}
