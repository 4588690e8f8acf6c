package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/circuit-studio/engine/internal/circuit"
	"github.com/circuit-studio/engine/internal/models"
	"github.com/circuit-studio/engine/internal/repository"
	"github.com/circuit-studio/engine/internal/validation"
	appErr "github.com/circuit-studio/engine/pkg/errors"
	"github.com/circuit-studio/engine/pkg/logger"
)

// ProjectService manages projects and their versioned circuit revisions.
type ProjectService interface {
	// Project CRUD
	CreateProject(ctx context.Context, userID uuid.UUID, input *CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, userID uuid.UUID, filters *ProjectFilters) ([]models.Project, error)
	UpdateProject(ctx context.Context, projectID, userID uuid.UUID, updates *UpdateProjectInput) (*models.Project, error)
	DeleteProject(ctx context.Context, projectID, userID uuid.UUID) error

	// Revision management
	SaveRevision(ctx context.Context, projectID, userID uuid.UUID, graph *circuit.Graph) (*models.CircuitRevision, error)
	GetCurrentRevision(ctx context.Context, projectID, userID uuid.UUID) (*models.CircuitRevision, error)
	GetRevisionVersion(ctx context.Context, projectID, userID uuid.UUID, version int) (*models.CircuitRevision, error)
	ListRevisions(ctx context.Context, projectID, userID uuid.UUID) ([]models.CircuitRevision, error)
	RestoreRevision(ctx context.Context, projectID, userID uuid.UUID, version int) (*models.CircuitRevision, error)
}

type CreateProjectInput struct {
	Name        string
	Description string
	Settings    map[string]interface{}
}

type UpdateProjectInput struct {
	Description *string
	Settings    map[string]interface{}
	Archived    *bool
}

type ProjectFilters struct {
	IncludeArchived bool
}

type projectService struct {
	db           *gorm.DB
	projectRepo  repository.ProjectRepository
	revisionRepo repository.RevisionRepository
}

func NewProjectService(db *gorm.DB, projectRepo repository.ProjectRepository, revisionRepo repository.RevisionRepository) ProjectService {
	return &projectService{db: db, projectRepo: projectRepo, revisionRepo: revisionRepo}
}

var _ ProjectService = (*projectService)(nil)

// CreateProject creates a new project for the given user.
func (s *projectService) CreateProject(ctx context.Context, userID uuid.UUID, input *CreateProjectInput) (*models.Project, error) {
	logger.L().Info("create project called", zap.String("user_id", userID.String()), zap.String("name", input.Name))

	var settings datatypes.JSON
	if input.Settings != nil {
		b, err := json.Marshal(input.Settings)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid settings json")
		}
		settings = datatypes.JSON(b)
	}

	p := &models.Project{
		UserID:      userID,
		Name:        input.Name,
		Description: input.Description,
		Settings:    settings,
	}

	if err := s.projectRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	logger.L().Info("project created", zap.String("project_id", p.ID.String()), zap.String("user_id", userID.String()))
	return p, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}
	return &p, nil
}

func (s *projectService) ListProjects(ctx context.Context, userID uuid.UUID, filters *ProjectFilters) ([]models.Project, error) {
	includeArchived := filters != nil && filters.IncludeArchived
	return s.projectRepo.ListByUser(ctx, userID, includeArchived)
}

func (s *projectService) UpdateProject(ctx context.Context, projectID, userID uuid.UUID, updates *UpdateProjectInput) (*models.Project, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}

	if updates.Description != nil {
		p.Description = *updates.Description
	}
	if updates.Settings != nil {
		b, err := json.Marshal(updates.Settings)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid settings json")
		}
		p.Settings = datatypes.JSON(b)
	}

	if err := s.projectRepo.Update(ctx, &p); err != nil {
		return nil, err
	}

	if updates.Archived != nil && *updates.Archived && !p.Archived {
		if err := s.projectRepo.Archive(ctx, projectID); err != nil {
			return nil, err
		}
		p.Archived = true
	}

	logger.L().Info("project updated", zap.String("project_id", projectID.String()), zap.String("user_id", userID.String()))
	return &p, nil
}

func (s *projectService) DeleteProject(ctx context.Context, projectID, userID uuid.UUID) error {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return err
	}
	if p.UserID != userID {
		return appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}
	if err := s.projectRepo.Delete(ctx, projectID); err != nil {
		return err
	}
	logger.L().Info("project deleted", zap.String("project_id", projectID.String()), zap.String("user_id", userID.String()))
	return nil
}

// SaveRevision validates the graph, then stores it as the next version
// and marks it current in one transaction. The validation report is
// persisted alongside the graph so clients can render issues without
// revalidating.
func (s *projectService) SaveRevision(ctx context.Context, projectID, userID uuid.UUID, graph *circuit.Graph) (*models.CircuitRevision, error) {
	logger.L().Info("save revision start", zap.String("project_id", projectID.String()), zap.String("user_id", userID.String()))

	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}

	graphB, err := json.Marshal(graph)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid graph json")
	}

	report := validation.Validate(graph)
	reportB, err := json.Marshal(report)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "marshal validation report failed")
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}

	var maxVersion int
	if err := tx.Model(&models.CircuitRevision{}).Where("project_id = ?", projectID).Select("COALESCE(MAX(version),0)").Scan(&maxVersion).Error; err != nil {
		tx.Rollback()
		return nil, appErr.Wrap(err, appErr.CodeInternal, "compute revision version failed")
	}
	nextVersion := maxVersion + 1

	if err := tx.Model(&models.CircuitRevision{}).Where("project_id = ? AND is_current = true", projectID).Update("is_current", false).Error; err != nil {
		tx.Rollback()
		return nil, appErr.Wrap(err, appErr.CodeInternal, "mark previous revisions failed")
	}

	rev := &models.CircuitRevision{
		ProjectID:  projectID,
		Version:    nextVersion,
		Graph:      datatypes.JSON(graphB),
		Validation: datatypes.JSON(reportB),
		IsCurrent:  true,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := tx.Create(rev).Error; err != nil {
		tx.Rollback()
		return nil, appErr.Wrap(err, appErr.CodeInternal, "create revision failed")
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}

	logger.L().Info("revision saved",
		zap.String("project_id", projectID.String()),
		zap.Int("version", nextVersion),
		zap.String("status", string(report.Status)))
	return rev, nil
}

func (s *projectService) GetCurrentRevision(ctx context.Context, projectID, userID uuid.UUID) (*models.CircuitRevision, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}

	var rev models.CircuitRevision
	if err := s.revisionRepo.GetCurrentByProject(ctx, projectID, &rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

func (s *projectService) GetRevisionVersion(ctx context.Context, projectID, userID uuid.UUID, version int) (*models.CircuitRevision, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}

	var rev models.CircuitRevision
	if err := s.revisionRepo.GetByVersion(ctx, projectID, version, &rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

func (s *projectService) ListRevisions(ctx context.Context, projectID, userID uuid.UUID) ([]models.CircuitRevision, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}

	return s.revisionRepo.ListByProject(ctx, projectID)
}

// RestoreRevision marks an older version as the current one without
// creating a new version. Undo for a bad save or generated run.
func (s *projectService) RestoreRevision(ctx context.Context, projectID, userID uuid.UUID, version int) (*models.CircuitRevision, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}

	if err := s.revisionRepo.SetCurrent(ctx, projectID, version); err != nil {
		return nil, err
	}

	var rev models.CircuitRevision
	if err := s.revisionRepo.GetByVersion(ctx, projectID, version, &rev); err != nil {
		return nil, err
	}
	logger.L().Info("revision restored",
		zap.String("project_id", projectID.String()),
		zap.Int("version", version))
	return &rev, nil
}
