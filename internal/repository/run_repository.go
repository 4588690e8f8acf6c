package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/circuit-studio/engine/internal/models"
	appErr "github.com/circuit-studio/engine/pkg/errors"
)

type RunRepository interface {
	BaseRepository[models.DesignRun]
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.DesignRun, error)
	GetLatestByProject(ctx context.Context, projectID uuid.UUID, dest *models.DesignRun) error
	UpdateStatus(ctx context.Context, runID uuid.UUID, status string) error
}

type runRepository struct {
	BaseRepository[models.DesignRun]
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) RunRepository {
	return &runRepository{BaseRepository: NewBaseRepository[models.DesignRun](db), db: db}
}

func (r *runRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.DesignRun, error) {
	var out []models.DesignRun
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list design runs failed")
	}
	return out, nil
}

func (r *runRepository) GetLatestByProject(ctx context.Context, projectID uuid.UUID, dest *models.DesignRun) error {
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at DESC").First(dest).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "no design runs found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get latest design run failed")
	}
	return nil
}

func (r *runRepository) UpdateStatus(ctx context.Context, runID uuid.UUID, status string) error {
	res := r.db.WithContext(ctx).Model(&models.DesignRun{}).Where("id = ?", runID).Update("status", status)
	if res.Error != nil {
		return appErr.Wrap(res.Error, appErr.CodeInternal, "update run status failed")
	}
	if res.RowsAffected == 0 {
		return appErr.New(appErr.CodeNotFound, "design run not found")
	}
	return nil
}
