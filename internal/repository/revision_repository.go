package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/circuit-studio/engine/internal/models"
	appErr "github.com/circuit-studio/engine/pkg/errors"
)

type RevisionRepository interface {
	BaseRepository[models.CircuitRevision]
	GetCurrentByProject(ctx context.Context, projectID uuid.UUID, dest *models.CircuitRevision) error
	GetByVersion(ctx context.Context, projectID uuid.UUID, version int, dest *models.CircuitRevision) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.CircuitRevision, error)
	SetCurrent(ctx context.Context, projectID uuid.UUID, version int) error
}

type revisionRepository struct {
	BaseRepository[models.CircuitRevision]
	db *gorm.DB
}

func NewRevisionRepository(db *gorm.DB) RevisionRepository {
	return &revisionRepository{BaseRepository: NewBaseRepository[models.CircuitRevision](db), db: db}
}

func (r *revisionRepository) GetCurrentByProject(ctx context.Context, projectID uuid.UUID, dest *models.CircuitRevision) error {
	if err := r.db.WithContext(ctx).Where("project_id = ? AND is_current = true", projectID).First(dest).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "no current revision found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get current revision failed")
	}
	return nil
}

func (r *revisionRepository) GetByVersion(ctx context.Context, projectID uuid.UUID, version int, dest *models.CircuitRevision) error {
	if err := r.db.WithContext(ctx).Where("project_id = ? AND version = ?", projectID, version).First(dest).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return appErr.New(appErr.CodeNotFound, "revision not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get revision failed")
	}
	return nil
}

func (r *revisionRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.CircuitRevision, error) {
	var out []models.CircuitRevision
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("version DESC").Find(&out).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "list revisions failed")
	}
	return out, nil
}

// SetCurrent marks the specified version as current and clears the previous
// current flag in one transaction.
func (r *revisionRepository) SetCurrent(ctx context.Context, projectID uuid.UUID, version int) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}

	if err := tx.Model(&models.CircuitRevision{}).Where("project_id = ? AND is_current = true", projectID).Update("is_current", false).Error; err != nil {
		tx.Rollback()
		return appErr.Wrap(err, appErr.CodeInternal, "clear current flag failed")
	}

	res := tx.Model(&models.CircuitRevision{}).Where("project_id = ? AND version = ?", projectID, version).Update("is_current", true)
	if res.Error != nil {
		tx.Rollback()
		return appErr.Wrap(res.Error, appErr.CodeInternal, "set current flag failed")
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return appErr.New(appErr.CodeNotFound, "revision not found")
	}

	if err := tx.Commit().Error; err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}
	return nil
}
