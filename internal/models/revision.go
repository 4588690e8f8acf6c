package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CircuitRevision stores a versioned snapshot of a project's circuit graph
// together with the validation report produced for it.
type CircuitRevision struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID  uuid.UUID      `gorm:"type:uuid;index;index:idx_revisions_project_version,unique;not null" json:"project_id" validate:"required"`
	Version    int            `gorm:"not null;index:idx_revisions_project_version,unique" json:"version" validate:"gte=1"`
	Graph      datatypes.JSON `gorm:"type:jsonb" json:"graph" validate:"required"`
	Validation datatypes.JSON `gorm:"type:jsonb" json:"validation"`
	IsCurrent  bool           `gorm:"not null;default:false;index" json:"is_current"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
