package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Design run statuses.
const (
	RunStatusPending          = "pending"
	RunStatusRunning          = "running"
	RunStatusCompleted        = "completed"
	RunStatusValidationFailed = "validation_failed"
	RunStatusFailed           = "failed"
)

// DesignRun represents one execution of the design pipeline for a project,
// from a natural-language description to manufacturing outputs.
type DesignRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID   uuid.UUID      `gorm:"type:uuid;index;not null" json:"project_id" validate:"required"`
	RevisionID  *uuid.UUID     `gorm:"type:uuid;index" json:"revision_id,omitempty"`
	Description string         `gorm:"type:text;not null" json:"description" validate:"required"`
	Status      string         `gorm:"type:varchar(32);index;not null" json:"status" validate:"required,oneof=pending running completed validation_failed failed"`
	Intent      datatypes.JSON `gorm:"type:jsonb" json:"intent"`
	BOM         datatypes.JSON `gorm:"type:jsonb" json:"bom"`
	Outputs     datatypes.JSON `gorm:"type:jsonb" json:"outputs"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
