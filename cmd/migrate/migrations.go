package main

import (
	"gorm.io/gorm"

	"github.com/circuit-studio/engine/internal/models"
)

// registerModels returns all models that need migration
func registerModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Project{},
		&models.CircuitRevision{},
		&models.DesignRun{},
	}
}

// runMigrations executes all database migrations
func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(registerModels()...); err != nil {
		return err
	}
	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		enableUUIDExtension,
		addRevisionIndexes,
	}

	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}

	return nil
}

// enableUUIDExtension ensures UUID generation is available
func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
}

// addRevisionIndexes speeds up current-revision lookups
func addRevisionIndexes(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_revisions_project_current
		ON circuit_revisions(project_id)
		WHERE is_current AND deleted_at IS NULL
	`).Error
}
