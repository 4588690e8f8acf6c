package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/circuit-studio/engine/internal/models"
	appErr "github.com/circuit-studio/engine/pkg/errors"
)

type UserRepository interface {
	BaseRepository[models.User]
	GetByEmail(ctx context.Context, email string, dest *models.User) error
}

type userRepository struct {
	BaseRepository[models.User]
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository[models.User](db), db: db}
}

// GetByEmail looks a user up by email, case-insensitively.
func (r *userRepository) GetByEmail(ctx context.Context, email string, dest *models.User) error {
	err := r.db.WithContext(ctx).Where("lower(email) = ?", strings.ToLower(email)).First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, "user not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get user by email failed")
	}
	return nil
}
