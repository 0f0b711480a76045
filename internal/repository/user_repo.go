package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/railrules-api/internal/models"
)

// UserRepository resolves notification recipients.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	ListIDsExcept(ctx context.Context, excludedID uint) ([]uint, error)
	ListIDsByRole(ctx context.Context, role string) ([]uint, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a repository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Role = strings.ToLower(strings.TrimSpace(user.Role))
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) ListIDsExcept(ctx context.Context, excludedID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id <> ?", excludedID).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *userRepository) ListIDsByRole(ctx context.Context, role string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ?", strings.ToLower(strings.TrimSpace(role))).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}
