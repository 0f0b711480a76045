package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/railrules-api/internal/models"
)

// ChangeLogFilter narrows change log queries.
type ChangeLogFilter struct {
	Page         int
	PageSize     int
	EntityType   models.EntityType
	EntityID     *uint
	Action       models.ChangeAction
	AuthorUserID *uint
}

// ChangeLogRepository persists the append-only change audit trail.
type ChangeLogRepository interface {
	Create(ctx context.Context, entry *models.ChangeLog) error
	FindByID(ctx context.Context, id uint) (models.ChangeLog, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.ChangeLog, error)
	List(ctx context.Context, filter ChangeLogFilter) ([]models.ChangeLog, int64, error)
}

type changeLogRepository struct {
	db *gorm.DB
}

// NewChangeLogRepository constructs the change log repository.
func NewChangeLogRepository(db *gorm.DB) ChangeLogRepository {
	return &changeLogRepository{db: db}
}

func (r *changeLogRepository) Create(ctx context.Context, entry *models.ChangeLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *changeLogRepository) FindByID(ctx context.Context, id uint) (models.ChangeLog, error) {
	var entry models.ChangeLog
	if err := r.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return models.ChangeLog{}, err
	}
	return entry, nil
}

func (r *changeLogRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.ChangeLog, error) {
	if len(ids) == 0 {
		return []models.ChangeLog{}, nil
	}

	var entries []models.ChangeLog
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at DESC, id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *changeLogRepository) List(ctx context.Context, filter ChangeLogFilter) ([]models.ChangeLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ChangeLog{})

	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.AuthorUserID != nil {
		query = query.Where("author_user_id = ?", *filter.AuthorUserID)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var entries []models.ChangeLog
	if err := query.Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
