package repository

import (
	"context"
	"strings"

	"github.com/mudralaya/mudralaya-api/internal/database"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/mudralaya/mudralaya-api/internal/utils"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return conn(ctx, r.db).Create(task).Error
}

func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64) (*models.Task, error) {
	var task models.Task
	if err := conn(ctx, r.db).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves catalog tasks. Without a page size every match is returned.
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	query := conn(ctx, r.db).Model(&models.Task{})

	if filter.ActiveOnly {
		query = query.Where("tasks.is_active = ?", true)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("LOWER(tasks.category) LIKE ?", "%"+strings.ToLower(category)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Scopes(database.Newest("tasks"))
	if filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.NewPaginationParams(filter.Page, filter.PageSize)))
	}

	var tasks []models.Task
	if err := listQuery.Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return conn(ctx, r.db).Save(task).Error
}

func (r *GormTaskRepository) Delete(ctx context.Context, id uint64) (bool, error) {
	result := conn(ctx, r.db).Delete(&models.Task{}, id)
	return result.RowsAffected > 0, result.Error
}
