package repository

import (
	"context"
	"time"

	"github.com/mudralaya/mudralaya-api/internal/database"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/mudralaya/mudralaya-api/internal/utils"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUserTaskRepository is a GORM implementation of UserTaskRepository
type GormUserTaskRepository struct {
	db *gorm.DB
}

// NewUserTaskRepository creates a new UserTaskRepository
func NewUserTaskRepository(db *gorm.DB) UserTaskRepository {
	return &GormUserTaskRepository{db: db}
}

// FindOrCreate relies on the unique (user_id, task_id) index: a concurrent
// insert for the same pair is dropped by the database and the winner's row
// is read back.
func (r *GormUserTaskRepository) FindOrCreate(ctx context.Context, assignment *models.UserTask) (*models.UserTask, bool, error) {
	result := conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "task_id"}},
			DoNothing: true,
		}).
		Create(assignment)
	if result.Error != nil {
		return nil, false, result.Error
	}

	if result.RowsAffected == 1 && assignment.ID != 0 {
		return assignment, true, nil
	}

	stored, err := r.Find(ctx, assignment.UserID, assignment.TaskID)
	if err != nil {
		return nil, false, err
	}
	return stored, false, nil
}

func (r *GormUserTaskRepository) Find(ctx context.Context, userID string, taskID uint64) (*models.UserTask, error) {
	var assignment models.UserTask
	err := conn(ctx, r.db).
		Where("user_id = ? AND task_id = ?", userID, taskID).
		Take(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *GormUserTaskRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.UserTask, error) {
	var assignment models.UserTask
	query := conn(ctx, r.db)

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&assignment, id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *GormUserTaskRepository) MarkCompleted(ctx context.Context, id uint64, reward decimal.Decimal, submission []byte, at time.Time) (bool, error) {
	fields := map[string]interface{}{
		"reward_earned":   reward,
		"submission_data": datatypes.JSON(submission),
		"completed_at":    at,
	}
	from := []models.UserTaskStatus{models.UserTaskStatusPending, models.UserTaskStatusOngoing}
	return r.TransitionStatus(ctx, id, from, models.UserTaskStatusCompleted, fields)
}

// TransitionStatus is a compare-and-swap on the status column. The guard is
// part of the UPDATE so two racing callers cannot both succeed.
func (r *GormUserTaskRepository) TransitionStatus(ctx context.Context, id uint64, from []models.UserTaskStatus, to models.UserTaskStatus, fields map[string]interface{}) (bool, error) {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["status"] = to

	result := conn(ctx, r.db).
		Model(&models.UserTask{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *GormUserTaskRepository) ListByUser(ctx context.Context, userID string) ([]models.UserTask, error) {
	var assignments []models.UserTask
	err := conn(ctx, r.db).
		Where("user_id = ?", userID).
		Scopes(database.Newest("user_tasks")).
		Find(&assignments).Error
	return assignments, err
}

func (r *GormUserTaskRepository) ListByTask(ctx context.Context, taskID uint64) ([]models.UserTask, error) {
	var assignments []models.UserTask
	err := conn(ctx, r.db).
		Where("task_id = ?", taskID).
		Preload("User").
		Scopes(database.Newest("user_tasks")).
		Find(&assignments).Error
	return assignments, err
}

func (r *GormUserTaskRepository) List(ctx context.Context, filter UserTaskFilter) ([]models.UserTask, int64, error) {
	query := conn(ctx, r.db).Model(&models.UserTask{})

	if filter.Status != nil {
		query = query.Where("user_tasks.status = ?", *filter.Status)
	}
	if filter.UserID != "" {
		query = query.Where("user_tasks.user_id = ?", filter.UserID)
	}
	if filter.TaskID != nil {
		query = query.Where("user_tasks.task_id = ?", *filter.TaskID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var assignments []models.UserTask
	err := query.
		Order("user_tasks.updated_at DESC").
		Order("user_tasks.id DESC").
		Scopes(database.Paginate(utils.NewPaginationParams(filter.Page, filter.PageSize))).
		Preload("Task").
		Preload("User").
		Find(&assignments).Error
	if err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}
