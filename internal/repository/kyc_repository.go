package repository

import (
	"context"

	"github.com/mudralaya/mudralaya-api/internal/database"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/mudralaya/mudralaya-api/internal/utils"
	"gorm.io/gorm"
)

// GormKycRepository is a GORM implementation of KycRepository
type GormKycRepository struct {
	db *gorm.DB
}

// NewKycRepository creates a new KycRepository
func NewKycRepository(db *gorm.DB) KycRepository {
	return &GormKycRepository{db: db}
}

func (r *GormKycRepository) Create(ctx context.Context, record *models.KycRecord) error {
	return conn(ctx, r.db).Create(record).Error
}

func (r *GormKycRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.KycRecord, error) {
	var record models.KycRecord
	query := conn(ctx, r.db)

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *GormKycRepository) FindLatestByUserID(ctx context.Context, userID string) (*models.KycRecord, error) {
	var record models.KycRecord
	err := conn(ctx, r.db).
		Where("user_id = ?", userID).
		Scopes(database.Newest("user_kyc")).
		Take(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *GormKycRepository) UpdateStatus(ctx context.Context, id uint64, status models.KycStatus, reason *string) (bool, error) {
	result := conn(ctx, r.db).
		Model(&models.KycRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           status,
			"rejection_reason": reason,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *GormKycRepository) List(ctx context.Context, filter KycFilter) ([]models.KycRecord, int64, error) {
	query := conn(ctx, r.db).Model(&models.KycRecord{})

	if filter.Status != nil {
		query = query.Where("user_kyc.status = ?", *filter.Status)
	}
	if filter.UserID != "" {
		query = query.Where("user_kyc.user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.KycRecord
	err := query.
		Scopes(database.Newest("user_kyc"), database.Paginate(utils.NewPaginationParams(filter.Page, filter.PageSize))).
		Preload("User").
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
