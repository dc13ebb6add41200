package repository

import (
	"context"

	"github.com/mudralaya/mudralaya-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) EnsureExists(ctx context.Context, user *models.User) error {
	return conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(user).Error
}

func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) SetVerified(ctx context.Context, id string) (bool, error) {
	result := conn(ctx, r.db).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("is_verified", true)
	return result.RowsAffected > 0, result.Error
}

func (r *GormUserRepository) SetMembership(ctx context.Context, id string, tier models.MembershipType) (bool, error) {
	result := conn(ctx, r.db).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("membership_type", tier)
	return result.RowsAffected > 0, result.Error
}

func (r *GormUserRepository) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.UserTask{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.KycRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.MembershipOrder{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.User{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	return deleted, err
}
