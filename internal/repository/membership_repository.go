package repository

import (
	"context"

	"github.com/mudralaya/mudralaya-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPlanRepository is a GORM implementation of PlanRepository
type GormPlanRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new PlanRepository
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &GormPlanRepository{db: db}
}

func (r *GormPlanRepository) EnsureExists(ctx context.Context, plan *models.Plan) error {
	return conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).
		Create(plan).Error
}

func (r *GormPlanRepository) FindByCode(ctx context.Context, code string) (*models.Plan, error) {
	var plan models.Plan
	if err := conn(ctx, r.db).Where("code = ?", code).Take(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *GormPlanRepository) ListActive(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	err := conn(ctx, r.db).
		Where("is_active = ?", true).
		Order("sort_order ASC").
		Order("id ASC").
		Find(&plans).Error
	return plans, err
}

// GormMembershipOrderRepository is a GORM implementation of MembershipOrderRepository
type GormMembershipOrderRepository struct {
	db *gorm.DB
}

// NewMembershipOrderRepository creates a new MembershipOrderRepository
func NewMembershipOrderRepository(db *gorm.DB) MembershipOrderRepository {
	return &GormMembershipOrderRepository{db: db}
}

func (r *GormMembershipOrderRepository) Create(ctx context.Context, order *models.MembershipOrder) error {
	return conn(ctx, r.db).Create(order).Error
}

func (r *GormMembershipOrderRepository) FindByID(ctx context.Context, id string) (*models.MembershipOrder, error) {
	var order models.MembershipOrder
	if err := conn(ctx, r.db).Where("id = ?", id).Take(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkPaid is guarded on owner and status so an order is consumed once.
func (r *GormMembershipOrderRepository) MarkPaid(ctx context.Context, id, userID, paymentID string) (bool, error) {
	db := conn(ctx, r.db)
	result := db.
		Model(&models.MembershipOrder{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, models.MembershipOrderCreated).
		Updates(map[string]interface{}{
			"status":     models.MembershipOrderPaid,
			"payment_id": paymentID,
			"paid_at":    db.NowFunc(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
