package repository

import (
	"context"

	"github.com/mudralaya/mudralaya-api/internal/models"
	"gorm.io/gorm"
)

// GormStatsRepository computes wallet totals with a single SQL statement
type GormStatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new StatsRepository
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &GormStatsRepository{db: db}
}

const walletTotalsSQL = `
SELECT
	COALESCE(SUM(CASE WHEN t.type = 'reward' AND t.status = 'completed' AND t.amount > 0
		AND t.created_at >= ? AND t.created_at < ? THEN t.amount ELSE 0 END), 0) AS today,
	COALESCE(SUM(CASE WHEN t.type = 'reward' AND t.status = 'completed' AND t.amount > 0
		AND t.created_at >= ? AND t.created_at < ? THEN t.amount ELSE 0 END), 0) AS monthly,
	COALESCE(SUM(CASE WHEN t.type = 'reward' AND t.status = 'completed' AND t.amount > 0
		THEN t.amount ELSE 0 END), 0) AS approved,
	COALESCE(SUM(CASE WHEN t.type = 'payout' AND t.status = 'completed'
		THEN ABS(t.amount) ELSE 0 END), 0) AS payout,
	(SELECT COALESCE(SUM(ut.reward_earned), 0) FROM user_tasks ut
		WHERE ut.user_id = ? AND ut.status IN ?) AS pending
FROM transactions t
WHERE t.user_id = ?`

func (r *GormStatsRepository) Aggregate(ctx context.Context, userID string, window StatsWindow) (*LedgerTotals, error) {
	var totals LedgerTotals
	err := conn(ctx, r.db).
		Raw(walletTotalsSQL,
			window.DayStart, window.DayEnd,
			window.MonthStart, window.MonthEnd,
			userID, models.InFlightStatuses,
			userID,
		).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

func (r *GormStatsRepository) UserIDsWithActivity(ctx context.Context, limit int) ([]string, error) {
	sql := `SELECT user_id FROM transactions UNION SELECT user_id FROM user_tasks ORDER BY user_id`
	var args []interface{}
	if limit > 0 {
		sql += ` LIMIT ?`
		args = append(args, limit)
	}

	var ids []string
	if err := conn(ctx, r.db).Raw(sql, args...).Scan(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

const adminOverviewSQL = `
SELECT
	(SELECT COUNT(*) FROM tasks WHERE deleted_at IS NULL) AS tasks,
	(SELECT COUNT(*) FROM users) AS users,
	(SELECT COUNT(*) FROM user_kyc WHERE status = ?) AS pending_kyc,
	(SELECT COUNT(*) FROM user_tasks WHERE status = ?) AS awaiting_review,
	(SELECT COUNT(*) FROM membership_orders WHERE status = ?) AS paid_orders,
	(SELECT COALESCE(SUM(amount_paise), 0) FROM membership_orders WHERE status = ?) AS revenue_paise`

func (r *GormStatsRepository) Overview(ctx context.Context) (*AdminOverview, error) {
	var overview AdminOverview
	err := conn(ctx, r.db).
		Raw(adminOverviewSQL,
			models.KycStatusPending,
			models.UserTaskStatusCompleted,
			models.MembershipOrderPaid,
			models.MembershipOrderPaid,
		).
		Scan(&overview).Error
	if err != nil {
		return nil, err
	}
	return &overview, nil
}
