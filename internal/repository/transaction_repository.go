package repository

import (
	"context"

	"github.com/mudralaya/mudralaya-api/internal/database"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"gorm.io/gorm"
)

// GormTransactionRepository is a GORM implementation of TransactionRepository
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &GormTransactionRepository{db: db}
}

func (r *GormTransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	return conn(ctx, r.db).Create(tx).Error
}

func (r *GormTransactionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	query := conn(ctx, r.db).
		Where("user_id = ?", userID).
		Scopes(database.Newest("transactions"))
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entries []models.Transaction
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
