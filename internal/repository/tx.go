package repository

import (
	"context"

	"github.com/mudralaya/mudralaya-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type txKey struct{}

// conn returns the transaction carried by ctx, or db outside of one.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// GormUserLocker is a GORM implementation of UserLocker
type GormUserLocker struct {
	db *gorm.DB
}

// NewUserLocker creates a new UserLocker
func NewUserLocker(db *gorm.DB) UserLocker {
	return &GormUserLocker{db: db}
}

// WithUserLock opens a transaction, takes a row lock on the user and runs fn.
// Repositories called with the ctx handed to fn join the transaction. A missing
// user yields gorm.ErrRecordNotFound.
func (l *GormUserLocker) WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	return conn(ctx, l.db).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", userID).
			Take(&user).Error
		if err != nil {
			return err
		}
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}
