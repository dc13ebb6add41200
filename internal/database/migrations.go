package database

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

// AddIndexes creates the composite indexes the read paths rely on. Single
// column indexes come from model tags.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Wallet stats scan ledger rows per user, type and creation time
		{"transactions", "idx_transactions_user_type_created", "user_id, type, created_at"},

		// Pending sums and review queues filter assignments by user or status
		{"user_tasks", "idx_user_tasks_user_status", "user_id, status"},
		{"user_tasks", "idx_user_tasks_status_updated", "status, updated_at"},

		// Current KYC record lookup
		{"user_kyc", "idx_user_kyc_user_created", "user_id, created_at"},

		// Catalog listing
		{"tasks", "idx_tasks_active_category", "is_active, category"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.table, idx.name) {
			slog.Debug("index already exists, skipping", "index", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		slog.Info("created index", "index", idx.name, "table", idx.table, "columns", idx.columns)
	}

	return nil
}
