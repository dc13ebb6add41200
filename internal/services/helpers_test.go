package services

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mudralaya/mudralaya-api/internal/database"
	"github.com/mudralaya/mudralaya-api/internal/events"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/mudralaya/mudralaya-api/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fixture wires every service against one in-memory database.
type fixture struct {
	db      *gorm.DB
	events  *events.Recorder
	log     *slog.Logger
	users   repository.UserRepository
	locker  repository.UserLocker
	ledger  *LedgerService
	catalog *CatalogService
	tasks   *TaskService
	kyc     *KycService
	wallet  *WalletService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: database.NowUTC,
		Logger:  logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})
	require.NoError(t, db.AutoMigrate(database.Models()...))

	f := &fixture{
		db:     db,
		events: &events.Recorder{},
		log:    slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		users:  repository.NewUserRepository(db),
		locker: repository.NewUserLocker(db),
	}

	taskRepo := repository.NewTaskRepository(db)
	assignments := repository.NewUserTaskRepository(db)
	transactions := repository.NewTransactionRepository(db)

	f.ledger = NewLedgerService(transactions, f.log)
	f.catalog = NewCatalogService(taskRepo, f.log)
	f.tasks = NewTaskService(taskRepo, assignments, f.users, f.ledger, f.events, f.log)
	f.kyc = NewKycService(repository.NewKycRepository(db), f.users, f.events, f.log)
	f.wallet = NewWalletService(
		NewAggregateStatsSource(repository.NewStatsRepository(db)),
		NewScanStatsSource(transactions, assignments),
		f.kyc, f.ledger, f.locker, f.events, time.UTC, f.log,
	)
	return f
}

func adminCtx() context.Context {
	return WithAdmin(context.Background(), AdminPrincipal{Name: "admin", AuthenticatedAt: time.Now()})
}

func (f *fixture) createUser(t *testing.T, id string, tier models.MembershipType) *models.User {
	t.Helper()
	user := &models.User{ID: id, FullName: "User " + id, Email: id + "@example.com", MembershipType: tier}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *fixture) createTask(t *testing.T, title, rewardFree, rewardMember string) *models.Task {
	t.Helper()
	input := CreateTaskInput{
		Title:      title,
		Category:   "survey",
		RewardFree: decimal.RequireFromString(rewardFree),
	}
	if rewardMember != "" {
		m := decimal.RequireFromString(rewardMember)
		input.RewardMember = &m
	}
	task, err := f.catalog.CreateTask(adminCtx(), input)
	require.NoError(t, err)
	return task
}

// completeTask starts and completes a task for a user.
func (f *fixture) completeTask(t *testing.T, userID string, taskID uint64) *models.UserTask {
	t.Helper()
	ctx := context.Background()
	_, err := f.tasks.StartTask(ctx, userID, taskID)
	require.NoError(t, err)
	assignment, err := f.tasks.CompleteTask(ctx, userID, taskID, []byte(`{"proof":"done"}`))
	require.NoError(t, err)
	return assignment
}

func (f *fixture) countTransactions(t *testing.T, userID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func repositoryKycFilter(status *models.KycStatus) repository.KycFilter {
	return repository.KycFilter{Status: status, Page: 1, PageSize: 20}
}
