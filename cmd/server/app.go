package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/mudralaya/mudralaya-api/internal/database"
	"github.com/mudralaya/mudralaya-api/internal/events"
	"github.com/mudralaya/mudralaya-api/internal/payments"
	"github.com/mudralaya/mudralaya-api/internal/repository"
	"github.com/mudralaya/mudralaya-api/internal/services"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// app holds the wired service graph shared by the commands.
type app struct {
	db        *gorm.DB
	events    events.Publisher
	stats     repository.StatsRepository
	users     *services.UserService
	ledger    *services.LedgerService
	catalog   *services.CatalogService
	tasks     *services.TaskService
	kyc       *services.KycService
	wallet    *services.WalletService
	dashboard *services.DashboardService
	payments  *services.PaymentService
}

func connectDatabase() (*gorm.DB, error) {
	if err := database.Connect(cfg); err != nil {
		return nil, err
	}
	return database.GetDB(), nil
}

func buildApp(db *gorm.DB) (*app, error) {
	location, err := cfg.ReportingLocation()
	if err != nil {
		return nil, err
	}

	publisher := events.Connect(cfg.RabbitMQURL, cfg.EventsExchange)

	userRepo := repository.NewUserRepository(db)
	kycRepo := repository.NewKycRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	assignmentRepo := repository.NewUserTaskRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	locker := repository.NewUserLocker(db)

	ledger := services.NewLedgerService(transactionRepo, logger)
	catalog := services.NewCatalogService(taskRepo, logger)
	tasks := services.NewTaskService(taskRepo, assignmentRepo, userRepo, ledger, publisher, logger)
	kyc := services.NewKycService(kycRepo, userRepo, publisher, logger)
	wallet := services.NewWalletService(
		services.NewAggregateStatsSource(statsRepo),
		services.NewScanStatsSource(transactionRepo, assignmentRepo),
		kyc,
		ledger,
		locker,
		publisher,
		location,
		logger,
	)

	// A nil gateway disables membership checkout
	var gateway payments.Gateway
	if cfg.PaymentKeyID != "" && cfg.PaymentKeySecret != "" {
		gateway = payments.NewClient(cfg.PaymentBaseURL, cfg.PaymentKeyID, cfg.PaymentKeySecret)
	} else {
		logger.Warn("payment gateway not configured, membership checkout disabled")
	}

	return &app{
		db:        db,
		events:    publisher,
		stats:     statsRepo,
		users:     services.NewUserService(userRepo, transactionRepo, locker, logger),
		ledger:    ledger,
		catalog:   catalog,
		tasks:     tasks,
		kyc:       kyc,
		wallet:    wallet,
		dashboard: services.NewDashboardService(catalog, tasks, ledger, wallet, kyc, statsRepo),
		payments:  services.NewPaymentService(
			gateway,
			repository.NewPlanRepository(db),
			repository.NewMembershipOrderRepository(db),
			userRepo,
			locker,
			publisher,
			logger,
		),
	}, nil
}

// migrateAndSeed creates the schema and the default plan catalogue.
func migrateAndSeed(ctx context.Context, db *gorm.DB) error {
	if err := database.Migrate(); err != nil {
		return err
	}
	plans := services.NewPaymentService(nil, repository.NewPlanRepository(db), nil, nil, nil, nil, logger)
	return plans.EnsureDefaultPlans(ctx, cfg.MembershipPricePaise)
}

func (a *app) Close() {
	a.events.Close()
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// newRedisClient returns nil when REDIS_HOST is unset.
func newRedisClient(ctx context.Context) (*redis.Client, error) {
	if cfg.RedisHost == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return client, nil
}
