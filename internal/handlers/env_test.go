package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/mudralaya/mudralaya-api/internal/auth"
	"github.com/mudralaya/mudralaya-api/internal/constants"
	"github.com/mudralaya/mudralaya-api/internal/database"
	"github.com/mudralaya/mudralaya-api/internal/events"
	"github.com/mudralaya/mudralaya-api/internal/ratelimit"
	"github.com/mudralaya/mudralaya-api/internal/repository"
	"github.com/mudralaya/mudralaya-api/internal/services"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testJWTSecret     = "test-jwt-secret"
	testAdminUser     = "admin"
	testAdminPassword = "admin-pass"
)

type testEnv struct {
	db       *gorm.DB
	router   *gin.Engine
	verifier *auth.TokenVerifier
	events   *events.Recorder
}

func setupTestEnv(t *testing.T, limiter ratelimit.Limiter) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// Create in-memory SQLite database
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: database.NowUTC,
		Logger:  logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(database.Models()...))

	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	recorder := &events.Recorder{}

	users := repository.NewUserRepository(db)
	kycRepo := repository.NewKycRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	assignments := repository.NewUserTaskRepository(db)
	transactions := repository.NewTransactionRepository(db)
	stats := repository.NewStatsRepository(db)
	locker := repository.NewUserLocker(db)

	ledger := services.NewLedgerService(transactions, log)
	catalog := services.NewCatalogService(taskRepo, log)
	tasks := services.NewTaskService(taskRepo, assignments, users, ledger, recorder, log)
	kyc := services.NewKycService(kycRepo, users, recorder, log)
	wallet := services.NewWalletService(
		services.NewAggregateStatsSource(stats),
		services.NewScanStatsSource(transactions, assignments),
		kyc, ledger, locker, recorder, time.UTC, log,
	)
	dashboard := services.NewDashboardService(catalog, tasks, ledger, wallet, kyc, stats)
	payments := services.NewPaymentService(
		nil,
		repository.NewPlanRepository(db),
		repository.NewMembershipOrderRepository(db),
		users, locker, recorder, log,
	)
	require.NoError(t, payments.EnsureDefaultPlans(context.Background(), 2500000))
	userService := services.NewUserService(users, transactions, locker, log)

	gate, err := services.NewSharedSecretGate(testAdminUser, testAdminPassword)
	require.NoError(t, err)
	verifier := auth.NewTokenVerifier(testJWTSecret)

	h := &Handlers{
		Auth:        NewAuthHandler(userService, gate, limiter),
		Tasks:       NewTaskHandler(catalog, tasks),
		Wallet:      NewWalletHandler(wallet, ledger, dashboard),
		Kyc:         NewKycHandler(kyc, nil),
		Membership:  NewMembershipHandler(payments),
		Admin:       NewAdminHandler(catalog, tasks, kyc, wallet, userService, dashboard, true),
		Verifier:    verifier,
		Provisioner: userService,
		Gate:        gate,
	}

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	h.Register(r)

	return &testEnv{db: db, router: r, verifier: verifier, events: recorder}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.verifier.Sign(userID, userID+"@example.com", time.Hour)
	require.NoError(t, err)
	return token
}

// do sends a JSON request. auth is a user id for a bearer token, or "admin"
// for the admin header, or empty for none.
func (e *testEnv) do(t *testing.T, method, path, as string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch as {
	case "":
	case adminCaller:
		req.Header.Set(constants.AdminHeader, testAdminPassword)
	default:
		req.Header.Set("Authorization", "Bearer "+e.token(t, as))
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

const adminCaller = "admin"

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}
