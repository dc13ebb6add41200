package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/mudralaya/mudralaya-api/internal/auth"
	"github.com/mudralaya/mudralaya-api/internal/constants"
	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/handlers"
	"github.com/mudralaya/mudralaya-api/internal/jobs"
	"github.com/mudralaya/mudralaya-api/internal/metrics"
	"github.com/mudralaya/mudralaya-api/internal/middleware"
	"github.com/mudralaya/mudralaya-api/internal/ratelimit"
	"github.com/mudralaya/mudralaya-api/internal/services"
	"github.com/mudralaya/mudralaya-api/internal/storage"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduled jobs",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Bool("migrate", true, "Run database migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	db, err := connectDatabase()
	if err != nil {
		return err
	}
	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := migrateAndSeed(ctx, db); err != nil {
			return err
		}
	}

	a, err := buildApp(db)
	if err != nil {
		return err
	}
	defer a.Close()

	gate, err := services.NewSharedSecretGate(cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return err
	}
	if cfg.AdminPassword == "" {
		logger.Warn("DASHBOARD_ADMIN_PASS is empty, admin routes are disabled")
	}

	redisClient, err := newRedisClient(ctx)
	if err != nil {
		return err
	}
	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if redisClient != nil {
		defer redisClient.Close()
		window := time.Duration(cfg.AdminLoginWindowSeconds) * time.Second
		limiter = ratelimit.NewRedisLimiter(redisClient, "admin_login", cfg.AdminLoginRateLimit, window)
	}

	documents, err := storage.NewS3DocumentStore(ctx, cfg)
	if err != nil {
		return err
	}
	if documents == nil {
		logger.Warn("KYC_BUCKET not set, document uploads disabled")
	}

	store, err := sessionStore()
	if err != nil {
		return err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(metrics.Middleware())
	r.Use(middleware.RequestTimeout(cfg.RequestTimeout()))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			apierrors.ServiceUnavailable(c, "Database unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Mudralaya API is running",
		})
	})
	r.GET("/metrics", metrics.Handler())

	h := &handlers.Handlers{
		Auth:        handlers.NewAuthHandler(a.users, gate, limiter),
		Tasks:       handlers.NewTaskHandler(a.catalog, a.tasks),
		Wallet:      handlers.NewWalletHandler(a.wallet, a.ledger, a.dashboard),
		Kyc:         handlers.NewKycHandler(a.kyc, documents),
		Membership:  handlers.NewMembershipHandler(a.payments),
		Admin:       handlers.NewAdminHandler(a.catalog, a.tasks, a.kyc, a.wallet, a.users, a.dashboard, !cfg.IsProduction()),
		Verifier:    auth.NewTokenVerifier(cfg.AuthJWTSecret),
		Provisioner: a.users,
		Gate:        gate,
	}
	h.Register(r)

	scheduler := jobs.NewScheduler(logger)
	reconcile := jobs.NewReconcileJob(a.wallet, a.stats, cfg.ReconcileBatchSize, logger)
	if err := scheduler.Register("reconcile_wallet_stats", cfg.ReconcileSchedule, reconcile.Tick); err != nil {
		return err
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		<-scheduler.Stop().Done()
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	<-scheduler.Stop().Done()
	logger.Info("server stopped")
	return nil
}

// sessionStore keeps admin sessions in redis when configured, otherwise in
// an encrypted cookie.
func sessionStore() (sessions.Store, error) {
	var store sessions.Store
	if cfg.RedisHost != "" {
		redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
		rs, err := redisStore.NewStore(
			10,        // Redis pool size
			"tcp",     // network type
			redisAddr, // Redis address from config
			cfg.RedisPassword,
			[]byte(cfg.SessionSecret), // authentication key
		)
		if err != nil {
			return nil, err
		}
		store = rs
	} else {
		encKey := sha256.Sum256([]byte(cfg.SessionSecret))
		store = cookie.NewStore([]byte(cfg.SessionSecret), encKey[:])
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400, // 1 day
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}
