// Package jobs runs the scheduled background work of the API.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/mudralaya/mudralaya-api/internal/services"
	"github.com/robfig/cron/v3"
)

// Reconciler compares aggregate and scanned wallet stats for one user.
type Reconciler interface {
	Reconcile(ctx context.Context, userID string) (*services.Reconciliation, error)
}

// UserLister enumerates the users worth reconciling.
type UserLister interface {
	UserIDsWithActivity(ctx context.Context, limit int) ([]string, error)
}

// ReconcileReport summarises one run.
type ReconcileReport struct {
	Checked    int
	Mismatched []string
	Failed     int
}

// ReconcileJob checks that the aggregate stats query agrees with a full rescan.
type ReconcileJob struct {
	wallet    Reconciler
	users     UserLister
	batchSize int
	timeout   time.Duration
	logger    *slog.Logger
}

func NewReconcileJob(wallet Reconciler, users UserLister, batchSize int, logger *slog.Logger) *ReconcileJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileJob{
		wallet:    wallet,
		users:     users,
		batchSize: batchSize,
		timeout:   5 * time.Minute,
		logger:    logger,
	}
}

// Run reconciles up to batchSize users.
func (j *ReconcileJob) Run(ctx context.Context) (*ReconcileReport, error) {
	ids, err := j.users.UserIDsWithActivity(ctx, j.batchSize)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{}
	for _, id := range ids {
		result, err := j.wallet.Reconcile(ctx, id)
		if err != nil {
			report.Failed++
			j.logger.Warn("reconcile failed", "user_id", id, "error", err)
			continue
		}
		report.Checked++
		if !result.Match {
			report.Mismatched = append(report.Mismatched, id)
		}
	}
	return report, nil
}

// Tick is the cron entry point.
func (j *ReconcileJob) Tick() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	report, err := j.Run(ctx)
	if err != nil {
		j.logger.Error("reconcile job failed", "error", err)
		return
	}
	j.logger.Info("reconcile job finished",
		"checked", report.Checked,
		"mismatched", len(report.Mismatched),
		"failed", report.Failed,
		"duration", time.Since(start).String(),
	)
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		logger: logger,
	}
}

// Register adds a job under schedule. An empty schedule disables it.
func (s *Scheduler) Register(name, schedule string, job func()) error {
	if schedule == "" {
		s.logger.Info("job disabled", "job", name)
		return nil
	}
	if _, err := s.cron.AddFunc(schedule, job); err != nil {
		return err
	}
	s.logger.Info("scheduled job", "job", name, "schedule", schedule)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler; the returned context is done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
