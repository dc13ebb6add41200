package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mudralaya/mudralaya-api/internal/constants"
	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/events"
	"github.com/mudralaya/mudralaya-api/internal/metrics"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/mudralaya/mudralaya-api/internal/repository"
	"github.com/shopspring/decimal"
)

// WalletStats are the dashboard figures of one user.
//
//	approved = completed reward entries with a positive amount
//	today, monthly = approved restricted to the current day / month
//	payout = |completed payout entries|
//	pending = reward snapshots of pending, ongoing and completed assignments
//	total = approved + pending
type WalletStats struct {
	Today    decimal.Decimal `json:"today"`
	Monthly  decimal.Decimal `json:"monthly"`
	Approved decimal.Decimal `json:"approved"`
	Pending  decimal.Decimal `json:"pending"`
	Total    decimal.Decimal `json:"total"`
	Payout   decimal.Decimal `json:"payout"`
}

// Equal compares every figure by value.
func (w WalletStats) Equal(o WalletStats) bool {
	return w.Today.Equal(o.Today) &&
		w.Monthly.Equal(o.Monthly) &&
		w.Approved.Equal(o.Approved) &&
		w.Pending.Equal(o.Pending) &&
		w.Total.Equal(o.Total) &&
		w.Payout.Equal(o.Payout)
}

// Available is the approved balance not yet paid out.
func (w WalletStats) Available() decimal.Decimal {
	return w.Approved.Sub(w.Payout)
}

// StatsSource computes wallet stats for a user within a reporting window.
type StatsSource interface {
	Name() string
	Compute(ctx context.Context, userID string, window repository.StatsWindow) (WalletStats, error)
}

// AggregateStatsSource asks the database for the totals in one query.
type AggregateStatsSource struct {
	stats repository.StatsRepository
}

func NewAggregateStatsSource(stats repository.StatsRepository) *AggregateStatsSource {
	return &AggregateStatsSource{stats: stats}
}

func (s *AggregateStatsSource) Name() string { return "aggregate" }

func (s *AggregateStatsSource) Compute(ctx context.Context, userID string, window repository.StatsWindow) (WalletStats, error) {
	totals, err := s.stats.Aggregate(ctx, userID, window)
	if err != nil {
		return WalletStats{}, err
	}
	return WalletStats{
		Today:    totals.Today,
		Monthly:  totals.Monthly,
		Approved: totals.Approved,
		Pending:  totals.Pending,
		Total:    totals.Approved.Add(totals.Pending),
		Payout:   totals.Payout,
	}, nil
}

// ScanStatsSource loads the raw rows and sums them in Go. It defines what
// the aggregate query must return.
type ScanStatsSource struct {
	transactions repository.TransactionRepository
	assignments  repository.UserTaskRepository
}

func NewScanStatsSource(transactions repository.TransactionRepository, assignments repository.UserTaskRepository) *ScanStatsSource {
	return &ScanStatsSource{transactions: transactions, assignments: assignments}
}

func (s *ScanStatsSource) Name() string { return "scan" }

func (s *ScanStatsSource) Compute(ctx context.Context, userID string, window repository.StatsWindow) (WalletStats, error) {
	entries, err := s.transactions.ListByUser(ctx, userID, 0)
	if err != nil {
		return WalletStats{}, err
	}
	assignments, err := s.assignments.ListByUser(ctx, userID)
	if err != nil {
		return WalletStats{}, err
	}

	stats := WalletStats{
		Today:    decimal.Zero,
		Monthly:  decimal.Zero,
		Approved: decimal.Zero,
		Pending:  decimal.Zero,
		Payout:   decimal.Zero,
	}
	for _, tx := range entries {
		if tx.Status != models.TransactionStatusCompleted {
			continue
		}
		switch tx.Type {
		case models.TransactionTypeReward:
			if !tx.Amount.IsPositive() {
				continue
			}
			stats.Approved = stats.Approved.Add(tx.Amount)
			if within(tx.CreatedAt, window.DayStart, window.DayEnd) {
				stats.Today = stats.Today.Add(tx.Amount)
			}
			if within(tx.CreatedAt, window.MonthStart, window.MonthEnd) {
				stats.Monthly = stats.Monthly.Add(tx.Amount)
			}
		case models.TransactionTypePayout:
			stats.Payout = stats.Payout.Add(tx.Amount.Abs())
		}
	}
	for _, a := range assignments {
		switch a.Status {
		case models.UserTaskStatusPending, models.UserTaskStatusOngoing, models.UserTaskStatusCompleted:
			stats.Pending = stats.Pending.Add(a.RewardEarned)
		}
	}
	stats.Total = stats.Approved.Add(stats.Pending)
	return stats, nil
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// ReportingWindow returns the UTC bounds of the calendar day and month that
// contain now in loc.
func ReportingWindow(now time.Time, loc *time.Location) repository.StatsWindow {
	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return repository.StatsWindow{
		DayStart:   dayStart.UTC(),
		DayEnd:     dayStart.AddDate(0, 0, 1).UTC(),
		MonthStart: monthStart.UTC(),
		MonthEnd:   monthStart.AddDate(0, 1, 0).UTC(),
	}
}

// KycVerifier reports whether a user passed identity verification.
type KycVerifier interface {
	IsVerified(ctx context.Context, userID string) (bool, error)
}

// Reconciliation is the result of comparing both stats sources for a user.
type Reconciliation struct {
	UserID    string      `json:"user_id"`
	Aggregate WalletStats `json:"aggregate"`
	Scan      WalletStats `json:"scan"`
	Match     bool        `json:"match"`
}

// WalletService derives balances and payout eligibility from the ledger and
// in-flight assignments.
type WalletService struct {
	primary  StatsSource
	fallback StatsSource
	kyc      KycVerifier
	ledger   LedgerAppender
	locker   repository.UserLocker
	events   events.Publisher
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

func NewWalletService(
	primary, fallback StatsSource,
	kyc KycVerifier,
	ledger LedgerAppender,
	locker repository.UserLocker,
	publisher events.Publisher,
	location *time.Location,
	logger *slog.Logger,
) *WalletService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WalletService{
		primary:  primary,
		fallback: fallback,
		kyc:      kyc,
		ledger:   ledger,
		locker:   locker,
		events:   publisher,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

// ComputeStats uses the primary source and falls back to the scan when it fails.
func (s *WalletService) ComputeStats(ctx context.Context, userID string) (*WalletStats, error) {
	const op = "wallet.ComputeStats"
	window := ReportingWindow(s.now(), s.location)

	stats, err := s.primary.Compute(ctx, userID, window)
	if err == nil {
		return &stats, nil
	}
	if s.fallback == nil {
		return nil, apierrors.NewInternal(op, "failed to compute wallet stats", err)
	}

	metrics.StatsFallbacks.Inc()
	s.logger.Warn("wallet stats source failed, falling back",
		"source", s.primary.Name(),
		"fallback", s.fallback.Name(),
		"user_id", userID,
		"error", err,
	)

	stats, err = s.fallback.Compute(ctx, userID, window)
	if err != nil {
		return nil, apierrors.NewInternal(op, "failed to compute wallet stats", err)
	}
	return &stats, nil
}

// Reconcile computes stats with both sources and reports whether they agree.
func (s *WalletService) Reconcile(ctx context.Context, userID string) (*Reconciliation, error) {
	const op = "wallet.Reconcile"
	if s.fallback == nil {
		return nil, apierrors.NewInternal(op, "no scan source configured", nil)
	}
	window := ReportingWindow(s.now(), s.location)

	primary, err := s.primary.Compute(ctx, userID, window)
	if err != nil {
		return nil, apierrors.NewInternal(op, "failed to compute "+s.primary.Name()+" stats", err)
	}
	fallback, err := s.fallback.Compute(ctx, userID, window)
	if err != nil {
		return nil, apierrors.NewInternal(op, "failed to compute "+s.fallback.Name()+" stats", err)
	}

	result := &Reconciliation{
		UserID:    userID,
		Aggregate: primary,
		Scan:      fallback,
		Match:     primary.Equal(fallback),
	}
	if !result.Match {
		metrics.ReconcileMismatches.Inc()
		s.logger.Error("wallet stats mismatch",
			"user_id", userID,
			"aggregate_approved", primary.Approved.String(),
			"scan_approved", fallback.Approved.String(),
			"aggregate_pending", primary.Pending.String(),
			"scan_pending", fallback.Pending.String(),
		)
	}
	return result, nil
}

// IsPayoutEligible reports whether the approved balance reached the minimum.
func (s *WalletService) IsPayoutEligible(ctx context.Context, userID string) (bool, error) {
	stats, err := s.ComputeStats(ctx, userID)
	if err != nil {
		return false, err
	}
	return Eligible(*stats), nil
}

// Eligible applies the payout threshold to computed stats.
func Eligible(stats WalletStats) bool {
	return stats.Approved.GreaterThanOrEqual(constants.MinimumPayoutThreshold)
}

// RecordPayout writes a negative payout entry once identity, threshold and
// balance checks pass.
func (s *WalletService) RecordPayout(ctx context.Context, userID string, amount decimal.Decimal) (*models.Transaction, error) {
	const op = "wallet.RecordPayout"

	admin, err := requireAdmin(ctx, op)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, apierrors.Wrap(apierrors.KindValidation, op, ErrPayoutAmountInvalid)
	}

	verified, err := s.kyc.IsVerified(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, apierrors.NewInvalidState(op, ErrKycNotVerified)
	}

	if s.locker == nil {
		return nil, apierrors.NewInternal(op, "no user locker configured", nil)
	}

	// The balance check and the insert share one transaction holding the
	// user's row lock, so concurrent payouts see each other's entries.
	var tx *models.Transaction
	err = s.locker.WithUserLock(ctx, userID, func(ctx context.Context) error {
		stats, err := s.ComputeStats(ctx, userID)
		if err != nil {
			return err
		}
		if !Eligible(*stats) {
			return apierrors.NewInvalidState(op, ErrBelowPayoutMinimum)
		}
		if amount.GreaterThan(stats.Available()) {
			return apierrors.NewInvalidState(op, ErrInsufficientBalance)
		}

		tx, err = s.ledger.Append(ctx, LedgerEntry{
			UserID:   userID,
			Amount:   amount.Neg(),
			Type:     models.TransactionTypePayout,
			Status:   models.TransactionStatusCompleted,
			Title:    "Payout",
			IconType: "wallet",
		})
		return err
	})
	if err != nil {
		var de *apierrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, notFoundOr(op, "user", ErrUserNotFound, err)
	}

	s.logger.Info("payout recorded", "user_id", userID, "amount", amount.String(), "transaction_id", tx.ID, "admin", admin.Name)
	if err := s.events.Publish(ctx, events.RoutePayoutRecorded, events.PayoutRecorded{
		TransactionID: tx.ID,
		UserID:        userID,
		Amount:        amount,
		Reference:     tx.Reference,
		Timestamp:     tx.CreatedAt,
	}); err != nil {
		s.logger.Warn("event publish failed", "routing_key", events.RoutePayoutRecorded, "error", err)
	}
	return tx, nil
}
