package services

import (
	"context"
	"log/slog"
	"strings"

	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/metrics"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/mudralaya/mudralaya-api/internal/repository"
	"github.com/mudralaya/mudralaya-api/internal/utils"
	"github.com/shopspring/decimal"
)

// LedgerEntry is the input of LedgerService.Append. Amount is signed:
// rewards are positive, payouts negative.
type LedgerEntry struct {
	UserID      string
	Amount      decimal.Decimal
	Type        models.TransactionType
	Status      models.TransactionStatus
	UserTaskID  *uint64
	Title       string
	Description string
	IconType    string
}

// LedgerAppender is the write side of the ledger used by other services.
type LedgerAppender interface {
	Append(ctx context.Context, entry LedgerEntry) (*models.Transaction, error)
}

// LedgerService owns the append-only transaction ledger.
type LedgerService struct {
	transactions repository.TransactionRepository
	logger       *slog.Logger
}

func NewLedgerService(transactions repository.TransactionRepository, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{transactions: transactions, logger: logger}
}

// Append inserts one ledger entry. Entries are never updated afterwards.
func (s *LedgerService) Append(ctx context.Context, entry LedgerEntry) (*models.Transaction, error) {
	const op = "ledger.Append"

	if strings.TrimSpace(entry.UserID) == "" {
		return nil, apierrors.Wrap(apierrors.KindValidation, op, ErrLedgerUserRequired)
	}
	if entry.Amount.IsZero() {
		return nil, apierrors.Wrap(apierrors.KindValidation, op, ErrZeroAmount)
	}
	if !entry.Type.Valid() {
		return nil, apierrors.Wrap(apierrors.KindValidation, op, ErrUnknownTransactionType)
	}
	if entry.Status == "" {
		entry.Status = models.TransactionStatusCompleted
	}

	tx := &models.Transaction{
		UserID:      entry.UserID,
		Amount:      entry.Amount,
		Type:        entry.Type,
		Status:      entry.Status,
		UserTaskID:  entry.UserTaskID,
		Reference:   utils.NewLedgerReference(string(entry.Type)),
		Title:       entry.Title,
		Description: entry.Description,
		IconType:    entry.IconType,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, apierrors.NewInternal(op, "failed to insert transaction for user "+entry.UserID, err)
	}

	metrics.LedgerAppends.WithLabelValues(string(entry.Type)).Inc()
	s.logger.Info("ledger entry appended",
		"transaction_id", tx.ID,
		"user_id", tx.UserID,
		"type", tx.Type,
		"amount", tx.Amount.String(),
	)
	return tx, nil
}

// ListForUser returns a user's ledger newest first. limit <= 0 returns everything.
func (s *LedgerService) ListForUser(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	entries, err := s.transactions.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apierrors.NewInternal("ledger.ListForUser", "failed to list transactions", err)
	}
	return entries, nil
}
