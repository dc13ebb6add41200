package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/events"
	"github.com/mudralaya/mudralaya-api/internal/metrics"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/mudralaya/mudralaya-api/internal/repository"
	"gorm.io/gorm"
)

// KycDocuments are the blob store references of one submission.
type KycDocuments struct {
	IdentityProofURL string
	AddressProofURL  string
	BankProofURL     string
	SelfieURL        string
}

func (d KycDocuments) missing() []string {
	fields := []struct {
		name  string
		value string
	}{
		{"identity_proof_url", d.IdentityProofURL},
		{"address_proof_url", d.AddressProofURL},
		{"bank_proof_url", d.BankProofURL},
		{"selfie_url", d.SelfieURL},
	}

	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// KycService manages identity verification records.
type KycService struct {
	kyc    repository.KycRepository
	users  repository.UserRepository
	events events.Publisher
	logger *slog.Logger
}

func NewKycService(kyc repository.KycRepository, users repository.UserRepository, publisher events.Publisher, logger *slog.Logger) *KycService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KycService{kyc: kyc, users: users, events: publisher, logger: logger}
}

// Submit stores a new pending record. Earlier records are kept; the newest
// one is current.
func (s *KycService) Submit(ctx context.Context, userID string, docs KycDocuments) (*models.KycRecord, error) {
	const op = "kyc.Submit"

	if missing := docs.missing(); len(missing) > 0 {
		return nil, &apierrors.Error{
			Kind:    apierrors.KindValidation,
			Op:      op,
			Message: ErrKycDocumentsMissing.Error() + ": missing " + strings.Join(missing, ", "),
			Err:     ErrKycDocumentsMissing,
		}
	}

	record := &models.KycRecord{
		UserID:           userID,
		IdentityProofURL: strings.TrimSpace(docs.IdentityProofURL),
		AddressProofURL:  strings.TrimSpace(docs.AddressProofURL),
		BankProofURL:     strings.TrimSpace(docs.BankProofURL),
		SelfieURL:        strings.TrimSpace(docs.SelfieURL),
		Status:           models.KycStatusPending,
	}
	if err := s.kyc.Create(ctx, record); err != nil {
		return nil, apierrors.NewInternal(op, "failed to create kyc record for user "+userID, err)
	}

	s.logger.Info("kyc submitted", "kyc_id", record.ID, "user_id", userID)
	return record, nil
}

// SetStatus records an admin decision. Approval then sets the owner's
// verification flag in a second write.
func (s *KycService) SetStatus(ctx context.Context, kycID uint64, status models.KycStatus, reason string) (*models.KycRecord, error) {
	const op = "kyc.SetStatus"

	admin, err := requireAdmin(ctx, op)
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	var storedReason *string
	switch status {
	case models.KycStatusApproved:
	case models.KycStatusRejected:
		if reason == "" {
			return nil, apierrors.Wrap(apierrors.KindValidation, op, ErrReasonRequired)
		}
		storedReason = &reason
	default:
		return nil, apierrors.Wrap(apierrors.KindValidation, op, ErrKycStatusNotDecision)
	}

	record, err := s.kyc.FindByID(ctx, kycID)
	if err != nil {
		return nil, notFoundOr(op, "kyc record", ErrKycNotFound, err)
	}

	// Approval must be able to flip the owner's flag, so the owner has to exist
	if status == models.KycStatusApproved {
		if _, err := s.users.FindByID(ctx, record.UserID); err != nil {
			return nil, notFoundOr(op, "user", ErrUserNotFound, err)
		}
	}

	ok, err := s.kyc.UpdateStatus(ctx, kycID, status, storedReason)
	if err != nil {
		return nil, apierrors.NewInternal(op, "failed to update kyc record", err)
	}
	if !ok {
		return nil, apierrors.NewNotFound(op, ErrKycNotFound)
	}
	record.Status = status
	record.RejectionReason = storedReason

	if status == models.KycStatusApproved {
		verified, err := s.users.SetVerified(ctx, record.UserID)
		if err != nil {
			return nil, apierrors.NewInternal(op, "kyc approved but failed to verify user "+record.UserID, err)
		}
		if !verified {
			s.logger.Error("kyc approved for a missing user", "kyc_id", kycID, "user_id", record.UserID)
			return nil, apierrors.NewNotFound(op, ErrUserNotFound)
		}
	}

	metrics.KycDecisions.WithLabelValues(string(status)).Inc()
	s.logger.Info("kyc status changed",
		"kyc_id", kycID,
		"user_id", record.UserID,
		"status", status,
		"admin", admin.Name,
	)
	s.publish(ctx, events.RouteKycStatusChanged, events.KycStatusChanged{
		KycID:     kycID,
		UserID:    record.UserID,
		Status:    string(status),
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})

	return record, nil
}

// GetCurrent returns the newest record of a user, or nil when the user has
// never submitted.
func (s *KycService) GetCurrent(ctx context.Context, userID string) (*models.KycRecord, error) {
	record, err := s.kyc.FindLatestByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apierrors.NewInternal("kyc.GetCurrent", "failed to load kyc record", err)
	}
	return record, nil
}

// IsVerified reports whether the user's current record is approved.
func (s *KycService) IsVerified(ctx context.Context, userID string) (bool, error) {
	record, err := s.GetCurrent(ctx, userID)
	if err != nil {
		return false, err
	}
	return record != nil && record.Status == models.KycStatusApproved, nil
}

// Get returns one record with its owner for the admin console.
func (s *KycService) Get(ctx context.Context, kycID uint64) (*models.KycRecord, error) {
	const op = "kyc.Get"
	if _, err := requireAdmin(ctx, op); err != nil {
		return nil, err
	}

	record, err := s.kyc.FindByID(ctx, kycID, "User")
	if err != nil {
		return nil, notFoundOr(op, "kyc record", ErrKycNotFound, err)
	}
	return record, nil
}

// List is the admin review queue, newest first.
func (s *KycService) List(ctx context.Context, filter repository.KycFilter) ([]models.KycRecord, int64, error) {
	const op = "kyc.List"
	if _, err := requireAdmin(ctx, op); err != nil {
		return nil, 0, err
	}

	records, total, err := s.kyc.List(ctx, filter)
	if err != nil {
		return nil, 0, apierrors.NewInternal(op, "failed to list kyc records", err)
	}
	return records, total, nil
}

func (s *KycService) publish(ctx context.Context, routingKey string, body interface{}) {
	if err := s.events.Publish(ctx, routingKey, body); err != nil {
		s.logger.Warn("event publish failed", "routing_key", routingKey, "error", err)
	}
}
