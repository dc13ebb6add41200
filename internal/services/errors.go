package services

import (
	"errors"

	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"gorm.io/gorm"
)

var (
	// Admin gate
	ErrAdminUnauthorized       = errors.New("admin credential required")
	ErrInvalidAdminCredentials = errors.New("invalid admin username or password")

	// Users
	ErrUserNotFound  = errors.New("user not found")
	ErrUserHasLedger = errors.New("users with ledger entries or a paid membership cannot be deleted")

	// KYC
	ErrKycNotFound          = errors.New("kyc record not found")
	ErrKycDocumentsMissing  = errors.New("all four kyc documents are required")
	ErrKycStatusNotDecision = errors.New("kyc status must be approved or rejected")
	ErrReasonRequired       = errors.New("a reason is required when rejecting")
	ErrKycNotVerified       = errors.New("kyc is not approved")

	// Catalog and assignments
	ErrTaskNotFound       = errors.New("task not found")
	ErrTitleRequired      = errors.New("title is required")
	ErrNegativeReward     = errors.New("rewards cannot be negative")
	ErrAssignmentNotFound = errors.New("task assignment not found")
	ErrTaskNotStarted     = errors.New("task has not been started")
	ErrNotCompletable     = errors.New("only pending or ongoing tasks can be completed")
	ErrNotCompleted       = errors.New("only completed tasks can be approved")
	ErrAlreadyReviewed    = errors.New("task assignment has already been reviewed")
	ErrNoReward           = errors.New("task assignment has no reward to pay")
	ErrInvalidSubmission  = errors.New("submission must be valid JSON")

	// Ledger
	ErrZeroAmount             = errors.New("amount must not be zero")
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	ErrLedgerUserRequired     = errors.New("ledger entries need a user")

	// Wallet
	ErrPayoutAmountInvalid = errors.New("payout amount must be positive")
	ErrBelowPayoutMinimum  = errors.New("approved balance is below the payout minimum")
	ErrInsufficientBalance = errors.New("payout exceeds the available balance")

	// Payments
	ErrPaymentsDisabled        = errors.New("payment gateway is not configured")
	ErrInvalidPaymentSignature = errors.New("payment signature does not match")
	ErrPlanNotFound            = errors.New("plan not found")
	ErrPlanNotPurchasable      = errors.New("plan cannot be purchased")
	ErrOrderNotFound           = errors.New("membership order not found")
	ErrOrderAlreadyPaid        = errors.New("membership order has already been confirmed")
)

// notFoundOr maps gorm.ErrRecordNotFound to a not-found error carrying
// sentinel; any other failure is an internal error about entity.
func notFoundOr(op, entity string, sentinel, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierrors.NewNotFound(op, sentinel)
	}
	return apierrors.NewInternal(op, "failed to load "+entity, err)
}
