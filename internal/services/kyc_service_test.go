package services

import (
	"context"
	"errors"
	"testing"

	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/events"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/mudralaya/mudralaya-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullDocuments() KycDocuments {
	return KycDocuments{
		IdentityProofURL: "kyc/u1/identity.jpg",
		AddressProofURL:  "kyc/u1/address.jpg",
		BankProofURL:     "kyc/u1/bank.pdf",
		SelfieURL:        "kyc/u1/selfie.png",
	}
}

func TestKycSubmitListsMissingDocuments(t *testing.T) {
	f := newFixture(t)

	_, err := f.kyc.Submit(context.Background(), "u1", KycDocuments{
		IdentityProofURL: "kyc/u1/identity.jpg",
		BankProofURL:     "   ",
	})
	require.Error(t, err)
	assert.Equal(t, apierrors.KindValidation, apierrors.KindOf(err))
	assert.True(t, errors.Is(err, ErrKycDocumentsMissing))
	assert.Equal(t,
		"all four kyc documents are required: missing address_proof_url, bank_proof_url, selfie_url",
		apierrors.PublicMessage(err))
}

func TestKycCurrentIsNewestSubmission(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1", models.MembershipFree)

	current, err := f.kyc.GetCurrent(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, current)

	first, err := f.kyc.Submit(context.Background(), "u1", fullDocuments())
	require.NoError(t, err)
	_, err = f.kyc.SetStatus(adminCtx(), first.ID, models.KycStatusRejected, "selfie does not match")
	require.NoError(t, err)

	second, err := f.kyc.Submit(context.Background(), "u1", fullDocuments())
	require.NoError(t, err)

	current, err = f.kyc.GetCurrent(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)
	assert.Equal(t, models.KycStatusPending, current.Status)
	assert.Nil(t, current.RejectionReason)
}

func TestKycDecisions(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1", models.MembershipFree)
	record, err := f.kyc.Submit(context.Background(), "u1", fullDocuments())
	require.NoError(t, err)

	_, err = f.kyc.SetStatus(context.Background(), record.ID, models.KycStatusApproved, "")
	assert.Equal(t, apierrors.KindUnauthorized, apierrors.KindOf(err))

	_, err = f.kyc.SetStatus(adminCtx(), record.ID, models.KycStatusRejected, "")
	assert.True(t, errors.Is(err, ErrReasonRequired))

	_, err = f.kyc.SetStatus(adminCtx(), record.ID, models.KycStatusPending, "")
	assert.True(t, errors.Is(err, ErrKycStatusNotDecision))

	_, err = f.kyc.SetStatus(adminCtx(), 999, models.KycStatusApproved, "")
	assert.Equal(t, apierrors.KindNotFound, apierrors.KindOf(err))

	rejected, err := f.kyc.SetStatus(adminCtx(), record.ID, models.KycStatusRejected, "blurry")
	require.NoError(t, err)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "blurry", *rejected.RejectionReason)

	verified, err := f.kyc.IsVerified(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, verified)

	approved, err := f.kyc.SetStatus(adminCtx(), record.ID, models.KycStatusApproved, "ignored")
	require.NoError(t, err)
	assert.Nil(t, approved.RejectionReason, "approval clears the reason")

	verified, err = f.kyc.IsVerified(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, verified)

	user, err := f.users.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, user.IsVerified)

	assert.Equal(t, []string{events.RouteKycStatusChanged, events.RouteKycStatusChanged}, f.events.Keys())
}

func TestKycAdminQueue(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1", models.MembershipFree)
	f.createUser(t, "u2", models.MembershipFree)
	_, err := f.kyc.Submit(context.Background(), "u1", fullDocuments())
	require.NoError(t, err)
	second, err := f.kyc.Submit(context.Background(), "u2", fullDocuments())
	require.NoError(t, err)
	_, err = f.kyc.SetStatus(adminCtx(), second.ID, models.KycStatusApproved, "")
	require.NoError(t, err)

	_, _, err = f.kyc.List(context.Background(), repositoryKycFilter(nil))
	assert.Equal(t, apierrors.KindUnauthorized, apierrors.KindOf(err))

	pending := models.KycStatusPending
	records, total, err := f.kyc.List(adminCtx(), repositoryKycFilter(&pending))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, records, 1)
	assert.Equal(t, "u1", records[0].UserID)

	record, err := f.kyc.Get(adminCtx(), second.ID)
	require.NoError(t, err)
	require.NotNil(t, record.User)
	assert.Equal(t, "u2", record.User.ID)
}

func TestKycApprovalForMissingUser(t *testing.T) {
	f := newFixture(t)
	record := &models.KycRecord{
		UserID:           "ghost",
		IdentityProofURL: "id",
		AddressProofURL:  "addr",
		BankProofURL:     "bank",
		SelfieURL:        "selfie",
		Status:           models.KycStatusPending,
	}
	require.NoError(t, f.db.Create(record).Error)

	_, err := f.kyc.SetStatus(adminCtx(), record.ID, models.KycStatusApproved, "")
	assert.True(t, errors.Is(err, ErrUserNotFound))
	assert.Equal(t, apierrors.KindNotFound, apierrors.KindOf(err))

	stored, err := f.kyc.Get(adminCtx(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KycStatusPending, stored.Status)
	assert.Empty(t, f.events.Keys())
}

// vanishingUsers loses the user between the lookup and the flag update.
type vanishingUsers struct {
	repository.UserRepository
}

func (vanishingUsers) SetVerified(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func TestKycApprovalWhenVerifyMissesUser(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "u1", models.MembershipFree)
	svc := NewKycService(repository.NewKycRepository(f.db), vanishingUsers{f.users}, f.events, f.log)

	record, err := svc.Submit(context.Background(), "u1", fullDocuments())
	require.NoError(t, err)

	_, err = svc.SetStatus(adminCtx(), record.ID, models.KycStatusApproved, "")
	assert.True(t, errors.Is(err, ErrUserNotFound))
	assert.Equal(t, apierrors.KindNotFound, apierrors.KindOf(err))
	assert.NotContains(t, f.events.Keys(), events.RouteKycStatusChanged)
}
