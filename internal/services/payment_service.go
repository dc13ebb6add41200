package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mudralaya/mudralaya-api/internal/constants"
	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/events"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/mudralaya/mudralaya-api/internal/payments"
	"github.com/mudralaya/mudralaya-api/internal/repository"
	"github.com/mudralaya/mudralaya-api/internal/utils"
	"gorm.io/datatypes"
)

// PaymentService sells membership plans through the payment gateway.
type PaymentService struct {
	gateway payments.Gateway
	plans   repository.PlanRepository
	orders  repository.MembershipOrderRepository
	users   repository.UserRepository
	locker  repository.UserLocker
	events  events.Publisher
	logger  *slog.Logger
}

func NewPaymentService(
	gateway payments.Gateway,
	plans repository.PlanRepository,
	orders repository.MembershipOrderRepository,
	users repository.UserRepository,
	locker repository.UserLocker,
	publisher events.Publisher,
	logger *slog.Logger,
) *PaymentService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentService{
		gateway: gateway,
		plans:   plans,
		orders:  orders,
		users:   users,
		locker:  locker,
		events:  publisher,
		logger:  logger,
	}
}

// EnsureDefaultPlans seeds the free and individual plans. Existing rows,
// including edited prices, are left alone.
func (s *PaymentService) EnsureDefaultPlans(ctx context.Context, individualPricePaise int64) error {
	defaults := []models.Plan{
		{
			Code:      constants.FreePlanCode,
			Name:      "Free",
			Tier:      models.MembershipFree,
			Features:  datatypes.JSONSlice[string]{"Access to daily, weekly and monthly tasks", "Start with zero investment"},
			SortOrder: 1,
			IsActive:  true,
		},
		{
			Code:       constants.IndividualPlanCode,
			Name:       "Individual",
			Tier:       models.MembershipMember,
			PricePaise: individualPricePaise,
			Features:   datatypes.JSONSlice[string]{"Member rewards on every task", "Priority access to high-paying tasks"},
			SortOrder:  2,
			IsActive:   true,
		},
	}
	for i := range defaults {
		if err := s.plans.EnsureExists(ctx, &defaults[i]); err != nil {
			return apierrors.NewInternal("payments.EnsureDefaultPlans", "failed to seed plan "+defaults[i].Code, err)
		}
	}
	return nil
}

// ListPlans returns the active plan catalogue.
func (s *PaymentService) ListPlans(ctx context.Context) ([]models.Plan, error) {
	plans, err := s.plans.ListActive(ctx)
	if err != nil {
		return nil, apierrors.NewInternal("payments.ListPlans", "failed to list plans", err)
	}
	return plans, nil
}

// CreateMembershipOrder opens a gateway order for a plan and records it
// against the caller.
func (s *PaymentService) CreateMembershipOrder(ctx context.Context, userID, planCode string) (*payments.Order, error) {
	const op = "payments.CreateMembershipOrder"

	if s.gateway == nil {
		return nil, apierrors.Wrap(apierrors.KindUnavailable, op, ErrPaymentsDisabled)
	}

	planCode = strings.ToLower(strings.TrimSpace(planCode))
	if planCode == "" {
		planCode = constants.IndividualPlanCode
	}
	plan, err := s.plans.FindByCode(ctx, planCode)
	if err != nil {
		return nil, notFoundOr(op, "plan", ErrPlanNotFound, err)
	}
	if !plan.Purchasable() {
		return nil, apierrors.Wrap(apierrors.KindValidation, op, ErrPlanNotPurchasable)
	}

	receipt, err := utils.GenerateReceipt()
	if err != nil {
		return nil, apierrors.NewInternal(op, "failed to generate receipt", err)
	}

	order, err := s.gateway.CreateOrder(ctx, payments.OrderRequest{
		Amount:   plan.PricePaise,
		Currency: constants.MembershipCurrency,
		Receipt:  receipt,
		Notes: map[string]string{
			"user_id": userID,
			"plan":    plan.Code,
		},
	})
	if err != nil {
		return nil, apierrors.NewInternal(op, "failed to create gateway order", err)
	}

	record := &models.MembershipOrder{
		ID:          order.ID,
		UserID:      userID,
		PlanCode:    plan.Code,
		Tier:        plan.Tier,
		AmountPaise: plan.PricePaise,
		Currency:    constants.MembershipCurrency,
		Receipt:     receipt,
		Status:      models.MembershipOrderCreated,
	}
	if err := s.orders.Create(ctx, record); err != nil {
		return nil, apierrors.NewInternal(op, "failed to record order "+order.ID, err)
	}

	s.logger.Info("membership order created", "user_id", userID, "order_id", order.ID, "plan", plan.Code, "receipt", receipt)
	return order, nil
}

// ConfirmMembership verifies the signed confirmation and consumes the
// caller's order. The order flips to paid in the same transaction that
// upgrades the user, so a confirmation upgrades one account once.
func (s *PaymentService) ConfirmMembership(ctx context.Context, userID string, conf payments.Confirmation) (*models.User, error) {
	const op = "payments.ConfirmMembership"

	if s.gateway == nil {
		return nil, apierrors.Wrap(apierrors.KindUnavailable, op, ErrPaymentsDisabled)
	}
	if conf.OrderID == "" || conf.PaymentID == "" || conf.Signature == "" {
		return nil, apierrors.NewValidation(op, "order_id, payment_id and signature are required")
	}

	if err := s.gateway.VerifyPayment(conf); err != nil {
		if errors.Is(err, payments.ErrSignatureMismatch) {
			return nil, apierrors.Wrap(apierrors.KindValidation, op, ErrInvalidPaymentSignature)
		}
		return nil, apierrors.NewInternal(op, "failed to verify payment", err)
	}

	order, err := s.orders.FindByID(ctx, conf.OrderID)
	if err != nil {
		return nil, notFoundOr(op, "membership order", ErrOrderNotFound, err)
	}
	if order.UserID != userID {
		s.logger.Warn("membership confirmation for another user's order",
			"user_id", userID, "order_id", order.ID, "owner", order.UserID)
		return nil, apierrors.NewNotFound(op, ErrOrderNotFound)
	}
	if order.Status != models.MembershipOrderCreated {
		return nil, apierrors.NewInvalidState(op, ErrOrderAlreadyPaid)
	}
	if s.locker == nil {
		return nil, apierrors.NewInternal(op, "no user locker configured", nil)
	}

	err = s.locker.WithUserLock(ctx, userID, func(ctx context.Context) error {
		paid, err := s.orders.MarkPaid(ctx, order.ID, userID, conf.PaymentID)
		if err != nil {
			return apierrors.NewInternal(op, "failed to mark order "+order.ID+" paid", err)
		}
		if !paid {
			return apierrors.NewInvalidState(op, ErrOrderAlreadyPaid)
		}

		upgraded, err := s.users.SetMembership(ctx, userID, order.Tier)
		if err != nil {
			return apierrors.NewInternal(op, "failed to upgrade membership for user "+userID, err)
		}
		if !upgraded {
			return apierrors.NewNotFound(op, ErrUserNotFound)
		}
		return nil
	})
	if err != nil {
		var de *apierrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, notFoundOr(op, "user", ErrUserNotFound, err)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(op, "user", ErrUserNotFound, err)
	}

	s.logger.Info("membership activated", "user_id", userID, "order_id", conf.OrderID, "payment_id", conf.PaymentID)
	if err := s.events.Publish(ctx, events.RouteMembershipActivated, events.MembershipActivated{
		UserID:    userID,
		Tier:      string(user.MembershipType),
		OrderID:   conf.OrderID,
		PaymentID: conf.PaymentID,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("event publish failed", "routing_key", events.RouteMembershipActivated, "error", err)
	}
	return user, nil
}
