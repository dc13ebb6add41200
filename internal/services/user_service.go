package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mudralaya/mudralaya-api/internal/auth"
	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/mudralaya/mudralaya-api/internal/repository"
)

// UserService provisions users the first time the identity provider
// vouches for them and lets admins remove clients.
type UserService struct {
	users        repository.UserRepository
	transactions repository.TransactionRepository
	locker       repository.UserLocker
	logger       *slog.Logger
}

func NewUserService(users repository.UserRepository, transactions repository.TransactionRepository, locker repository.UserLocker, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{users: users, transactions: transactions, locker: locker, logger: logger}
}

// Provision creates the user row if missing. Existing rows are not touched.
func (s *UserService) Provision(ctx context.Context, identity auth.Identity) error {
	user := &models.User{
		ID:             identity.UserID,
		FullName:       identity.FullName,
		Email:          identity.Email,
		MobileNumber:   identity.Phone,
		MembershipType: models.MembershipFree,
	}
	if err := s.users.EnsureExists(ctx, user); err != nil {
		return apierrors.NewInternal("users.Provision", "failed to provision user "+identity.UserID, err)
	}
	return nil
}

func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr("users.Get", "user", ErrUserNotFound, err)
	}
	return user, nil
}

// Delete removes a client with its KYC records, assignments and orders.
// Users with ledger history or a paid tier are kept since the ledger is
// immutable and references them.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	const op = "users.Delete"

	admin, err := requireAdmin(ctx, op)
	if err != nil {
		return err
	}

	err = s.locker.WithUserLock(ctx, userID, func(ctx context.Context) error {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return notFoundOr(op, "user", ErrUserNotFound, err)
		}
		if user.MembershipType.IsPaid() {
			return apierrors.NewInvalidState(op, ErrUserHasLedger)
		}

		entries, err := s.transactions.ListByUser(ctx, userID, 1)
		if err != nil {
			return apierrors.NewInternal(op, "failed to read ledger of user "+userID, err)
		}
		if len(entries) > 0 {
			return apierrors.NewInvalidState(op, ErrUserHasLedger)
		}

		deleted, err := s.users.Delete(ctx, userID)
		if err != nil {
			return apierrors.NewInternal(op, "failed to delete user "+userID, err)
		}
		if !deleted {
			return apierrors.NewNotFound(op, ErrUserNotFound)
		}
		return nil
	})
	if err != nil {
		var de *apierrors.Error
		if errors.As(err, &de) {
			return err
		}
		return notFoundOr(op, "user", ErrUserNotFound, err)
	}

	s.logger.Info("user deleted", "user_id", userID, "admin", admin.Name)
	return nil
}
