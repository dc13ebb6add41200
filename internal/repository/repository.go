package repository

import (
	"context"
	"time"

	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// EnsureExists inserts the user unless a row with the same id is present
	EnsureExists(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id string) (*models.User, error)

	// SetVerified flips the verification flag; reports whether a row matched
	SetVerified(ctx context.Context, id string) (bool, error)

	// SetMembership changes the user's membership tier
	SetMembership(ctx context.Context, id string, tier models.MembershipType) (bool, error)

	// Delete removes the user together with KYC records, assignments and
	// membership orders. Ledger rows are never touched.
	Delete(ctx context.Context, id string) (bool, error)
}

// UserLocker serializes writes that depend on a user's current balance or tier
type UserLocker interface {
	WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context) error) error
}

// PlanRepository defines the interface for the membership plan catalogue
type PlanRepository interface {
	// EnsureExists inserts the plan unless one with the same code is present
	EnsureExists(ctx context.Context, plan *models.Plan) error
	FindByCode(ctx context.Context, code string) (*models.Plan, error)

	// ListActive returns active plans in display order
	ListActive(ctx context.Context) ([]models.Plan, error)
}

// MembershipOrderRepository defines the interface for membership order data access
type MembershipOrderRepository interface {
	Create(ctx context.Context, order *models.MembershipOrder) error
	FindByID(ctx context.Context, id string) (*models.MembershipOrder, error)

	// MarkPaid moves a created order owned by userID to paid; reports whether it matched
	MarkPaid(ctx context.Context, id, userID, paymentID string) (bool, error)
}

// KycRepository defines the interface for KYC record data access
type KycRepository interface {
	Create(ctx context.Context, record *models.KycRecord) error

	// FindByID finds a record by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.KycRecord, error)

	// FindLatestByUserID returns the most recently created record of a user
	FindLatestByUserID(ctx context.Context, userID string) (*models.KycRecord, error)

	// UpdateStatus sets status and rejection reason; reports whether a row matched
	UpdateStatus(ctx context.Context, id uint64, status models.KycStatus, reason *string) (bool, error)

	List(ctx context.Context, filter KycFilter) ([]models.KycRecord, int64, error)
}

// KycFilter holds filtering options for the KYC review queue
type KycFilter struct {
	Status   *models.KycStatus
	UserID   string
	Page     int
	PageSize int
}

// TaskRepository defines the interface for task catalog data access
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id uint64) (*models.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)
	Update(ctx context.Context, task *models.Task) error

	// Delete soft deletes a task; assignments and ledger rows are kept
	Delete(ctx context.Context, id uint64) (bool, error)
}

// TaskFilter holds filtering options for listing catalog tasks
type TaskFilter struct {
	Category   string
	ActiveOnly bool
	Page       int
	PageSize   int
}

// UserTaskRepository defines the interface for task assignment data access
type UserTaskRepository interface {
	// FindOrCreate inserts the assignment unless one exists for the same
	// (user_id, task_id) pair, then returns the stored row. created reports
	// whether this call inserted it.
	FindOrCreate(ctx context.Context, assignment *models.UserTask) (stored *models.UserTask, created bool, err error)

	Find(ctx context.Context, userID string, taskID uint64) (*models.UserTask, error)
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.UserTask, error)

	// MarkCompleted moves a pending or ongoing assignment to completed with
	// the reward snapshot and submission; reports whether a row matched
	MarkCompleted(ctx context.Context, id uint64, reward decimal.Decimal, submission []byte, at time.Time) (bool, error)

	// TransitionStatus sets status to `to` only while the current status is
	// one of `from`. fields are written in the same statement.
	TransitionStatus(ctx context.Context, id uint64, from []models.UserTaskStatus, to models.UserTaskStatus, fields map[string]interface{}) (bool, error)

	ListByUser(ctx context.Context, userID string) ([]models.UserTask, error)
	ListByTask(ctx context.Context, taskID uint64) ([]models.UserTask, error)
	List(ctx context.Context, filter UserTaskFilter) ([]models.UserTask, int64, error)
}

// UserTaskFilter holds filtering options for the assignment review queue
type UserTaskFilter struct {
	Status   *models.UserTaskStatus
	UserID   string
	TaskID   *uint64
	Page     int
	PageSize int
}

// TransactionRepository defines the interface for ledger data access. It has
// no update or delete: ledger rows are append-only.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error

	// ListByUser returns entries newest first; limit <= 0 returns all
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
}

// StatsWindow bounds the reporting periods of a stats query. All times are UTC.
type StatsWindow struct {
	DayStart   time.Time
	DayEnd     time.Time
	MonthStart time.Time
	MonthEnd   time.Time
}

// LedgerTotals is the raw result of the aggregate stats query
type LedgerTotals struct {
	Today    decimal.Decimal
	Monthly  decimal.Decimal
	Approved decimal.Decimal
	Payout   decimal.Decimal
	Pending  decimal.Decimal
}

// StatsRepository computes wallet totals in the database
type StatsRepository interface {
	Aggregate(ctx context.Context, userID string, window StatsWindow) (*LedgerTotals, error)

	// UserIDsWithActivity lists users that own ledger rows or assignments
	UserIDsWithActivity(ctx context.Context, limit int) ([]string, error)

	// Overview counts the rows the admin console summarises
	Overview(ctx context.Context) (*AdminOverview, error)
}

// AdminOverview holds the admin console counters. Revenue is the sum of
// paid membership orders in paise.
type AdminOverview struct {
	Tasks          int64 `json:"tasks"`
	Users          int64 `json:"users"`
	PendingKyc     int64 `json:"pending_kyc"`
	AwaitingReview int64 `json:"awaiting_review"`
	PaidOrders     int64 `json:"paid_orders"`
	RevenuePaise   int64 `json:"revenue_paise"`
}
