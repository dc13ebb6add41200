package services

import (
	"context"

	"github.com/mudralaya/mudralaya-api/internal/constants"
	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/mudralaya/mudralaya-api/internal/repository"
)

// DashboardSummary is everything the user dashboard shows on first load.
type DashboardSummary struct {
	Tasks          []TaskWithStatus     `json:"tasks"`
	Transactions   []models.Transaction `json:"transactions"`
	Stats          WalletStats          `json:"stats"`
	PayoutEligible bool                 `json:"payout_eligible"`
	Kyc            *models.KycRecord    `json:"kyc"`
}

// DashboardService composes the read models of the other services.
type DashboardService struct {
	catalog *CatalogService
	tasks   *TaskService
	ledger  *LedgerService
	wallet  *WalletService
	kyc     *KycService
	stats   repository.StatsRepository
}

func NewDashboardService(catalog *CatalogService, tasks *TaskService, ledger *LedgerService, wallet *WalletService, kyc *KycService, stats repository.StatsRepository) *DashboardService {
	return &DashboardService{catalog: catalog, tasks: tasks, ledger: ledger, wallet: wallet, kyc: kyc, stats: stats}
}

// AdminOverview returns the counters of the admin console landing page.
func (s *DashboardService) AdminOverview(ctx context.Context) (*repository.AdminOverview, error) {
	const op = "dashboard.AdminOverview"
	if _, err := requireAdmin(ctx, op); err != nil {
		return nil, err
	}
	overview, err := s.stats.Overview(ctx)
	if err != nil {
		return nil, apierrors.NewInternal(op, "failed to count overview", err)
	}
	return overview, nil
}

func (s *DashboardService) Summary(ctx context.Context, userID string) (*DashboardSummary, error) {
	tasks, _, err := s.catalog.ListTasks(ctx, ListTasksInput{Page: 1, PageSize: constants.DashboardTaskLimit})
	if err != nil {
		return nil, err
	}
	annotated, err := s.tasks.AnnotateTasks(ctx, userID, tasks)
	if err != nil {
		return nil, err
	}

	transactions, err := s.ledger.ListForUser(ctx, userID, constants.DashboardTransactionLimit)
	if err != nil {
		return nil, err
	}

	stats, err := s.wallet.ComputeStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	kyc, err := s.kyc.GetCurrent(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &DashboardSummary{
		Tasks:          annotated,
		Transactions:   transactions,
		Stats:          *stats,
		PayoutEligible: Eligible(*stats),
		Kyc:            kyc,
	}, nil
}
