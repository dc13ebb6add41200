package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mudralaya/mudralaya-api/internal/constants"
	"github.com/mudralaya/mudralaya-api/internal/services"
)

// WalletHandler serves balances, the ledger and the dashboard summary.
type WalletHandler struct {
	wallet    *services.WalletService
	ledger    *services.LedgerService
	dashboard *services.DashboardService
}

func NewWalletHandler(wallet *services.WalletService, ledger *services.LedgerService, dashboard *services.DashboardService) *WalletHandler {
	return &WalletHandler{wallet: wallet, ledger: ledger, dashboard: dashboard}
}

func (h *WalletHandler) GetStats(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	stats, err := h.wallet.ComputeStats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":           stats,
		"available":       stats.Available(),
		"payout_eligible": services.Eligible(*stats),
		"minimum_payout":  constants.MinimumPayoutThreshold,
	})
}

// Eligibility reports whether the caller's approved balance reached the payout minimum.
func (h *WalletHandler) Eligibility(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	eligible, err := h.wallet.IsPayoutEligible(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"eligible":       eligible,
		"minimum_payout": constants.MinimumPayoutThreshold,
	})
}

// ListTransactions returns the caller's ledger, newest first. ?limit caps it.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit < 0 || limit > constants.MaxPageSize {
		limit = constants.MaxPageSize
	}

	entries, err := h.ledger.ListForUser(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entries})
}

func (h *WalletHandler) Dashboard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	summary, err := h.dashboard.Summary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
