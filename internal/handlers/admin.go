package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mudralaya/mudralaya-api/internal/dto"
	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/models"
	"github.com/mudralaya/mudralaya-api/internal/repository"
	"github.com/mudralaya/mudralaya-api/internal/services"
	"github.com/mudralaya/mudralaya-api/internal/utils"
)

// AdminHandler serves the admin console. Every route sits behind
// middleware.RequireAdmin; the services check the principal again.
type AdminHandler struct {
	catalog      *services.CatalogService
	tasks        *services.TaskService
	kyc          *services.KycService
	wallet       *services.WalletService
	users        *services.UserService
	dashboard    *services.DashboardService
	exposeDetail bool
}

// NewAdminHandler creates an AdminHandler. exposeDetail adds the underlying
// error text to responses and should be off in production.
func NewAdminHandler(
	catalog *services.CatalogService,
	tasks *services.TaskService,
	kyc *services.KycService,
	wallet *services.WalletService,
	users *services.UserService,
	dashboard *services.DashboardService,
	exposeDetail bool,
) *AdminHandler {
	return &AdminHandler{
		catalog:      catalog,
		tasks:        tasks,
		kyc:          kyc,
		wallet:       wallet,
		users:        users,
		dashboard:    dashboard,
		exposeDetail: exposeDetail,
	}
}

// Overview returns the admin console counters.
func (h *AdminHandler) Overview(c *gin.Context) {
	overview, err := h.dashboard.AdminOverview(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// DeleteUser removes a client without ledger history.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) fail(c *gin.Context, err error) {
	if apierrors.KindOf(err) == apierrors.KindInternal {
		slog.Error("admin request failed", "path", c.FullPath(), "error", err)
	}
	apierrors.RespondWithDomainError(c, err, h.exposeDetail)
}

func (h *AdminHandler) badBody(c *gin.Context, err error) {
	if h.exposeDetail {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}
	apierrors.BadRequest(c, "Invalid request body")
}

// ListTasks includes inactive tasks.
func (h *AdminHandler) ListTasks(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	tasks, total, err := h.catalog.ListTasks(c.Request.Context(), services.ListTasksInput{
		Audience:        c.Query("audience"),
		Category:        c.Query("category"),
		IncludeInactive: true,
		Page:            params.Page,
		PageSize:        params.Limit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":      tasks,
		"pagination": params.Response(total),
	})
}

func (h *AdminHandler) CreateTask(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	category := req.Category
	if category == "" {
		category = req.Type
	}

	task, err := h.catalog.CreateTask(c.Request.Context(), services.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Category:       category,
		RewardFree:     req.RewardFree,
		RewardMember:   req.RewardMember,
		RewardInfo:     req.RewardInfo,
		VideoLink:      req.VideoLink,
		PdfURL:         req.PdfURL,
		ActionLink:     req.ActionLink,
		IconType:       req.IconType,
		Steps:          req.Steps,
		TargetAudience: req.TargetAudience,
		IsActive:       req.IsActive,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *AdminHandler) UpdateTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	task, err := h.catalog.UpdateTask(c.Request.Context(), taskID, services.UpdateTaskInput{
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		RewardFree:        req.RewardFree,
		RewardMember:      req.RewardMember,
		ClearRewardMember: req.ClearRewardMember,
		RewardInfo:        req.RewardInfo,
		VideoLink:         req.VideoLink,
		PdfURL:            req.PdfURL,
		ActionLink:        req.ActionLink,
		IconType:          req.IconType,
		Steps:             req.Steps,
		TargetAudience:    req.TargetAudience,
		IsActive:          req.IsActive,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *AdminHandler) DeleteTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteTask(c.Request.Context(), taskID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) Participants(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	participants, err := h.tasks.ListParticipants(c.Request.Context(), taskID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

// AssignTask starts a task on behalf of a user.
func (h *AdminHandler) AssignTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	assignment, err := h.tasks.AssignTask(c.Request.Context(), req.UserID, taskID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// ListAssignments is the review queue. Filters: status, user_id, task_id.
func (h *AdminHandler) ListAssignments(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	filter := repository.UserTaskFilter{
		UserID:   c.Query("user_id"),
		Page:     params.Page,
		PageSize: params.Limit,
	}

	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseUserTaskStatus(raw)
		if err != nil {
			apierrors.BadRequest(c, err.Error())
			return
		}
		filter.Status = &status
	}
	if c.Query("task_id") != "" {
		taskID, ok := parseQueryID(c, "task_id")
		if !ok {
			return
		}
		filter.TaskID = &taskID
	}

	assignments, total, err := h.tasks.ListAssignments(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assignments": assignments,
		"pagination":  params.Response(total),
	})
}

// Approve credits the reward to the ledger.
func (h *AdminHandler) Approve(c *gin.Context) {
	assignmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	assignment, entry, err := h.tasks.Approve(c.Request.Context(), assignmentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"assignment":  assignment,
		"transaction": entry,
	})
}

func (h *AdminHandler) Reject(c *gin.Context) {
	assignmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	assignment, err := h.tasks.Reject(c.Request.Context(), assignmentID, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// ListKyc is the KYC review queue. Filters: status, user_id.
func (h *AdminHandler) ListKyc(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	filter := repository.KycFilter{
		UserID:   c.Query("user_id"),
		Page:     params.Page,
		PageSize: params.Limit,
	}

	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseKycStatus(raw)
		if err != nil {
			apierrors.BadRequest(c, err.Error())
			return
		}
		filter.Status = &status
	}

	records, total, err := h.kyc.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records":    records,
		"pagination": params.Response(total),
	})
}

func (h *AdminHandler) GetKyc(c *gin.Context) {
	kycID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	record, err := h.kyc.Get(c.Request.Context(), kycID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// SetKycStatus records an admin decision. Legacy spellings such as
// "verified" and "fail" are accepted.
func (h *AdminHandler) SetKycStatus(c *gin.Context) {
	kycID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.KycStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	status, err := models.ParseKycStatus(req.Status)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	record, err := h.kyc.SetStatus(c.Request.Context(), kycID, status, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *AdminHandler) UserStats(c *gin.Context) {
	userID := c.Param("id")

	stats, err := h.wallet.ComputeStats(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":         userID,
		"stats":           stats,
		"available":       stats.Available(),
		"payout_eligible": services.Eligible(*stats),
	})
}

// RecordPayout debits the wallet of a verified, eligible user.
func (h *AdminHandler) RecordPayout(c *gin.Context) {
	var req dto.PayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	entry, err := h.wallet.RecordPayout(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// Reconcile compares the aggregate wallet stats with a full rescan.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	report, err := h.wallet.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
