package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mudralaya/mudralaya-api/internal/dto"
	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/payments"
	"github.com/mudralaya/mudralaya-api/internal/services"
)

// MembershipHandler sells the paid membership tier.
type MembershipHandler struct {
	payments *services.PaymentService
}

func NewMembershipHandler(payments *services.PaymentService) *MembershipHandler {
	return &MembershipHandler{payments: payments}
}

// Plans lists the active membership plans.
func (h *MembershipHandler) Plans(c *gin.Context) {
	plans, err := h.payments.ListPlans(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// CreateOrder opens a gateway order for the chosen plan.
func (h *MembershipHandler) CreateOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.CreateMembershipOrderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}
	}

	order, err := h.payments.CreateMembershipOrder(c.Request.Context(), userID, req.Plan)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// Confirm verifies the gateway signature and upgrades the caller.
func (h *MembershipHandler) Confirm(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.ConfirmMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.payments.ConfirmMembership(c.Request.Context(), userID, payments.Confirmation{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}
