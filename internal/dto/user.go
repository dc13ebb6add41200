package dto

import (
	"time"

	"github.com/mudralaya/mudralaya-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID             string                `json:"id"`
	FullName       string                `json:"full_name"`
	Email          string                `json:"email"`
	MobileNumber   string                `json:"mobile_number,omitempty"`
	MembershipType models.MembershipType `json:"membership_type"`
	IsVerified     bool                  `json:"is_verified"`
	CreatedAt      time.Time             `json:"created_at"`
}

func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:             user.ID,
		FullName:       user.FullName,
		Email:          user.Email,
		MobileNumber:   user.MobileNumber,
		MembershipType: user.MembershipType,
		IsVerified:     user.IsVerified,
		CreatedAt:      user.CreatedAt,
	}
}

// AdminLoginRequest is the admin console login body
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateMembershipOrderRequest selects the plan to buy; empty means the individual plan
type CreateMembershipOrderRequest struct {
	Plan string `json:"plan"`
}

// ConfirmMembershipRequest carries the gateway's signed confirmation
type ConfirmMembershipRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}
