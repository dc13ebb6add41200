package models

import (
	"time"

	"gorm.io/datatypes"
)

// Plan is a purchasable membership tier shown in the plans catalogue.
type Plan struct {
	ID         uint64                      `gorm:"primarykey" json:"id"`
	Code       string                      `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	Name       string                      `gorm:"type:varchar(100);not null" json:"name"`
	Tier       MembershipType              `gorm:"type:varchar(20);not null" json:"tier"`
	PricePaise int64                       `gorm:"not null" json:"price_paise"`
	Features   datatypes.JSONSlice[string] `json:"features,omitempty"`
	SortOrder  int                         `gorm:"not null;default:0" json:"sort_order"`
	IsActive   bool                        `gorm:"not null" json:"is_active"`
	CreatedAt  time.Time                   `json:"created_at"`
	UpdatedAt  time.Time                   `json:"updated_at"`
}

// Purchasable reports whether a gateway order can be opened for the plan.
func (p Plan) Purchasable() bool {
	return p.IsActive && p.Tier.IsPaid() && p.PricePaise > 0
}

type MembershipOrderStatus string

const (
	MembershipOrderCreated MembershipOrderStatus = "created"
	MembershipOrderPaid    MembershipOrderStatus = "paid"
)

// MembershipOrder records a gateway order so a confirmation can be matched
// to the user who opened it and consumed once.
type MembershipOrder struct {
	ID          string                `gorm:"type:varchar(64);primarykey" json:"id"`
	UserID      string                `gorm:"type:varchar(64);not null;index" json:"user_id"`
	PlanCode    string                `gorm:"type:varchar(50);not null" json:"plan_code"`
	Tier        MembershipType        `gorm:"type:varchar(20);not null" json:"tier"`
	AmountPaise int64                 `gorm:"not null" json:"amount_paise"`
	Currency    string                `gorm:"type:varchar(3);not null" json:"currency"`
	Receipt     string                `gorm:"type:varchar(64);not null;uniqueIndex" json:"receipt"`
	Status      MembershipOrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentID   *string               `gorm:"type:varchar(64);uniqueIndex" json:"payment_id,omitempty"`
	PaidAt      *time.Time            `json:"paid_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}
