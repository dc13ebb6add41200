package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AudienceAll marks a task visible to every audience.
const AudienceAll = "All"

type Task struct {
	ID             uint64                      `gorm:"primarykey" json:"id"`
	Title          string                      `gorm:"type:varchar(255);not null" json:"title"`
	Description    string                      `gorm:"type:text" json:"description"`
	Category       string                      `gorm:"type:varchar(50);index" json:"category"`
	RewardFree     decimal.Decimal             `gorm:"type:decimal(15,2);not null" json:"reward_free"`
	RewardMember   decimal.NullDecimal         `gorm:"type:decimal(15,2)" json:"reward_member"`
	RewardInfo     string                      `gorm:"type:varchar(255)" json:"reward_info,omitempty"`
	VideoLink      string                      `gorm:"type:text" json:"video_link,omitempty"`
	PdfURL         string                      `gorm:"type:text" json:"pdf_url,omitempty"`
	ActionLink     string                      `gorm:"type:text" json:"action_link,omitempty"`
	IconType       string                      `gorm:"type:varchar(50)" json:"icon_type"`
	Steps          datatypes.JSONSlice[string] `json:"steps,omitempty"`
	TargetAudience datatypes.JSONSlice[string] `json:"target_audience"`
	IsActive       bool                        `gorm:"not null" json:"is_active"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	DeletedAt      gorm.DeletedAt              `gorm:"index" json:"-"`

	// Relations
	Assignments []UserTask `gorm:"foreignKey:TaskID" json:"-"`
}

// RewardFor resolves the reward a user on the given tier earns for this task.
// Paid tiers use the member reward when one is set and non-zero.
func (t Task) RewardFor(tier MembershipType) decimal.Decimal {
	if tier.IsPaid() && t.RewardMember.Valid && !t.RewardMember.Decimal.IsZero() {
		return t.RewardMember.Decimal
	}
	return t.RewardFree
}

// TargetsAudience reports whether the task is aimed at the given audience tag.
func (t Task) TargetsAudience(tag string) bool {
	if tag == "" || len(t.TargetAudience) == 0 {
		return true
	}
	for _, a := range t.TargetAudience {
		if strings.EqualFold(a, tag) || strings.EqualFold(a, AudienceAll) {
			return true
		}
	}
	return false
}
