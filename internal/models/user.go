package models

import "time"

type MembershipType string

const (
	MembershipFree    MembershipType = "free"
	MembershipMember  MembershipType = "member"
	MembershipPremium MembershipType = "premium"
)

// IsPaid reports whether the tier earns member-tier task rewards.
func (m MembershipType) IsPaid() bool {
	return m == MembershipMember || m == MembershipPremium
}

type User struct {
	ID             string         `gorm:"type:varchar(64);primarykey" json:"id"`
	FullName       string         `gorm:"type:varchar(255)" json:"full_name"`
	Email          string         `gorm:"type:varchar(255);index" json:"email"`
	MobileNumber   string         `gorm:"type:varchar(32)" json:"mobile_number"`
	MembershipType MembershipType `gorm:"type:varchar(20);not null;default:'free'" json:"membership_type"`
	IsVerified     bool           `gorm:"not null" json:"is_verified"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	// Relations
	KycRecords  []KycRecord   `gorm:"foreignKey:UserID" json:"-"`
	Assignments []UserTask    `gorm:"foreignKey:UserID" json:"-"`
	Ledger      []Transaction `gorm:"foreignKey:UserID" json:"-"`
}
