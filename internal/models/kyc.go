package models

import (
	"fmt"
	"strings"
	"time"
)

type KycStatus string

const (
	KycStatusPending  KycStatus = "pending"
	KycStatusApproved KycStatus = "approved"
	KycStatusRejected KycStatus = "rejected"
)

// ErrUnknownKycStatus is returned by ParseKycStatus for values outside the known set.
var ErrUnknownKycStatus = fmt.Errorf("unknown kyc status")

// ParseKycStatus maps raw status strings, including the legacy spellings
// "verified" and "fail", onto the canonical set.
func ParseKycStatus(raw string) (KycStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return KycStatusPending, nil
	case "approved", "verified":
		return KycStatusApproved, nil
	case "rejected", "fail", "failed":
		return KycStatusRejected, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKycStatus, raw)
	}
}

type KycRecord struct {
	ID               uint64    `gorm:"primarykey" json:"id"`
	UserID           string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	IdentityProofURL string    `gorm:"type:text;not null" json:"identity_proof_url"`
	AddressProofURL  string    `gorm:"type:text;not null" json:"address_proof_url"`
	BankProofURL     string    `gorm:"type:text;not null" json:"bank_proof_url"`
	SelfieURL        string    `gorm:"type:text;not null" json:"selfie_url"`
	Status           KycStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RejectionReason  *string   `gorm:"type:text" json:"rejection_reason,omitempty"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (KycRecord) TableName() string {
	return "user_kyc"
}
