package dto

import "github.com/shopspring/decimal"

// SubmitKycRequest holds the blob store references of the four documents.
// Legacy field names from the mobile client are accepted too.
type SubmitKycRequest struct {
	IdentityProofURL string `json:"identity_proof_url"`
	AddressProofURL  string `json:"address_proof_url"`
	BankProofURL     string `json:"bank_proof_url"`
	SelfieURL        string `json:"selfie_url"`

	PanURL     string `json:"pan_url"`
	AadhaarURL string `json:"adhaar_url"`
	BankURL    string `json:"bank_url"`
}

// Normalize folds the legacy field names into the canonical ones.
func (r *SubmitKycRequest) Normalize() {
	if r.IdentityProofURL == "" {
		r.IdentityProofURL = r.PanURL
	}
	if r.AddressProofURL == "" {
		r.AddressProofURL = r.AadhaarURL
	}
	if r.BankProofURL == "" {
		r.BankProofURL = r.BankURL
	}
}

// KycStatusRequest is the admin decision on a KYC record
type KycStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// UploadURLRequest asks for a presigned document upload
type UploadURLRequest struct {
	Kind        string `json:"kind" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// PayoutRequest records a payout for a user
type PayoutRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
