package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mudralaya/mudralaya-api/internal/dto"
	apierrors "github.com/mudralaya/mudralaya-api/internal/errors"
	"github.com/mudralaya/mudralaya-api/internal/services"
	"github.com/mudralaya/mudralaya-api/internal/storage"
)

// KycHandler serves KYC submission and document uploads.
type KycHandler struct {
	kyc       *services.KycService
	documents *storage.DocumentStore
}

// NewKycHandler creates a KycHandler. documents may be nil when no bucket
// is configured; upload URLs are then unavailable.
func NewKycHandler(kyc *services.KycService, documents *storage.DocumentStore) *KycHandler {
	return &KycHandler{kyc: kyc, documents: documents}
}

// Submit stores a new pending KYC record for the caller.
func (h *KycHandler) Submit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.SubmitKycRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	req.Normalize()

	record, err := h.kyc.Submit(c.Request.Context(), userID, services.KycDocuments{
		IdentityProofURL: req.IdentityProofURL,
		AddressProofURL:  req.AddressProofURL,
		BankProofURL:     req.BankProofURL,
		SelfieURL:        req.SelfieURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// Current returns the caller's latest record. A user who never submitted
// gets status "not_submitted".
func (h *KycHandler) Current(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	record, err := h.kyc.GetCurrent(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if record == nil {
		c.JSON(http.StatusOK, gin.H{"status": "not_submitted", "kyc": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": record.Status, "kyc": record})
}

// UploadURL presigns a PUT for one document.
func (h *KycHandler) UploadURL(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	kind, err := storage.ParseDocumentKind(req.Kind)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	upload, err := h.documents.PresignUpload(c.Request.Context(), userID, kind, req.ContentType)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, upload)
	case errors.Is(err, storage.ErrStorageDisabled):
		respondError(c, apierrors.Wrap(apierrors.KindUnavailable, "kyc.UploadURL", err))
	case errors.Is(err, storage.ErrUnsupportedMediaType):
		apierrors.BadRequest(c, err.Error())
	default:
		respondError(c, apierrors.NewInternal("kyc.UploadURL", "failed to presign upload", err))
	}
}
