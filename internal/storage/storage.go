// Package storage issues presigned upload URLs for KYC documents.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/mudralaya/mudralaya-api/internal/config"
)

// DocumentKind names one of the four KYC documents.
type DocumentKind string

const (
	DocumentIdentityProof DocumentKind = "identity_proof"
	DocumentAddressProof  DocumentKind = "address_proof"
	DocumentBankProof     DocumentKind = "bank_proof"
	DocumentSelfie        DocumentKind = "selfie"
)

var (
	ErrUnknownDocumentKind  = errors.New("unknown document kind")
	ErrUnsupportedMediaType = errors.New("unsupported content type")
	ErrStorageDisabled      = errors.New("document storage is not configured")
)

var allowedContentTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// ParseDocumentKind validates a kind coming from a request.
func ParseDocumentKind(raw string) (DocumentKind, error) {
	switch k := DocumentKind(strings.ToLower(strings.TrimSpace(raw))); k {
	case DocumentIdentityProof, DocumentAddressProof, DocumentBankProof, DocumentSelfie:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDocumentKind, raw)
}

// Presigner defines the interface for presigning S3 requests.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// UploadURL is handed to the client, which PUTs the file directly to the bucket.
type UploadURL struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ObjectURL string    `json:"object_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DocumentStore issues upload URLs under kyc/<user>/<kind>/.
type DocumentStore struct {
	presigner Presigner
	bucket    string
	baseURL   string
	ttl       time.Duration
}

func NewDocumentStore(presigner Presigner, bucket, baseURL string, ttl time.Duration) *DocumentStore {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &DocumentStore{
		presigner: presigner,
		bucket:    bucket,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		ttl:       ttl,
	}
}

// NewS3DocumentStore builds a store from config. It returns nil when no
// bucket is configured.
func NewS3DocumentStore(ctx context.Context, cfg *config.Config) (*DocumentStore, error) {
	if cfg.KycBucket == "" {
		return nil, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.KycBucket, cfg.S3Region)
	if cfg.S3Endpoint != "" {
		baseURL = strings.TrimSuffix(cfg.S3Endpoint, "/") + "/" + cfg.KycBucket
	}

	ttl := time.Duration(cfg.UploadURLTTLSeconds) * time.Second
	return NewDocumentStore(s3.NewPresignClient(client), cfg.KycBucket, baseURL, ttl), nil
}

// PresignUpload returns a PUT URL for one document of a user.
func (s *DocumentStore) PresignUpload(ctx context.Context, userID string, kind DocumentKind, contentType string) (*UploadURL, error) {
	if s == nil || s.presigner == nil {
		return nil, ErrStorageDisabled
	}
	ext, ok := allowedContentTypes[strings.ToLower(contentType)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, contentType)
	}

	key := fmt.Sprintf("kyc/%s/%s/%s%s", userID, kind, uuid.NewString(), ext)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"user-id":       userID,
			"document-kind": string(kind),
		},
	}

	req, err := s.presigner.PresignPutObject(ctx, input, func(o *s3.PresignOptions) { o.Expires = s.ttl })
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &UploadURL{
		URL:       req.URL,
		Key:       key,
		ObjectURL: s.baseURL + "/" + key,
		ExpiresAt: time.Now().Add(s.ttl).UTC(),
	}, nil
}
