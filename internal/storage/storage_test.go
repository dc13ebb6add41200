package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	input   *s3.PutObjectInput
	expires time.Duration
	err     error
}

func (f *fakePresigner) PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	opts := &s3.PresignOptions{}
	for _, fn := range optFns {
		fn(opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://signed.example/" + *params.Key, Method: "PUT"}, nil
}

func TestPresignUpload(t *testing.T) {
	presigner := &fakePresigner{}
	store := NewDocumentStore(presigner, "kyc-docs", "https://cdn.example/", 10*time.Minute)

	upload, err := store.PresignUpload(context.Background(), "user-1", DocumentSelfie, "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(upload.Key, "kyc/user-1/selfie/"))
	assert.True(t, strings.HasSuffix(upload.Key, ".png"))
	assert.Equal(t, "https://cdn.example/"+upload.Key, upload.ObjectURL)
	assert.Equal(t, "kyc-docs", *presigner.input.Bucket)
	assert.Equal(t, "selfie", presigner.input.Metadata["document-kind"])
	assert.Equal(t, 10*time.Minute, presigner.expires)
}

func TestPresignUploadRejectsUnknownMediaType(t *testing.T) {
	store := NewDocumentStore(&fakePresigner{}, "kyc-docs", "", 0)

	_, err := store.PresignUpload(context.Background(), "user-1", DocumentBankProof, "text/html")
	assert.ErrorIs(t, err, ErrUnsupportedMediaType)
}

func TestPresignUploadWrapsPresignerError(t *testing.T) {
	boom := errors.New("boom")
	store := NewDocumentStore(&fakePresigner{err: boom}, "kyc-docs", "", 0)

	_, err := store.PresignUpload(context.Background(), "user-1", DocumentBankProof, "application/pdf")
	assert.ErrorIs(t, err, boom)
}

func TestNilStoreIsDisabled(t *testing.T) {
	var store *DocumentStore
	_, err := store.PresignUpload(context.Background(), "user-1", DocumentSelfie, "image/png")
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

func TestParseDocumentKind(t *testing.T) {
	kind, err := ParseDocumentKind(" Identity_Proof ")
	require.NoError(t, err)
	assert.Equal(t, DocumentIdentityProof, kind)

	_, err = ParseDocumentKind("passport")
	assert.ErrorIs(t, err, ErrUnknownDocumentKind)
}
