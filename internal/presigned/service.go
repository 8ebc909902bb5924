package presigned

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// objectClient is the subset of minio.Client the issuer relies on.
type objectClient interface {
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Service issues scoped, time-limited URLs against the media bucket and
// answers existence/size queries for the commit flow. It holds no state;
// every call is independent and safe to retry.
type Service struct {
	client    objectClient
	bucket    string
	uploadTTL time.Duration
	readTTL   time.Duration
}

// NewService constructs a signed URL issuer.
func NewService(client objectClient, bucket string, uploadTTL, readTTL time.Duration) *Service {
	return &Service{
		client:    client,
		bucket:    bucket,
		uploadTTL: uploadTTL,
		readTTL:   readTTL,
	}
}

// AccountNamespace returns the object path prefix every object belonging to
// the account must live under.
func AccountNamespace(accountID uuid.UUID) string {
	return fmt.Sprintf("accounts/%s/", accountID)
}

// IssueUploadURL produces a write-only URL for the object path, valid for the
// upload window. The path must lie inside the account's namespace.
func (s *Service) IssueUploadURL(ctx context.Context, accountID uuid.UUID, objectPath string) (string, time.Time, error) {
	if err := s.authorizePath(accountID, objectPath); err != nil {
		return "", time.Time{}, err
	}

	u, err := s.client.PresignedPutObject(ctx, s.bucket, objectPath, s.uploadTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign put: %w", err)
	}

	return u.String(), time.Now().Add(s.uploadTTL), nil
}

// IssueReadURL produces a read-only URL for the object path, valid for the
// longer read window. No quota interaction.
func (s *Service) IssueReadURL(ctx context.Context, accountID uuid.UUID, objectPath string) (string, time.Time, error) {
	if err := s.authorizePath(accountID, objectPath); err != nil {
		return "", time.Time{}, err
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectPath, s.readTTL, url.Values{})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign get: %w", err)
	}

	return u.String(), time.Now().Add(s.readTTL), nil
}

// StatObject returns the stored size of the object, or ErrObjectMissing.
func (s *Service) StatObject(ctx context.Context, objectPath string) (int64, error) {
	info, err := s.client.StatObject(ctx, s.bucket, objectPath, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return 0, ErrObjectMissing
		}
		return 0, fmt.Errorf("stat object: %w", err)
	}
	return info.Size, nil
}

// ObjectExists reports whether an object is present at the path.
func (s *Service) ObjectExists(ctx context.Context, objectPath string) (bool, error) {
	_, err := s.StatObject(ctx, objectPath)
	if err != nil {
		if err == ErrObjectMissing {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RemoveObject deletes the object. Removing a non-existent object is not an error.
func (s *Service) RemoveObject(ctx context.Context, objectPath string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectPath, minio.RemoveObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func (s *Service) authorizePath(accountID uuid.UUID, objectPath string) error {
	prefix := AccountNamespace(accountID)
	if !strings.HasPrefix(objectPath, prefix) || strings.Contains(objectPath, "..") {
		return ErrPathOutsideNamespace
	}
	return nil
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}
