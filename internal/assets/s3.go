package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"photodock/internal/config"
	"photodock/internal/services"
)

// S3Store stores photos in an S3-compatible bucket.
type S3Store struct {
	client     *minio.Client
	bucket     string
	region     string
	publicBase string
}

// NewS3Store connects to the configured endpoint and makes sure the bucket
// exists.
func NewS3Store(ctx context.Context, cfg config.Assets) (*S3Store, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "assets", "connect", "assets.endpoint is required", nil)
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "assets", "connect", "s3 credentials are required", nil)
	}

	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			useSSL = true
		}
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "assets", "connect", "create s3 client", err)
	}

	store := &S3Store{
		client:     client,
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		publicBase: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// EnsureBucket creates the bucket when missing.
func (s *S3Store) EnsureBucket(ctx context.Context) error {
	if s.bucket == "" {
		return services.Wrap(services.ErrConfiguration, "assets", "ensure bucket", "assets.bucket is required", nil)
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return classifyMinioError("ensure bucket", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return classifyMinioError("make bucket", err)
	}
	return nil
}

// Ping verifies the bucket is reachable.
func (s *S3Store) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return classifyMinioError("ping", err)
	}
	if !exists {
		return services.Wrap(services.ErrNotFound, "assets", "ping", fmt.Sprintf("bucket %q does not exist", s.bucket), nil)
	}
	return nil
}

// Upload stores req under a fresh object key.
func (s *S3Store) Upload(ctx context.Context, req UploadRequest) (Asset, error) {
	if len(req.Content) == 0 {
		return Asset{}, services.Wrap(services.ErrUpload, "assets", "put object", "empty content", nil)
	}
	key := ObjectKey(req)
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(req.Content), int64(len(req.Content)), minio.PutObjectOptions{
		ContentType:  req.ContentType,
		UserMetadata: req.Metadata(),
	})
	if err != nil {
		return Asset{}, classifyMinioError("put object", err)
	}
	return Asset{URL: s.objectURL(key), PublicID: key, Size: info.Size}, nil
}

// Delete removes the object identified by publicID.
func (s *S3Store) Delete(ctx context.Context, publicID string) error {
	if strings.TrimSpace(publicID) == "" {
		return services.Wrap(services.ErrValidation, "assets", "remove object", "public id is required", nil)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return classifyMinioError("remove object", err)
	}
	return nil
}

func (s *S3Store) objectURL(key string) string {
	if s.publicBase != "" {
		return s.publicBase + "/" + key
	}
	base := s.client.EndpointURL()
	return strings.TrimRight(base.String(), "/") + "/" + s.bucket + "/" + key
}

// classifyMinioError maps minio-go failures onto service markers.
func classifyMinioError(op string, err error) error {
	if err == nil {
		return nil
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "NoSuchBucket":
			return services.Wrap(services.ErrNotFound, "assets", op, "bucket not found", err)
		case "NoSuchKey":
			return services.Wrap(services.ErrNotFound, "assets", op, "object not found", err)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return services.Wrap(services.ErrConfiguration, "assets", op, "credentials rejected", err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "assets", op, "", err)
	}
	return services.Wrap(services.ErrUpload, "assets", op, "", err)
}
