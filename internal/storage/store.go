// Package storage archives verified files in an S3 bucket. Objects are
// compared by ETag, which equals the MD5 of a single-part upload.
package storage

import (
	"context"
	stdErrors "errors"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials/ssocreds"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"APKBackup/internal/config"
	"APKBackup/internal/digest"
	apperrors "APKBackup/internal/errors"
	"APKBackup/internal/logger"
	"APKBackup/internal/retry"
)

const module = "storage"

var errETagMismatch = stdErrors.New("uploaded object checksum mismatch")

// Presence tells whether a remote object already holds the expected content.
type Presence string

const (
	PresenceCached  Presence = "Cached"
	PresenceMissing Presence = "Missing"
)

// UploadStatus is the upload outcome recorded in the audit report.
type UploadStatus string

const (
	UploadCached  UploadStatus = "Cached"
	UploadSuccess UploadStatus = "Success"
	UploadFailed  UploadStatus = "Failed"
	UploadLocal   UploadStatus = "Local"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store uploads files to one bucket and verifies them after each write.
type Store struct {
	client      S3API
	bucket      string
	maxAttempts int
	retryDelay  time.Duration
	profile     string
	logger      logger.Logger
}

// StoreOption customises Store construction.
type StoreOption func(*Store)

// WithProfile names the AWS profile behind the client, used in error hints.
func WithProfile(profile string) StoreOption {
	return func(s *Store) {
		s.profile = profile
	}
}

// NewStore wraps client for bucket using the upload limits in cfg.
func NewStore(client S3API, bucket string, cfg config.UploadConfig, log logger.Logger, opts ...StoreOption) *Store {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if log == nil {
		log = logger.NewStandardLogger()
	}
	s := &Store{
		client:      client,
		bucket:      bucket,
		maxAttempts: maxAttempts,
		retryDelay:  cfg.RetryDelay,
		logger:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bucket returns the target bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

// CheckAccess verifies that the bucket exists and is reachable with the
// configured credentials. Any failure here is fatal for the run.
func (s *Store) CheckAccess(ctx context.Context) error {
	if s.bucket == "" {
		return apperrors.StorageError(apperrors.CodeStorageBucket, "bucket name is empty", nil).
			WithModule(module).
			WithOperation("CheckAccess")
	}

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		s.logger.Info("Connected to bucket %s", s.bucket)
		return nil
	}

	var tokenErr *ssocreds.InvalidTokenError
	if stdErrors.As(err, &tokenErr) {
		return apperrors.StorageError(apperrors.CodeStorageCredentials,
			"unable to retrieve the SSO token, refresh it with: aws sso login --profile "+s.profileName(), err).
			WithModule(module).
			WithOperation("CheckAccess").
			WithField("bucket", s.bucket)
	}

	message := "bucket is not accessible"
	switch statusCode(err) {
	case http.StatusForbidden:
		message = "access to bucket denied"
	case http.StatusNotFound:
		message = "bucket does not exist"
	}
	return apperrors.StorageError(apperrors.CodeStorageBucket, message, err).
		WithModule(module).
		WithOperation("CheckAccess").
		WithField("bucket", s.bucket)
}

func (s *Store) profileName() string {
	if s.profile == "" {
		return "<profile>"
	}
	return s.profile
}

// Exists reports PresenceCached only when key exists and its ETag equals expected.
func (s *Store) Exists(ctx context.Context, key, expected string) (Presence, error) {
	etag, err := s.etag(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return PresenceMissing, nil
		}
		return PresenceMissing, apperrors.StorageError(apperrors.CodeStorageHead, "failed to inspect object", err).
			WithModule(module).
			WithOperation("Exists").
			WithRecoverable(true).
			WithFields(apperrors.Metadata{"bucket": s.bucket, "key": key})
	}

	if digest.Equal(etag, expected) {
		return PresenceCached, nil
	}
	return PresenceMissing, nil
}

// Upload writes localPath to key unless an identical object is already
// present, then verifies the stored ETag. Backend errors are logged and
// reported as UploadFailed.
func (s *Store) Upload(ctx context.Context, key, localPath, expected string) UploadStatus {
	presence, err := s.Exists(ctx, key, expected)
	if err != nil {
		s.logger.Error("Failed to check %s in bucket %s: %v", key, s.bucket, err)
		return UploadFailed
	}
	if presence == PresenceCached {
		s.logger.Info("File %s already exists in bucket %s", key, s.bucket)
		return UploadCached
	}

	err = retry.Constant(s.maxAttempts, s.retryDelay).Do(ctx, func(ctx context.Context, attempt int) error {
		if err := s.put(ctx, key, localPath); err != nil {
			s.logger.Error("Failed to upload %s to bucket %s: %v", key, s.bucket, err)
			return retry.Permanent(err)
		}

		etag, err := s.etag(ctx, key)
		if err != nil {
			s.logger.Error("Failed to verify %s in bucket %s: %v", key, s.bucket, err)
			return retry.Permanent(err)
		}

		if digest.Equal(etag, expected) {
			return nil
		}
		s.logger.Warn("Checksum mismatch after uploading %s (expected %s, got %s). Attempt %d/%d",
			key, digest.Normalize(expected), digest.Normalize(etag), attempt, s.maxAttempts)
		return errETagMismatch
	})
	if err != nil {
		return UploadFailed
	}

	s.logger.Info("Uploaded %s to bucket %s", key, s.bucket)
	return UploadSuccess
}

// UploadFile uploads localPath using its own digest as the expected ETag.
func (s *Store) UploadFile(ctx context.Context, key, localPath string) UploadStatus {
	sum, err := digest.File(localPath)
	if err != nil {
		s.logger.Error("Failed to checksum %s: %v", localPath, err)
		return UploadFailed
	}
	return s.Upload(ctx, key, localPath, sum)
}

func (s *Store) put(ctx context.Context, key, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
	})
	return err
}

func (s *Store) etag(ctx context.Context, key string) (string, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", err
	}
	return digest.Normalize(aws.ToString(out.ETag)), nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if stdErrors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if stdErrors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if stdErrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return statusCode(err) == http.StatusNotFound
}

func statusCode(err error) int {
	var respErr *awshttp.ResponseError
	if stdErrors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}
