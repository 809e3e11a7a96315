package storage

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"APKBackup/internal/config"
	apperrors "APKBackup/internal/errors"
)

// NewClient builds an S3 client from the AWS section of the configuration.
// A named profile wins over static keys; with neither the call fails.
func NewClient(ctx context.Context, cfg config.AWSConfig) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	switch {
	case cfg.Profile != "":
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	case cfg.HasStaticCredentials():
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	default:
		return nil, apperrors.StorageError(apperrors.CodeStorageCredentials,
			"an AWS profile or access key, secret key and region are required", nil).
			WithModule(module).
			WithOperation("NewClient")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeStorageCredentials, "failed to load AWS configuration", err).
			WithModule(module).
			WithOperation("NewClient").
			WithField("profile", cfg.Profile)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
