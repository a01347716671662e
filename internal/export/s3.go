package export

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"orderdash/pkg/errors"
)

// S3Config holds the publish target. Credentials fall back to the default
// AWS chain when the static keys are empty.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional; set for MinIO or other S3-compatible stores
	Prefix          string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// S3Uploader publishes exports to a single bucket.
type S3Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Uploader creates an uploader from cfg. optFns are applied to the S3
// client options after cfg.
func NewS3Uploader(ctx context.Context, cfg S3Config, optFns ...func(*s3.Options)) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.ConfigError("S3 bucket required", "export.s3.bucket")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		for _, fn := range optFns {
			fn(o)
		}
	})

	return &S3Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Key joins the configured prefix and name
func (u *S3Uploader) Key(name string) string {
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

// Upload puts body under key (prefixed) and returns the s3:// location.
func (u *S3Uploader) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	fullKey := u.Key(key)
	input := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(fullKey),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := u.client.PutObject(ctx, input); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeUploadFailed, "Failed to upload export").
			WithContext("bucket", u.bucket).
			WithContext("key", fullKey).
			AsRecoverable()
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, fullKey), nil
}
