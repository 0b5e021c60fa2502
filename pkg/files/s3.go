package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Config configures the S3-compatible file service.
type S3Config struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	// Prefix is prepended to every object key.
	Prefix string `mapstructure:"prefix"`

	// PublicURL, when set, is the base under which the bucket is publicly
	// readable; download URLs are plain joins against it. When empty,
	// download URLs are presigned with PresignTTL.
	PublicURL  string        `mapstructure:"public_url"`
	PresignTTL time.Duration `mapstructure:"presign_ttl"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *S3Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.PresignTTL == 0 {
		c.PresignTTL = time.Hour
	}
}

// Validate checks if the configuration is valid.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("s3 bucket is required")
	}
	return nil
}

// S3Service is the S3-backed file service. Settings are immutable after
// construction.
type S3Service struct {
	client  *s3.Client
	presign *s3.PresignClient
	config  S3Config
}

// NewS3 builds the S3 file service. Static credentials are used when
// provided; otherwise the default credential chain applies.
func NewS3(ctx context.Context, config S3Config) (*S3Service, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}
	if config.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		o.UsePathStyle = config.UsePathStyle
	})

	return &S3Service{
		client:  client,
		presign: s3.NewPresignClient(client),
		config:  config,
	}, nil
}

func (s *S3Service) objectKey(key string) string {
	if s.config.Prefix == "" {
		return key
	}
	return path.Join(s.config.Prefix, key)
}

// isNotFoundError returns true if the error indicates the object doesn't exist.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound" || code == "404"
	}

	return strings.Contains(err.Error(), "StatusCode: 404")
}

// Write stores the content and returns its s3:// URI.
func (s *S3Service) Write(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	objectKey := s.objectKey(key)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(objectKey),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", objectKey, err)
	}

	return "s3://" + s.config.Bucket + "/" + objectKey, nil
}

// Read opens the object for streaming.
func (s *S3Service) Read(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("%s: %w", uri, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get object %s: %w", uri, err)
	}
	return result.Body, nil
}

// Exists checks object existence via a HEAD request.
func (s *S3Service) Exists(ctx context.Context, uri string) (bool, error) {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object %s: %w", uri, err)
	}
	return true, nil
}

// Stat returns object metadata via a HEAD request.
func (s *S3Service) Stat(ctx context.Context, uri string) (Info, error) {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return Info{}, err
	}

	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return Info{}, fmt.Errorf("%s: %w", uri, ErrNotFound)
		}
		return Info{}, fmt.Errorf("failed to head object %s: %w", uri, err)
	}

	info := Info{ContentType: aws.ToString(result.ContentType)}
	if result.ContentLength != nil {
		info.Size = *result.ContentLength
	}
	return info, nil
}

// Delete removes the object. S3 delete is idempotent.
func (s *S3Service) Delete(ctx context.Context, uri string) error {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return err
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", uri, err)
	}
	return nil
}

// DownloadURL returns a fetchable URL for the object: a public base URL join
// when configured, a presigned link otherwise.
func (s *S3Service) DownloadURL(ctx context.Context, uri string) (string, error) {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return "", err
	}

	if s.config.PublicURL != "" {
		return strings.TrimSuffix(s.config.PublicURL, "/") + "/" + key, nil
	}

	presigned, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.config.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", uri, err)
	}
	return presigned.URL, nil
}
