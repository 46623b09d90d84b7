package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// S3Options configures an S3-compatible bucket.
type S3Options struct {
	Bucket          string `mapstructure:"-"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// GCSOptions configures a Cloud Storage bucket reached through its
// S3-compatible XML API with HMAC keys. Empty keys fall back to the AWS
// default credential chain, which reads AWS_ACCESS_KEY_ID and
// AWS_SECRET_ACCESS_KEY.
type GCSOptions struct {
	Bucket          string `mapstructure:"-"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"hmac_access_id"`
	SecretAccessKey string `mapstructure:"hmac_secret"`
}

// DefaultGCSEndpoint is the XML API endpoint for Cloud Storage.
const DefaultGCSEndpoint = "https://storage.googleapis.com"

// S3Store stores objects in an S3-compatible bucket. It also serves
// Cloud Storage, which only differs in URI scheme and in how a write-once
// precondition is expressed.
type S3Store struct {
	client *s3.Client
	bucket string
	scheme string
	// createOnly adds the backend's "must not exist" precondition to a put.
	createOnly func(*s3.PutObjectInput) []func(*s3.Options)
}

// NewS3Store creates a store for an S3 bucket.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = "us-east-1"
	}
	client, err := newS3Client(ctx, opts.Bucket, region, opts.Endpoint, opts.AccessKeyID, opts.SecretAccessKey, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
	})
	if err != nil {
		return nil, err
	}
	return &S3Store{
		client: client,
		bucket: opts.Bucket,
		scheme: "s3",
		createOnly: func(in *s3.PutObjectInput) []func(*s3.Options) {
			in.IfNoneMatch = aws.String("*")
			return nil
		},
	}, nil
}

// NewGCSStore creates a store for a Cloud Storage bucket.
func NewGCSStore(ctx context.Context, opts GCSOptions) (*S3Store, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultGCSEndpoint
	}
	client, err := newS3Client(ctx, opts.Bucket, "auto", endpoint, opts.AccessKeyID, opts.SecretAccessKey, func(o *s3.Options) {
		o.UsePathStyle = true
		// Cloud Storage rejects the flexible checksum headers.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	if err != nil {
		return nil, err
	}
	return &S3Store{
		client: client,
		bucket: opts.Bucket,
		scheme: "gs",
		createOnly: func(*s3.PutObjectInput) []func(*s3.Options) {
			return []func(*s3.Options){func(o *s3.Options) {
				o.APIOptions = append(o.APIOptions, smithyhttp.SetHeaderValue("x-goog-if-generation-match", "0"))
			}}
		},
	}, nil
}

func newS3Client(ctx context.Context, bucket, region, endpoint, keyID, secret string, optFns ...func(*s3.Options)) (*s3.Client, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("storage: bucket is required")
	}

	loadOptions := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if keyID != "" && secret != "" {
		loadOptions = append(loadOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(keyID, secret, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	endpoint = strings.TrimSpace(endpoint)
	return s3.NewFromConfig(awsCfg, append([]func(*s3.Options){func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}}, optFns...)...), nil
}

// Upload puts r at key with a create-only precondition.
func (s *S3Store) Upload(ctx context.Context, key string, r io.Reader) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType(key)),
	}
	_, err := s.client.PutObject(ctx, input, s.createOnly(input)...)
	if err != nil {
		if isPreconditionFailed(err) {
			return "", fmt.Errorf("%w: %s", ErrAlreadyExists, s.URI(key))
		}
		return "", uploadFailed(key, err)
	}
	return s.URI(key), nil
}

// Exists issues a HEAD request for key.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && strings.EqualFold(apiErr.ErrorCode(), "NotFound") {
		return false, nil
	}
	return false, fmt.Errorf("storage: head %s: %w", key, err)
}

// List pages through ListObjectsV2.
func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// URI returns s3://bucket/key or gs://bucket/key.
func (s *S3Store) URI(key string) string {
	return fmt.Sprintf("%s://%s/%s", s.scheme, s.bucket, key)
}

// Close releases resources.
func (s *S3Store) Close() error {
	return nil
}

func isPreconditionFailed(err error) bool {
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusPreconditionFailed {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed"
}

func contentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".jsonl"):
		return "application/jsonl"
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
