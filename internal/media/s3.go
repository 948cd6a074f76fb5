package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Uploader writes every logical bucket as a key prefix of one S3 bucket.
type S3Uploader struct {
	client   *s3.Client
	bucket   string
	region   string
	endpoint string
}

// S3Options configure NewS3Uploader. Endpoint is optional and switches to
// path-style addressing for S3-compatible stores.
type S3Options struct {
	Bucket   string
	Region   string
	Endpoint string
}

// NewS3Uploader loads AWS credentials from the default chain.
func NewS3Uploader(ctx context.Context, opts S3Options, loadOpts ...func(*awsconfig.LoadOptions) error) (*S3Uploader, error) {
	loadOpts = append([]func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}, loadOpts...)
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{
		client:   client,
		bucket:   opts.Bucket,
		region:   opts.Region,
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
	}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, bucket, name string, data []byte, contentType string) (string, error) {
	key := bucket + "/" + name
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return u.publicURL(key), nil
}

func (u *S3Uploader) publicURL(key string) string {
	if u.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", u.endpoint, u.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
}
