// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"arena-battle-system/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the slice of the S3 API the R2 bucket uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2Bucket uploads objects to one Cloudflare R2 bucket and returns public URLs.
type R2Bucket struct {
	client     ObjectPutter
	bucket     string
	cdnBaseURL string
}

// InitR2 builds an R2 bucket client from config.
func InitR2(ctx context.Context, cfg config.R2Config) (*R2Bucket, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return NewR2Bucket(client, cfg.Bucket, cfg.CDNBaseURL, endpoint), nil
}

// NewR2Bucket wraps an existing client. An empty cdnBaseURL falls back to
// the bucket endpoint.
func NewR2Bucket(client ObjectPutter, bucket, cdnBaseURL, endpoint string) *R2Bucket {
	if cdnBaseURL == "" {
		cdnBaseURL = endpoint
	}
	return &R2Bucket{
		client:     client,
		bucket:     bucket,
		cdnBaseURL: strings.TrimRight(cdnBaseURL, "/"),
	}
}

// UploadBytes uploads data under key and returns the public URL.
// key is the R2 object key (e.g., "battles/neon-grave-<id>.json")
func (b *R2Bucket) UploadBytes(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	// ✅ Return public CDN URL (prefer your custom CDN if set)
	return fmt.Sprintf("%s/%s", b.cdnBaseURL, key), nil
}
