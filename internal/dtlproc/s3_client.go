package dtlproc

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Object represents an object in an S3 bucket.
type S3Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"last_modified"`
}

// ListObjectsPage is one page of a bucket listing.
type ListObjectsPage struct {
	Objects               []S3Object
	NextContinuationToken string
	IsTruncated           bool
}

// S3Client defines the S3 operations the fetcher needs; tests substitute
// a mock.
type S3Client interface {
	ListObjectsV2(ctx context.Context, bucket, prefix, continuationToken string) (*ListObjectsPage, error)
	DownloadFile(ctx context.Context, bucket, key, localPath string) error
}

// AWSS3Client is the concrete S3Client backed by the AWS SDK.
type AWSS3Client struct {
	client *s3.Client
}

// NewAWSS3Client creates an S3 client using the default credential
// chain (environment variables, IAM roles, profiles).
func NewAWSS3Client(ctx context.Context, region string) (*AWSS3Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithRetryMaxAttempts(3),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSS3Client{client: s3.NewFromConfig(cfg)}, nil
}

// ListObjectsV2 lists one page of objects under prefix.
func (c *AWSS3Client) ListObjectsV2(ctx context.Context, bucket, prefix, continuationToken string) (*ListObjectsPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if continuationToken != "" {
		input.ContinuationToken = aws.String(continuationToken)
	}

	result, err := c.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects in bucket %s: %w", bucket, err)
	}

	objects := make([]S3Object, len(result.Contents))
	for i, obj := range result.Contents {
		objects[i] = S3Object{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			ETag:         aws.ToString(obj.ETag),
			LastModified: aws.ToTime(obj.LastModified),
		}
	}

	page := &ListObjectsPage{
		Objects:     objects,
		IsTruncated: aws.ToBool(result.IsTruncated),
	}
	if result.NextContinuationToken != nil {
		page.NextContinuationToken = aws.ToString(result.NextContinuationToken)
	}
	return page, nil
}

// DownloadFile streams one object to localPath.
func (c *AWSS3Client) DownloadFile(ctx context.Context, bucket, key, localPath string) error {
	result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer result.Body.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create local directory for %s: %w", key, err)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, result.Body); err != nil {
		return fmt.Errorf("failed to download object %s: %w", key, err)
	}
	return nil
}
