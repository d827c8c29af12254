package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the part of the S3 client used for archiving.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver archives statements to an S3 bucket.
type S3Archiver struct {
	client ObjectPutter
	bucket string
}

// NewS3Archiver loads the default AWS configuration for the region.
func NewS3Archiver(ctx context.Context, bucket, region string) (*S3Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewS3Archiver: bucket is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("NewS3Archiver: load AWS config: %w", err)
	}
	return NewS3ArchiverWithClient(s3.NewFromConfig(cfg), bucket), nil
}

// NewS3ArchiverWithClient creates an archiver over an existing client.
func NewS3ArchiverWithClient(client ObjectPutter, bucket string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket}
}

// Archive implements Archiver.
func (a *S3Archiver) Archive(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("Archive: upload to s3 (bucket %s, key %s): %w", a.bucket, key, err)
	}
	return "s3://" + a.bucket + "/" + key, nil
}
