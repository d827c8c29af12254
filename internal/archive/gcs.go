package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// GCSArchiver archives statements to a Google Cloud Storage bucket.
// It assumes Application Default Credentials are configured.
type GCSArchiver struct {
	client *storage.Client
	bucket string
}

// NewGCSArchiver creates a storage client for the bucket.
func NewGCSArchiver(ctx context.Context, bucket string) (*GCSArchiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewGCSArchiver: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSArchiver: create storage client: %w", err)
	}
	return &GCSArchiver{client: client, bucket: bucket}, nil
}

// Archive implements Archiver.
func (a *GCSArchiver) Archive(ctx context.Context, key, contentType string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Archive: copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Archive: finalize upload: %w", err)
	}
	return "gs://" + a.bucket + "/" + key, nil
}

// Fetch downloads an archived object by its gs:// URI.
func (a *GCSArchiver) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}

	rc, err := a.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

// Close closes the storage client.
func (a *GCSArchiver) Close() error {
	return a.client.Close()
}

// ParseGCSURI splits gs://bucket/path/to/object into bucket and object path.
func ParseGCSURI(uri string) (string, string, error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}
