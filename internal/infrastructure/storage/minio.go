// Package storage archives meeting recordings into object storage so the
// bot platform's short-lived media URLs are not the only copy.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/haidang-dev/meeting-insight/pkg/config"
)

// MinIOClient wraps MinIO operations for recording archival.
type MinIOClient struct {
	client    *minio.Client
	bucket    string
	publicURL string
	http      *http.Client
}

// NewMinIOClient creates a new MinIO client and ensures the archive bucket
// exists.
func NewMinIOClient(cfg *config.StorageConfig) (*MinIOClient, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	client := &MinIOClient{
		client:    minioClient,
		bucket:    cfg.BucketName,
		publicURL: cfg.PublicURL,
		http:      &http.Client{Timeout: 5 * time.Minute},
	}

	ctx := context.Background()
	if err := client.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return client, nil
}

func (m *MinIOClient) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// ArchiveFromURL streams the file at sourceURL into the archive bucket and
// returns the stored object's access URL. Re-archiving the same object name
// overwrites the previous copy.
func (m *MinIOClient) ArchiveFromURL(ctx context.Context, objectName, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("recording source returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}

	// ContentLength may be -1 for chunked responses; minio streams either way.
	_, err = m.client.PutObject(ctx, m.bucket, objectName, resp.Body, resp.ContentLength, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload recording: %w", err)
	}

	return m.objectURL(objectName), nil
}

// GetFileURL gets a presigned URL for accessing an archived file.
func (m *MinIOClient) GetFileURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	// When MinIO sits behind a reverse proxy, swap the internal endpoint for
	// the public one.
	if m.publicURL != "" {
		urlStr := url.String()
		bucketPos := len(url.Scheme) + 3 + len(url.Host)
		if bucketPos < len(urlStr) {
			return m.publicURL + urlStr[bucketPos:], nil
		}
	}

	return url.String(), nil
}

func (m *MinIOClient) objectURL(objectName string) string {
	if m.publicURL != "" {
		return strings.TrimSuffix(m.publicURL, "/") + "/" + m.bucket + "/" + objectName
	}
	return m.client.EndpointURL().String() + "/" + m.bucket + "/" + objectName
}
