package gcs

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// NewClient connects to Google Cloud Storage and verifies that bucket is
// reachable. An empty credentialsFile falls back to application default
// credentials.
func NewClient(ctx context.Context, credentialsFile, bucket string) (*storage.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect google cloud storage: %w", err)
	}

	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		client.Close() //nolint:errcheck
		return nil, fmt.Errorf("access bucket %s: %w", bucket, err)
	}
	return client, nil
}
