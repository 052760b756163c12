package destination

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/s3blob" // S3 driver
)

// BucketConfig configures the remote object store.
type BucketConfig struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Endpoint string `yaml:"endpoint"` // custom endpoint for B2/MinIO/R2
	Region   string `yaml:"region"`
}

// Bucket is an ObjectStore backed by S3-compatible storage.
// Works with AWS S3, Backblaze B2, Cloudflare R2, and MinIO.
type Bucket struct {
	bucket *blob.Bucket
	prefix string
}

// OpenBucket opens the configured bucket.
func OpenBucket(ctx context.Context, cfg BucketConfig) (*Bucket, error) {
	bucketURL := fmt.Sprintf("s3://%s", cfg.Bucket)

	params := url.Values{}
	if cfg.Region != "" {
		params.Set("region", cfg.Region)
	}
	if cfg.Endpoint != "" {
		params.Set("endpoint", cfg.Endpoint)
		params.Set("s3ForcePathStyle", "true")
	}
	if len(params) > 0 {
		bucketURL = bucketURL + "?" + params.Encode()
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", cfg.Bucket, err)
	}

	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &Bucket{bucket: bucket, prefix: prefix}, nil
}

// Put writes data at key with the given object metadata.
func (b *Bucket) Put(ctx context.Context, key string, data []byte, opts PutOptions) error {
	w, err := b.bucket.NewWriter(ctx, b.prefix+key, &blob.WriterOptions{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	})
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", key, err)
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}

	return nil
}

// Close releases the bucket connection.
func (b *Bucket) Close() error {
	if b.bucket != nil {
		return b.bucket.Close()
	}
	return nil
}
