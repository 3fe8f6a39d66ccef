package media

import (
	"context"
	"io"
	"time"
)

type ObjectInfo struct {
	Exists     bool
	Size       int64
	ModifiedAt time.Time
}

// AWSRepository is the object-store gateway. Keys are namespaced per media
// unit, so concurrent workers never write the same key for different jobs.
type AWSRepository interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error)
	UploadFile(ctx context.Context, bucket, key, localPath string) (string, error)
	// UploadDir uploads every regular file below localDir, preserving the
	// relative layout under keyPrefix.
	UploadDir(ctx context.Context, bucket, keyPrefix, localDir string) error
	Download(ctx context.Context, bucket, key, localPath string) error
	Exists(ctx context.Context, bucket, key string) (*ObjectInfo, error)
	PresignedDownloadURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, bucket, key string) error
}
