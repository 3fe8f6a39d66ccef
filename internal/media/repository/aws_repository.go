package repository

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"

	"github.com/streamvault/media-pipeline/internal/media"
)

type awsRepository struct {
	client        *s3.Client
	preSignClient *s3.PresignClient
	endpoint      string
}

func NewAwsRepository(awsClient *s3.Client, preSignClient *s3.PresignClient, endpoint string) media.AWSRepository {
	return &awsRepository{
		client:        awsClient,
		preSignClient: preSignClient,
		endpoint:      strings.TrimRight(endpoint, "/"),
	}
}

func contentTypeForFile(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".mp4", ".m4s":
		return "video/mp4"
	case ".srt":
		return "application/x-subrip"
	case ".vtt":
		return "text/vtt"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

func (a *awsRepository) publicURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", a.endpoint, bucket, key)
}

func (a *awsRepository) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error) {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        body,
		ContentType: &contentType,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload %q", key)
	}
	return a.publicURL(bucket, key), nil
}

func (a *awsRepository) UploadFile(ctx context.Context, bucket, key, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %q", localPath)
	}
	defer file.Close()
	return a.Upload(ctx, bucket, key, file, contentTypeForFile(localPath))
}

func (a *awsRepository) UploadDir(ctx context.Context, bucket, keyPrefix, localDir string) error {
	return filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		key := path.Join(keyPrefix, filepath.ToSlash(rel))
		if _, err := a.UploadFile(ctx, bucket, key, p); err != nil {
			return err
		}
		return nil
	})
}

func (a *awsRepository) Download(ctx context.Context, bucket, key, localPath string) error {
	res, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to download %q", key)
	}
	defer res.Body.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return errors.Wrap(err, "failed to create download directory")
	}
	outFile, err := os.Create(localPath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", localPath)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, res.Body); err != nil {
		return errors.Wrapf(err, "failed to write %q", localPath)
	}
	return nil
}

func (a *awsRepository) Exists(ctx context.Context, bucket, key string) (*media.ObjectInfo, error) {
	res, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return &media.ObjectInfo{Exists: false}, nil
		}
		return nil, errors.Wrapf(err, "failed to head %q", key)
	}
	info := &media.ObjectInfo{Exists: true}
	if res.ContentLength != nil {
		info.Size = *res.ContentLength
	}
	if res.LastModified != nil {
		info.ModifiedAt = *res.LastModified
	}
	return info, nil
}

func (a *awsRepository) PresignedDownloadURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	req, err := a.preSignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", errors.Wrapf(err, "failed to presign get object %q", key)
	}
	return req.URL, nil
}

func (a *awsRepository) Remove(ctx context.Context, bucket, key string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to remove %q", key)
	}
	return nil
}
