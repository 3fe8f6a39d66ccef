package media

import (
	"context"
	"time"

	"github.com/streamvault/media-pipeline/internal/models"
)

// QueueRepository is the durable at-least-once FIFO shared by both pipelines
// plus the progress fan-out channel. Pop atomicity is the only
// concurrency-control point between worker instances.
type QueueRepository interface {
	EnqueueEncodeJob(ctx context.Context, job *models.EncodeJob) error
	// DequeueEncodeJob block-pops for up to timeout and returns (nil, nil)
	// when the queue stayed empty.
	DequeueEncodeJob(ctx context.Context, timeout time.Duration) (*models.EncodeJob, error)

	EnqueueSubtitleJob(ctx context.Context, job *models.SubtitleJob) error
	DequeueSubtitleJob(ctx context.Context, timeout time.Duration) (*models.SubtitleJob, error)

	QueueDepth(ctx context.Context, queueKey string) (int64, error)

	PublishProgress(ctx context.Context, event *models.ProgressEvent) error
	SubscribeProgress(ctx context.Context) (<-chan *models.ProgressEvent, error)
}
