package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamvault/media-pipeline/internal/config"
	"github.com/streamvault/media-pipeline/internal/media"
	"github.com/streamvault/media-pipeline/internal/models"
	"github.com/streamvault/media-pipeline/pkg/logger"
)

func newTestQueue(t *testing.T) (media.QueueRepository, *config.Config) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{
		Redis: config.RedisConfig{
			EncodeQueueKey:   "encode_jobs",
			SubtitleQueueKey: "subtitle_jobs",
			ProgressChannel:  "pipeline_progress",
		},
		Logger: config.Logger{Level: "error", Encoding: "console"},
	}

	log := logger.NewApiLogger(cfg)
	log.InitLogger()

	return NewQueueRepo(client, cfg, log), cfg
}

func TestEncodeQueueFIFO(t *testing.T) {
	queue, _ := newTestQueue(t)
	ctx := context.Background()

	first := &models.EncodeJob{JobID: uuid.NewString(), MediaID: uuid.NewString(), SourceKey: "raw/a.mp4"}
	second := &models.EncodeJob{JobID: uuid.NewString(), MediaID: uuid.NewString(), SourceKey: "raw/b.mp4"}

	require.NoError(t, queue.EnqueueEncodeJob(ctx, first))
	require.NoError(t, queue.EnqueueEncodeJob(ctx, second))

	got, err := queue.DequeueEncodeJob(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.JobID, got.JobID)
	assert.Equal(t, first.SourceKey, got.SourceKey)

	got, err = queue.DequeueEncodeJob(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.JobID, got.JobID)
}

func TestDequeueEmptyQueueReturnsNil(t *testing.T) {
	queue, _ := newTestQueue(t)

	got, err := queue.DequeueEncodeJob(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got, "an empty queue is not an error")
}

func TestSubtitleQueueRoundTrip(t *testing.T) {
	queue, _ := newTestQueue(t)
	ctx := context.Background()

	job := &models.SubtitleJob{
		JobID:          uuid.NewString(),
		SubtitleID:     uuid.NewString(),
		MediaID:        uuid.NewString(),
		SourceKey:      "raw/a.mp4",
		SourceLanguage: "auto",
		TargetLanguage: "en",
	}
	require.NoError(t, queue.EnqueueSubtitleJob(ctx, job))

	got, err := queue.DequeueSubtitleJob(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job, got)
}

func TestQueueDepth(t *testing.T) {
	queue, cfg := newTestQueue(t)
	ctx := context.Background()

	depth, err := queue.QueueDepth(ctx, cfg.Redis.EncodeQueueKey)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)

	for i := 0; i < 3; i++ {
		require.NoError(t, queue.EnqueueEncodeJob(ctx, &models.EncodeJob{JobID: uuid.NewString(), MediaID: uuid.NewString()}))
	}

	depth, err = queue.QueueDepth(ctx, cfg.Redis.EncodeQueueKey)
	require.NoError(t, err)
	assert.Equal(t, int64(3), depth)
}

func TestProgressPubSub(t *testing.T) {
	queue, _ := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := queue.SubscribeProgress(ctx)
	require.NoError(t, err)

	sent := &models.ProgressEvent{
		JobID:    uuid.NewString(),
		Kind:     models.JobKindEncode,
		Status:   string(models.EncodingStatusProcessing),
		Progress: 42,
	}
	require.NoError(t, queue.PublishProgress(ctx, sent))

	select {
	case got := <-events:
		require.NotNil(t, got)
		assert.Equal(t, sent.JobID, got.JobID)
		assert.Equal(t, 42, got.Progress)
		assert.False(t, got.Timestamp.IsZero(), "publish stamps the event")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for progress event")
	}
}

func TestPublishStampsTimestampOnce(t *testing.T) {
	queue, _ := newTestQueue(t)

	stamped := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	event := &models.ProgressEvent{JobID: uuid.NewString(), Kind: models.JobKindEncode, Timestamp: stamped}
	require.NoError(t, queue.PublishProgress(context.Background(), event))
	assert.Equal(t, stamped, event.Timestamp, "an explicit timestamp is preserved")
}
