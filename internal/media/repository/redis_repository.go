package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/streamvault/media-pipeline/internal/config"
	"github.com/streamvault/media-pipeline/internal/media"
	"github.com/streamvault/media-pipeline/internal/models"
	"github.com/streamvault/media-pipeline/pkg/logger"
)

// queueRepo implements the at-least-once job queue (LPUSH/BRPOP per topic)
// and the progress fan-out (PUBLISH/SUBSCRIBE). BRPOP delivers each payload
// to exactly one popper, which is the only cross-worker coordination the
// pipeline needs.
type queueRepo struct {
	redisClient *redis.Client
	cfg         *config.Config
	logger      logger.Logger
}

func NewQueueRepo(redisClient *redis.Client, cfg *config.Config, logger logger.Logger) media.QueueRepository {
	return &queueRepo{
		redisClient: redisClient,
		cfg:         cfg,
		logger:      logger,
	}
}

func (q *queueRepo) EnqueueEncodeJob(ctx context.Context, job *models.EncodeJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal encode job: %w", err)
	}
	return q.redisClient.LPush(ctx, q.cfg.Redis.EncodeQueueKey, payload).Err()
}

func (q *queueRepo) DequeueEncodeJob(ctx context.Context, timeout time.Duration) (*models.EncodeJob, error) {
	res, err := q.redisClient.BRPop(ctx, timeout, q.cfg.Redis.EncodeQueueKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop encode job: %w", err)
	}
	job := &models.EncodeJob{}
	if err := json.Unmarshal([]byte(res[1]), job); err != nil {
		return nil, fmt.Errorf("error unmarshalling encode job: %w", err)
	}
	return job, nil
}

func (q *queueRepo) EnqueueSubtitleJob(ctx context.Context, job *models.SubtitleJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal subtitle job: %w", err)
	}
	return q.redisClient.LPush(ctx, q.cfg.Redis.SubtitleQueueKey, payload).Err()
}

func (q *queueRepo) DequeueSubtitleJob(ctx context.Context, timeout time.Duration) (*models.SubtitleJob, error) {
	res, err := q.redisClient.BRPop(ctx, timeout, q.cfg.Redis.SubtitleQueueKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop subtitle job: %w", err)
	}
	job := &models.SubtitleJob{}
	if err := json.Unmarshal([]byte(res[1]), job); err != nil {
		return nil, fmt.Errorf("error unmarshalling subtitle job: %w", err)
	}
	return job, nil
}

func (q *queueRepo) QueueDepth(ctx context.Context, queueKey string) (int64, error) {
	depth, err := q.redisClient.LLen(ctx, queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return depth, nil
}

func (q *queueRepo) PublishProgress(ctx context.Context, event *models.ProgressEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal progress event: %w", err)
	}
	return q.redisClient.Publish(ctx, q.cfg.Redis.ProgressChannel, payload).Err()
}

func (q *queueRepo) SubscribeProgress(ctx context.Context) (<-chan *models.ProgressEvent, error) {
	pubsub := q.redisClient.Subscribe(ctx, q.cfg.Redis.ProgressChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to progress channel: %w", err)
	}

	events := make(chan *models.ProgressEvent)
	go func() {
		defer close(events)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				event := &models.ProgressEvent{}
				if err := json.Unmarshal([]byte(msg.Payload), event); err != nil {
					q.logger.Errorf("error unmarshalling progress event: %v", err)
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}
