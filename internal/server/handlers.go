package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/streamvault/media-pipeline/internal/config"
	"github.com/streamvault/media-pipeline/internal/media"
	"github.com/streamvault/media-pipeline/internal/media/repository"
	"github.com/streamvault/media-pipeline/internal/models"
	"github.com/streamvault/media-pipeline/pkg/logger"
)

func (s *Server) MapHandlers(e *echo.Echo) error {
	mediaRepo := repository.NewMediaRepo(s.db)
	queueRepo := repository.NewQueueRepo(s.redisClient, s.cfg, s.logger)

	h := &opsHandler{
		cfg:    s.cfg,
		repo:   mediaRepo,
		queue:  queueRepo,
		logger: s.logger,
	}

	v1 := e.Group("/api/v1")
	v1.GET("/health", h.Health)
	v1.GET("/pipeline/status", h.PipelineStatus)
	v1.POST("/media/:media_id/retry", h.RetryEncode)
	return nil
}

type opsHandler struct {
	cfg    *config.Config
	repo   media.Repository
	queue  media.QueueRepository
	logger logger.Logger
}

type pipelineStatusResponse struct {
	Media     *models.StatusCounts          `json:"media"`
	Subtitles map[models.SubtitleStatus]int `json:"subtitles"`
	Queues    map[string]int64              `json:"queues"`
}

func (h *opsHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
}

// PipelineStatus serves the per-bucket job counts operational dashboards
// poll: persisted record states plus live queue depths.
func (h *opsHandler) PipelineStatus(c echo.Context) error {
	ctx := c.Request().Context()

	mediaCounts, err := h.repo.MediaStatusCounts(ctx)
	if err != nil {
		h.logger.Errorf("failed to load media status counts: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "status counts unavailable"})
	}
	subtitleCounts, err := h.repo.SubtitleStatusCounts(ctx)
	if err != nil {
		h.logger.Errorf("failed to load subtitle status counts: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "status counts unavailable"})
	}

	queues := make(map[string]int64, 2)
	for _, key := range []string{h.cfg.Redis.EncodeQueueKey, h.cfg.Redis.SubtitleQueueKey} {
		depth, err := h.queue.QueueDepth(ctx, key)
		if err != nil {
			h.logger.Errorf("failed to read depth of %q: %v", key, err)
			continue
		}
		queues[key] = depth
	}

	return c.JSON(http.StatusOK, &pipelineStatusResponse{
		Media:     mediaCounts,
		Subtitles: subtitleCounts,
		Queues:    queues,
	})
}

// RetryEncode is the manual failed/stuck-processing -> pending transition:
// reset the record, then push a fresh job for the same source.
func (h *opsHandler) RetryEncode(c echo.Context) error {
	ctx := c.Request().Context()

	mediaID, err := uuid.Parse(c.Param("media_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid media id"})
	}

	if err := h.repo.ResetMediaForRetry(ctx, mediaID); err != nil {
		if err == media.ErrNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "media unit not found"})
		}
		h.logger.Errorf("retry reset failed for %s: %v", mediaID, err)
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}

	unit, err := h.repo.GetMediaByID(ctx, mediaID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to reload media unit"})
	}

	job := &models.EncodeJob{
		JobID:       uuid.NewString(),
		MediaID:     mediaID.String(),
		SourceKey:   unit.SourceKey,
		RequestedAt: time.Now(),
	}
	if err := h.queue.EnqueueEncodeJob(ctx, job); err != nil {
		h.logger.Errorf("failed to enqueue retry job for %s: %v", mediaID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to enqueue job"})
	}

	h.logger.Infof("requeued encode for media %s as job %s", mediaID, job.JobID)
	return c.JSON(http.StatusAccepted, job)
}
