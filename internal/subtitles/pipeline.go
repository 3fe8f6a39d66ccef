package subtitles

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/streamvault/media-pipeline/internal/config"
	"github.com/streamvault/media-pipeline/internal/media"
	"github.com/streamvault/media-pipeline/internal/models"
	"github.com/streamvault/media-pipeline/internal/pipeline"
	"github.com/streamvault/media-pipeline/internal/runner"
	"github.com/streamvault/media-pipeline/pkg/logger"
)

// Stage progress milestones. Transcription dominates wall-clock time.
const (
	progressExtracting   = 5
	progressExtracted    = 25
	progressTranscribing = 30
	progressTranscribed  = 55
	progressTranslating  = 60
	progressTranslated   = 85
	progressUploading    = 90
)

// Pipeline turns one subtitle job into a stored SubRip track: extract audio,
// transcribe, optionally translate, upload. Safe to share across worker
// goroutines; all per-job state lives in the Subtitle record and the scratch
// directory.
type Pipeline struct {
	cfg        *config.Config
	repo       media.Repository
	queue      media.QueueRepository
	store      media.AWSRepository
	run        runner.Runner
	translator Translator
	logger     logger.Logger
}

func NewPipeline(cfg *config.Config, repo media.Repository, queue media.QueueRepository, store media.AWSRepository, run runner.Runner, translator Translator, logger logger.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		repo:       repo,
		queue:      queue,
		store:      store,
		run:        run,
		translator: translator,
		logger:     logger,
	}
}

func (p *Pipeline) GenerateSubtitle(ctx context.Context, job *models.SubtitleJob) error {
	subtitleID, err := uuid.Parse(job.SubtitleID)
	if err != nil {
		return fmt.Errorf("invalid subtitle id %q: %w", job.SubtitleID, err)
	}
	mediaID, err := uuid.Parse(job.MediaID)
	if err != nil {
		return fmt.Errorf("invalid media id %q: %w", job.MediaID, err)
	}

	mono := &pipeline.Monotonic{}

	scratchDir := filepath.Join(p.cfg.Subtitle.ScratchDir, job.JobID)
	defer func() {
		if err := os.RemoveAll(scratchDir); err != nil {
			p.logger.Errorf("failed to clean scratch dir %s: %v", scratchDir, err)
		}
	}()

	p.stage(ctx, job.JobID, subtitleID, mono, models.SubtitleStatusExtracting, progressExtracting)

	sourcePath := filepath.Join(scratchDir, "source"+filepath.Ext(job.SourceKey))
	if err := p.store.Download(ctx, p.cfg.S3.InputBucket, job.SourceKey, sourcePath); err != nil {
		return p.fail(ctx, job, subtitleID, mono, fmt.Errorf("failed to download source %q: %w", job.SourceKey, err))
	}

	audioPath := filepath.Join(scratchDir, "audio.wav")
	winner, err := ExtractAudio(ctx, p.run, p.logger, ExtractInput{
		FFmpegBin:  p.cfg.Encoder.FFmpegBin,
		SourcePath: sourcePath,
		OutputPath: audioPath,
		SampleRate: p.cfg.Subtitle.SampleRate,
		MaxSeconds: p.cfg.Subtitle.MaxAudioSeconds,
	})
	if err != nil {
		return p.fail(ctx, job, subtitleID, mono, fmt.Errorf("audio extraction: %w", err))
	}
	if winner != ExtractStandard {
		p.logger.Warnf("subtitle job %s extracted audio via fallback strategy %q", job.JobID, winner)
	}
	p.stage(ctx, job.JobID, subtitleID, mono, models.SubtitleStatusExtracting, progressExtracted)

	p.stage(ctx, job.JobID, subtitleID, mono, models.SubtitleStatusTranscribing, progressTranscribing)
	sourceLang := NormalizeLanguage(job.SourceLanguage)
	segments, err := Transcribe(ctx, p.run,
		p.cfg.Subtitle.WhisperBin, p.cfg.Subtitle.WhisperModel,
		audioPath, filepath.Join(scratchDir, "transcript"), sourceLang)
	if err != nil {
		return p.fail(ctx, job, subtitleID, mono, err)
	}
	p.stage(ctx, job.JobID, subtitleID, mono, models.SubtitleStatusTranscribing, progressTranscribed)

	targetLang := NormalizeLanguage(job.TargetLanguage)
	if sourceLang == LanguageAuto {
		var all []string
		for _, seg := range segments {
			all = append(all, seg.Text)
		}
		sourceLang = DetectLanguage(strings.Join(all, "\n"))
		p.logger.Infof("subtitle job %s detected source language %q", job.JobID, sourceLang)
	}

	if sourceLang != targetLang {
		p.stage(ctx, job.JobID, subtitleID, mono, models.SubtitleStatusTranslating, progressTranslating)
		segments, err = TranslateSegments(ctx, p.translator, p.logger, segments,
			sourceLang, targetLang, p.cfg.Subtitle.Translator.BatchSize)
		if err != nil {
			return p.fail(ctx, job, subtitleID, mono, fmt.Errorf("translation: %w", err))
		}
		p.stage(ctx, job.JobID, subtitleID, mono, models.SubtitleStatusTranslating, progressTranslated)
	}

	p.stage(ctx, job.JobID, subtitleID, mono, models.SubtitleStatusUploading, progressUploading)

	unit, err := p.repo.GetMediaByID(ctx, mediaID)
	if err != nil {
		return p.fail(ctx, job, subtitleID, mono, fmt.Errorf("failed to load media unit: %w", err))
	}

	content := FormatSRT(segments)
	key := fmt.Sprintf("%s/%d/%s.srt", job.MediaID, unit.SequenceNumber, targetLang)
	trackURL, err := p.store.Upload(ctx, p.cfg.S3.OutputBucket, key, strings.NewReader(content), "application/x-subrip")
	if err != nil {
		return p.fail(ctx, job, subtitleID, mono, fmt.Errorf("failed to upload track: %w", err))
	}

	if err := p.repo.MarkSubtitleCompleted(ctx, subtitleID, content, trackURL); err != nil {
		return p.fail(ctx, job, subtitleID, mono, fmt.Errorf("failed to persist completion: %w", err))
	}
	if mono.Finish() {
		p.publish(ctx, &models.ProgressEvent{
			JobID:    job.JobID,
			Kind:     models.JobKindSubtitle,
			Status:   string(models.SubtitleStatusCompleted),
			Progress: 100,
		})
	}
	p.logger.Infof("subtitle job %s completed, track %s", job.JobID, trackURL)
	return nil
}

// stage persists the stage transition first, then publishes, so the UI never
// shows a stage the database has not reached.
func (p *Pipeline) stage(ctx context.Context, jobID string, subtitleID uuid.UUID, mono *pipeline.Monotonic, status models.SubtitleStatus, progress int) {
	v := mono.Next(progress)
	if v < 0 {
		return
	}
	if err := p.repo.UpdateSubtitleStage(ctx, subtitleID, status, v); err != nil {
		p.logger.Errorf("failed to persist stage %s for job %s: %v", status, jobID, err)
	}
	p.publish(ctx, &models.ProgressEvent{
		JobID:    jobID,
		Kind:     models.JobKindSubtitle,
		Status:   string(status),
		Progress: v,
	})
}

func (p *Pipeline) publish(ctx context.Context, event *models.ProgressEvent) {
	if err := p.queue.PublishProgress(ctx, event); err != nil {
		p.logger.Errorf("failed to publish progress event for job %s: %v", event.JobID, err)
	}
}

func (p *Pipeline) fail(ctx context.Context, job *models.SubtitleJob, subtitleID uuid.UUID, mono *pipeline.Monotonic, cause error) error {
	p.logger.Errorf("subtitle job %s failed: %v", job.JobID, cause)
	if err := p.repo.MarkSubtitleFailed(ctx, subtitleID, cause.Error()); err != nil {
		p.logger.Errorf("failed to persist failure for job %s: %v", job.JobID, err)
		if err := p.repo.MarkSubtitleFailed(ctx, subtitleID, "subtitle generation failed"); err != nil {
			p.logger.Errorf("secondary failure write for job %s also failed: %v", job.JobID, err)
		}
	}
	if mono.Finish() {
		p.publish(ctx, &models.ProgressEvent{
			JobID:    job.JobID,
			Kind:     models.JobKindSubtitle,
			Status:   string(models.SubtitleStatusFailed),
			Progress: mono.Last(),
			Error:    cause.Error(),
		})
	}
	return cause
}
