package encoder

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/streamvault/media-pipeline/internal/config"
	"github.com/streamvault/media-pipeline/internal/media"
	"github.com/streamvault/media-pipeline/internal/models"
	"github.com/streamvault/media-pipeline/internal/pipeline"
	"github.com/streamvault/media-pipeline/internal/runner"
	"github.com/streamvault/media-pipeline/pkg/logger"
)

// Progress milestones. Download and probe are cheap next to encoding, so the
// bulk of the range belongs to the rung loop.
const (
	progressDownloaded  = 5
	progressProbed      = 10
	progressEncodeStart = 10
	progressEncodeEnd   = 85
	progressUploaded    = 98
)

// Engine turns one uploaded source file into a segmented adaptive stream.
// All state lives in the MediaUnit record and the object store; the engine
// itself is safe to share across worker goroutines.
type Engine struct {
	cfg     *config.Config
	repo    media.Repository
	queue   media.QueueRepository
	store   media.AWSRepository
	run     runner.Runner
	catalog []models.QualityRung
	logger  logger.Logger
}

func NewEngine(cfg *config.Config, repo media.Repository, queue media.QueueRepository, store media.AWSRepository, run runner.Runner, logger logger.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		repo:    repo,
		queue:   queue,
		store:   store,
		run:     run,
		catalog: models.DefaultQualityCatalog(),
		logger:  logger,
	}
}

// Encode drives one job end to end. It returns an error only for reporting;
// by the time it returns, the MediaUnit already carries the terminal state.
func (e *Engine) Encode(ctx context.Context, job *models.EncodeJob) error {
	mediaID, err := uuid.Parse(job.MediaID)
	if err != nil {
		return fmt.Errorf("invalid media id %q: %w", job.MediaID, err)
	}

	// Entering processing is guarded: a unit already being encoded by
	// another worker rejects the job without touching its state.
	if err := e.repo.MarkMediaProcessing(ctx, mediaID); err != nil {
		return fmt.Errorf("cannot start encode for %s: %w", job.MediaID, err)
	}

	mono := &pipeline.Monotonic{}
	e.report(ctx, job.JobID, mediaID, mono, string(models.EncodingStatusProcessing), 0)

	scratchDir := filepath.Join(e.cfg.Encoder.ScratchDir, job.JobID)
	defer func() {
		if err := os.RemoveAll(scratchDir); err != nil {
			e.logger.Errorf("failed to clean scratch dir %s: %v", scratchDir, err)
		}
	}()

	unit, err := e.repo.GetMediaByID(ctx, mediaID)
	if err != nil {
		return e.fail(ctx, job, mediaID, mono, fmt.Errorf("failed to load media unit: %w", err))
	}

	sourcePath := filepath.Join(scratchDir, "source"+filepath.Ext(job.SourceKey))
	if err := e.store.Download(ctx, e.cfg.S3.InputBucket, job.SourceKey, sourcePath); err != nil {
		return e.fail(ctx, job, mediaID, mono, fmt.Errorf("failed to download source %q: %w", job.SourceKey, err))
	}
	stat, err := os.Stat(sourcePath)
	if err != nil || stat.Size() == 0 {
		return e.fail(ctx, job, mediaID, mono, fmt.Errorf("source %q is empty or unreadable", job.SourceKey))
	}
	e.report(ctx, job.JobID, mediaID, mono, string(models.EncodingStatusProcessing), progressDownloaded)

	info, err := Probe(ctx, e.run, e.cfg.Encoder.FFprobeBin, sourcePath)
	if err != nil {
		// Probe failures are not fatal: proceed with safe defaults and let
		// the encode fallbacks deal with whatever is in the container.
		e.logger.Warnf("probe failed for job %s, using defaults: %v", job.JobID, err)
		info = DefaultSourceInfo()
	}
	e.report(ctx, job.JobID, mediaID, mono, string(models.EncodingStatusProcessing), progressProbed)

	ladder := ComputeLadder(e.catalog, info.Height)
	outRoot := filepath.Join(scratchDir, "out")

	for i, rung := range ladder {
		if err := e.encodeRung(ctx, sourcePath, outRoot, rung); err != nil {
			return e.fail(ctx, job, mediaID, mono, fmt.Errorf("rung %s: %w", rung.Name, err))
		}
		progress := progressEncodeStart + (progressEncodeEnd-progressEncodeStart)*(i+1)/len(ladder)
		e.report(ctx, job.JobID, mediaID, mono, string(models.EncodingStatusProcessing), progress)
	}

	masterPath := filepath.Join(outRoot, MasterPlaylistName)
	if err := WriteMasterPlaylist(masterPath, ladder); err != nil {
		return e.fail(ctx, job, mediaID, mono, fmt.Errorf("failed to write master playlist: %w", err))
	}

	// Uploads are not transactional: a failure partway is a job failure even
	// though some artifacts persist remotely. Keys are deterministic, so a
	// retry overwrites them.
	keyPrefix := fmt.Sprintf("%s/%d", job.MediaID, unit.SequenceNumber)
	manifestURL, err := e.store.UploadFile(ctx, e.cfg.S3.OutputBucket, path.Join(keyPrefix, MasterPlaylistName), masterPath)
	if err != nil {
		return e.fail(ctx, job, mediaID, mono, fmt.Errorf("failed to upload master playlist: %w", err))
	}
	for _, rung := range ladder {
		rungDir := filepath.Join(outRoot, rung.Name)
		if err := e.store.UploadDir(ctx, e.cfg.S3.OutputBucket, path.Join(keyPrefix, rung.Name), rungDir); err != nil {
			return e.fail(ctx, job, mediaID, mono, fmt.Errorf("failed to upload rung %s: %w", rung.Name, err))
		}
	}
	e.report(ctx, job.JobID, mediaID, mono, string(models.EncodingStatusProcessing), progressUploaded)

	if err := e.repo.MarkMediaCompleted(ctx, mediaID, manifestURL, info.Duration); err != nil {
		return e.fail(ctx, job, mediaID, mono, fmt.Errorf("failed to persist completion: %w", err))
	}
	if mono.Finish() {
		e.publish(ctx, &models.ProgressEvent{
			JobID:    job.JobID,
			Kind:     models.JobKindEncode,
			Status:   string(models.EncodingStatusCompleted),
			Progress: 100,
		})
	}
	e.logger.Infof("encode job %s completed, manifest %s", job.JobID, manifestURL)
	return nil
}

// encodeRung runs the fallback ladder for one quality rung. Every attempt
// starts with a wiped output directory so a half-written attempt can never
// be mistaken for a success.
func (e *Engine) encodeRung(ctx context.Context, sourcePath, outRoot string, rung models.QualityRung) error {
	outDir := filepath.Join(outRoot, rung.Name)
	in := EncodeInput{
		FFmpegBin:      e.cfg.Encoder.FFmpegBin,
		SourcePath:     sourcePath,
		OutputDir:      outDir,
		SegmentSeconds: e.cfg.Encoder.SegmentSeconds,
		Rung:           rung,
	}

	var strategies []pipeline.Strategy
	for _, s := range EncodeStrategies() {
		s := s
		strategies = append(strategies, pipeline.Strategy{
			Name: s.Name,
			Run: func(ctx context.Context) error {
				if err := os.RemoveAll(outDir); err != nil {
					return err
				}
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
				if _, err := e.run.Run(ctx, s.Build(in)); err != nil {
					return err
				}
				return VerifyRungOutput(outDir)
			},
		})
	}

	winner, err := pipeline.TryEach(ctx, e.logger, "encode "+rung.Name, strategies)
	if err != nil {
		return err
	}
	if winner != StrategyStandard {
		e.logger.Warnf("rung %s encoded via fallback strategy %q", rung.Name, winner)
	}
	return nil
}

// VerifyRungOutput accepts an attempt only when the rung playlist exists and
// at least two files were produced (playlist plus one segment).
func VerifyRungOutput(outDir string) error {
	if _, err := os.Stat(filepath.Join(outDir, RungPlaylistName)); err != nil {
		return fmt.Errorf("rung playlist missing: %w", err)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return err
	}
	files := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			files++
		}
	}
	if files < 2 {
		return fmt.Errorf("expected playlist plus segments, found %d files", files)
	}
	return nil
}

// report persists an intermediate progress value and then publishes it, in
// that order, so subscribers never see state ahead of the database.
func (e *Engine) report(ctx context.Context, jobID string, mediaID uuid.UUID, mono *pipeline.Monotonic, status string, progress int) {
	p := mono.Next(progress)
	if p < 0 {
		return
	}
	if err := e.repo.UpdateMediaProgress(ctx, mediaID, p); err != nil {
		e.logger.Errorf("failed to persist progress for job %s: %v", jobID, err)
	}
	e.publish(ctx, &models.ProgressEvent{
		JobID:    jobID,
		Kind:     models.JobKindEncode,
		Status:   status,
		Progress: p,
	})
}

func (e *Engine) publish(ctx context.Context, event *models.ProgressEvent) {
	if err := e.queue.PublishProgress(ctx, event); err != nil {
		e.logger.Errorf("failed to publish progress event for job %s: %v", event.JobID, err)
	}
}

// fail writes the terminal failed state and publishes the failure event.
// When even the failure write fails, a generic secondary write is attempted
// so the unit never silently sticks in processing with no error recorded.
func (e *Engine) fail(ctx context.Context, job *models.EncodeJob, mediaID uuid.UUID, mono *pipeline.Monotonic, cause error) error {
	e.logger.Errorf("encode job %s failed: %v", job.JobID, cause)
	if err := e.repo.MarkMediaFailed(ctx, mediaID, cause.Error()); err != nil {
		e.logger.Errorf("failed to persist failure for job %s: %v", job.JobID, err)
		if err := e.repo.MarkMediaFailed(ctx, mediaID, "encoding failed"); err != nil {
			e.logger.Errorf("secondary failure write for job %s also failed: %v", job.JobID, err)
		}
	}
	if mono.Finish() {
		e.publish(ctx, &models.ProgressEvent{
			JobID:    job.JobID,
			Kind:     models.JobKindEncode,
			Status:   string(models.EncodingStatusFailed),
			Progress: mono.Last(),
			Error:    cause.Error(),
		})
	}
	return cause
}
