package worker

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/streamvault/media-pipeline/internal/config"
	"github.com/streamvault/media-pipeline/internal/encoder"
	"github.com/streamvault/media-pipeline/internal/media"
	"github.com/streamvault/media-pipeline/internal/subtitles"
	"github.com/streamvault/media-pipeline/pkg/logger"
	"github.com/streamvault/media-pipeline/pkg/utils"
)

// cpuBackoff is how long a loop sleeps when the host is too loaded to
// accept another job.
const cpuBackoff = 10 * time.Second

// Worker runs blocking-pop poll loops against the job queue. One goroutine
// handles one job at a time; concurrency comes from running more goroutines
// or more worker processes, with BRPOP as the only coordination point.
type Worker struct {
	cfg      *config.Config
	logger   logger.Logger
	queue    media.QueueRepository
	engine   *encoder.Engine
	subs     *subtitles.Pipeline
	validate *validator.Validate
	wg       sync.WaitGroup
}

func NewWorker(cfg *config.Config, logger logger.Logger, queue media.QueueRepository, engine *encoder.Engine, subs *subtitles.Pipeline) *Worker {
	return &Worker{
		cfg:      cfg,
		logger:   logger,
		queue:    queue,
		engine:   engine,
		subs:     subs,
		validate: validator.New(),
	}
}

// StartEncodeWorkers launches the configured number of encode poll loops.
func (w *Worker) StartEncodeWorkers(ctx context.Context) {
	w.logger.Infof("starting %d encode workers", w.cfg.Worker.EncodeWorkerCount)
	for i := 0; i < w.cfg.Worker.EncodeWorkerCount; i++ {
		w.wg.Add(1)
		go w.encodeLoop(ctx)
	}
}

// StartSubtitleWorkers launches the configured number of subtitle poll loops.
func (w *Worker) StartSubtitleWorkers(ctx context.Context) {
	w.logger.Infof("starting %d subtitle workers", w.cfg.Worker.SubtitleWorkerCount)
	for i := 0; i < w.cfg.Worker.SubtitleWorkerCount; i++ {
		w.wg.Add(1)
		go w.subtitleLoop(ctx)
	}
}

// Wait blocks until every loop has drained after context cancellation.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// encodeLoop survives individual job failures indefinitely; a bad input must
// never crash-loop the worker.
func (w *Worker) encodeLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if ok, usage := utils.CheckCPUUsage(w.cfg.Worker.MaxCPUUsage); !ok {
			w.logger.Infof("CPU usage %.2f%% too high, backing off", usage)
			sleepCtx(ctx, cpuBackoff)
			continue
		}

		job, err := w.queue.DequeueEncodeJob(ctx, w.cfg.Worker.PollTimeout)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Errorf("failed to pop encode job: %v", err)
				sleepCtx(ctx, time.Second)
			}
			continue
		}
		if job == nil {
			continue
		}
		if err := w.validate.Struct(job); err != nil {
			w.logger.Errorf("dropping malformed encode job %q: %v", job.JobID, err)
			continue
		}

		w.logger.Infof("processing encode job %s (media %s)", job.JobID, job.MediaID)
		if err := w.engine.Encode(ctx, job); err != nil {
			w.logger.Errorf("encode job %s failed: %v", job.JobID, err)
		}
	}
}

func (w *Worker) subtitleLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if ok, usage := utils.CheckCPUUsage(w.cfg.Worker.MaxCPUUsage); !ok {
			w.logger.Infof("CPU usage %.2f%% too high, backing off", usage)
			sleepCtx(ctx, cpuBackoff)
			continue
		}

		job, err := w.queue.DequeueSubtitleJob(ctx, w.cfg.Worker.PollTimeout)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Errorf("failed to pop subtitle job: %v", err)
				sleepCtx(ctx, time.Second)
			}
			continue
		}
		if job == nil {
			continue
		}
		if err := w.validate.Struct(job); err != nil {
			w.logger.Errorf("dropping malformed subtitle job %q: %v", job.JobID, err)
			continue
		}

		w.logger.Infof("processing subtitle job %s (media %s, %s -> %s)",
			job.JobID, job.MediaID, job.SourceLanguage, job.TargetLanguage)
		if err := w.subs.GenerateSubtitle(ctx, job); err != nil {
			w.logger.Errorf("subtitle job %s failed: %v", job.JobID, err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
