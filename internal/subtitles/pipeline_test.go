package subtitles

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamvault/media-pipeline/internal/config"
	"github.com/streamvault/media-pipeline/internal/media"
	"github.com/streamvault/media-pipeline/internal/models"
	"github.com/streamvault/media-pipeline/internal/runner"
)

type subtitleRepo struct {
	mu        sync.Mutex
	unit      *models.MediaUnit
	stages    []models.SubtitleStatus
	progress  []int
	status    models.SubtitleStatus
	content   string
	trackURL  string
	failMsg   string
}

func (f *subtitleRepo) GetMediaByID(ctx context.Context, mediaID uuid.UUID) (*models.MediaUnit, error) {
	if f.unit == nil || f.unit.MediaID != mediaID {
		return nil, media.ErrNotFound
	}
	u := *f.unit
	return &u, nil
}

func (f *subtitleRepo) MarkMediaProcessing(ctx context.Context, mediaID uuid.UUID) error { return nil }

func (f *subtitleRepo) UpdateMediaProgress(ctx context.Context, mediaID uuid.UUID, progress int) error {
	return nil
}

func (f *subtitleRepo) MarkMediaCompleted(ctx context.Context, mediaID uuid.UUID, manifestURL string, durationSeconds float64) error {
	return nil
}

func (f *subtitleRepo) MarkMediaFailed(ctx context.Context, mediaID uuid.UUID, errMsg string) error {
	return nil
}

func (f *subtitleRepo) ResetMediaForRetry(ctx context.Context, mediaID uuid.UUID) error { return nil }

func (f *subtitleRepo) MediaStatusCounts(ctx context.Context) (*models.StatusCounts, error) {
	return &models.StatusCounts{}, nil
}

func (f *subtitleRepo) GetSubtitle(ctx context.Context, subtitleID uuid.UUID) (*models.Subtitle, error) {
	return nil, media.ErrNotFound
}

func (f *subtitleRepo) UpsertSubtitle(ctx context.Context, mediaID uuid.UUID, language string) (*models.Subtitle, error) {
	return nil, media.ErrNotFound
}

func (f *subtitleRepo) UpdateSubtitleStage(ctx context.Context, subtitleID uuid.UUID, status models.SubtitleStatus, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages = append(f.stages, status)
	f.progress = append(f.progress, progress)
	f.status = status
	return nil
}

func (f *subtitleRepo) MarkSubtitleCompleted(ctx context.Context, subtitleID uuid.UUID, content, trackURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = models.SubtitleStatusCompleted
	f.content = content
	f.trackURL = trackURL
	return nil
}

func (f *subtitleRepo) MarkSubtitleFailed(ctx context.Context, subtitleID uuid.UUID, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = models.SubtitleStatusFailed
	f.failMsg = errMsg
	return nil
}

func (f *subtitleRepo) SubtitleStatusCounts(ctx context.Context) (map[models.SubtitleStatus]int, error) {
	return nil, nil
}

type subtitleQueue struct {
	mu     sync.Mutex
	events []*models.ProgressEvent
}

func (f *subtitleQueue) EnqueueEncodeJob(ctx context.Context, job *models.EncodeJob) error { return nil }

func (f *subtitleQueue) DequeueEncodeJob(ctx context.Context, timeout time.Duration) (*models.EncodeJob, error) {
	return nil, nil
}

func (f *subtitleQueue) EnqueueSubtitleJob(ctx context.Context, job *models.SubtitleJob) error {
	return nil
}

func (f *subtitleQueue) DequeueSubtitleJob(ctx context.Context, timeout time.Duration) (*models.SubtitleJob, error) {
	return nil, nil
}

func (f *subtitleQueue) QueueDepth(ctx context.Context, queueKey string) (int64, error) {
	return 0, nil
}

func (f *subtitleQueue) PublishProgress(ctx context.Context, event *models.ProgressEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *event
	f.events = append(f.events, &copied)
	return nil
}

func (f *subtitleQueue) SubscribeProgress(ctx context.Context) (<-chan *models.ProgressEvent, error) {
	ch := make(chan *models.ProgressEvent)
	close(ch)
	return ch, nil
}

func (f *subtitleQueue) published() []*models.ProgressEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.ProgressEvent, len(f.events))
	copy(out, f.events)
	return out
}

type subtitleStore struct {
	mu          sync.Mutex
	uploadedKey string
	uploaded    string
}

func (f *subtitleStore) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadedKey = key
	f.uploaded = string(raw)
	return "https://cdn.test/" + bucket + "/" + key, nil
}

func (f *subtitleStore) UploadFile(ctx context.Context, bucket, key, localPath string) (string, error) {
	return "https://cdn.test/" + bucket + "/" + key, nil
}

func (f *subtitleStore) UploadDir(ctx context.Context, bucket, keyPrefix, localDir string) error {
	return nil
}

func (f *subtitleStore) Download(ctx context.Context, bucket, key, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(localPath, []byte("video bytes"), 0o644)
}

func (f *subtitleStore) Exists(ctx context.Context, bucket, key string) (*media.ObjectInfo, error) {
	return &media.ObjectInfo{Exists: true}, nil
}

func (f *subtitleStore) PresignedDownloadURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return "https://cdn.test/presigned/" + key, nil
}

func (f *subtitleStore) Remove(ctx context.Context, bucket, key string) error { return nil }

// subtitleRunner answers extraction calls by writing a plausible WAV file and
// transcription calls by writing a canned SubRip transcript.
type subtitleRunner struct {
	transcript string
	failAll    bool
}

func (f *subtitleRunner) Run(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	if f.failAll {
		return nil, &runner.ExitError{Cmd: cmd.Bin, Err: errors.New("exit status 1"), Stderr: "boom"}
	}
	for i, a := range cmd.Args {
		if a == "-of" && i+1 < len(cmd.Args) {
			srtPath := cmd.Args[i+1] + ".srt"
			if err := os.WriteFile(srtPath, []byte(f.transcript), 0o644); err != nil {
				return nil, err
			}
			return &runner.Result{}, nil
		}
	}
	outPath := cmd.Args[len(cmd.Args)-1]
	if err := os.WriteFile(outPath, make([]byte, minAudioBytes*2), 0o644); err != nil {
		return nil, err
	}
	return &runner.Result{}, nil
}

const testTranscript = `1
00:00:01,000 --> 00:00:02,500
The meeting starts now.

2
00:00:03,000 --> 00:00:05,000
Please take your seats everyone.
`

func testPipeline(t *testing.T, repo *subtitleRepo, queue *subtitleQueue, store *subtitleStore, run runner.Runner, tr Translator) *Pipeline {
	t.Helper()
	cfg := &config.Config{
		S3:      config.S3Config{InputBucket: "uploads", OutputBucket: "streams"},
		Encoder: config.EncoderConfig{FFmpegBin: "ffmpeg"},
		Subtitle: config.SubtitleConfig{
			WhisperBin:      "whisper-cli",
			WhisperModel:    "/models/ggml-base.bin",
			ScratchDir:      t.TempDir(),
			MaxAudioSeconds: 600,
			SampleRate:      16000,
			Translator:      config.TranslatorConfig{BatchSize: 50},
		},
	}
	return NewPipeline(cfg, repo, queue, store, run, tr, newTestLogger(t))
}

func testSubtitleJob(mediaID uuid.UUID, sourceLang, targetLang string) *models.SubtitleJob {
	return &models.SubtitleJob{
		JobID:          uuid.NewString(),
		SubtitleID:     uuid.NewString(),
		MediaID:        mediaID.String(),
		SourceKey:      "raw/" + mediaID.String() + ".mp4",
		SourceLanguage: sourceLang,
		TargetLanguage: targetLang,
	}
}

func TestGenerateSubtitleWithTranslation(t *testing.T) {
	mediaID := uuid.New()
	repo := &subtitleRepo{unit: &models.MediaUnit{MediaID: mediaID, SequenceNumber: 2}}
	queue := &subtitleQueue{}
	store := &subtitleStore{}
	tr := &fakeTranslator{}

	p := testPipeline(t, repo, queue, store, &subtitleRunner{transcript: testTranscript}, tr)
	job := testSubtitleJob(mediaID, "en", "es")

	require.NoError(t, p.GenerateSubtitle(context.Background(), job))

	assert.Equal(t, models.SubtitleStatusCompleted, repo.status)
	assert.NotEmpty(t, repo.content)
	assert.Contains(t, repo.trackURL, mediaID.String()+"/2/es.srt")
	assert.Equal(t, mediaID.String()+"/2/es.srt", store.uploadedKey)

	require.NotEmpty(t, tr.calls, "translation must run for en -> es")
	assert.Contains(t, repo.content, "[es] The meeting starts now.")

	// Timestamps survive the whole round trip.
	assert.Contains(t, store.uploaded, "00:00:01,000 --> 00:00:02,500")

	events := queue.published()
	require.NotEmpty(t, events)
	assert.Equal(t, string(models.SubtitleStatusCompleted), events[len(events)-1].Status)
	assert.Equal(t, 100, events[len(events)-1].Progress)

	var sawTranslating bool
	prev := -1
	for _, ev := range events {
		if ev.Status == string(models.SubtitleStatusTranslating) {
			sawTranslating = true
		}
		assert.GreaterOrEqual(t, ev.Progress, prev, "published progress must be monotonic")
		prev = ev.Progress
	}
	assert.True(t, sawTranslating)
}

func TestGenerateSubtitleSkipsTranslationWhenLanguagesMatch(t *testing.T) {
	mediaID := uuid.New()
	repo := &subtitleRepo{unit: &models.MediaUnit{MediaID: mediaID, SequenceNumber: 1}}
	queue := &subtitleQueue{}
	store := &subtitleStore{}
	tr := &fakeTranslator{}

	p := testPipeline(t, repo, queue, store, &subtitleRunner{transcript: testTranscript}, tr)
	require.NoError(t, p.GenerateSubtitle(context.Background(), testSubtitleJob(mediaID, "en", "en")))

	assert.Equal(t, models.SubtitleStatusCompleted, repo.status)
	assert.Empty(t, tr.calls, "same-language jobs must not hit the translator")
	assert.Contains(t, repo.content, "The meeting starts now.")

	for _, ev := range queue.published() {
		assert.NotEqual(t, string(models.SubtitleStatusTranslating), ev.Status)
	}
}

func TestGenerateSubtitleAutoDetectsSourceLanguage(t *testing.T) {
	mediaID := uuid.New()
	repo := &subtitleRepo{unit: &models.MediaUnit{MediaID: mediaID, SequenceNumber: 1}}
	queue := &subtitleQueue{}
	store := &subtitleStore{}
	tr := &fakeTranslator{}

	// English transcript, English target: detection must conclude that no
	// translation is needed.
	p := testPipeline(t, repo, queue, store, &subtitleRunner{transcript: testTranscript}, tr)
	require.NoError(t, p.GenerateSubtitle(context.Background(), testSubtitleJob(mediaID, "auto", "en")))

	assert.Equal(t, models.SubtitleStatusCompleted, repo.status)
	assert.Empty(t, tr.calls)
}

func TestGenerateSubtitleTranslationMismatchFails(t *testing.T) {
	mediaID := uuid.New()
	repo := &subtitleRepo{unit: &models.MediaUnit{MediaID: mediaID, SequenceNumber: 1}}
	queue := &subtitleQueue{}
	store := &subtitleStore{}
	tr := &fakeTranslator{
		translate: func(texts []string) ([]string, error) { return texts[:len(texts)-1], nil },
	}

	p := testPipeline(t, repo, queue, store, &subtitleRunner{transcript: testTranscript}, tr)
	err := p.GenerateSubtitle(context.Background(), testSubtitleJob(mediaID, "en", "es"))

	require.Error(t, err)
	assert.Equal(t, models.SubtitleStatusFailed, repo.status)
	assert.Contains(t, repo.failMsg, "translation")
	assert.Empty(t, store.uploadedKey, "nothing may be uploaded for a failed job")

	events := queue.published()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, string(models.SubtitleStatusFailed), last.Status)
	assert.NotEmpty(t, last.Error)
}

func TestGenerateSubtitleEmptyTranscriptFails(t *testing.T) {
	mediaID := uuid.New()
	repo := &subtitleRepo{unit: &models.MediaUnit{MediaID: mediaID, SequenceNumber: 1}}
	queue := &subtitleQueue{}
	store := &subtitleStore{}

	p := testPipeline(t, repo, queue, store, &subtitleRunner{transcript: "   "}, &fakeTranslator{})
	err := p.GenerateSubtitle(context.Background(), testSubtitleJob(mediaID, "en", "en"))

	require.Error(t, err)
	assert.Equal(t, models.SubtitleStatusFailed, repo.status)
	assert.Contains(t, repo.failMsg, "no parseable segments")
}

func TestGenerateSubtitleToolFailureFails(t *testing.T) {
	mediaID := uuid.New()
	repo := &subtitleRepo{unit: &models.MediaUnit{MediaID: mediaID, SequenceNumber: 1}}
	queue := &subtitleQueue{}

	p := testPipeline(t, repo, queue, &subtitleStore{}, &subtitleRunner{failAll: true}, &fakeTranslator{})
	err := p.GenerateSubtitle(context.Background(), testSubtitleJob(mediaID, "en", "en"))

	require.Error(t, err)
	assert.Equal(t, models.SubtitleStatusFailed, repo.status)
	assert.Contains(t, repo.failMsg, "audio extraction")
}

func TestGenerateSubtitleInvalidIDs(t *testing.T) {
	repo := &subtitleRepo{}
	queue := &subtitleQueue{}
	p := testPipeline(t, repo, queue, &subtitleStore{}, &subtitleRunner{}, &fakeTranslator{})

	err := p.GenerateSubtitle(context.Background(), &models.SubtitleJob{
		JobID:      uuid.NewString(),
		SubtitleID: "nope",
		MediaID:    uuid.NewString(),
	})
	require.Error(t, err)
	assert.Empty(t, queue.published())
}
