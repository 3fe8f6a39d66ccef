package media

import (
	"context"

	"github.com/google/uuid"

	"github.com/streamvault/media-pipeline/internal/models"
)

// Repository persists MediaUnit and Subtitle records. The pipeline mutates
// encoding/subtitle state fields only; structural fields stay untouched.
type Repository interface {
	GetMediaByID(ctx context.Context, mediaID uuid.UUID) (*models.MediaUnit, error)
	// MarkMediaProcessing transitions pending|failed -> processing and clears
	// the prior error. It returns ErrAlreadyProcessing when the unit is
	// already being encoded by another worker.
	MarkMediaProcessing(ctx context.Context, mediaID uuid.UUID) error
	UpdateMediaProgress(ctx context.Context, mediaID uuid.UUID, progress int) error
	MarkMediaCompleted(ctx context.Context, mediaID uuid.UUID, manifestURL string, durationSeconds float64) error
	MarkMediaFailed(ctx context.Context, mediaID uuid.UUID, errMsg string) error
	// ResetMediaForRetry is the manual failed|stuck-processing -> pending
	// transition triggered by an operator.
	ResetMediaForRetry(ctx context.Context, mediaID uuid.UUID) error
	MediaStatusCounts(ctx context.Context) (*models.StatusCounts, error)

	GetSubtitle(ctx context.Context, subtitleID uuid.UUID) (*models.Subtitle, error)
	// UpsertSubtitle creates or resets the (media_id, language) row. It
	// returns ErrSubtitleInFlight while a prior attempt is non-terminal.
	UpsertSubtitle(ctx context.Context, mediaID uuid.UUID, language string) (*models.Subtitle, error)
	UpdateSubtitleStage(ctx context.Context, subtitleID uuid.UUID, status models.SubtitleStatus, progress int) error
	MarkSubtitleCompleted(ctx context.Context, subtitleID uuid.UUID, content, trackURL string) error
	MarkSubtitleFailed(ctx context.Context, subtitleID uuid.UUID, errMsg string) error
	SubtitleStatusCounts(ctx context.Context) (map[models.SubtitleStatus]int, error)
}
