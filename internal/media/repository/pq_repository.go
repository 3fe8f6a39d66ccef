package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/streamvault/media-pipeline/internal/media"
	"github.com/streamvault/media-pipeline/internal/models"
)

// MaxErrorLength bounds every persisted failure message. The CRUD layer
// surfaces these to end users, so raw multi-kilobyte encoder dumps must
// never land in the column.
const MaxErrorLength = 1000

type mediaRepo struct {
	db *sqlx.DB
}

func NewMediaRepo(db *sqlx.DB) media.Repository {
	return &mediaRepo{db: db}
}

func TruncateError(msg string) string {
	if len(msg) > MaxErrorLength {
		return msg[:MaxErrorLength]
	}
	return msg
}

func (r *mediaRepo) GetMediaByID(ctx context.Context, mediaID uuid.UUID) (*models.MediaUnit, error) {
	unit := &models.MediaUnit{}
	if err := r.db.GetContext(ctx, unit, getMediaByIDQuery, mediaID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, media.ErrNotFound
		}
		return nil, errors.Wrap(err, "mediaRepo.GetMediaByID")
	}
	return unit, nil
}

func (r *mediaRepo) MarkMediaProcessing(ctx context.Context, mediaID uuid.UUID) error {
	var id uuid.UUID
	err := r.db.QueryRowxContext(ctx, markMediaProcessingQuery, mediaID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the unit does not exist or it is already processing;
		// disambiguate so callers can surface the right failure.
		if _, getErr := r.GetMediaByID(ctx, mediaID); getErr != nil {
			return getErr
		}
		return media.ErrAlreadyProcessing
	}
	if err != nil {
		return errors.Wrap(err, "mediaRepo.MarkMediaProcessing")
	}
	return nil
}

func (r *mediaRepo) UpdateMediaProgress(ctx context.Context, mediaID uuid.UUID, progress int) error {
	if _, err := r.db.ExecContext(ctx, updateMediaProgressQuery, mediaID, progress); err != nil {
		return errors.Wrap(err, "mediaRepo.UpdateMediaProgress")
	}
	return nil
}

func (r *mediaRepo) MarkMediaCompleted(ctx context.Context, mediaID uuid.UUID, manifestURL string, durationSeconds float64) error {
	if _, err := r.db.ExecContext(ctx, markMediaCompletedQuery, mediaID, manifestURL, durationSeconds); err != nil {
		return errors.Wrap(err, "mediaRepo.MarkMediaCompleted")
	}
	return nil
}

func (r *mediaRepo) MarkMediaFailed(ctx context.Context, mediaID uuid.UUID, errMsg string) error {
	if _, err := r.db.ExecContext(ctx, markMediaFailedQuery, mediaID, TruncateError(errMsg)); err != nil {
		return errors.Wrap(err, "mediaRepo.MarkMediaFailed")
	}
	return nil
}

func (r *mediaRepo) ResetMediaForRetry(ctx context.Context, mediaID uuid.UUID) error {
	var id uuid.UUID
	err := r.db.QueryRowxContext(ctx, resetMediaForRetryQuery, mediaID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetMediaByID(ctx, mediaID); getErr != nil {
			return getErr
		}
		return errors.New("media unit is not in a retryable state")
	}
	if err != nil {
		return errors.Wrap(err, "mediaRepo.ResetMediaForRetry")
	}
	return nil
}

func (r *mediaRepo) MediaStatusCounts(ctx context.Context) (*models.StatusCounts, error) {
	counts := &models.StatusCounts{}
	if err := r.db.GetContext(ctx, counts, mediaStatusCountsQuery); err != nil {
		return nil, errors.Wrap(err, "mediaRepo.MediaStatusCounts")
	}
	return counts, nil
}

func (r *mediaRepo) GetSubtitle(ctx context.Context, subtitleID uuid.UUID) (*models.Subtitle, error) {
	sub := &models.Subtitle{}
	if err := r.db.GetContext(ctx, sub, getSubtitleQuery, subtitleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, media.ErrNotFound
		}
		return nil, errors.Wrap(err, "mediaRepo.GetSubtitle")
	}
	return sub, nil
}

func (r *mediaRepo) UpsertSubtitle(ctx context.Context, mediaID uuid.UUID, language string) (*models.Subtitle, error) {
	sub := &models.Subtitle{}
	err := r.db.GetContext(ctx, sub, upsertSubtitleQuery, uuid.New(), mediaID, language)
	if errors.Is(err, sql.ErrNoRows) {
		// The conflict update was filtered out: a non-terminal attempt for
		// this (media, language) pair is still running.
		return nil, media.ErrSubtitleInFlight
	}
	if err != nil {
		return nil, errors.Wrap(err, "mediaRepo.UpsertSubtitle")
	}
	return sub, nil
}

func (r *mediaRepo) UpdateSubtitleStage(ctx context.Context, subtitleID uuid.UUID, status models.SubtitleStatus, progress int) error {
	if _, err := r.db.ExecContext(ctx, updateSubtitleStageQuery, subtitleID, status, progress); err != nil {
		return errors.Wrap(err, "mediaRepo.UpdateSubtitleStage")
	}
	return nil
}

func (r *mediaRepo) MarkSubtitleCompleted(ctx context.Context, subtitleID uuid.UUID, content, trackURL string) error {
	if _, err := r.db.ExecContext(ctx, markSubtitleCompletedQuery, subtitleID, content, trackURL); err != nil {
		return errors.Wrap(err, "mediaRepo.MarkSubtitleCompleted")
	}
	return nil
}

func (r *mediaRepo) MarkSubtitleFailed(ctx context.Context, subtitleID uuid.UUID, errMsg string) error {
	if _, err := r.db.ExecContext(ctx, markSubtitleFailedQuery, subtitleID, TruncateError(errMsg)); err != nil {
		return errors.Wrap(err, "mediaRepo.MarkSubtitleFailed")
	}
	return nil
}

func (r *mediaRepo) SubtitleStatusCounts(ctx context.Context) (map[models.SubtitleStatus]int, error) {
	rows, err := r.db.QueryxContext(ctx, subtitleStatusCountsQuery)
	if err != nil {
		return nil, errors.Wrap(err, "mediaRepo.SubtitleStatusCounts")
	}
	defer rows.Close()

	counts := make(map[models.SubtitleStatus]int)
	for rows.Next() {
		var status models.SubtitleStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.Wrap(err, "mediaRepo.SubtitleStatusCounts.Scan")
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "mediaRepo.SubtitleStatusCounts.Rows")
	}
	return counts, nil
}
