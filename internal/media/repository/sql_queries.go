package repository

const (
	getMediaByIDQuery = `SELECT media_id, sequence_number, source_key, encoding_status, encoding_progress,
	       encoding_error, manifest_url, duration_seconds, updated_at
	FROM media_units
	WHERE media_id = $1`

	markMediaProcessingQuery = `UPDATE media_units
	SET encoding_status = 'processing', encoding_progress = 0, encoding_error = NULL, updated_at = now()
	WHERE media_id = $1 AND encoding_status IN ('pending', 'failed')
	RETURNING media_id`

	updateMediaProgressQuery = `UPDATE media_units
	SET encoding_progress = GREATEST(encoding_progress, $2), updated_at = now()
	WHERE media_id = $1 AND encoding_status = 'processing'`

	markMediaCompletedQuery = `UPDATE media_units
	SET encoding_status = 'completed', encoding_progress = 100, encoding_error = NULL,
	    manifest_url = $2, duration_seconds = $3, updated_at = now()
	WHERE media_id = $1`

	markMediaFailedQuery = `UPDATE media_units
	SET encoding_status = 'failed', encoding_error = $2, updated_at = now()
	WHERE media_id = $1`

	resetMediaForRetryQuery = `UPDATE media_units
	SET encoding_status = 'pending', encoding_progress = 0, encoding_error = NULL, updated_at = now()
	WHERE media_id = $1 AND encoding_status IN ('failed', 'processing')
	RETURNING media_id`

	mediaStatusCountsQuery = `SELECT
	    COUNT(*) FILTER (WHERE encoding_status = 'pending')    AS pending,
	    COUNT(*) FILTER (WHERE encoding_status = 'processing') AS processing,
	    COUNT(*) FILTER (WHERE encoding_status = 'completed')  AS completed,
	    COUNT(*) FILTER (WHERE encoding_status = 'failed')     AS failed
	FROM media_units`

	getSubtitleQuery = `SELECT subtitle_id, media_id, language, status, progress, error, content, track_url, updated_at
	FROM subtitles
	WHERE subtitle_id = $1`

	getSubtitleByKeyQuery = `SELECT subtitle_id, media_id, language, status, progress, error, content, track_url, updated_at
	FROM subtitles
	WHERE media_id = $1 AND language = $2`

	upsertSubtitleQuery = `INSERT INTO subtitles (subtitle_id, media_id, language, status, progress, updated_at)
	VALUES ($1, $2, $3, 'queued', 0, now())
	ON CONFLICT (media_id, language) DO UPDATE
	SET status = 'queued', progress = 0, error = NULL, content = NULL, track_url = NULL, updated_at = now()
	WHERE subtitles.status IN ('completed', 'failed')
	RETURNING subtitle_id, media_id, language, status, progress, error, content, track_url, updated_at`

	updateSubtitleStageQuery = `UPDATE subtitles
	SET status = $2, progress = GREATEST(progress, $3), updated_at = now()
	WHERE subtitle_id = $1 AND status NOT IN ('completed', 'failed')`

	markSubtitleCompletedQuery = `UPDATE subtitles
	SET status = 'completed', progress = 100, error = NULL, content = $2, track_url = $3, updated_at = now()
	WHERE subtitle_id = $1`

	markSubtitleFailedQuery = `UPDATE subtitles
	SET status = 'failed', error = $2, updated_at = now()
	WHERE subtitle_id = $1`

	subtitleStatusCountsQuery = `SELECT status, COUNT(*) AS count
	FROM subtitles
	GROUP BY status`
)
