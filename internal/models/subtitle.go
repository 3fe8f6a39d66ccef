package models

import (
	"time"

	"github.com/google/uuid"
)

type SubtitleStatus string

const (
	SubtitleStatusQueued       SubtitleStatus = "queued"
	SubtitleStatusExtracting   SubtitleStatus = "extracting"
	SubtitleStatusTranscribing SubtitleStatus = "transcribing"
	SubtitleStatusTranslating  SubtitleStatus = "translating"
	SubtitleStatusUploading    SubtitleStatus = "uploading"
	SubtitleStatusCompleted    SubtitleStatus = "completed"
	SubtitleStatusFailed       SubtitleStatus = "failed"
)

func (s SubtitleStatus) IsTerminal() bool {
	return s == SubtitleStatusCompleted || s == SubtitleStatusFailed
}

// Subtitle is the persisted record for one generated track. At most one row
// exists per (media_id, language); re-requesting after a terminal state
// overwrites the prior attempt instead of duplicating it.
type Subtitle struct {
	SubtitleID uuid.UUID      `json:"subtitle_id" db:"subtitle_id" validate:"omitempty"`
	MediaID    uuid.UUID      `json:"media_id" db:"media_id" validate:"required"`
	Language   string         `json:"language" db:"language" validate:"required,lte=16"`
	Status     SubtitleStatus `json:"status" db:"status" validate:"omitempty"`
	Progress   int            `json:"progress" db:"progress" validate:"gte=0,lte=100"`
	Error      *string        `json:"error" db:"error" validate:"omitempty"`
	Content    *string        `json:"content" db:"content" validate:"omitempty"`
	TrackURL   *string        `json:"track_url" db:"track_url" validate:"omitempty"`
	UpdatedAt  time.Time      `json:"updated_at" db:"updated_at" validate:"omitempty"`
}

// SubtitleJob is the queue payload for one generation request.
// SourceLanguage may be "auto".
type SubtitleJob struct {
	JobID          string `json:"job_id" redis:"job_id" validate:"required"`
	SubtitleID     string `json:"subtitle_id" redis:"subtitle_id" validate:"required,uuid"`
	MediaID        string `json:"media_id" redis:"media_id" validate:"required,uuid"`
	SourceKey      string `json:"source_key" redis:"source_key" validate:"required"`
	SourceLanguage string `json:"source_language" redis:"source_language" validate:"required"`
	TargetLanguage string `json:"target_language" redis:"target_language" validate:"required"`
}
