package models

import (
	"time"

	"github.com/google/uuid"
)

type EncodingStatus string

const (
	EncodingStatusPending    EncodingStatus = "pending"
	EncodingStatusProcessing EncodingStatus = "processing"
	EncodingStatusCompleted  EncodingStatus = "completed"
	EncodingStatusFailed     EncodingStatus = "failed"
)

func (s EncodingStatus) IsTerminal() bool {
	return s == EncodingStatusCompleted || s == EncodingStatusFailed
}

// MediaUnit is the persisted record for one uploaded video (an episode, a
// movie file, ...). The pipeline only ever mutates the encoding fields;
// title, pricing and the rest belong to the CRUD layer.
type MediaUnit struct {
	MediaID          uuid.UUID      `json:"media_id" db:"media_id" validate:"omitempty"`
	SequenceNumber   int            `json:"sequence_number" db:"sequence_number" validate:"omitempty"`
	SourceKey        string         `json:"source_key" db:"source_key" validate:"required,lte=512"`
	EncodingStatus   EncodingStatus `json:"encoding_status" db:"encoding_status" validate:"omitempty"`
	EncodingProgress int            `json:"encoding_progress" db:"encoding_progress" validate:"gte=0,lte=100"`
	EncodingError    *string        `json:"encoding_error" db:"encoding_error" validate:"omitempty"`
	ManifestURL      *string        `json:"manifest_url" db:"manifest_url" validate:"omitempty"`
	DurationSeconds  float64        `json:"duration_seconds" db:"duration_seconds" validate:"omitempty"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at" validate:"omitempty"`
}

type StatusCounts struct {
	Pending    int `json:"pending" db:"pending"`
	Processing int `json:"processing" db:"processing"`
	Completed  int `json:"completed" db:"completed"`
	Failed     int `json:"failed" db:"failed"`
}
