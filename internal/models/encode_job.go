package models

import "time"

// EncodeJob is the queue payload pushed by the CRUD layer once a source
// upload has been verified. Delivery is at-least-once: a worker crash
// mid-job leaves the MediaUnit in processing until an operator retries.
type EncodeJob struct {
	JobID       string    `json:"job_id" redis:"job_id" validate:"required"`
	MediaID     string    `json:"media_id" redis:"media_id" validate:"required,uuid"`
	SourceKey   string    `json:"source_key" redis:"source_key" validate:"required"`
	RequestedAt time.Time `json:"requested_at" redis:"requested_at" validate:"omitempty"`
}
