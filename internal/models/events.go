package models

import "time"

type JobKind string

const (
	JobKindEncode   JobKind = "encode"
	JobKindSubtitle JobKind = "subtitle"
)

// ProgressEvent is the pub/sub fan-out shape consumed by the UI and the CRUD
// layer. Events are published after the matching database write so a
// subscriber never observes state that is not yet durable.
type ProgressEvent struct {
	JobID     string    `json:"job_id"`
	Kind      JobKind   `json:"kind"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
