package media

import "errors"

var (
	// ErrNotFound is returned when a media unit or subtitle row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyProcessing guards against double-encoding the same unit.
	ErrAlreadyProcessing = errors.New("media unit is already processing")
	// ErrSubtitleInFlight rejects a duplicate request for a (media, language)
	// pair whose previous attempt has not reached a terminal state yet.
	ErrSubtitleInFlight = errors.New("subtitle generation already in flight")
)
