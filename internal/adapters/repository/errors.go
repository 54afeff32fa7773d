package repository

import "errors"

// Sentinel kinds for record store errors.
var (
	ErrReplayNotFound  = errors.New("replay not found")
	ErrRecordNotFound  = errors.New("record not found")
	ErrMalformedRecord = errors.New("malformed record")
	ErrInvalidReplayID = errors.New("invalid replay id")
	ErrUnreadableKind  = errors.New("record kind not readable")
)
