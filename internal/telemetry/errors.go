package telemetry

import "errors"

// Sentinel error kinds for packet decoding.
var (
	ErrShortPacket       = errors.New("packet too short")
	ErrUnsupportedFormat = errors.New("unsupported packet format")
	ErrUnexpectedPacket  = errors.New("unexpected packet id")
)
