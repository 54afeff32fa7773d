package session

import "errors"

// ErrUnavailable reports that a replay has no decodable record of the
// requested kind. Callers choose the fallback.
var ErrUnavailable = errors.New("record unavailable")
