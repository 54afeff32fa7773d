package api

import (
	"errors"
	"fmt"

	"github.com/okian/f1replay/internal/adapters/repository"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

// Error is an API error carrying the handler operation and its kind.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Kind != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap attaches op to err.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind attaches op and kind to err.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Classify attaches op to err and, for store failures a caller can fix,
// the matching kind.
func Classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrReplayNotFound):
		return WrapKind(op, ErrNotFound, err)
	case errors.Is(err, repository.ErrInvalidReplayID):
		return WrapKind(op, ErrBadRequest, err)
	}
	return Wrap(op, err)
}
