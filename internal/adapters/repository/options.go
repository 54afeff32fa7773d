package repository

import (
	"strings"

	"github.com/okian/f1replay/pkg/logger"
)

const defaultExtension = ".sqlite3"

type options struct {
	log       logger.Logger
	extension string
}

// Option configures a store.
type Option func(*options)

// WithLogger sets the logger used to report skipped records.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithExtension sets the file suffix that marks a replay file.
func WithExtension(ext string) Option {
	return func(o *options) {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		o.extension = ext
	}
}

func buildOptions(opts []Option) options {
	o := options{extension: defaultExtension}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get().Named("repository")
	}
	return o
}
