package session

import "github.com/okian/f1replay/pkg/logger"

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the index logger.
func WithLogger(l logger.Logger) Option {
	return func(x *Index) {
		if l != nil {
			x.log = l
		}
	}
}
