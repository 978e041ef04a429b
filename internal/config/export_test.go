package config

import "io"

// WithRootOpener overrides how the root configuration file is opened.
func WithRootOpener(open func(path string) (io.ReadCloser, error)) Option {
	return func(o *options) {
		o.openRoot = open
	}
}
