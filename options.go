package xar

import "log/slog"

// DefaultMaxTOCSize bounds the uncompressed TOC accepted by Open.
const DefaultMaxTOCSize = 256 << 20

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger for archive operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithVerifyTOC makes Open check the stored TOC checksum against the
// compressed TOC bytes.
func WithVerifyTOC() Option {
	return func(a *Archive) {
		a.verifyTOC = true
	}
}

// WithStrictTimestamps makes Open fail on TOC dates it cannot parse.
// By default such dates read as the time the archive was opened.
func WithStrictTimestamps() Option {
	return func(a *Archive) {
		a.strictTimestamps = true
	}
}

// WithMaxTOCSize limits the uncompressed TOC size.
// Zero uses DefaultMaxTOCSize. Negative means no limit.
func WithMaxTOCSize(n int64) Option {
	return func(a *Archive) {
		a.maxTOCSize = n
	}
}
