package xar

import (
	"log/slog"
	"time"

	"github.com/klauspost/compress/flate"
)

// writerConfig holds configuration for a Writer.
type writerConfig struct {
	checksum     ChecksumAlgorithm
	tocLevel     int
	creationTime time.Time
	logger       *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*writerConfig)

// WithChecksum sets the algorithm for the TOC checksum. The default is SHA1.
func WithChecksum(alg ChecksumAlgorithm) WriterOption {
	return func(c *writerConfig) {
		c.checksum = alg
	}
}

// WithTOCCompressionLevel sets the zlib level for the TOC.
// It accepts compress/flate levels; the default is flate.BestCompression.
func WithTOCCompressionLevel(level int) WriterOption {
	return func(c *writerConfig) {
		c.tocLevel = level
	}
}

// WithCreationTime fixes the creation time recorded in the TOC.
// By default the time of Write is used.
func WithCreationTime(t time.Time) WriterOption {
	return func(c *writerConfig) {
		c.creationTime = t
	}
}

// WithWriterLogger sets the logger for write operations.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) {
		c.logger = logger
	}
}

func defaultWriterConfig() writerConfig {
	return writerConfig{
		checksum: ChecksumSHA1,
		tocLevel: flate.BestCompression,
	}
}
