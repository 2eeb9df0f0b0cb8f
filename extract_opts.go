package xar

import "log/slog"

// ExtractedFunc is called once for every entry whose content was written.
// verifyErr is the checksum verification result, nil when verification
// passed or was not requested. With more than one worker it may be called
// concurrently.
type ExtractedFunc func(entry *Entry, verifyErr error)

// extractConfig holds configuration for Extract and ExtractAll.
type extractConfig struct {
	verify        bool
	onExtracted   ExtractedFunc
	workers       int
	logger        *slog.Logger
	preserveMode  bool
	preserveTimes bool
}

// ExtractOption configures extraction.
type ExtractOption func(*extractConfig)

// ExtractWithVerify re-hashes every written file and compares it with the
// checksum recorded in the TOC. Mismatches fail with ErrIntegrity, but the
// written file is left in place.
func ExtractWithVerify(verify bool) ExtractOption {
	return func(c *extractConfig) {
		c.verify = verify
	}
}

// ExtractWithCallback registers a function invoked after each entry is written.
func ExtractWithCallback(fn ExtractedFunc) ExtractOption {
	return func(c *extractConfig) {
		c.onExtracted = fn
	}
}

// ExtractWithWorkers sets how many entries are extracted concurrently.
// Values below 1 mean sequential extraction.
func ExtractWithWorkers(n int) ExtractOption {
	return func(c *extractConfig) {
		c.workers = n
	}
}

// ExtractWithLogger overrides the archive logger for one extraction.
func ExtractWithLogger(logger *slog.Logger) ExtractOption {
	return func(c *extractConfig) {
		c.logger = logger
	}
}

// ExtractWithPreserveMode applies permission bits from the TOC.
// By default files are created with mode 0644.
func ExtractWithPreserveMode(preserve bool) ExtractOption {
	return func(c *extractConfig) {
		c.preserveMode = preserve
	}
}

// ExtractWithPreserveTimes applies modification times from the TOC.
func ExtractWithPreserveTimes(preserve bool) ExtractOption {
	return func(c *extractConfig) {
		c.preserveTimes = preserve
	}
}

func (a *Archive) newExtractConfig(opts []ExtractOption) *extractConfig {
	cfg := &extractConfig{workers: 1}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}
	if cfg.logger == nil {
		cfg.logger = a.log()
	}
	return cfg
}
