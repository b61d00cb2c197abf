package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate(). Callers match them
// with errors.Is().
var (
	// ErrNoTarget is returned when no website URL is given.
	ErrNoTarget = errors.New("no target specified: provide a website URL")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrInvalidConcurrency is returned when the batch concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --markdown and
	// --text are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --markdown and --text cannot be used together")

	// ErrEmptyPaths is returned when the priority path list is empty.
	ErrEmptyPaths = errors.New("invalid configuration: priority path list is empty")
)
